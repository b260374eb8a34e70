package utils

import (
	"errors"
	"strings"

	"github.com/ttacon/libphonenumber"
)

var CountryCode = "IN"

// NormalizePhone parses a phone number (national or international form) and
// returns it in E.164. Empty input stays empty.
func NormalizePhone(phoneNumber string) (string, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return "", nil
	}
	p, err := libphonenumber.Parse(phoneNumber, CountryCode)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", errors.New("phone number is not valid")
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

func NewTrue() *bool {
	b := true
	return &b
}

// CeilDiv is ceil(a/b) for positive ints.
func CeilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
