package utils

import (
	"bytes"
	"encoding/json"
)

// UnmarshalStrict decodes data into output, rejecting fields output does not declare.
func UnmarshalStrict(data []byte, output any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(output)
}
