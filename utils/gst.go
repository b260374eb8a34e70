package utils

import (
	"github.com/shopspring/decimal"
)

var (
	decimalOneHundred = decimal.NewFromInt(100)
	decimalTwo        = decimal.NewFromInt(2)
)

// RoundMoney rounds to paise (2 dp), half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundWeight rounds to milligrams (3 dp).
func RoundWeight(d decimal.Decimal) decimal.Decimal {
	return d.Round(3)
}

// PercentOf returns amount * pct / 100, unrounded.
func PercentOf(amount decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(decimalOneHundred)
}

// GSTSplit is the tax on one base amount, each component already rounded.
type GSTSplit struct {
	CGST decimal.Decimal
	SGST decimal.Decimal
	IGST decimal.Decimal
}

func (s GSTSplit) Total() decimal.Decimal {
	return s.CGST.Add(s.SGST).Add(s.IGST)
}

func (s GSTSplit) Add(o GSTSplit) GSTSplit {
	return GSTSplit{
		CGST: s.CGST.Add(o.CGST),
		SGST: s.SGST.Add(o.SGST),
		IGST: s.IGST.Add(o.IGST),
	}
}

// SplitGST taxes base at ratePct. Intra-state sales split the rate evenly into
// CGST and SGST; inter-state sales charge the full rate as IGST. Every
// component is rounded to 2 dp on its own.
func SplitGST(base decimal.Decimal, ratePct decimal.Decimal, interState bool) GSTSplit {
	if interState {
		return GSTSplit{
			CGST: decimal.Zero,
			SGST: decimal.Zero,
			IGST: RoundMoney(PercentOf(base, ratePct)),
		}
	}
	half := ratePct.Div(decimalTwo)
	return GSTSplit{
		CGST: RoundMoney(PercentOf(base, half)),
		SGST: RoundMoney(PercentOf(base, half)),
		IGST: decimal.Zero,
	}
}

// DiscountAmount is zero unless pct is positive.
func DiscountAmount(subtotal decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	if !pct.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}
	return RoundMoney(PercentOf(subtotal, pct))
}
