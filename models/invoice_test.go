package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return v
}

func assertDec(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s: got %s, want %s", name, got.String(), want)
	}
}

func fixedChargeItem(t *testing.T) InvoiceItem {
	return InvoiceItem{
		Quantity:         1,
		NetWeight:        mustDec(t, "10"),
		MetalRate:        mustDec(t, "5000"),
		MakingChargeType: MakingChargeFixed,
		MakingChargeRate: mustDec(t, "5000"),
	}
}

func TestInvoiceItemCalculate_IntraStateExample(t *testing.T) {
	item := fixedChargeItem(t)
	item.Calculate(SupplyIntraState, DefaultGSTRates)

	assertDec(t, "metal_amount", item.MetalAmount, "50000")
	assertDec(t, "making_charge_amount", item.MakingChargeAmount, "5000")
	assertDec(t, "metal_cgst", item.MetalCgst, "750")
	assertDec(t, "metal_sgst", item.MetalSgst, "750")
	assertDec(t, "making_cgst", item.MakingCgst, "125")
	assertDec(t, "making_sgst", item.MakingSgst, "125")
	assertDec(t, "igst", item.IgstAmount, "0")
	assertDec(t, "total_gst", item.TotalGst, "1750")
	assertDec(t, "line_total", item.LineTotal, "56750")
}

func TestInvoiceItemCalculate_InterStateUsesIGST(t *testing.T) {
	item := fixedChargeItem(t)
	item.Calculate(SupplyInterState, DefaultGSTRates)

	assertDec(t, "cgst", item.CgstAmount, "0")
	assertDec(t, "sgst", item.SgstAmount, "0")
	assertDec(t, "metal_igst", item.MetalIgst, "1500")
	assertDec(t, "making_igst", item.MakingIgst, "250")
	assertDec(t, "total_gst", item.TotalGst, "1750")
}

func TestInvoiceItemCalculate_LineTotalIdentity(t *testing.T) {
	cases := []InvoiceItem{
		{Quantity: 1, NetWeight: mustDec(t, "7.345"), MetalRate: mustDec(t, "6123.45"), WastagePercentage: mustDec(t, "8"),
			MakingChargeType: MakingChargePerGram, MakingChargeRate: mustDec(t, "450"), StoneAmount: mustDec(t, "1200"), DiscountPercentage: mustDec(t, "2.5")},
		{Quantity: 2, NetWeight: mustDec(t, "3.333"), MetalRate: mustDec(t, "5999.99"),
			MakingChargeType: MakingChargePercentage, MakingChargeRate: mustDec(t, "12.5")},
		{Quantity: 3, NetWeight: mustDec(t, "1.001"), MetalRate: mustDec(t, "78.5"), WastagePercentage: mustDec(t, "3"),
			MakingChargeType: MakingChargeSlab, MakingChargeRate: mustDec(t, "99.99"), DiscountPercentage: mustDec(t, "1")},
	}
	for _, supply := range []SupplyType{SupplyIntraState, SupplyInterState} {
		for i := range cases {
			item := cases[i]
			item.Calculate(supply, DefaultGSTRates)
			want := item.MetalAmount.Add(item.WastageAmount).Add(item.MakingChargeAmount).Add(item.StoneAmount).
				Add(item.TotalGst).Sub(item.DiscountAmount)
			if !item.LineTotal.Equal(want) {
				t.Fatalf("case %d %s: line_total %s, want %s", i, supply, item.LineTotal, want)
			}
			for name, v := range map[string]decimal.Decimal{
				"metal": item.MetalAmount, "wastage": item.WastageAmount, "making": item.MakingChargeAmount,
				"cgst": item.CgstAmount, "sgst": item.SgstAmount, "igst": item.IgstAmount, "discount": item.DiscountAmount,
			} {
				if !v.Equal(v.Round(2)) {
					t.Fatalf("case %d %s: %s not rounded to 2dp: %s", i, supply, name, v)
				}
			}
			if supply == SupplyIntraState && (!item.CgstAmount.Equal(item.SgstAmount) || !item.IgstAmount.IsZero()) {
				t.Fatalf("case %d: intra split cgst=%s sgst=%s igst=%s", i, item.CgstAmount, item.SgstAmount, item.IgstAmount)
			}
			if supply == SupplyInterState && (!item.CgstAmount.IsZero() || !item.SgstAmount.IsZero()) {
				t.Fatalf("case %d: inter split has cgst/sgst", i)
			}
		}
	}
}

func TestInvoiceItemCalculate_WastageAndPercentageMaking(t *testing.T) {
	item := InvoiceItem{
		Quantity:          1,
		NetWeight:         mustDec(t, "10"),
		MetalRate:         mustDec(t, "6000"),
		WastagePercentage: mustDec(t, "5"),
		MakingChargeType:  MakingChargePercentage,
		MakingChargeRate:  mustDec(t, "10"),
		StoneAmount:       mustDec(t, "500"),
	}
	item.Calculate(SupplyIntraState, DefaultGSTRates)

	assertDec(t, "metal_amount", item.MetalAmount, "60000")
	assertDec(t, "wastage_amount", item.WastageAmount, "3000")
	assertDec(t, "making_charge_amount", item.MakingChargeAmount, "6000")
	assertDec(t, "subtotal", item.Subtotal, "69500")
}

func TestInvoiceItemCalculate_DiscountIsNotStale(t *testing.T) {
	item := fixedChargeItem(t)
	item.DiscountPercentage = mustDec(t, "10")
	item.Calculate(SupplyIntraState, DefaultGSTRates)
	assertDec(t, "discount", item.DiscountAmount, "5500")

	item.DiscountPercentage = decimal.Zero
	item.Calculate(SupplyIntraState, DefaultGSTRates)
	assertDec(t, "discount after reset", item.DiscountAmount, "0")
	assertDec(t, "line_total", item.LineTotal, "56750")
}

func TestSnapshotInvoiceItem_ScalesWithQuantity(t *testing.T) {
	p := Product{
		Name:             "Ring",
		Sku:              "R-1",
		MetalType:        MetalTypeGold,
		Purity:           mustDec(t, "91.6"),
		GrossWeight:      mustDec(t, "5.5"),
		StoneWeight:      mustDec(t, "0.5"),
		NetWeight:        mustDec(t, "5"),
		MakingChargeType: MakingChargeFixed,
		MakingChargeRate: mustDec(t, "800"),
		StoneAmount:      mustDec(t, "250"),
	}
	item := SnapshotInvoiceItem(p, 2, mustDec(t, "6000"), decimal.Zero)
	item.Calculate(SupplyIntraState, DefaultGSTRates)

	assertDec(t, "gross_weight", item.GrossWeight, "11")
	assertDec(t, "net_weight", item.NetWeight, "10")
	assertDec(t, "stone_amount", item.StoneAmount, "500")
	assertDec(t, "making_charge_amount", item.MakingChargeAmount, "1600")
	assertDec(t, "metal_amount", item.MetalAmount, "60000")
}

func TestOldGoldCalculate(t *testing.T) {
	og := OldGoldTransaction{
		GrossWeight:         mustDec(t, "10"),
		StoneWeight:         mustDec(t, "1"),
		Purity:              mustDec(t, "91.6"),
		Rate:                mustDec(t, "6000"),
		DeductionPercentage: mustDec(t, "2"),
	}
	og.Calculate()

	assertDec(t, "net_weight", og.NetWeight, "9")
	assertDec(t, "fine_weight", og.FineWeight, "8.244")
	assertDec(t, "gross_value", og.GrossValue, "49464")
	assertDec(t, "deduction_amount", og.DeductionAmount, "989.28")
	assertDec(t, "final_value", og.FinalValue, "48474.72")
}

func TestInvoiceApplyTotals(t *testing.T) {
	item := fixedChargeItem(t)
	item.Calculate(SupplyIntraState, DefaultGSTRates)
	og := OldGoldTransaction{FinalValue: mustDec(t, "48474.72")}

	inv := Invoice{DiscountPercentage: mustDec(t, "1")}
	inv.ApplyTotals([]InvoiceItem{item}, &og, mustDec(t, "5000"))

	assertDec(t, "subtotal", inv.Subtotal, "55000")
	assertDec(t, "total_gst", inv.TotalGst, "1750")
	assertDec(t, "discount_amount", inv.DiscountAmount, "550")
	assertDec(t, "old_gold_amount", inv.OldGoldAmount, "48474.72")
	assertDec(t, "total_amount", inv.TotalAmount, "7725.28")
	assertDec(t, "grand_total", inv.GrandTotal, "7725")
	assertDec(t, "round_off", inv.RoundOff, "-0.28")
	assertDec(t, "balance_due", inv.BalanceDue, "2725")
	if inv.PaymentStatus != PaymentStatusPartial {
		t.Fatalf("payment_status: got %s, want partial", inv.PaymentStatus)
	}

	inv.ApplyPayment(mustDec(t, "2725"))
	assertDec(t, "balance_due after payment", inv.BalanceDue, "0")
	if inv.PaymentStatus != PaymentStatusPaid {
		t.Fatalf("payment_status: got %s, want paid", inv.PaymentStatus)
	}
}

func TestPaymentStatusFor(t *testing.T) {
	cases := []struct {
		balance string
		paid    string
		want    PaymentStatus
	}{
		{"0", "100", PaymentStatusPaid},
		{"-1", "101", PaymentStatusPaid},
		{"50", "50", PaymentStatusPartial},
		{"100", "0", PaymentStatusPending},
	}
	for _, tt := range cases {
		if got := PaymentStatusFor(mustDec(t, tt.balance), mustDec(t, tt.paid)); got != tt.want {
			t.Fatalf("PaymentStatusFor(%s, %s)=%s, want %s", tt.balance, tt.paid, got, tt.want)
		}
	}
}

func TestResolveSupplyType(t *testing.T) {
	cases := []struct {
		explicit SupplyType
		company  string
		party    string
		want     SupplyType
	}{
		{"", "27", "27", SupplyIntraState},
		{"", "27", "29", SupplyInterState},
		{"", "27", "", SupplyIntraState},
		{SupplyIntraState, "27", "29", SupplyIntraState},
		{SupplyInterState, "27", "27", SupplyInterState},
	}
	for _, tt := range cases {
		if got := ResolveSupplyType(tt.explicit, tt.company, tt.party); got != tt.want {
			t.Fatalf("ResolveSupplyType(%q, %q, %q)=%s, want %s", tt.explicit, tt.company, tt.party, got, tt.want)
		}
	}
}
