package models

import (
	"time"

	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/shopspring/decimal"
)

// GSTRates are the percentages charged on the metal value and on making
// charges.
type GSTRates struct {
	Metal  decimal.Decimal `json:"metal"`
	Making decimal.Decimal `json:"making"`
}

var DefaultGSTRates = GSTRates{
	Metal:  decimal.NewFromInt(3),
	Making: decimal.NewFromInt(5),
}

type Invoice struct {
	DocumentBase
	InvoiceNumber      string          `gorm:"size:50;not null;uniqueIndex:,composite:branch_number,priority:2" json:"invoice_number"`
	CustomerId         string          `gorm:"size:36;index;not null" json:"customer_id"`
	InvoiceDate        time.Time       `gorm:"not null;index" json:"invoice_date"`
	SupplyType         SupplyType      `gorm:"size:10;not null;default:'intra'" json:"supply_type"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"subtotal"`
	MetalAmount        decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"metal_amount"`
	WastageAmount      decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"wastage_amount"`
	MakingChargeAmount decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"making_charge_amount"`
	StoneAmount        decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"stone_amount"`
	CgstAmount         decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"cgst_amount"`
	SgstAmount         decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"sgst_amount"`
	IgstAmount         decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"igst_amount"`
	TotalGst           decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"total_gst"`
	ItemDiscountAmount decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"item_discount_amount"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"discount_amount"`
	OldGoldAmount      decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"old_gold_amount"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"total_amount"`
	RoundOff           decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"round_off"`
	GrandTotal         decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"grand_total"`
	AmountPaid         decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"amount_paid"`
	BalanceDue         decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"balance_due"`
	PaymentStatus      PaymentStatus   `gorm:"size:20;not null;default:'pending'" json:"payment_status"`
	Status             InvoiceStatus   `gorm:"size:20;not null;default:'active';index" json:"status"`
	Notes              string          `gorm:"type:text" json:"notes"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceItem is a product snapshot taken at sale time. Weights, stone
// amount and fixed making charges cover the whole quantity.
type InvoiceItem struct {
	Base
	InvoiceId          string           `gorm:"size:36;index;not null" json:"invoice_id"`
	ProductId          string           `gorm:"size:36;index;not null" json:"product_id"`
	ProductName        string           `gorm:"size:255" json:"product_name"`
	Sku                string           `gorm:"size:64" json:"sku"`
	Huid               string           `gorm:"size:16" json:"huid"`
	HsnCode            string           `gorm:"size:16" json:"hsn_code"`
	MetalType          MetalType        `gorm:"size:20" json:"metal_type"`
	Purity             decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"purity"`
	Quantity           int              `gorm:"not null;default:1" json:"quantity"`
	GrossWeight        decimal.Decimal  `gorm:"type:decimal(20,3);default:0" json:"gross_weight"`
	StoneWeight        decimal.Decimal  `gorm:"type:decimal(20,3);default:0" json:"stone_weight"`
	NetWeight          decimal.Decimal  `gorm:"type:decimal(20,3);default:0" json:"net_weight"`
	MetalRate          decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"metal_rate"`
	WastagePercentage  decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"wastage_percentage"`
	MakingChargeType   MakingChargeType `gorm:"size:20" json:"making_charge_type"`
	MakingChargeRate   decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"making_charge_rate"`
	MetalAmount        decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"metal_amount"`
	WastageAmount      decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"wastage_amount"`
	MakingChargeAmount decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"making_charge_amount"`
	StoneAmount        decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"stone_amount"`
	Subtotal           decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"subtotal"`
	MetalCgst          decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"metal_cgst"`
	MetalSgst          decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"metal_sgst"`
	MetalIgst          decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"metal_igst"`
	MakingCgst         decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"making_cgst"`
	MakingSgst         decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"making_sgst"`
	MakingIgst         decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"making_igst"`
	CgstAmount         decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"cgst_amount"`
	SgstAmount         decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"sgst_amount"`
	IgstAmount         decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"igst_amount"`
	TotalGst           decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"total_gst"`
	DiscountPercentage decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"discount_percentage"`
	DiscountAmount     decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"discount_amount"`
	LineTotal          decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"line_total"`
}

func (InvoiceItem) TableName() string {
	return "invoice_items"
}

type InvoicePayment struct {
	Base
	InvoiceId   string          `gorm:"size:36;index;not null" json:"invoice_id"`
	PaymentMode PaymentMode     `gorm:"size:20;not null" json:"payment_mode"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Reference   string          `gorm:"size:100" json:"reference"`
	PaymentDate time.Time       `gorm:"not null" json:"payment_date"`
}

func (InvoicePayment) TableName() string {
	return "invoice_payments"
}

// OldGoldTransaction is metal taken back from the customer against an invoice.
type OldGoldTransaction struct {
	Base
	InvoiceId           string          `gorm:"size:36;index" json:"invoice_id"`
	CustomerId          string          `gorm:"size:36;index;not null" json:"customer_id"`
	MetalType           MetalType       `gorm:"size:20;not null" json:"metal_type"`
	GrossWeight         decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"gross_weight"`
	StoneWeight         decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"stone_weight"`
	NetWeight           decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"net_weight"`
	Purity              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"purity"`
	FineWeight          decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"fine_weight"`
	Rate                decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"rate"`
	GrossValue          decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"gross_value"`
	DeductionPercentage decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"deduction_percentage"`
	DeductionAmount     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"deduction_amount"`
	FinalValue          decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"final_value"`
}

func (OldGoldTransaction) TableName() string {
	return "old_gold_transactions"
}

// SnapshotInvoiceItem snapshots p for qty units sold at rate.
func SnapshotInvoiceItem(p Product, qty int, rate decimal.Decimal, discountPct decimal.Decimal) InvoiceItem {
	q := decimal.NewFromInt(int64(qty))
	return InvoiceItem{
		ProductId:          p.ID,
		ProductName:        p.Name,
		Sku:                p.Sku,
		Huid:               p.Huid,
		HsnCode:            p.HsnCode,
		MetalType:          p.MetalType,
		Purity:             p.Purity,
		Quantity:           qty,
		GrossWeight:        utils.RoundWeight(p.GrossWeight.Mul(q)),
		StoneWeight:        utils.RoundWeight(p.StoneWeight.Mul(q)),
		NetWeight:          utils.RoundWeight(p.NetWeight.Mul(q)),
		MetalRate:          rate,
		WastagePercentage:  p.WastagePercentage,
		MakingChargeType:   p.MakingChargeType,
		MakingChargeRate:   p.MakingChargeRate,
		StoneAmount:        utils.RoundMoney(p.StoneAmount.Mul(q)),
		DiscountPercentage: discountPct,
	}
}

// Calculate prices the line. Every monetary component is rounded to 2 dp
// before it is summed. The discount is recomputed on every call.
func (item *InvoiceItem) Calculate(supply SupplyType, rates GSTRates) {
	item.MetalAmount = utils.RoundMoney(item.NetWeight.Mul(item.MetalRate))

	item.WastageAmount = decimal.Zero
	if item.WastagePercentage.GreaterThan(decimal.Zero) {
		item.WastageAmount = utils.RoundMoney(utils.PercentOf(item.NetWeight, item.WastagePercentage).Mul(item.MetalRate))
	}

	switch item.MakingChargeType {
	case MakingChargePerGram:
		item.MakingChargeAmount = utils.RoundMoney(item.MakingChargeRate.Mul(item.NetWeight))
	case MakingChargePercentage:
		item.MakingChargeAmount = utils.RoundMoney(utils.PercentOf(item.MetalAmount, item.MakingChargeRate))
	default:
		// fixed and slab: a flat amount per unit
		item.MakingChargeAmount = utils.RoundMoney(item.MakingChargeRate.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	item.Subtotal = item.MetalAmount.Add(item.WastageAmount).Add(item.MakingChargeAmount).Add(item.StoneAmount)

	inter := supply.IsInterState()
	metal := utils.SplitGST(item.MetalAmount, rates.Metal, inter)
	making := utils.SplitGST(item.MakingChargeAmount, rates.Making, inter)
	item.MetalCgst, item.MetalSgst, item.MetalIgst = metal.CGST, metal.SGST, metal.IGST
	item.MakingCgst, item.MakingSgst, item.MakingIgst = making.CGST, making.SGST, making.IGST
	total := metal.Add(making)
	item.CgstAmount, item.SgstAmount, item.IgstAmount = total.CGST, total.SGST, total.IGST
	item.TotalGst = total.Total()

	item.DiscountAmount = utils.DiscountAmount(item.Subtotal, item.DiscountPercentage)
	item.LineTotal = item.Subtotal.Add(item.TotalGst).Sub(item.DiscountAmount)
}

// Calculate values the trade-in.
func (og *OldGoldTransaction) Calculate() {
	og.NetWeight = utils.RoundWeight(og.GrossWeight.Sub(og.StoneWeight))
	og.FineWeight = FineWeight(og.NetWeight, og.Purity)
	og.GrossValue = utils.RoundMoney(og.FineWeight.Mul(og.Rate))
	og.DeductionAmount = utils.RoundMoney(utils.PercentOf(og.GrossValue, og.DeductionPercentage))
	og.FinalValue = og.GrossValue.Sub(og.DeductionAmount)
}

// ApplyTotals aggregates the priced items, the optional trade-in and the
// amount already paid into the invoice header.
func (inv *Invoice) ApplyTotals(items []InvoiceItem, oldGold *OldGoldTransaction, paid decimal.Decimal) {
	inv.Subtotal = decimal.Zero
	inv.MetalAmount = decimal.Zero
	inv.WastageAmount = decimal.Zero
	inv.MakingChargeAmount = decimal.Zero
	inv.StoneAmount = decimal.Zero
	inv.CgstAmount = decimal.Zero
	inv.SgstAmount = decimal.Zero
	inv.IgstAmount = decimal.Zero
	inv.TotalGst = decimal.Zero
	inv.ItemDiscountAmount = decimal.Zero
	lineTotals := decimal.Zero
	for _, it := range items {
		inv.Subtotal = inv.Subtotal.Add(it.Subtotal)
		inv.MetalAmount = inv.MetalAmount.Add(it.MetalAmount)
		inv.WastageAmount = inv.WastageAmount.Add(it.WastageAmount)
		inv.MakingChargeAmount = inv.MakingChargeAmount.Add(it.MakingChargeAmount)
		inv.StoneAmount = inv.StoneAmount.Add(it.StoneAmount)
		inv.CgstAmount = inv.CgstAmount.Add(it.CgstAmount)
		inv.SgstAmount = inv.SgstAmount.Add(it.SgstAmount)
		inv.IgstAmount = inv.IgstAmount.Add(it.IgstAmount)
		inv.TotalGst = inv.TotalGst.Add(it.TotalGst)
		inv.ItemDiscountAmount = inv.ItemDiscountAmount.Add(it.DiscountAmount)
		lineTotals = lineTotals.Add(it.LineTotal)
	}

	inv.DiscountAmount = utils.DiscountAmount(inv.Subtotal, inv.DiscountPercentage)
	inv.OldGoldAmount = decimal.Zero
	if oldGold != nil {
		inv.OldGoldAmount = oldGold.FinalValue
	}

	inv.TotalAmount = lineTotals.Sub(inv.DiscountAmount).Sub(inv.OldGoldAmount)
	inv.GrandTotal = inv.TotalAmount.Round(0)
	inv.RoundOff = inv.GrandTotal.Sub(inv.TotalAmount)
	inv.AmountPaid = paid
	inv.refreshBalance()
}

// ApplyPayment adds a later payment to the invoice.
func (inv *Invoice) ApplyPayment(amount decimal.Decimal) {
	inv.AmountPaid = inv.AmountPaid.Add(amount)
	inv.refreshBalance()
}

func (inv *Invoice) refreshBalance() {
	inv.BalanceDue = inv.GrandTotal.Sub(inv.AmountPaid)
	inv.PaymentStatus = PaymentStatusFor(inv.BalanceDue, inv.AmountPaid)
}

// PaymentStatusFor is paid once nothing is due, partial after any payment,
// pending otherwise.
func PaymentStatusFor(balance decimal.Decimal, paid decimal.Decimal) PaymentStatus {
	if !balance.GreaterThan(decimal.Zero) {
		return PaymentStatusPaid
	}
	if paid.GreaterThan(decimal.Zero) {
		return PaymentStatusPartial
	}
	return PaymentStatusPending
}

type NewInvoiceItem struct {
	ProductId          string          `json:"product_id" validate:"required"`
	Quantity           int             `json:"quantity" validate:"min=1"`
	MetalRate          decimal.Decimal `json:"metal_rate" validate:"gte=0"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage" validate:"gte=0,lte=100"`
}

type NewOldGold struct {
	MetalType           MetalType       `json:"metal_type" validate:"required,oneof=gold silver platinum"`
	GrossWeight         decimal.Decimal `json:"gross_weight" validate:"gt=0"`
	StoneWeight         decimal.Decimal `json:"stone_weight" validate:"gte=0"`
	Purity              decimal.Decimal `json:"purity" validate:"gt=0,lte=100"`
	Rate                decimal.Decimal `json:"rate" validate:"gt=0"`
	DeductionPercentage decimal.Decimal `json:"deduction_percentage" validate:"gte=0,lte=100"`
}

type NewInvoicePayment struct {
	PaymentMode PaymentMode     `json:"payment_mode" validate:"required,oneof=cash card upi bank_transfer cheque"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Reference   string          `json:"reference" validate:"max=100"`
}

type NewInvoice struct {
	CustomerId         string              `json:"customer_id" validate:"required"`
	InvoiceDate        *time.Time          `json:"invoice_date"`
	SupplyType         SupplyType          `json:"supply_type" validate:"omitempty,oneof=intra inter"`
	DiscountPercentage decimal.Decimal     `json:"discount_percentage" validate:"gte=0,lte=100"`
	Items              []NewInvoiceItem    `json:"items" validate:"required,min=1,dive"`
	OldGold            *NewOldGold         `json:"old_gold"`
	Payments           []NewInvoicePayment `json:"payments" validate:"dive"`
	Notes              string              `json:"notes"`
}

// InvoiceDetail is an invoice with its child rows, as returned to callers.
type InvoiceDetail struct {
	Invoice
	Items    []InvoiceItem       `json:"items"`
	Payments []InvoicePayment    `json:"payments"`
	OldGold  *OldGoldTransaction `json:"old_gold,omitempty"`
}
