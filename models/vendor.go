package models

import (
	"time"

	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/shopspring/decimal"
)

// PurchaseGSTRate applies to bullion and finished jewellery bought in.
var PurchaseGSTRate = decimal.NewFromInt(3)

type Vendor struct {
	Base
	Name               string          `gorm:"size:255;not null" json:"name"`
	Phone              string          `gorm:"size:20" json:"phone"`
	Gstin              string          `gorm:"size:15" json:"gstin"`
	StateCode          string          `gorm:"size:2" json:"state_code"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"outstanding_balance"`
}

func (Vendor) TableName() string {
	return "vendors"
}

type PurchaseOrder struct {
	DocumentBase
	PoNumber     string              `gorm:"size:50;not null;uniqueIndex:,composite:branch_number,priority:2" json:"po_number"`
	VendorId     string              `gorm:"size:36;index;not null" json:"vendor_id"`
	OrderDate    time.Time           `gorm:"not null" json:"order_date"`
	ExpectedDate *time.Time          `json:"expected_date"`
	SupplyType   SupplyType          `gorm:"size:10;not null;default:'intra'" json:"supply_type"`
	Subtotal     decimal.Decimal     `gorm:"type:decimal(20,2);default:0" json:"subtotal"`
	Cgst         decimal.Decimal     `gorm:"type:decimal(20,2);default:0" json:"cgst"`
	Sgst         decimal.Decimal     `gorm:"type:decimal(20,2);default:0" json:"sgst"`
	Igst         decimal.Decimal     `gorm:"type:decimal(20,2);default:0" json:"igst"`
	TotalGst     decimal.Decimal     `gorm:"type:decimal(20,2);default:0" json:"total_gst"`
	TotalAmount  decimal.Decimal     `gorm:"type:decimal(20,2);default:0" json:"total_amount"`
	Status       PurchaseOrderStatus `gorm:"size:20;not null;default:'ordered';index" json:"status"`
	ReceivedDate *time.Time          `json:"received_date"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

type PurchaseOrderItem struct {
	Base
	PurchaseOrderId string          `gorm:"size:36;index;not null" json:"purchase_order_id"`
	ProductId       string          `gorm:"size:36;index" json:"product_id"`
	Description     string          `gorm:"size:255" json:"description"`
	MetalType       MetalType       `gorm:"size:20" json:"metal_type"`
	Purity          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"purity"`
	Quantity        int             `gorm:"not null;default:1" json:"quantity"`
	Weight          decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"weight"`
	Rate            decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"rate"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"amount"`
}

func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

// Calculate prices by weight when a weight is given, otherwise by quantity.
func (item *PurchaseOrderItem) Calculate() {
	if item.Weight.GreaterThan(decimal.Zero) {
		item.Amount = utils.RoundMoney(item.Weight.Mul(item.Rate))
		return
	}
	item.Amount = utils.RoundMoney(decimal.NewFromInt(int64(item.Quantity)).Mul(item.Rate))
}

func (po *PurchaseOrder) ApplyTotals(items []PurchaseOrderItem) {
	po.Subtotal = decimal.Zero
	for _, it := range items {
		po.Subtotal = po.Subtotal.Add(it.Amount)
	}
	gst := utils.SplitGST(po.Subtotal, PurchaseGSTRate, po.SupplyType.IsInterState())
	po.Cgst, po.Sgst, po.Igst = gst.CGST, gst.SGST, gst.IGST
	po.TotalGst = gst.Total()
	po.TotalAmount = po.Subtotal.Add(po.TotalGst)
}

type NewVendor struct {
	Name      string `json:"name" validate:"required,max=255"`
	Phone     string `json:"phone" validate:"max=20"`
	Gstin     string `json:"gstin" validate:"omitempty,len=15"`
	StateCode string `json:"state_code" validate:"omitempty,len=2"`
}

type NewPurchaseOrderItem struct {
	ProductId   string          `json:"product_id"`
	Description string          `json:"description" validate:"required"`
	MetalType   MetalType       `json:"metal_type" validate:"omitempty,oneof=gold silver platinum"`
	Purity      decimal.Decimal `json:"purity" validate:"gte=0,lte=100"`
	Quantity    int             `json:"quantity" validate:"min=1"`
	Weight      decimal.Decimal `json:"weight" validate:"gte=0"`
	Rate        decimal.Decimal `json:"rate" validate:"gt=0"`
}

type NewPurchaseOrder struct {
	VendorId     string                 `json:"vendor_id" validate:"required"`
	OrderDate    *time.Time             `json:"order_date"`
	ExpectedDate *time.Time             `json:"expected_date"`
	Items        []NewPurchaseOrderItem `json:"items" validate:"required,min=1,dive"`
}

type PurchaseOrderDetail struct {
	PurchaseOrder
	Items []PurchaseOrderItem `json:"items"`
}
