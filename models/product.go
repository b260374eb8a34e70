package models

import (
	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/shopspring/decimal"
)

// Product is one stocked design. Weights and stone amount are per unit.
type Product struct {
	Base
	Sku               string           `gorm:"size:64;uniqueIndex;not null" json:"sku"`
	Name              string           `gorm:"size:255;not null" json:"name"`
	Huid              string           `gorm:"size:16" json:"huid"`
	HsnCode           string           `gorm:"size:16;default:'7113'" json:"hsn_code"`
	Category          string           `gorm:"size:100" json:"category"`
	MetalType         MetalType        `gorm:"size:20;not null" json:"metal_type"`
	Purity            decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"purity"`
	GrossWeight       decimal.Decimal  `gorm:"type:decimal(20,3);default:0" json:"gross_weight"`
	StoneWeight       decimal.Decimal  `gorm:"type:decimal(20,3);default:0" json:"stone_weight"`
	NetWeight         decimal.Decimal  `gorm:"type:decimal(20,3);default:0" json:"net_weight"`
	WastagePercentage decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"wastage_percentage"`
	MakingChargeType  MakingChargeType `gorm:"size:20;not null;default:'per_gram'" json:"making_charge_type"`
	MakingChargeRate  decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"making_charge_rate"`
	StoneAmount       decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"stone_amount"`
	CurrentStock      int              `gorm:"not null;default:0" json:"current_stock"`
	ReorderLevel      int              `gorm:"not null;default:0" json:"reorder_level"`
	Status            ProductStatus    `gorm:"size:20;not null;default:'available'" json:"status"`
}

func (Product) TableName() string {
	return "products"
}

// ComputeNetWeight sets NetWeight from gross and stone weight.
func (p *Product) ComputeNetWeight() {
	p.NetWeight = utils.RoundWeight(p.GrossWeight.Sub(p.StoneWeight))
}

// FineWeight is the pure metal content of one unit.
func (p Product) FineWeight() decimal.Decimal {
	return FineWeight(p.NetWeight, p.Purity)
}

// ApplyStockDelta moves stock and keeps status consistent with it.
func (p *Product) ApplyStockDelta(delta int) error {
	next := p.CurrentStock + delta
	if next < 0 {
		return utils.NewValidationError(ErrInsufficientStock, p.Sku)
	}
	p.CurrentStock = next
	if next == 0 {
		p.Status = ProductStatusSold
	} else if p.Status == ProductStatusSold {
		p.Status = ProductStatusAvailable
	}
	return nil
}

func (p Product) IsLowStock() bool {
	return p.CurrentStock <= p.ReorderLevel
}

type NewProduct struct {
	Sku               string           `json:"sku" validate:"required,max=64"`
	Name              string           `json:"name" validate:"required,max=255"`
	Huid              string           `json:"huid" validate:"omitempty,max=16"`
	HsnCode           string           `json:"hsn_code"`
	Category          string           `json:"category"`
	MetalType         MetalType        `json:"metal_type" validate:"required,oneof=gold silver platinum"`
	Purity            decimal.Decimal  `json:"purity" validate:"gt=0,lte=100"`
	GrossWeight       decimal.Decimal  `json:"gross_weight" validate:"gt=0"`
	StoneWeight       decimal.Decimal  `json:"stone_weight" validate:"gte=0"`
	WastagePercentage decimal.Decimal  `json:"wastage_percentage" validate:"gte=0"`
	MakingChargeType  MakingChargeType `json:"making_charge_type" validate:"required,oneof=per_gram percentage fixed slab"`
	MakingChargeRate  decimal.Decimal  `json:"making_charge_rate" validate:"gte=0"`
	StoneAmount       decimal.Decimal  `json:"stone_amount" validate:"gte=0"`
	CurrentStock      int              `json:"current_stock" validate:"gte=0"`
	ReorderLevel      int              `json:"reorder_level" validate:"gte=0"`
}

// FineWeight is net weight times purity percentage, to 3 dp.
func FineWeight(net decimal.Decimal, purity decimal.Decimal) decimal.Decimal {
	return utils.RoundWeight(utils.PercentOf(net, purity))
}
