package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type MetalRate struct {
	Base
	MetalType     MetalType       `gorm:"size:20;not null;index:idx_metal_rate_lookup,priority:1" json:"metal_type"`
	Purity        decimal.Decimal `gorm:"type:decimal(20,4);not null;index:idx_metal_rate_lookup,priority:2" json:"purity"`
	RatePerGram   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"rate_per_gram"`
	EffectiveDate time.Time       `gorm:"not null;index:idx_metal_rate_lookup,priority:3" json:"effective_date"`
}

func (MetalRate) TableName() string {
	return "metal_rates"
}

// MetalRateCacheKey is the Redis key of the latest rate for a metal and purity.
func MetalRateCacheKey(metal MetalType, purity decimal.Decimal) string {
	return fmt.Sprintf("metalRate:%s:%s", metal, purity.StringFixed(2))
}

type NewMetalRate struct {
	MetalType     MetalType       `json:"metal_type" validate:"required,oneof=gold silver platinum"`
	Purity        decimal.Decimal `json:"purity" validate:"gt=0,lte=100"`
	RatePerGram   decimal.Decimal `json:"rate_per_gram" validate:"gt=0"`
	EffectiveDate *time.Time      `json:"effective_date"`
}
