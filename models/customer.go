package models

import (
	"github.com/shopspring/decimal"
)

type Customer struct {
	Base
	Name               string          `gorm:"size:255;not null" json:"name"`
	Phone              string          `gorm:"size:20;index" json:"phone"`
	Email              string          `gorm:"size:100" json:"email"`
	Address            string          `gorm:"type:text" json:"address"`
	StateCode          string          `gorm:"size:2" json:"state_code"`
	Gstin              string          `gorm:"size:15" json:"gstin"`
	Pan                string          `gorm:"size:10" json:"pan"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"outstanding_balance"`
}

func (Customer) TableName() string {
	return "customers"
}

type NewCustomer struct {
	Name      string `json:"name" validate:"required,max=255"`
	Phone     string `json:"phone" validate:"max=20"`
	Email     string `json:"email" validate:"omitempty,email"`
	Address   string `json:"address"`
	StateCode string `json:"state_code" validate:"omitempty,len=2"`
	Gstin     string `json:"gstin" validate:"omitempty,len=15"`
	Pan       string `json:"pan" validate:"omitempty,len=10"`
}
