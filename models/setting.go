package models

import (
	"context"
	"errors"

	"github.com/mmdatafocus/jewellery_backend/appctx"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SettingBranchId         = "branch_id"
	SettingCompanyId        = "company_id"
	SettingCompanyStateCode = "company_state_code"
	SettingInvoicePrefix    = "invoice_prefix"
	SettingLoanPrefix       = "loan_prefix"
	SettingGSTMetalRate     = "gst_metal_rate"
	SettingGSTMakingRate    = "gst_making_rate"
)

// Setting is the local key/value configuration store. It is never synced.
type Setting struct {
	Key   string `gorm:"primaryKey;size:100" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

func (Setting) TableName() string {
	return "settings"
}

func GetSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	var s Setting
	err := db.WithContext(ctx).Where("`key` = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return s.Value, err
}

func SetSetting(ctx context.Context, db *gorm.DB, key string, value string) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Setting{Key: key, Value: value}).Error
}

func LoadSettings(ctx context.Context, db *gorm.DB) (map[string]string, error) {
	var rows []Setting
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// LoadBranch reads the branch identity from settings. Missing prefixes fall
// back to INV and GL.
func LoadBranch(ctx context.Context, db *gorm.DB) (appctx.Branch, error) {
	values, err := LoadSettings(ctx, db)
	if err != nil {
		return appctx.Branch{}, err
	}
	b := appctx.Branch{
		BranchId:         values[SettingBranchId],
		CompanyId:        values[SettingCompanyId],
		CompanyStateCode: values[SettingCompanyStateCode],
		InvoicePrefix:    values[SettingInvoicePrefix],
		LoanPrefix:       values[SettingLoanPrefix],
	}
	if b.InvoicePrefix == "" {
		b.InvoicePrefix = "INV"
	}
	if b.LoanPrefix == "" {
		b.LoanPrefix = "GL"
	}
	return b, nil
}

// LoadGSTRates reads configured GST rates, keeping the defaults for any
// that are missing or unparsable.
func LoadGSTRates(ctx context.Context, db *gorm.DB) GSTRates {
	rates := DefaultGSTRates
	values, err := LoadSettings(ctx, db)
	if err != nil {
		return rates
	}
	if v, err := decimal.NewFromString(values[SettingGSTMetalRate]); err == nil && v.IsPositive() {
		rates.Metal = v
	}
	if v, err := decimal.NewFromString(values[SettingGSTMakingRate]); err == nil && v.IsPositive() {
		rates.Making = v
	}
	return rates
}
