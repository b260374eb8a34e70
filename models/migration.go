package models

import (
	"gorm.io/gorm"
)

// MigrateTable creates or updates every table the backend owns.
func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&Setting{}, &User{},
		&SyncQueue{}, &SyncStatus{},
		&Customer{}, &Product{}, &MetalRate{},
		&Invoice{}, &InvoiceItem{}, &InvoicePayment{}, &OldGoldTransaction{},
		&GoldLoan{}, &LoanPayment{},
		&Karigar{}, &KarigarJob{},
		&Vendor{}, &PurchaseOrder{}, &PurchaseOrderItem{},
	)
}
