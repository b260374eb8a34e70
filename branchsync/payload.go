package branchsync

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/utils"
)

var (
	ErrUnknownTable     = errors.New("table is not synced")
	ErrMalformedPayload = errors.New("malformed sync payload")
	ErrMissingRecordId  = errors.New("sync payload has no id")
)

// PullOrder lists every synced table with parents ahead of children, so a
// pulled child row never lands before the row it refers to.
var PullOrder = []string{
	"customers",
	"products",
	"metal_rates",
	"vendors",
	"karigars",
	"invoices",
	"invoice_items",
	"invoice_payments",
	"old_gold_transactions",
	"gold_loans",
	"loan_payments",
	"karigar_jobs",
	"purchase_orders",
	"purchase_order_items",
}

var registry = map[string]func() models.SyncRecord{
	"customers":             func() models.SyncRecord { return &models.Customer{} },
	"products":              func() models.SyncRecord { return &models.Product{} },
	"metal_rates":           func() models.SyncRecord { return &models.MetalRate{} },
	"vendors":               func() models.SyncRecord { return &models.Vendor{} },
	"karigars":              func() models.SyncRecord { return &models.Karigar{} },
	"invoices":              func() models.SyncRecord { return &models.Invoice{} },
	"invoice_items":         func() models.SyncRecord { return &models.InvoiceItem{} },
	"invoice_payments":      func() models.SyncRecord { return &models.InvoicePayment{} },
	"old_gold_transactions": func() models.SyncRecord { return &models.OldGoldTransaction{} },
	"gold_loans":            func() models.SyncRecord { return &models.GoldLoan{} },
	"loan_payments":         func() models.SyncRecord { return &models.LoanPayment{} },
	"karigar_jobs":          func() models.SyncRecord { return &models.KarigarJob{} },
	"purchase_orders":       func() models.SyncRecord { return &models.PurchaseOrder{} },
	"purchase_order_items":  func() models.SyncRecord { return &models.PurchaseOrderItem{} },
}

func IsSyncedTable(table string) bool {
	_, ok := registry[table]
	return ok
}

// NewRecord returns a pointer to an empty row of table.
func NewRecord(table string) (models.SyncRecord, error) {
	fn, ok := registry[table]
	if !ok {
		return nil, utils.NewValidationError(ErrUnknownTable, table)
	}
	return fn(), nil
}

// newRecordSlice returns a pointer to an empty slice of table's row type,
// ready for gorm's Find.
func newRecordSlice(table string) (any, error) {
	rec, err := NewRecord(table)
	if err != nil {
		return nil, err
	}
	elem := reflect.TypeOf(rec).Elem()
	return reflect.New(reflect.SliceOf(elem)).Interface(), nil
}

// DecodePayload decodes a queued or pulled row into its table's model.
// Unknown tables, unknown fields and rows without an id are rejected.
func DecodePayload(table string, raw []byte) (models.SyncRecord, error) {
	rec, err := NewRecord(table)
	if err != nil {
		return nil, err
	}
	if err := utils.UnmarshalStrict(raw, rec); err != nil {
		return nil, utils.NewValidationError(ErrMalformedPayload, fmt.Sprintf("%s: %v", table, err))
	}
	if rec.GetID() == "" {
		return nil, utils.NewValidationError(ErrMissingRecordId, table)
	}
	return rec, nil
}
