package workflow

import (
	"testing"
	"time"

	"github.com/mmdatafocus/jewellery_backend/branchsync"
	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/testutil"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

func newTestWorkflow(t *testing.T) Workflow {
	t.Helper()
	db := testutil.OpenDB(t)
	w := NewWorkflow(db, config.GetLogger(), branchsync.NewQueue(db, config.GetLogger()))
	w.Now = func() time.Time { return testNow }
	return w
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func assertDec(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s: got %s, want %s", name, got.String(), want)
	}
}

func seedCustomer(t *testing.T, w Workflow, stateCode string) *models.Customer {
	t.Helper()
	c, err := NewCustomerWorkflow(w).CreateCustomer(testutil.Context(), models.NewCustomer{
		Name:      "Asha Patil",
		Phone:     "98765 43210",
		StateCode: stateCode,
	})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return c
}

// seedProduct creates a 10g 22K ring with a fixed making charge of 5000.
func seedProduct(t *testing.T, w Workflow, sku string, stock int) *models.Product {
	t.Helper()
	p, err := NewProductWorkflow(w).CreateProduct(testutil.Context(), models.NewProduct{
		Sku:              sku,
		Name:             "Ring " + sku,
		MetalType:        models.MetalTypeGold,
		Purity:           dec(t, "91.6"),
		GrossWeight:      dec(t, "10"),
		MakingChargeType: models.MakingChargeFixed,
		MakingChargeRate: dec(t, "5000"),
		CurrentStock:     stock,
		ReorderLevel:     1,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func countQueued(t *testing.T, w Workflow, table string) int64 {
	t.Helper()
	var n int64
	if err := w.DB.Model(&models.SyncQueue{}).Where("table_name = ?", table).Count(&n).Error; err != nil {
		t.Fatalf("count queue: %v", err)
	}
	return n
}
