package branchsync

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/jewellery_backend/appctx"
	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/testutil"
	"gorm.io/gorm"
)

func TestGormStore_TwoBranchesConverge(t *testing.T) {
	cloud := NewGormStore(testutil.OpenDB(t))

	branchA := testutil.Branch()
	branchB := testutil.Branch()
	branchB.BranchId = "branch-b"

	dbA := testutil.OpenDB(t)
	dbB := testutil.OpenDB(t)
	engineA := NewEngine(dbA, config.GetLogger(), NewQueue(dbA, config.GetLogger()), cloud, branchA)
	engineB := NewEngine(dbB, config.GetLogger(), NewQueue(dbB, config.GetLogger()), cloud, branchB)

	ctxA := appctx.WithBranch(context.Background(), branchA)
	c := models.Customer{Name: "Asha", Phone: "9876543210", StateCode: "27"}
	err := dbA.WithContext(ctxA).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		return engineA.Queue.QueueChange(ctxA, tx, models.SyncOperationInsert, &c)
	})
	if err != nil {
		t.Fatalf("create on A: %v", err)
	}

	if res, err := engineA.PerformSync(context.Background()); err != nil || res.Push.Synced != 1 {
		t.Fatalf("sync A: %+v %v", res, err)
	}
	res, err := engineB.PerformSync(context.Background())
	if err != nil {
		t.Fatalf("sync B: %v", err)
	}
	if res.Pull.Applied != 1 {
		t.Fatalf("expected B to apply 1 row, got %+v", res.Pull)
	}

	var onB models.Customer
	if err := dbB.First(&onB, "id = ?", c.ID).Error; err != nil {
		t.Fatalf("customer missing on B: %v", err)
	}
	if onB.Name != "Asha" || onB.BranchId != branchA.BranchId {
		t.Fatalf("unexpected customer on B: %+v", onB)
	}

	// A pulls nothing back: the only cloud row is its own.
	res, err = engineA.PerformSync(context.Background())
	if err != nil || res.Pull.Applied != 0 {
		t.Fatalf("A pulled its own write: %+v %v", res, err)
	}
}

func TestGormStore_SameInvoiceNumberOnTwoBranches(t *testing.T) {
	cloud := NewGormStore(testutil.OpenDB(t))

	branchA := testutil.Branch()
	branchB := testutil.Branch()
	branchB.BranchId = "branch-b"

	dbA := testutil.OpenDB(t)
	dbB := testutil.OpenDB(t)
	engineA := NewEngine(dbA, config.GetLogger(), NewQueue(dbA, config.GetLogger()), cloud, branchA)
	engineB := NewEngine(dbB, config.GetLogger(), NewQueue(dbB, config.GetLogger()), cloud, branchB)

	day := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	ctxA := appctx.WithBranch(context.Background(), branchA)
	ctxB := appctx.WithBranch(context.Background(), branchB)

	// both branches issue the first number of the month on their own
	onA := models.Invoice{InvoiceNumber: "INV-202610-000001", CustomerId: "cust-a", InvoiceDate: day}
	err := dbA.WithContext(ctxA).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&onA).Error; err != nil {
			return err
		}
		return engineA.Queue.QueueChange(ctxA, tx, models.SyncOperationInsert, &onA)
	})
	if err != nil {
		t.Fatalf("create on A: %v", err)
	}
	onB := models.Invoice{InvoiceNumber: "INV-202610-000001", CustomerId: "cust-b", InvoiceDate: day}
	if err := dbB.WithContext(ctxB).Create(&onB).Error; err != nil {
		t.Fatalf("create on B: %v", err)
	}

	if res, err := engineA.PerformSync(context.Background()); err != nil || res.Push.Synced != 1 {
		t.Fatalf("sync A: %+v %v", res, err)
	}
	res, err := engineB.PullChanges(context.Background(), "invoices")
	if err != nil {
		t.Fatalf("pull B: %v", err)
	}
	if res.Applied != 1 || len(res.Errors) != 0 {
		t.Fatalf("expected B to apply A's invoice, got %+v", res)
	}

	var count int64
	dbB.Model(&models.Invoice{}).Where("invoice_number = ?", "INV-202610-000001").Count(&count)
	if count != 2 {
		t.Fatalf("expected both branches' invoices on B, got %d", count)
	}
	var pulled models.Invoice
	if err := dbB.First(&pulled, "id = ?", onA.ID).Error; err != nil || pulled.BranchId != branchA.BranchId {
		t.Fatalf("A's invoice on B: %+v %v", pulled, err)
	}

	// the number stays unique within one branch
	dup := models.Invoice{InvoiceNumber: "INV-202610-000001", CustomerId: "cust-b", InvoiceDate: day}
	if err := dbB.WithContext(ctxB).Create(&dup).Error; err == nil {
		t.Fatalf("duplicate number accepted on the same branch")
	}
}

func TestGormStore_RejectsBadFilters(t *testing.T) {
	cloud := NewGormStore(testutil.OpenDB(t))
	if _, err := cloud.Select(context.Background(), "customers", Filter{Column: "name; drop table x", Op: OpEq, Value: 1}); err == nil {
		t.Fatalf("unsafe column accepted")
	}
	if _, err := cloud.Select(context.Background(), "customers", Filter{Column: "name", Op: "like", Value: 1}); err == nil {
		t.Fatalf("unknown operator accepted")
	}
	if _, err := cloud.Select(context.Background(), "secrets"); err == nil {
		t.Fatalf("unknown table accepted")
	}
}
