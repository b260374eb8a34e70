// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/mmdatafocus/jewellery_backend/appctx"
	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"gorm.io/gorm"
)

const BranchId = "branch-local"

// OpenDB returns a migrated in-memory SQLite database with the same gorm
// config and plugins as production. One connection is kept open so the
// database lives as long as the test.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), config.InitConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.InstallPlugins(db); err != nil {
		t.Fatalf("install plugins: %v", err)
	}
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Branch is the branch identity tests run under.
func Branch() appctx.Branch {
	return appctx.Branch{
		BranchId:         BranchId,
		CompanyId:        "company-1",
		CompanyStateCode: "27",
		InvoicePrefix:    "INV",
		LoanPrefix:       "GL",
	}
}

func Context() context.Context {
	return appctx.WithBranch(context.Background(), Branch())
}
