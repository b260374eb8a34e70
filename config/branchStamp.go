package config

import (
	"reflect"

	"github.com/mmdatafocus/jewellery_backend/appctx"
	"gorm.io/gorm"
)

// BranchStampPlugin fills branch_id on inserts from the request's branch
// context when the row does not carry one yet. Rows pulled from other
// branches already have a branch_id and are left untouched.
type BranchStampPlugin struct{}

func NewBranchStampPlugin() *BranchStampPlugin { return &BranchStampPlugin{} }

func (p *BranchStampPlugin) Name() string { return "branch_stamp" }

func (p *BranchStampPlugin) Initialize(db *gorm.DB) error {
	return db.Callback().Create().Before("gorm:create").Register("branch_stamp:create", branchStampCallback)
}

func branchStampCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil || db.Statement.Schema == nil {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	branchId := appctx.BranchId(ctx)
	if branchId == "" {
		return
	}
	field := db.Statement.Schema.LookUpField("branch_id")
	if field == nil {
		return
	}

	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			elem := reflect.Indirect(rv.Index(i))
			if _, isZero := field.ValueOf(ctx, elem); isZero {
				_ = field.Set(ctx, elem, branchId)
			}
		}
	case reflect.Struct:
		if _, isZero := field.ValueOf(ctx, rv); isZero {
			_ = field.Set(ctx, rv, branchId)
		}
	}
}
