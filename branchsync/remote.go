package branchsync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mmdatafocus/jewellery_backend/config"
)

type FilterOp string

const (
	OpEq  FilterOp = "eq"
	OpNeq FilterOp = "neq"
	OpGt  FilterOp = "gt"
	OpGte FilterOp = "gte"
	OpLt  FilterOp = "lt"
	OpLte FilterOp = "lte"
)

type Filter struct {
	Column string
	Op     FilterOp
	Value  any
}

func Eq(column string, value any) Filter  { return Filter{Column: column, Op: OpEq, Value: value} }
func Neq(column string, value any) Filter { return Filter{Column: column, Op: OpNeq, Value: value} }
func Gt(column string, value any) Filter  { return Filter{Column: column, Op: OpGt, Value: value} }

// CloudStore is the shared store every branch pushes to and pulls from.
// Insert must behave as an upsert so a retried push is harmless.
type CloudStore interface {
	Select(ctx context.Context, table string, filters ...Filter) ([]json.RawMessage, error)
	Insert(ctx context.Context, table string, row json.RawMessage) error
	Update(ctx context.Context, table string, id string, row json.RawMessage) error
	Delete(ctx context.Context, table string, id string) error
}

// NewCloudStoreFromEnv picks the store named by CLOUD_STORE: "rest" (the
// default) or "mysql". It returns nil when nothing is configured.
func NewCloudStoreFromEnv() (CloudStore, error) {
	switch config.EnvDefault("CLOUD_STORE", "rest") {
	case "mysql":
		store, err := NewGormStoreFromEnv()
		if err != nil {
			return nil, err
		}
		return store, nil
	case "rest":
		if config.EnvDefault("CLOUD_REST_URL", "") == "" {
			return nil, nil
		}
		store, err := NewRestStoreFromEnv()
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown CLOUD_STORE %q", config.EnvDefault("CLOUD_STORE", ""))
	}
}
