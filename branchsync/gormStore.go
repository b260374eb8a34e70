package branchsync

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"

	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"gorm.io/gorm"
)

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var sqlOps = map[FilterOp]string{
	OpEq:  "=",
	OpNeq: "<>",
	OpGt:  ">",
	OpGte: ">=",
	OpLt:  "<",
	OpLte: "<=",
}

// GormStore uses a shared MySQL database as the cloud store.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// NewGormStoreFromEnv opens CLOUD_DB_DSN with the same pool settings as the
// local database.
func NewGormStoreFromEnv() (*GormStore, error) {
	dsn := config.EnvDefault("CLOUD_DB_DSN", "")
	if dsn == "" {
		return nil, fmt.Errorf("CLOUD_DB_DSN is not set")
	}
	db, err := config.OpenMySQL(dsn)
	if err != nil {
		return nil, err
	}
	return NewGormStore(db), nil
}

func (s *GormStore) Select(ctx context.Context, table string, filters ...Filter) ([]json.RawMessage, error) {
	dest, err := newRecordSlice(table)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	for _, f := range filters {
		op, ok := sqlOps[f.Op]
		if !ok || !columnPattern.MatchString(f.Column) {
			return nil, utils.Invalidf("unsupported filter %s.%s", f.Column, f.Op)
		}
		db = db.Where(fmt.Sprintf("%s %s ?", f.Column, op), f.Value)
	}
	if err := db.Order("updated_at ASC").Find(dest).Error; err != nil {
		return nil, err
	}

	rows := reflect.ValueOf(dest).Elem()
	out := make([]json.RawMessage, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		raw, err := json.Marshal(rows.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func (s *GormStore) Insert(ctx context.Context, table string, row json.RawMessage) error {
	rec, err := DecodePayload(table, row)
	if err != nil {
		return err
	}
	return upsertRecord(ctx, s.DB, rec)
}

func (s *GormStore) Update(ctx context.Context, table string, id string, row json.RawMessage) error {
	rec, err := DecodePayload(table, row)
	if err != nil {
		return err
	}
	if rec.GetID() != id {
		return utils.Invalidf("payload id %s does not match %s", rec.GetID(), id)
	}
	return upsertRecord(ctx, s.DB, rec)
}

func (s *GormStore) Delete(ctx context.Context, table string, id string) error {
	rec, err := NewRecord(table)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Where("id = ?", id).Delete(rec).Error
}
