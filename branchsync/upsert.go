package branchsync

import (
	"context"
	"errors"

	"github.com/mmdatafocus/jewellery_backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertRecord inserts rec or overwrites every column of the existing row
// with the same id. updated_at is taken from rec, not from the clock.
func upsertRecord(ctx context.Context, db *gorm.DB, rec models.SyncRecord) error {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(rec); err != nil {
		return err
	}
	columns := make([]string, 0, len(stmt.Schema.DBNames))
	for _, name := range stmt.Schema.DBNames {
		if name == "id" {
			continue
		}
		columns = append(columns, name)
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(rec).Error
}

// applyIfNewer upserts rec unless the local copy was updated at the same
// time or later. It reports whether rec was written.
func applyIfNewer(ctx context.Context, db *gorm.DB, table string, rec models.SyncRecord) (bool, error) {
	applied := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		local, err := NewRecord(table)
		if err != nil {
			return err
		}
		err = tx.Where("id = ?", rec.GetID()).Take(local).Error
		switch {
		case err == nil:
			if !rec.GetUpdatedAt().After(local.GetUpdatedAt()) {
				return nil
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}
		if err := upsertRecord(ctx, tx, rec); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}
