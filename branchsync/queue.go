package branchsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/jewellery_backend/appctx"
	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNoBranch = errors.New("branch id is not configured")

// Queue owns the sync_queue outbox and the per-branch sync_status row.
type Queue struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Now    func() time.Time
}

func NewQueue(db *gorm.DB, logger *logrus.Logger) *Queue {
	return &Queue{
		DB:     db,
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// QueueChange records a change to rec. tx must be the transaction that wrote
// rec, so the change and its outbox row commit or roll back together.
func (q *Queue) QueueChange(ctx context.Context, tx *gorm.DB, op models.SyncOperation, rec models.SyncRecord) error {
	if !op.IsValid() {
		return utils.Invalidf("unknown sync operation %q", op)
	}
	table := rec.TableName()
	if !IsSyncedTable(table) {
		return utils.NewValidationError(ErrUnknownTable, table)
	}
	branchId := appctx.BranchId(ctx)
	if branchId == "" {
		branchId = rec.GetBranchId()
	}
	if branchId == "" {
		return ErrNoBranch
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	row := models.SyncQueue{
		Table:      table,
		Operation:  op,
		RecordId:   rec.GetID(),
		Payload:    datatypes.JSON(payload),
		BranchId:   branchId,
		SyncStatus: models.SyncStatePending,
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		config.LogError(q.Logger, "SyncQueue", "QueueChange", "create queue row", row.RecordId, err)
		return err
	}
	return q.refreshCounts(ctx, tx, branchId)
}

// EnsureStatus returns the branch's status row, creating it with sync
// enabled and a 5 minute interval when it does not exist.
func (q *Queue) EnsureStatus(ctx context.Context, db *gorm.DB, branchId string) (models.SyncStatus, error) {
	if branchId == "" {
		return models.SyncStatus{}, ErrNoBranch
	}
	if db == nil {
		db = q.DB
	}
	var st models.SyncStatus
	err := db.WithContext(ctx).
		Where(models.SyncStatus{BranchId: branchId}).
		Attrs(models.NewSyncStatus(branchId)).
		FirstOrCreate(&st).Error
	return st, err
}

func (q *Queue) Status(ctx context.Context, branchId string) (models.SyncStatus, error) {
	return q.EnsureStatus(ctx, q.DB, branchId)
}

func (q *Queue) UpdateStatus(ctx context.Context, db *gorm.DB, branchId string, values map[string]interface{}) error {
	if db == nil {
		db = q.DB
	}
	if _, err := q.EnsureStatus(ctx, db, branchId); err != nil {
		return err
	}
	return db.WithContext(ctx).Model(&models.SyncStatus{}).Where("branch_id = ?", branchId).Updates(values).Error
}

func (q *Queue) refreshCounts(ctx context.Context, db *gorm.DB, branchId string) error {
	var pending, failed int64
	if err := db.WithContext(ctx).Model(&models.SyncQueue{}).
		Where("branch_id = ? AND sync_status = ?", branchId, models.SyncStatePending).
		Count(&pending).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Model(&models.SyncQueue{}).
		Where("branch_id = ? AND sync_status = ?", branchId, models.SyncStateFailed).
		Count(&failed).Error; err != nil {
		return err
	}
	return q.UpdateStatus(ctx, db, branchId, map[string]interface{}{
		"pending_changes_count": pending,
		"failed_changes_count":  failed,
	})
}

// RefreshCounts recomputes pending and failed counts for branchId.
func (q *Queue) RefreshCounts(ctx context.Context, branchId string) error {
	return q.refreshCounts(ctx, q.DB, branchId)
}

// Pending returns up to limit pending rows of branchId, oldest first.
func (q *Queue) Pending(ctx context.Context, branchId string, limit int) ([]models.SyncQueue, error) {
	var rows []models.SyncQueue
	err := q.DB.WithContext(ctx).
		Where("branch_id = ? AND sync_status = ?", branchId, models.SyncStatePending).
		Order("created_at ASC").Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (q *Queue) MarkSyncing(ctx context.Context, id uint) error {
	return q.DB.WithContext(ctx).Model(&models.SyncQueue{}).Where("id = ?", id).
		Update("sync_status", models.SyncStateSyncing).Error
}

func (q *Queue) MarkSynced(ctx context.Context, id uint) error {
	now := q.Now()
	return q.DB.WithContext(ctx).Model(&models.SyncQueue{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"sync_status":   models.SyncStateSynced,
			"synced_at":     &now,
			"error_message": "",
		}).Error
}

func (q *Queue) MarkFailed(ctx context.Context, id uint, cause error) error {
	return q.DB.WithContext(ctx).Model(&models.SyncQueue{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"sync_status":   models.SyncStateFailed,
			"error_message": cause.Error(),
			"retry_count":   gorm.Expr("retry_count + ?", 1),
		}).Error
}

// ResetForRetry moves failed rows, and rows stranded in syncing, back to
// pending. With no ids every such row of the branch is reset. retry_count
// is kept. Cloud writes are upserts, so a row pushed twice is harmless.
func (q *Queue) ResetForRetry(ctx context.Context, branchId string, ids ...uint) (int64, error) {
	db := q.DB.WithContext(ctx).Model(&models.SyncQueue{}).
		Where("branch_id = ? AND sync_status IN ?", branchId, []models.SyncState{models.SyncStateFailed, models.SyncStateSyncing})
	if len(ids) > 0 {
		db = db.Where("id IN ?", ids)
	}
	res := db.Updates(map[string]interface{}{
		"sync_status":   models.SyncStatePending,
		"error_message": "",
	})
	if res.Error != nil {
		return 0, res.Error
	}
	if err := q.refreshCounts(ctx, q.DB, branchId); err != nil {
		return res.RowsAffected, err
	}
	return res.RowsAffected, nil
}

// RequeueSyncing returns every syncing row of branchId to pending. Only
// call it while no cycle is running.
func (q *Queue) RequeueSyncing(ctx context.Context, branchId string) (int64, error) {
	res := q.DB.WithContext(ctx).Model(&models.SyncQueue{}).
		Where("branch_id = ? AND sync_status = ?", branchId, models.SyncStateSyncing).
		Update("sync_status", models.SyncStatePending)
	if res.Error != nil {
		config.LogError(q.Logger, "SyncQueue", "RequeueSyncing", "requeue stranded rows", branchId, res.Error)
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		q.Logger.WithFields(logrus.Fields{"branch_id": branchId, "rows": res.RowsAffected}).Warn("stranded syncing rows returned to pending")
	}
	return res.RowsAffected, q.refreshCounts(ctx, q.DB, branchId)
}

// Cleanup deletes synced rows whose synced_at is older than daysToKeep days.
func (q *Queue) Cleanup(ctx context.Context, daysToKeep int) (int64, error) {
	if daysToKeep < 0 {
		return 0, utils.Invalidf("days to keep must not be negative")
	}
	cutoff := q.Now().AddDate(0, 0, -daysToKeep)
	res := q.DB.WithContext(ctx).
		Where("sync_status = ? AND synced_at < ?", models.SyncStateSynced, cutoff).
		Delete(&models.SyncQueue{})
	if res.Error != nil {
		config.LogError(q.Logger, "SyncQueue", "Cleanup", fmt.Sprintf("cutoff %s", cutoff.Format(time.RFC3339)), nil, res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// List returns the most recent queue rows, optionally filtered by state.
func (q *Queue) List(ctx context.Context, branchId string, state models.SyncState, limit int) ([]models.SyncQueue, error) {
	db := q.DB.WithContext(ctx).Where("branch_id = ?", branchId)
	if state != "" {
		db = db.Where("sync_status = ?", state)
	}
	var rows []models.SyncQueue
	err := db.Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
