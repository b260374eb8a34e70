package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DefaultSyncIntervalMinutes = 5
	MaxSyncIntervalMinutes     = 1440
)

// SyncQueue is the outbox of local changes waiting to be pushed to the cloud
// store. Rows are written in the same transaction as the change itself.
type SyncQueue struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Table        string         `gorm:"column:table_name;size:64;not null;index" json:"table_name"`
	Operation    SyncOperation  `gorm:"size:10;not null" json:"operation"`
	RecordId     string         `gorm:"size:36;not null;index" json:"record_id"`
	Payload      datatypes.JSON `json:"payload"`
	BranchId     string         `gorm:"size:36;not null;index" json:"branch_id"`
	SyncStatus   SyncState      `gorm:"size:10;not null;default:'pending';index" json:"sync_status"`
	RetryCount   int            `gorm:"not null;default:0" json:"retry_count"`
	ErrorMessage string         `gorm:"type:text" json:"error_message"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	SyncedAt     *time.Time     `json:"synced_at"`
}

func (SyncQueue) TableName() string {
	return "sync_queue"
}

// SyncStatus is the per-branch sync bookkeeping row.
type SyncStatus struct {
	BranchId            string     `gorm:"primaryKey;size:36" json:"branch_id"`
	LastSyncAt          *time.Time `json:"last_sync_at"`
	LastPushAt          *time.Time `json:"last_push_at"`
	LastPullAt          *time.Time `json:"last_pull_at"`
	SyncEnabled         bool       `gorm:"not null" json:"sync_enabled"`
	SyncIntervalMinutes int        `gorm:"not null" json:"sync_interval_minutes"`
	PendingChangesCount int64      `gorm:"not null;default:0" json:"pending_changes_count"`
	FailedChangesCount  int64      `gorm:"not null;default:0" json:"failed_changes_count"`
	LastSyncError       string     `gorm:"type:text" json:"last_sync_error"`
	IsSyncing           bool       `gorm:"not null" json:"is_syncing"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SyncStatus) TableName() string {
	return "sync_status"
}

func NewSyncStatus(branchId string) SyncStatus {
	return SyncStatus{
		BranchId:            branchId,
		SyncEnabled:         true,
		SyncIntervalMinutes: DefaultSyncIntervalMinutes,
	}
}

func ValidSyncInterval(minutes int) bool {
	return minutes >= 1 && minutes <= MaxSyncIntervalMinutes
}
