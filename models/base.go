package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is embedded by every row that is replicated between branches.
// Ids are UUIDs so rows created offline on different branches never collide.
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	BranchId  string    `gorm:"size:36;index;not null" json:"branch_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

func (b Base) GetID() string {
	return b.ID
}

func (b Base) GetBranchId() string {
	return b.BranchId
}

func (b Base) GetUpdatedAt() time.Time {
	return b.UpdatedAt
}

// DocumentBase is Base for numbered documents. Each branch numbers its own
// documents, so the number is unique per branch and carries the
// branch_number composite index together with the number column.
type DocumentBase struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	BranchId  string    `gorm:"size:36;not null;uniqueIndex:,composite:branch_number,priority:1" json:"branch_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

func (b *DocumentBase) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

func (b DocumentBase) GetID() string {
	return b.ID
}

func (b DocumentBase) GetBranchId() string {
	return b.BranchId
}

func (b DocumentBase) GetUpdatedAt() time.Time {
	return b.UpdatedAt
}

// SyncRecord is a row that can be captured in the sync queue and upserted
// from the cloud store.
type SyncRecord interface {
	GetID() string
	GetBranchId() string
	GetUpdatedAt() time.Time
	TableName() string
}
