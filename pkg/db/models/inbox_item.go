package models

import (
	"time"

	"gorm.io/datatypes"
)

// InboxItem is an idempotency record for a client supplied key.
type InboxItem struct {
	Key         string         `gorm:"column:key;primaryKey;size:128"`
	RequestHash string         `gorm:"column:request_hash;size:64;not null"`
	Response    datatypes.JSON `gorm:"column:response;type:jsonb;not null"`
	ExpiresAt   time.Time      `gorm:"column:expires_at;not null;index"`
}

func (InboxItem) TableName() string {
	return "inbox"
}
