package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ModerationEvent 記錄刊登狀態的每一次變更，作為審核紀錄
type ModerationEvent struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey"`
	ListingID  uuid.UUID     `gorm:"type:uuid;not null;index"`
	ActorID    uuid.UUID     `gorm:"type:uuid;not null"`
	FromStatus ListingStatus `gorm:"type:varchar(10);not null"`
	ToStatus   ListingStatus `gorm:"type:varchar(10);not null"`
	Payload    datatypes.JSON
	CreatedAt  time.Time
}

func (e *ModerationEvent) BeforeCreate(tx *gorm.DB) error {
	return assignID(&e.ID)
}
