package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

// User 代表車輛市集中的使用者
// 包含登入資訊與角色，角色為 seller 的使用者才能刊登車輛
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"type:varchar(150);not null;uniqueIndex"`
	Email        string    `gorm:"type:varchar(254);not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	Role         Role      `gorm:"type:varchar(20);not null"`
	IsStaff      bool      `gorm:"not null"`
	IsSuperuser  bool      `gorm:"not null"`
	CreatedAt    time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	return assignID(&u.ID)
}
