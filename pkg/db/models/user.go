package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID           uint64         `gorm:"column:id;primaryKey"`
	Name         string         `gorm:"column:name;type:varchar(100);not null"`
	Email        string         `gorm:"column:email;type:varchar(255);not null;uniqueIndex:ux_users_email,where:deleted_at IS NULL"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.Role     `gorm:"column:role;type:varchar(20);not null"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (User) TableName() string { return "users" }
