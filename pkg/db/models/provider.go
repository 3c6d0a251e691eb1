package models

import (
	"time"

	"gorm.io/gorm"
)

// Provider is the business profile of a user with the Provider role.
type Provider struct {
	ID           uint64         `gorm:"column:id;primaryKey" json:"id"`
	UserID       uint64         `gorm:"column:user_id;not null;uniqueIndex:ux_providers_user,where:deleted_at IS NULL" json:"user_id"`
	BusinessName string         `gorm:"column:business_name;type:varchar(100);not null" json:"business_name"`
	TaxID        string         `gorm:"column:tax_id;type:varchar(100);not null" json:"tax_id"`
	Commission   int            `gorm:"column:commission;not null" json:"commission"`
	BankAccount  string         `gorm:"column:bank_account;type:varchar(18);not null" json:"bank_account"`
	Clabe        string         `gorm:"column:clabe;type:varchar(18);not null;uniqueIndex:ux_providers_clabe,where:deleted_at IS NULL" json:"clabe"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Provider) TableName() string { return "providers" }
