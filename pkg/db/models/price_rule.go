package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/pkg/types"
)

// PriceRule is a percentage discount active over an inclusive date window.
type PriceRule struct {
	ID        uint64         `gorm:"column:id;primaryKey" json:"id"`
	Name      string         `gorm:"column:name;type:varchar(100);not null;uniqueIndex:ux_price_rules_name,where:deleted_at IS NULL" json:"name"`
	StartDate types.Date     `gorm:"column:start_date;type:date;not null" json:"start_date"`
	EndDate   types.Date     `gorm:"column:end_date;type:date;not null" json:"end_date"`
	ValuePct  int            `gorm:"column:value_pct;not null" json:"value_pct"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (PriceRule) TableName() string { return "price_rules" }

// MediaPriceRule links a price rule to a media. Detaching soft-deletes the link.
type MediaPriceRule struct {
	ID          uint64         `gorm:"column:id;primaryKey"`
	MediaID     uint64         `gorm:"column:media_id;not null;uniqueIndex:ux_media_price_rules_pair,where:deleted_at IS NULL"`
	PriceRuleID uint64         `gorm:"column:price_rule_id;not null;uniqueIndex:ux_media_price_rules_pair,where:deleted_at IS NULL"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (MediaPriceRule) TableName() string { return "media_price_rules" }
