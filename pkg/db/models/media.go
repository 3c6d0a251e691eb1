package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/pkg/enums"
)

// Media is a rentable advertising slot owned by a provider user.
type Media struct {
	ID                   uint64            `gorm:"column:id;primaryKey" json:"id"`
	Name                 string            `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Type                 string            `gorm:"column:type;type:varchar(100);not null" json:"type"`
	Location             string            `gorm:"column:location;type:varchar(100);not null" json:"location"`
	PeriodLimit          string            `gorm:"column:period_limit;type:varchar(100);not null;default:''" json:"period_limit"`
	PricePerDay          decimal.Decimal   `gorm:"column:price_per_day;type:numeric(12,2);not null" json:"price_per_day"`
	Active               bool              `gorm:"column:active;not null" json:"active"`
	Status               enums.MediaStatus `gorm:"column:status;type:varchar(20);not null;default:'Available'" json:"status"`
	UserID               uint64            `gorm:"column:user_id;not null;index" json:"user_id"`
	CancellationPolicyID *uint64           `gorm:"column:cancellation_policy_id" json:"cancellation_policy_id,omitempty"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt    `gorm:"column:deleted_at;index" json:"-"`
}

func (Media) TableName() string { return "media" }

// MediaImage references a stored image of a media. Route is opaque to the API.
type MediaImage struct {
	ID        uint64         `gorm:"column:id;primaryKey" json:"id"`
	MediaID   uint64         `gorm:"column:media_id;not null;index" json:"media_id"`
	Route     string         `gorm:"column:route;type:varchar(255);not null" json:"route"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (MediaImage) TableName() string { return "media_images" }
