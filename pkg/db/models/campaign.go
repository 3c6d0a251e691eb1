package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/pkg/enums"
	"github.com/angelmondragon/adspace-backend/pkg/types"
)

// Campaign is a client's booking envelope. Total is derived from its items.
type Campaign struct {
	ID        uint64               `gorm:"column:id;primaryKey" json:"id"`
	Name      string               `gorm:"column:name;type:varchar(100);not null;uniqueIndex:ux_campaigns_name,where:deleted_at IS NULL" json:"name"`
	StartDate types.Date           `gorm:"column:start_date;type:date;not null" json:"start_date"`
	EndDate   types.Date           `gorm:"column:end_date;type:date;not null" json:"end_date"`
	Total     decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null;default:0" json:"total"`
	Currency  enums.Currency       `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	Status    enums.CampaignStatus `gorm:"column:status;type:varchar(20);not null" json:"status"`
	UserID    uint64               `gorm:"column:user_id;not null;index" json:"user_id"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt       `gorm:"column:deleted_at;index" json:"-"`
}

func (Campaign) TableName() string { return "campaigns" }

// CampaignItem is one media slot in a campaign with its captured price.
type CampaignItem struct {
	ID             uint64                 `gorm:"column:id;primaryKey" json:"id"`
	CampaignID     uint64                 `gorm:"column:campaign_id;not null;uniqueIndex:ux_campaign_items_pair,where:deleted_at IS NULL" json:"campaign_id"`
	MediaID        uint64                 `gorm:"column:media_id;not null;uniqueIndex:ux_campaign_items_pair,where:deleted_at IS NULL;index" json:"media_id"`
	Range          string                 `gorm:"column:range;type:varchar(100);not null" json:"range"`
	Days           int                    `gorm:"column:days;not null" json:"days"`
	PricePerDay    decimal.Decimal        `gorm:"column:price_per_day;type:numeric(12,2);not null" json:"price_per_day"`
	Subtotal       decimal.Decimal        `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	ProviderStatus enums.ProviderDecision `gorm:"column:provider_status;type:varchar(20);not null" json:"provider_status"`
	Description    *string                `gorm:"column:description;type:varchar(255)" json:"description"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt         `gorm:"column:deleted_at;index" json:"-"`
}

func (CampaignItem) TableName() string { return "campaign_items" }
