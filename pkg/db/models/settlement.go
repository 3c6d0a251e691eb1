package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/adspace-backend/pkg/enums"
)

// Payment records a client settlement for a campaign. Funds are not moved.
type Payment struct {
	ID         uint64              `gorm:"column:id;primaryKey" json:"id"`
	CampaignID uint64              `gorm:"column:campaign_id;not null;index" json:"campaign_id"`
	Amount     decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Status     enums.PaymentStatus `gorm:"column:status;type:varchar(20);not null" json:"status"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt      `gorm:"column:deleted_at;index" json:"-"`
}

func (Payment) TableName() string { return "payments" }

// Payout records what a provider is owed from a paid campaign.
type Payout struct {
	ID         uint64             `gorm:"column:id;primaryKey" json:"id"`
	CampaignID uint64             `gorm:"column:campaign_id;not null;index" json:"campaign_id"`
	UserID     uint64             `gorm:"column:user_id;not null;index" json:"user_id"`
	Amount     decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Status     enums.PayoutStatus `gorm:"column:status;type:varchar(20);not null" json:"status"`
	PaidAt     *time.Time         `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt     `gorm:"column:deleted_at;index" json:"-"`
}

func (Payout) TableName() string { return "payouts" }

// CancellationPolicy is a penalty band: cancelling with StartDays..EndDays
// (inclusive) left before the campaign starts costs Commission percent.
type CancellationPolicy struct {
	ID         uint64         `gorm:"column:id;primaryKey" json:"id"`
	StartDays  int            `gorm:"column:start_days;not null" json:"start_days"`
	EndDays    int            `gorm:"column:end_days;not null" json:"end_days"`
	Commission int            `gorm:"column:commission;not null" json:"commission"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (CancellationPolicy) TableName() string { return "cancellation_policies" }
