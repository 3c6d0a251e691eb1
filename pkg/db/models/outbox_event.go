package models

import (
	"time"

	"github.com/angelmondragon/adspace-backend/pkg/enums"
)

// OutboxEvent represents an append-only event emitted via the outbox pattern.
type OutboxEvent struct {
	ID            uint64                    `gorm:"column:id;primaryKey"`
	EventID       string                    `gorm:"column:event_id;type:varchar(36);not null;uniqueIndex"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:varchar(64);not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:varchar(32);not null"`
	AggregateID   uint64                    `gorm:"column:aggregate_id;not null"`
	Payload       string                    `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// All lists every model the schema owns, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Provider{},
		&CancellationPolicy{},
		&Media{},
		&MediaImage{},
		&PriceRule{},
		&MediaPriceRule{},
		&Campaign{},
		&CampaignItem{},
		&Payment{},
		&Payout{},
		&OutboxEvent{},
	}
}
