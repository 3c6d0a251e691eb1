package payloads

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/adspace-backend/pkg/enums"
)

// CampaignCancelledEvent reports the penalty owed when a campaign is cancelled.
type CampaignCancelledEvent struct {
	CampaignID     uint64               `json:"campaign_id"`
	ClientUserID   uint64               `json:"client_user_id"`
	PreviousStatus enums.CampaignStatus `json:"previous_status"`
	DaysUntilStart int                  `json:"days_until_start"`
	Total          decimal.Decimal      `json:"total"`
	PenaltyPct     int                  `json:"penalty_pct"`
	PenaltyAmount  decimal.Decimal      `json:"penalty_amount"`
	Currency       enums.Currency       `json:"currency"`
}

// CampaignStateChangedEvent is emitted for admin-driven lifecycle moves.
type CampaignStateChangedEvent struct {
	CampaignID uint64               `json:"campaign_id"`
	From       enums.CampaignStatus `json:"from"`
	To         enums.CampaignStatus `json:"to"`
}

// CampaignItemDecidedEvent is emitted when a provider accepts or rejects a slot.
type CampaignItemDecidedEvent struct {
	ItemID         uint64                 `json:"item_id"`
	CampaignID     uint64                 `json:"campaign_id"`
	MediaID        uint64                 `json:"media_id"`
	ProviderUserID uint64                 `json:"provider_user_id"`
	Decision       enums.ProviderDecision `json:"decision"`
	Description    *string                `json:"description,omitempty"`
}

// PaymentRecordedEvent is emitted when a campaign is paid.
type PaymentRecordedEvent struct {
	PaymentID  uint64              `json:"payment_id"`
	CampaignID uint64              `json:"campaign_id"`
	Amount     decimal.Decimal     `json:"amount"`
	Currency   enums.Currency      `json:"currency"`
	Status     enums.PaymentStatus `json:"status"`
}

// PayoutLine is one provider's share in a PayoutsGeneratedEvent.
type PayoutLine struct {
	PayoutID       uint64          `json:"payout_id"`
	ProviderUserID uint64          `json:"provider_user_id"`
	Amount         decimal.Decimal `json:"amount"`
}

// PayoutsGeneratedEvent is emitted once per paid campaign fan-out.
type PayoutsGeneratedEvent struct {
	CampaignID uint64         `json:"campaign_id"`
	Currency   enums.Currency `json:"currency"`
	Payouts    []PayoutLine   `json:"payouts"`
}

// PayoutPaidEvent is emitted when an admin marks a payout as paid.
type PayoutPaidEvent struct {
	PayoutID       uint64          `json:"payout_id"`
	CampaignID     uint64          `json:"campaign_id"`
	ProviderUserID uint64          `json:"provider_user_id"`
	Amount         decimal.Decimal `json:"amount"`
}
