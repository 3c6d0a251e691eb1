package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateCampaign     OutboxAggregateType = "campaign"
	AggregateCampaignItem OutboxAggregateType = "campaign_item"
	AggregatePayment      OutboxAggregateType = "payment"
	AggregatePayout       OutboxAggregateType = "payout"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateCampaign,
	AggregateCampaignItem,
	AggregatePayment,
	AggregatePayout,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a settlement event appended to the outbox.
type OutboxEventType string

const (
	EventCampaignCancelled   OutboxEventType = "campaign_cancelled"
	EventItemDecided         OutboxEventType = "campaign_item_decided"
	EventPaymentRecorded     OutboxEventType = "payment_recorded"
	EventPayoutsGenerated    OutboxEventType = "payouts_generated"
	EventPayoutPaid          OutboxEventType = "payout_paid"
	EventCampaignStateChange OutboxEventType = "campaign_state_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventCampaignCancelled,
	EventItemDecided,
	EventPaymentRecorded,
	EventPayoutsGenerated,
	EventPayoutPaid,
	EventCampaignStateChange,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
