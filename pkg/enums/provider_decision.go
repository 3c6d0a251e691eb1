package enums

import "fmt"

// ProviderDecision is the provider's answer to a campaign item request.
type ProviderDecision string

const (
	ProviderDecisionPending  ProviderDecision = "Pending"
	ProviderDecisionAccepted ProviderDecision = "Accepted"
	ProviderDecisionRejected ProviderDecision = "Rejected"
)

var validProviderDecisions = []ProviderDecision{
	ProviderDecisionPending,
	ProviderDecisionAccepted,
	ProviderDecisionRejected,
}

// String implements fmt.Stringer.
func (d ProviderDecision) String() string {
	return string(d)
}

// IsValid reports whether the decision is known.
func (d ProviderDecision) IsValid() bool {
	for _, candidate := range validProviderDecisions {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseProviderDecision converts raw input into a ProviderDecision.
func ParseProviderDecision(value string) (ProviderDecision, error) {
	for _, candidate := range validProviderDecisions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid provider decision %q", value)
}
