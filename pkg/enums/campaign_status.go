package enums

import "fmt"

// CampaignStatus tracks where a campaign sits in its booking lifecycle.
type CampaignStatus string

const (
	CampaignStatusPending   CampaignStatus = "Pending"
	CampaignStatusConfirmed CampaignStatus = "Confirmed"
	CampaignStatusPaid      CampaignStatus = "Paid"
	CampaignStatusActive    CampaignStatus = "Active"
	CampaignStatusFinished  CampaignStatus = "Finished"
	CampaignStatusCancelled CampaignStatus = "Cancelled"
)

var validCampaignStatuses = []CampaignStatus{
	CampaignStatusPending,
	CampaignStatusConfirmed,
	CampaignStatusPaid,
	CampaignStatusActive,
	CampaignStatusFinished,
	CampaignStatusCancelled,
}

// String implements fmt.Stringer.
func (s CampaignStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s CampaignStatus) IsValid() bool {
	for _, candidate := range validCampaignStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition leaves the status.
func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignStatusCancelled || s == CampaignStatusFinished
}

// Cancellable reports whether a campaign in this status may be cancelled.
func (s CampaignStatus) Cancellable() bool {
	switch s {
	case CampaignStatusPending, CampaignStatusConfirmed, CampaignStatusPaid:
		return true
	}
	return false
}

// ParseCampaignStatus converts raw input into a CampaignStatus.
func ParseCampaignStatus(value string) (CampaignStatus, error) {
	for _, candidate := range validCampaignStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid campaign status %q", value)
}
