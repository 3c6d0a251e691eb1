package enums

import "fmt"

// MediaStatus is the advisory occupancy flag providers set on their media.
// Booking decisions never read it; availability is derived from campaigns.
type MediaStatus string

const (
	MediaStatusAvailable MediaStatus = "Available"
	MediaStatusBusy      MediaStatus = "Busy"
)

var validMediaStatuses = []MediaStatus{
	MediaStatusAvailable,
	MediaStatusBusy,
}

// String returns the literal string for the status.
func (m MediaStatus) String() string {
	return string(m)
}

// IsValid reports whether the status is known.
func (m MediaStatus) IsValid() bool {
	for _, candidate := range validMediaStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMediaStatus converts raw input into a MediaStatus.
func ParseMediaStatus(value string) (MediaStatus, error) {
	for _, candidate := range validMediaStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media status %q", value)
}
