package enums

import "fmt"

// HostelStatus gates login for every user of a hostel.
type HostelStatus string

const (
	HostelStatusActive   HostelStatus = "active"
	HostelStatusInactive HostelStatus = "inactive"
)

var validHostelStatuses = []HostelStatus{
	HostelStatusActive,
	HostelStatusInactive,
}

func (h HostelStatus) String() string {
	return string(h)
}

// IsValid reports whether the value is a known HostelStatus.
func (h HostelStatus) IsValid() bool {
	for _, candidate := range validHostelStatuses {
		if candidate == h {
			return true
		}
	}
	return false
}

// ParseHostelStatus converts raw input into a HostelStatus.
func ParseHostelStatus(value string) (HostelStatus, error) {
	for _, candidate := range validHostelStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid hostel status %q", value)
}
