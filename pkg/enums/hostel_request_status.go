package enums

import "fmt"

// HostelRequestStatus tracks a request to provision a new hostel.
type HostelRequestStatus string

const (
	HostelRequestStatusPending  HostelRequestStatus = "pending"
	HostelRequestStatusApproved HostelRequestStatus = "approved"
	HostelRequestStatusRejected HostelRequestStatus = "rejected"
)

var validHostelRequestStatuses = []HostelRequestStatus{
	HostelRequestStatusPending,
	HostelRequestStatusApproved,
	HostelRequestStatusRejected,
}

func (h HostelRequestStatus) String() string {
	return string(h)
}

// IsValid reports whether the value is a known HostelRequestStatus.
func (h HostelRequestStatus) IsValid() bool {
	for _, candidate := range validHostelRequestStatuses {
		if candidate == h {
			return true
		}
	}
	return false
}

// ParseHostelRequestStatus converts raw input into a HostelRequestStatus.
func ParseHostelRequestStatus(value string) (HostelRequestStatus, error) {
	for _, candidate := range validHostelRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid hostel request status %q", value)
}
