package enums

import "fmt"

// PlanStatus tracks the subscription state of a hostel plan.
type PlanStatus string

const (
	PlanStatusTrial   PlanStatus = "trial"
	PlanStatusActive  PlanStatus = "active"
	PlanStatusExpired PlanStatus = "expired"
)

// PlanTypeFreeTrial is the default plan assigned to newly approved hostels.
const PlanTypeFreeTrial = "free_trial"

var validPlanStatuses = []PlanStatus{
	PlanStatusTrial,
	PlanStatusActive,
	PlanStatusExpired,
}

func (p PlanStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PlanStatus.
func (p PlanStatus) IsValid() bool {
	for _, candidate := range validPlanStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlanStatus converts raw input into a PlanStatus.
func ParsePlanStatus(value string) (PlanStatus, error) {
	for _, candidate := range validPlanStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan status %q", value)
}
