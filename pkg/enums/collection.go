package enums

import "fmt"

// Collection names a top-level list in the store document.
type Collection string

const (
	CollectionHostels          Collection = "hostels"
	CollectionUsers            Collection = "users"
	CollectionTenants          Collection = "tenants"
	CollectionRooms            Collection = "rooms"
	CollectionPayments         Collection = "payments"
	CollectionComplaints       Collection = "complaints"
	CollectionStaff            Collection = "staff"
	CollectionExpenses         Collection = "expenses"
	CollectionNotices          Collection = "notices"
	CollectionHostelRequests   Collection = "hostelRequests"
	CollectionCheckoutRequests Collection = "checkoutRequests"
	CollectionHostelSettings   Collection = "hostelSettings"
	CollectionSupportTickets   Collection = "supportTickets"
)

var knownCollections = []Collection{
	CollectionHostels,
	CollectionUsers,
	CollectionTenants,
	CollectionRooms,
	CollectionPayments,
	CollectionComplaints,
	CollectionStaff,
	CollectionExpenses,
	CollectionNotices,
	CollectionHostelRequests,
	CollectionCheckoutRequests,
	CollectionHostelSettings,
	CollectionSupportTickets,
}

// String implements fmt.Stringer.
func (c Collection) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Collection.
func (c Collection) IsValid() bool {
	for _, candidate := range knownCollections {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsHostelScoped reports whether records of the collection carry a hostelId partition key.
func (c Collection) IsHostelScoped() bool {
	switch c {
	case CollectionHostels, CollectionUsers, CollectionHostelRequests:
		return false
	}
	return c.IsValid()
}

// ParseCollection converts raw input into a Collection.
func ParseCollection(value string) (Collection, error) {
	for _, candidate := range knownCollections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid collection %q", value)
}

// Collections returns every known collection in document order.
func Collections() []Collection {
	out := make([]Collection, len(knownCollections))
	copy(out, knownCollections)
	return out
}
