package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoleNormalizesInput(t *testing.T) {
	role, err := ParseRole(" Master_Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleMasterAdmin, role)
	assert.False(t, role.IsHostelScoped())
	assert.True(t, RoleReceptionist.IsHostelScoped())

	_, err = ParseRole("owner")
	assert.Error(t, err)
}

func TestCollectionsCoverDocumentLayout(t *testing.T) {
	collections := Collections()
	require.Len(t, collections, 13)
	assert.Equal(t, CollectionHostels, collections[0])

	collections[0] = "mutated"
	assert.Equal(t, CollectionHostels, Collections()[0], "Collections must return a copy")
}

func TestCollectionHostelScope(t *testing.T) {
	assert.False(t, CollectionUsers.IsHostelScoped())
	assert.False(t, CollectionHostels.IsHostelScoped())
	assert.False(t, CollectionHostelRequests.IsHostelScoped())
	assert.True(t, CollectionTenants.IsHostelScoped())
	assert.True(t, CollectionComplaints.IsHostelScoped())
	assert.False(t, Collection("widgets").IsHostelScoped())
}

func TestParseComplaintStatus(t *testing.T) {
	status, err := ParseComplaintStatus("in-progress")
	require.NoError(t, err)
	assert.Equal(t, ComplaintStatusInProgress, status)

	_, err = ParseComplaintStatus("closed")
	assert.Error(t, err)
}

func TestNotificationEventValidity(t *testing.T) {
	assert.True(t, NotificationComplaintCreated.IsValid())
	_, err := ParseNotificationEvent("order.created")
	assert.Error(t, err)
}
