package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	ownerID    uint = 1
	strangerID uint = 2
	adminID    uint = 9
)

func TestCanView_Matrix(t *testing.T) {
	cases := []struct {
		status                 Status
		owner, stranger, admin bool
	}{
		{StatusPublished, true, true, true},
		{StatusUnpublished, true, false, false},
		{StatusHidden, true, false, false},
		{StatusBanned, true, false, true},
		{StatusDeleted, true, false, true},
		{Status("weird"), false, false, false}, // fail closed
	}
	for _, tc := range cases {
		post := PostRef{OwnerID: ownerID, Status: tc.status}
		assert.Equal(t, tc.owner, CanView(post, ownerID, false), "%s owner", tc.status)
		assert.Equal(t, tc.stranger, CanView(post, strangerID, false), "%s stranger", tc.status)
		assert.Equal(t, tc.admin, CanView(post, adminID, true), "%s admin", tc.status)
	}
}

// If an unprivileged stranger can see a post, the owner and an admin must
// be able to as well, for every status.
func TestCanView_MonotonicInPrivilege(t *testing.T) {
	for _, status := range allStatuses {
		post := PostRef{OwnerID: ownerID, Status: status}
		if CanView(post, strangerID, false) {
			assert.True(t, CanView(post, ownerID, false), "owner outranks stranger for %s", status)
			assert.True(t, CanView(post, adminID, true), "admin outranks stranger for %s", status)
		}
	}
}

func TestCanView_GuestNeverOwner(t *testing.T) {
	// actor id 0 (guest) must not match a hypothetical owner id 0
	post := PostRef{OwnerID: 0, Status: StatusUnpublished}
	assert.False(t, CanView(post, 0, false))
}

func TestCanModify(t *testing.T) {
	for _, status := range []Status{StatusUnpublished, StatusPublished, StatusHidden} {
		post := PostRef{OwnerID: ownerID, Status: status}
		assert.True(t, CanModify(post, ownerID, false), "owner edits %s", status)
		assert.False(t, CanModify(post, strangerID, false))
		assert.False(t, CanModify(post, adminID, true), "admins never edit content directly")
	}
	for _, status := range []Status{StatusBanned, StatusDeleted} {
		post := PostRef{OwnerID: ownerID, Status: status}
		assert.False(t, CanModify(post, ownerID, false), "%s is immutable", status)
		assert.False(t, CanModify(post, adminID, true))
	}
}

func TestListingStatuses(t *testing.T) {
	assert.ElementsMatch(t,
		[]Status{StatusPublished, StatusBanned, StatusDeleted},
		ListingStatuses(true, ""))
	assert.Equal(t, []Status{StatusBanned}, ListingStatuses(true, StatusBanned))
	assert.Empty(t, ListingStatuses(true, StatusUnpublished), "admins cannot list others' drafts")
	assert.Empty(t, ListingStatuses(true, StatusHidden))

	assert.Equal(t, []Status{StatusPublished}, ListingStatuses(false, ""))
	assert.Equal(t, []Status{StatusPublished}, ListingStatuses(false, StatusPublished))
	assert.Empty(t, ListingStatuses(false, StatusUnpublished))
	assert.Empty(t, ListingStatuses(false, StatusHidden))
	assert.Empty(t, ListingStatuses(false, StatusBanned))
}
