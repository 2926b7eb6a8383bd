package domain

// PostRef is the slice of a post the access policy needs: who owns it and
// where it sits in the lifecycle. Keeping it value-only keeps the policy
// free of storage concerns.
type PostRef struct {
	OwnerID uint
	Status  Status
}

// CanView decides read visibility for a single post.
// Published posts are public; drafts and hidden posts are owner-only;
// banned and deleted posts stay visible to the owner and admins. Unknown
// statuses fail closed.
func CanView(post PostRef, actorID uint, isAdmin bool) bool {
	owner := actorID != 0 && actorID == post.OwnerID
	switch post.Status {
	case StatusPublished:
		return true
	case StatusUnpublished, StatusHidden:
		return owner
	case StatusBanned, StatusDeleted:
		return owner || isAdmin
	}
	return false
}

// CanModify decides content-edit rights. Only the owner may edit, and only
// while the post is unpublished, published or hidden. Admins act through
// status transitions, never through direct edits; banned and deleted posts
// are immutable outside recovery transitions.
func CanModify(post PostRef, actorID uint, isAdmin bool) bool {
	_ = isAdmin
	if actorID == 0 || actorID != post.OwnerID {
		return false
	}
	switch post.Status {
	case StatusUnpublished, StatusPublished, StatusHidden:
		return true
	}
	return false
}

// adminListable is the status set the general admin listing may cover.
var adminListable = map[Status]bool{
	StatusPublished: true,
	StatusBanned:    true,
	StatusDeleted:   true,
}

// ListingStatuses returns the set of statuses a general listing query may
// include for this actor. An empty result means the listing yields nothing.
// Owner-only views (unpublished, hidden) never flow through the general
// listing; they go through the owner-scoped endpoint instead.
func ListingStatuses(isAdmin bool, requested Status) []Status {
	if isAdmin {
		if requested == "" {
			return []Status{StatusPublished, StatusBanned, StatusDeleted}
		}
		if adminListable[requested] {
			return []Status{requested}
		}
		return nil
	}
	if requested == "" || requested == StatusPublished {
		return []Status{StatusPublished}
	}
	return nil
}
