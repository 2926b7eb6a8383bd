package domain

import "fmt"

// Status is the lifecycle state of a post. A post is in exactly one status
// at a time and only the transition engine may move it.
type Status string

const (
	StatusUnpublished Status = "unpublished"
	StatusPublished   Status = "published"
	StatusHidden      Status = "hidden"
	StatusBanned      Status = "banned"
	StatusDeleted     Status = "deleted"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusUnpublished, StatusPublished, StatusHidden, StatusBanned, StatusDeleted:
		return true
	}
	return false
}

// Role is decided once at the authentication boundary. Superadmin collapses
// into Admin there; the engines never see raw role strings.
type Role int

const (
	RoleGuest Role = iota
	RoleUser
	RoleAdmin
)

// ParseRole maps a stored/claimed role string to a typed Role.
func ParseRole(s string) Role {
	switch s {
	case "admin", "superadmin":
		return RoleAdmin
	case "user":
		return RoleUser
	}
	return RoleGuest
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleUser:
		return "user"
	}
	return "guest"
}

// IsAdmin is a convenience for policy checks.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// ActorClass selects which transition table applies to a status change.
// Owners and admins have disjoint edge sets; an admin editing their own post
// gets the union of both.
type ActorClass int

const (
	ClassOwner ActorClass = iota
	ClassAdmin
)

// ownerEdges and adminEdges are the outgoing edges of the post state
// machine per actor class. Absence of a (from, to) pair means denial.
var ownerEdges = map[Status][]Status{
	StatusUnpublished: {StatusPublished, StatusDeleted},
	StatusPublished:   {StatusHidden, StatusDeleted},
	StatusHidden:      {StatusPublished, StatusDeleted},
	StatusBanned:      {StatusDeleted},
	StatusDeleted:     {},
}

var adminEdges = map[Status][]Status{
	StatusPublished: {StatusBanned},
	StatusHidden:    {StatusBanned},
	StatusBanned:    {StatusPublished},
	StatusDeleted:   {StatusPublished},
}

// Decision is the outcome of a transition check. Reason is set only on
// denial and is surfaced verbatim to the caller.
type Decision struct {
	Allowed bool
	Reason  string
}

// ValidateTransition checks whether the actor class may move a post from
// current to target. It is a pure table lookup; content preconditions for
// publishing (non-empty title/body) are the caller's job and produce an
// InvalidRequest error, not a denial here.
func ValidateTransition(current, target Status, class ActorClass) Decision {
	edges := ownerEdges
	if class == ClassAdmin {
		edges = adminEdges
	}
	for _, to := range edges[current] {
		if to == target {
			return Decision{Allowed: true}
		}
	}
	return Decision{Reason: fmt.Sprintf("cannot transition from %s to %s", current, target)}
}
