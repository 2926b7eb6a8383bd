package store

import (
	"context"

	"github.com/nestboard/nestboard/domain"
	"github.com/nestboard/nestboard/models"
)

// PostStore is the persistence contract the post service depends on.
// Implementations map storage-level failures onto domain errors:
// missing rows become domain.ErrNotFound, lost conditional updates become
// domain.ErrConflict.
type PostStore interface {
	Get(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	// Update persists content fields of an already-loaded post and stamps
	// the modification time. Status is never written through here.
	Update(ctx context.Context, post *models.Post) error
	// ConditionalUpdateStatus applies "set status = next plus fields, iff
	// status still equals expected" as one atomic statement. A losing
	// concurrent writer observes domain.ErrConflict.
	ConditionalUpdateStatus(ctx context.Context, id string, expected, next domain.Status, fields map[string]any) error
	// SetRepliesDisabled flips the reply toggle iff the post is still
	// published.
	SetRepliesDisabled(ctx context.Context, id string, disabled bool) error
	List(ctx context.Context, statuses []domain.Status, page, pageSize int) ([]models.Post, int64, error)
	ListByOwner(ctx context.Context, ownerID uint, page, pageSize int) ([]models.Post, int64, error)
	// SetReplyCount overwrites the denormalized counter during
	// reconciliation against the live tree.
	SetReplyCount(ctx context.Context, id string, count int64) error
}

// ReplyStore is the persistence contract the reply service depends on.
type ReplyStore interface {
	Get(ctx context.Context, id string) (*models.Reply, error)
	// ForPost loads every reply record of a post for tree assembly.
	ForPost(ctx context.Context, postID string) ([]models.Reply, error)
	// TopLevel pages active top-level replies newest-first.
	TopLevel(ctx context.Context, postID string, page, pageSize int) ([]models.Reply, error)
	// Children pages a node's active direct children oldest-first.
	Children(ctx context.Context, parentID string, page, pageSize int) ([]models.Reply, error)
	// Create inserts the reply and, when it has a parent, appends its id to
	// the parent's child projection under a row lock so concurrent sibling
	// insertions do not lose each other.
	Create(ctx context.Context, reply *models.Reply) error
	// SoftDelete marks the reply inactive. The bool reports whether this
	// call actually flipped the row; repeated deletes return false.
	SoftDelete(ctx context.Context, id string) (bool, error)
	// IncrementPostCounter moves the post's denormalized reply counter.
	// Best-effort: drift self-heals via reconciliation, never via trust.
	IncrementPostCounter(ctx context.Context, postID string, delta int) error
}
