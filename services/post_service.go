package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nestboard/nestboard/domain"
	"github.com/nestboard/nestboard/models"
	"github.com/nestboard/nestboard/store"
)

// Actor identifies the authenticated caller. Role was decided at the
// authentication boundary; ID 0 means guest.
type Actor struct {
	ID   uint
	Role domain.Role
}

// IsAdmin reports admin privileges.
func (a Actor) IsAdmin() bool { return a.Role.IsAdmin() }

// PostService orchestrates the access policy and the transition engine
// against loaded posts and persists the result.
type PostService struct {
	posts store.PostStore
	log   *zap.SugaredLogger
}

// NewPostService builds a PostService.
func NewPostService(posts store.PostStore, log *zap.SugaredLogger) *PostService {
	return &PostService{posts: posts, log: log}
}

// CreatePostInput carries the content payload for a new post.
type CreatePostInput struct {
	Title       string
	Body        string
	Images      []string
	Attachments []string
	Publish     bool
}

// Create stores a new post owned by the actor, either as a draft or
// directly published. Publishing requires a non-empty title and body.
func (s *PostService) Create(ctx context.Context, actor Actor, in CreatePostInput) (*models.Post, error) {
	status := domain.StatusUnpublished
	if in.Publish {
		if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Body) == "" {
			return nil, domain.Invalidf("a post needs a title and body before it can be published")
		}
		status = domain.StatusPublished
	}
	post := &models.Post{
		OwnerID:     actor.ID,
		Status:      status,
		Title:       in.Title,
		Body:        in.Body,
		Images:      in.Images,
		Attachments: in.Attachments,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Get loads a post and enforces the visibility policy. Posts the actor may
// not see surface as not-found so their existence does not leak.
func (s *PostService) Get(ctx context.Context, id string, actor Actor) (*models.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanView(post.Ref(), actor.ID, actor.IsAdmin()) {
		return nil, domain.ErrNotFound
	}
	return post, nil
}

// UpdatePostInput carries the editable content fields.
type UpdatePostInput struct {
	Title       string
	Body        string
	Images      []string
	Attachments []string
}

// Update edits a post's content. Only the owner may edit, and only while
// the post is unpublished, published or hidden.
func (s *PostService) Update(ctx context.Context, id string, actor Actor, in UpdatePostInput) (*models.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanModify(post.Ref(), actor.ID, actor.IsAdmin()) {
		return nil, domain.Forbiddenf("post cannot be modified by this user in status %s", post.Status)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, domain.Invalidf("title cannot be empty")
	}
	post.Title = in.Title
	post.Body = in.Body
	post.Images = in.Images
	post.Attachments = in.Attachments
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// TransitionStatus moves a post through the lifecycle state machine.
// Ownership selects the owner table, admin role the admin table; an admin
// acting on their own post gets the union. Side-effect fields (ban and
// deletion metadata) are written only here, in the same atomic update that
// changes the status, conditional on the status the caller observed.
func (s *PostService) TransitionStatus(ctx context.Context, id string, target domain.Status, actor Actor, reason string) (*models.Post, error) {
	if !target.Valid() {
		return nil, domain.Invalidf("unknown status %q", target)
	}
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	isOwner := actor.ID != 0 && actor.ID == post.OwnerID
	decision := domain.Decision{Reason: "cannot transition from " + string(post.Status) + " to " + string(target)}
	if isOwner {
		decision = domain.ValidateTransition(post.Status, target, domain.ClassOwner)
	}
	if !decision.Allowed && actor.IsAdmin() {
		decision = domain.ValidateTransition(post.Status, target, domain.ClassAdmin)
	}
	if !decision.Allowed {
		return nil, &domain.ForbiddenError{Reason: decision.Reason}
	}

	if target == domain.StatusPublished {
		if strings.TrimSpace(post.Title) == "" || strings.TrimSpace(post.Body) == "" {
			return nil, domain.Invalidf("a post needs a title and body before it can be published")
		}
	}

	now := time.Now()
	fields := map[string]any{}
	switch target {
	case domain.StatusBanned:
		fields["banned_at"] = now
		fields["banned_by"] = actor.ID
		fields["ban_reason"] = reason
	case domain.StatusDeleted:
		fields["deleted_at"] = now
	case domain.StatusPublished:
		// recovery and unban clear their metadata
		if post.Status == domain.StatusBanned {
			fields["banned_at"] = nil
			fields["banned_by"] = nil
			fields["ban_reason"] = ""
		}
		if post.Status == domain.StatusDeleted {
			fields["deleted_at"] = nil
		}
	}

	if err := s.posts.ConditionalUpdateStatus(ctx, id, post.Status, target, fields); err != nil {
		return nil, err
	}
	return s.posts.Get(ctx, id)
}

// Delete soft-deletes a post by transitioning it to deleted.
func (s *PostService) Delete(ctx context.Context, id string, actor Actor) error {
	_, err := s.TransitionStatus(ctx, id, domain.StatusDeleted, actor, "")
	return err
}

// SetRepliesDisabled toggles whether a post accepts new replies. Owner
// only, and only while the post is published; the flag is orthogonal to
// the state machine.
func (s *PostService) SetRepliesDisabled(ctx context.Context, id string, actor Actor, disabled bool) (*models.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.ID == 0 || actor.ID != post.OwnerID {
		return nil, domain.Forbiddenf("only the post owner may toggle replies")
	}
	if post.Status != domain.StatusPublished {
		return nil, domain.Forbiddenf("replies can only be toggled on a published post")
	}
	if err := s.posts.SetRepliesDisabled(ctx, id, disabled); err != nil {
		return nil, err
	}
	return s.posts.Get(ctx, id)
}

// Listing pages the general post listing, constrained to the statuses the
// policy allows this actor to see. An empty status set short-circuits to an
// empty result.
func (s *PostService) Listing(ctx context.Context, actor Actor, requested domain.Status, page, pageSize int) ([]models.Post, int64, error) {
	if requested != "" && !requested.Valid() {
		return nil, 0, domain.Invalidf("unknown status %q", requested)
	}
	statuses := domain.ListingStatuses(actor.IsAdmin(), requested)
	if len(statuses) == 0 {
		return []models.Post{}, 0, nil
	}
	return s.posts.List(ctx, statuses, page, pageSize)
}

// OwnPosts pages the actor's own posts across every status. This is the
// owner-scoped view; drafts and hidden posts never appear in the general
// listing.
func (s *PostService) OwnPosts(ctx context.Context, actor Actor, page, pageSize int) ([]models.Post, int64, error) {
	return s.posts.ListByOwner(ctx, actor.ID, page, pageSize)
}
