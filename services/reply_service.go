package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/nestboard/nestboard/domain"
	"github.com/nestboard/nestboard/models"
	"github.com/nestboard/nestboard/store"
)

// ReplyService orchestrates the reply tree engine against persisted reply
// records and keeps the post's denormalized counter in step.
type ReplyService struct {
	posts   store.PostStore
	replies store.ReplyStore
	log     *zap.SugaredLogger
}

// NewReplyService builds a ReplyService.
func NewReplyService(posts store.PostStore, replies store.ReplyStore, log *zap.SugaredLogger) *ReplyService {
	return &ReplyService{posts: posts, replies: replies, log: log}
}

// Create attaches a new reply to a post, optionally under a parent reply.
// The owning post must be published and accepting replies; the parent must
// exist, be active, and belong to the same post. The denormalized counter
// moves by +1 best-effort after the write.
func (s *ReplyService) Create(ctx context.Context, postID string, parentID *string, actor Actor, body string, attachments []string) (*models.Reply, error) {
	if strings.TrimSpace(body) == "" {
		return nil, domain.Invalidf("reply body cannot be empty")
	}
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Status != domain.StatusPublished {
		return nil, domain.Forbiddenf("replies are only allowed on published posts")
	}
	if post.RepliesDisabled {
		return nil, domain.Forbiddenf("replies are disabled for this post")
	}

	if parentID != nil && *parentID != "" {
		parent, err := s.replies.Get(ctx, *parentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrParentNotFound
			}
			return nil, err
		}
		if parent.PostID != postID {
			return nil, domain.ErrParentPostMismatch
		}
		if !parent.IsActive {
			return nil, domain.ErrParentInactive
		}
	} else {
		parentID = nil
	}

	reply := &models.Reply{
		PostID:        postID,
		ParentReplyID: parentID,
		AuthorID:      actor.ID,
		Body:          body,
		Attachments:   attachments,
	}
	if err := s.replies.Create(ctx, reply); err != nil {
		return nil, err
	}
	if err := s.replies.IncrementPostCounter(ctx, postID, 1); err != nil {
		// counter drift self-heals on reconciliation
		s.log.Warnf("reply counter increment failed for post %s: %v", postID, err)
	}
	return reply, nil
}

// Delete soft-deletes one reply. Allowed for the reply's author, the post's
// owner, and admins. Only the directly-deleted node moves the counter, and
// only when this call actually flipped it: repeated deletes are no-ops.
func (s *ReplyService) Delete(ctx context.Context, replyID string, actor Actor) error {
	reply, err := s.replies.Get(ctx, replyID)
	if err != nil {
		return err
	}
	if err := s.authorizeDelete(ctx, reply, actor); err != nil {
		return err
	}
	flipped, err := s.replies.SoftDelete(ctx, replyID)
	if err != nil {
		return err
	}
	if flipped {
		if err := s.replies.IncrementPostCounter(ctx, reply.PostID, -1); err != nil {
			s.log.Warnf("reply counter decrement failed for post %s: %v", reply.PostID, err)
		}
	}
	return nil
}

// DeleteAtPath soft-deletes the reply addressed by a sequence of sibling
// indices over the materialized tree, the same view the tree listing
// serves. Returns the id of the deleted reply.
func (s *ReplyService) DeleteAtPath(ctx context.Context, postID string, path []int, actor Actor) (string, error) {
	records, err := s.replies.ForPost(ctx, postID)
	if err != nil {
		return "", err
	}
	tree := domain.NewReplyTree(postID, models.ReplyNodes(records))
	// resolves in memory only; persistence happens after authorization
	id, delta, err := tree.SoftDeleteAtPath(path)
	if err != nil {
		return "", err
	}
	reply, err := s.replies.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.authorizeDelete(ctx, reply, actor); err != nil {
		return "", err
	}
	if delta == 0 {
		return id, nil
	}
	flipped, err := s.replies.SoftDelete(ctx, id)
	if err != nil {
		return "", err
	}
	if flipped {
		if err := s.replies.IncrementPostCounter(ctx, postID, -1); err != nil {
			s.log.Warnf("reply counter decrement failed for post %s: %v", postID, err)
		}
	}
	return id, nil
}

func (s *ReplyService) authorizeDelete(ctx context.Context, reply *models.Reply, actor Actor) error {
	if actor.IsAdmin() || (actor.ID != 0 && actor.ID == reply.AuthorID) {
		return nil
	}
	post, err := s.posts.Get(ctx, reply.PostID)
	if err == nil && actor.ID != 0 && actor.ID == post.OwnerID {
		return nil
	}
	return domain.Forbiddenf("reply can only be deleted by its author, the post owner, or an admin")
}

// TopLevel pages a post's active top-level replies, newest first. When the
// owning post cannot be fetched because the store is temporarily
// unavailable, the listing degrades to empty instead of failing the
// request; a genuinely missing or non-viewable post is still not-found.
func (s *ReplyService) TopLevel(ctx context.Context, postID string, actor Actor, page, pageSize int) ([]models.Reply, error) {
	if err := s.checkViewable(ctx, postID, actor); err != nil {
		if domain.IsDependency(err) {
			s.log.Warnf("post lookup degraded for reply listing %s: %v", postID, err)
			return []models.Reply{}, nil
		}
		return nil, err
	}
	return s.replies.TopLevel(ctx, postID, page, pageSize)
}

// Children pages a reply's active direct children, oldest first. The
// owning post's visibility gates this listing exactly like TopLevel and
// Tree; a reply id on a post the actor may not see is not-found.
func (s *ReplyService) Children(ctx context.Context, parentID string, actor Actor, page, pageSize int) ([]models.Reply, error) {
	parent, err := s.replies.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkViewable(ctx, parent.PostID, actor); err != nil {
		if domain.IsDependency(err) {
			s.log.Warnf("post lookup degraded for children listing %s: %v", parentID, err)
			return []models.Reply{}, nil
		}
		return nil, err
	}
	return s.replies.Children(ctx, parentID, page, pageSize)
}

// Tree materializes the full nested reply tree up to maxDepth. Unbounded in
// response size; callers reserve it for small threads and admin views.
func (s *ReplyService) Tree(ctx context.Context, postID string, actor Actor, maxDepth int) ([]*domain.ReplyView, error) {
	if err := s.checkViewable(ctx, postID, actor); err != nil {
		if domain.IsDependency(err) {
			s.log.Warnf("post lookup degraded for reply tree %s: %v", postID, err)
			return []*domain.ReplyView{}, nil
		}
		return nil, err
	}
	records, err := s.replies.ForPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	tree := domain.NewReplyTree(postID, models.ReplyNodes(records))
	return tree.Materialize(maxDepth), nil
}

// Reconcile recomputes the authoritative active count from the live tree
// and overwrites the post's denormalized counter with it.
func (s *ReplyService) Reconcile(ctx context.Context, postID string) (int, error) {
	records, err := s.replies.ForPost(ctx, postID)
	if err != nil {
		return 0, err
	}
	tree := domain.NewReplyTree(postID, models.ReplyNodes(records))
	count := tree.CountActive()
	if err := s.posts.SetReplyCount(ctx, postID, int64(count)); err != nil {
		return count, err
	}
	return count, nil
}

func (s *ReplyService) checkViewable(ctx context.Context, postID string, actor Actor) error {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return &domain.DependencyError{Op: "post store", Err: err}
	}
	if !domain.CanView(post.Ref(), actor.ID, actor.IsAdmin()) {
		return domain.ErrNotFound
	}
	return nil
}
