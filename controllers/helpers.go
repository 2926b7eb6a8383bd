package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nestboard/nestboard/directory"
	"github.com/nestboard/nestboard/domain"
	"github.com/nestboard/nestboard/models"
	"github.com/nestboard/nestboard/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func parsePaging(ctx *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(ctx.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// respondServiceError translates domain errors into the response
// envelope. Unknown errors become opaque 500s; details go to the log,
// not the client.
func respondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	case errors.Is(err, domain.ErrTargetNotFound):
		utils.Error(ctx, http.StatusNotFound, 40410, "reply not found")
	case errors.Is(err, domain.ErrParentNotFound):
		utils.Error(ctx, http.StatusNotFound, 40411, "parent reply not found")
	case errors.Is(err, domain.ErrParentInactive):
		utils.Error(ctx, http.StatusBadRequest, 40030, "parent reply has been deleted")
	case errors.Is(err, domain.ErrParentPostMismatch):
		utils.Error(ctx, http.StatusBadRequest, 40031, "parent reply belongs to a different post")
	case errors.Is(err, domain.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40901, "concurrent update, please retry")
	case domain.IsForbidden(err):
		utils.Error(ctx, http.StatusForbidden, 40310, err.Error())
	case domain.IsInvalid(err):
		utils.Error(ctx, http.StatusBadRequest, 40020, err.Error())
	case domain.IsDependency(err):
		utils.Error(ctx, http.StatusServiceUnavailable, 50301, "temporarily unavailable")
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal error")
	}
}

// postView is the enriched API shape of a post.
type postView struct {
	models.Post
	Author *directory.UserSummary `json:"author,omitempty"`
}

// replyView is the enriched API shape of one reply with nested children.
type replyView struct {
	ID          string                 `json:"id"`
	PostID      string                 `json:"post_id"`
	ParentID    string                 `json:"parent_reply_id,omitempty"`
	Body        string                 `json:"body"`
	Author      *directory.UserSummary `json:"author,omitempty"`
	AuthorID    uint                   `json:"author_id"`
	CreatedAt   string                 `json:"created_at"`
	ChildIDs    []string               `json:"child_ids,omitempty"`
	Children    []*replyView           `json:"children,omitempty"`
	Attachments []string               `json:"attachments,omitempty"`
}

func enrichPosts(ctx context.Context, dir *directory.Directory, posts []models.Post) []postView {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.OwnerID)
	}
	summaries := dir.GetMany(ctx, ids)

	views := make([]postView, 0, len(posts))
	for _, p := range posts {
		views = append(views, postView{Post: p, Author: summaries[p.OwnerID]})
	}
	return views
}

func enrichPost(ctx context.Context, dir *directory.Directory, post *models.Post) postView {
	return postView{Post: *post, Author: dir.GetByID(ctx, post.OwnerID)}
}

func enrichReplies(ctx context.Context, dir *directory.Directory, replies []models.Reply) []*replyView {
	ids := make([]uint, 0, len(replies))
	for _, r := range replies {
		ids = append(ids, r.AuthorID)
	}
	summaries := dir.GetMany(ctx, ids)

	views := make([]*replyView, 0, len(replies))
	for i := range replies {
		views = append(views, replyToView(&replies[i], summaries[replies[i].AuthorID]))
	}
	return views
}

func replyToView(r *models.Reply, author *directory.UserSummary) *replyView {
	parentID := ""
	if r.ParentReplyID != nil {
		parentID = *r.ParentReplyID
	}
	return &replyView{
		ID:          r.ID,
		PostID:      r.PostID,
		ParentID:    parentID,
		Body:        r.Body,
		Author:      author,
		AuthorID:    r.AuthorID,
		CreatedAt:   r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		ChildIDs:    r.ChildIDs,
		Attachments: r.Attachments,
	}
}

func enrichTree(ctx context.Context, dir *directory.Directory, views []*domain.ReplyView) []*replyView {
	var ids []uint
	var collect func([]*domain.ReplyView)
	collect = func(vs []*domain.ReplyView) {
		for _, v := range vs {
			ids = append(ids, v.Node.AuthorID)
			collect(v.Children)
		}
	}
	collect(views)
	summaries := dir.GetMany(ctx, ids)

	var convert func([]*domain.ReplyView) []*replyView
	convert = func(vs []*domain.ReplyView) []*replyView {
		out := make([]*replyView, 0, len(vs))
		for _, v := range vs {
			rv := &replyView{
				ID:        v.Node.ID,
				PostID:    v.Node.PostID,
				ParentID:  v.Node.ParentID,
				Body:      v.Node.Body,
				Author:    summaries[v.Node.AuthorID],
				AuthorID:  v.Node.AuthorID,
				CreatedAt: v.Node.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				Children:  convert(v.Children),
			}
			out = append(out, rv)
		}
		return out
	}
	return convert(views)
}
