package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nestboard/nestboard/config"
	"github.com/nestboard/nestboard/directory"
	"github.com/nestboard/nestboard/domain"
	"github.com/nestboard/nestboard/files"
	"github.com/nestboard/nestboard/middleware"
	"github.com/nestboard/nestboard/services"
	"github.com/nestboard/nestboard/utils"
)

const defaultTreeDepth = 10

// ReplyController exposes the threaded reply endpoints.
type ReplyController struct {
	replies *services.ReplyService
	dir     *directory.Directory
	store   *files.Store
}

// NewReplyController creates a new ReplyController instance.
func NewReplyController(replies *services.ReplyService, dir *directory.Directory, store *files.Store) *ReplyController {
	return &ReplyController{replies: replies, dir: dir, store: store}
}

// CreateReply adds a reply to a post, optionally under a parent reply.
func (r *ReplyController) CreateReply(ctx *gin.Context) {
	var req struct {
		ParentReplyID *string  `json:"parent_reply_id"`
		Body          string   `json:"body" binding:"required"`
		Attachments   []string `json:"attachments"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	actor := middleware.CurrentActor(ctx)
	postID := ctx.Param("id")
	reply, err := r.replies.Create(ctx.Request.Context(), postID, req.ParentReplyID, actor, utils.SanitizeBody(req.Body), req.Attachments)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	r.store.Claim(req.Attachments, 0)
	utils.InvalidatePostCaches(ctx.Request.Context(), postID)
	utils.Success(ctx, replyToView(reply, r.dir.GetByID(ctx.Request.Context(), reply.AuthorID)))
}

// ListTopLevel returns the newest-first page of top-level replies.
func (r *ReplyController) ListTopLevel(ctx *gin.Context) {
	actor := middleware.CurrentActor(ctx)
	page, pageSize := parsePaging(ctx)

	replies, err := r.replies.TopLevel(ctx.Request.Context(), ctx.Param("id"), actor, page, pageSize)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"replies": enrichReplies(ctx.Request.Context(), r.dir, replies)})
}

// ListChildren returns the oldest-first page of direct children of one
// reply.
func (r *ReplyController) ListChildren(ctx *gin.Context) {
	actor := middleware.CurrentActor(ctx)
	page, pageSize := parsePaging(ctx)

	replies, err := r.replies.Children(ctx.Request.Context(), ctx.Param("replyId"), actor, page, pageSize)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"replies": enrichReplies(ctx.Request.Context(), r.dir, replies)})
}

// Tree materializes the nested reply tree of a post. Deleted replies
// are pruned; their still-active descendants surface in their place.
// Guest requests at the default depth are served from cache; any write
// touching the post drops the entry.
func (r *ReplyController) Tree(ctx *gin.Context) {
	actor := middleware.CurrentActor(ctx)
	maxDepth, _ := strconv.Atoi(ctx.DefaultQuery("max_depth", strconv.Itoa(defaultTreeDepth)))
	if maxDepth < 1 {
		maxDepth = defaultTreeDepth
	}

	cacheable := actor.Role == domain.RoleGuest && maxDepth == defaultTreeDepth
	cacheKey := utils.PostTreePrefix + ctx.Param("id")
	if cacheable {
		var cached gin.H
		if utils.CacheGetJSON(ctx.Request.Context(), cacheKey, &cached) {
			utils.Success(ctx, cached)
			return
		}
	}

	views, err := r.replies.Tree(ctx.Request.Context(), ctx.Param("id"), actor, maxDepth)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	payload := gin.H{"replies": enrichTree(ctx.Request.Context(), r.dir, views)}
	if cacheable {
		ttl := time.Duration(config.Get().CacheTTLSec) * time.Second
		utils.CacheSetJSON(ctx.Request.Context(), cacheKey, payload, ttl)
	}
	utils.Success(ctx, payload)
}

// DeleteReply soft-deletes a reply by id.
func (r *ReplyController) DeleteReply(ctx *gin.Context) {
	actor := middleware.CurrentActor(ctx)
	postID := ctx.Param("id")
	if err := r.replies.Delete(ctx.Request.Context(), ctx.Param("replyId"), actor); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.InvalidatePostCaches(ctx.Request.Context(), postID)
	utils.Success(ctx, gin.H{"message": "deleted"})
}

// DeleteByPath soft-deletes the reply addressed by an index path over
// the materialized tree, e.g. [0,2] for the third child of the first
// top-level reply.
func (r *ReplyController) DeleteByPath(ctx *gin.Context) {
	var req struct {
		Path []int `json:"path" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	actor := middleware.CurrentActor(ctx)
	postID := ctx.Param("id")
	id, err := r.replies.DeleteAtPath(ctx.Request.Context(), postID, req.Path, actor)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.InvalidatePostCaches(ctx.Request.Context(), postID)
	utils.Success(ctx, gin.H{"deleted_id": id})
}

// Reconcile recounts active replies from the tree and overwrites the
// denormalized counter. Admin only.
func (r *ReplyController) Reconcile(ctx *gin.Context) {
	postID := ctx.Param("id")
	count, err := r.replies.Reconcile(ctx.Request.Context(), postID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.InvalidatePostCaches(ctx.Request.Context(), postID)
	utils.Success(ctx, gin.H{"reply_count": count})
}
