package controllers

import (
	"fmt"
	"net/http"
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

// PostController exposes post lifecycle and listing endpoints.
type PostController struct {
	posts *services.PostService
	dir   *directory.Directory
	store *files.Store
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService, dir *directory.Directory, store *files.Store) *PostController {
	return &PostController{posts: posts, dir: dir, store: store}
}

// CreatePost creates a draft or, with publish=true, a live post.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title       string   `json:"title" binding:"required"`
		Body        string   `json:"body"`
		Images      []string `json:"images"`
		Attachments []string `json:"attachments"`
		Publish     bool     `json:"publish"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	actor := middleware.CurrentActor(ctx)
	post, err := p.posts.Create(ctx.Request.Context(), actor, services.CreatePostInput{
		Title:       utils.SanitizePlain(req.Title),
		Body:        utils.SanitizeBody(req.Body),
		Images:      req.Images,
		Attachments: req.Attachments,
		Publish:     req.Publish,
	})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	p.store.Claim(append(req.Images, req.Attachments...), 0)
	utils.InvalidatePostCaches(ctx.Request.Context(), post.ID)
	utils.Success(ctx, enrichPost(ctx.Request.Context(), p.dir, post))
}

// ListPosts returns a listing page filtered by the visibility policy.
// Guest pages for the default published listing come from cache.
func (p *PostController) ListPosts(ctx *gin.Context) {
	actor := middleware.CurrentActor(ctx)
	requested := domain.Status(ctx.Query("status"))
	page, pageSize := parsePaging(ctx)

	cacheable := actor.Role == domain.RoleGuest && requested == ""
	cacheKey := fmt.Sprintf("%s%d:%d", utils.PostListPrefix, page, pageSize)
	if cacheable {
		var cached gin.H
		if utils.CacheGetJSON(ctx.Request.Context(), cacheKey, &cached) {
			utils.Success(ctx, cached)
			return
		}
	}

	posts, total, err := p.posts.Listing(ctx.Request.Context(), actor, requested, page, pageSize)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	payload := utils.Paged(enrichPosts(ctx.Request.Context(), p.dir, posts), page, pageSize, total)
	if cacheable {
		ttl := time.Duration(config.Get().CacheTTLSec) * time.Second
		utils.CacheSetJSON(ctx.Request.Context(), cacheKey, payload, ttl)
	}
	utils.Success(ctx, payload)
}

// OwnPosts lists the caller's posts in every status.
func (p *PostController) OwnPosts(ctx *gin.Context) {
	actor := middleware.CurrentActor(ctx)
	page, pageSize := parsePaging(ctx)

	posts, total, err := p.posts.OwnPosts(ctx.Request.Context(), actor, page, pageSize)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, utils.Paged(enrichPosts(ctx.Request.Context(), p.dir, posts), page, pageSize, total))
}

// GetPost returns one post subject to the visibility policy.
func (p *PostController) GetPost(ctx *gin.Context) {
	actor := middleware.CurrentActor(ctx)
	post, err := p.posts.Get(ctx.Request.Context(), ctx.Param("id"), actor)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, enrichPost(ctx.Request.Context(), p.dir, post))
}

// UpdatePost edits a post's content; owner only.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req struct {
		Title       string   `json:"title" binding:"required"`
		Body        string   `json:"body"`
		Images      []string `json:"images"`
		Attachments []string `json:"attachments"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	actor := middleware.CurrentActor(ctx)
	post, err := p.posts.Update(ctx.Request.Context(), ctx.Param("id"), actor, services.UpdatePostInput{
		Title:       utils.SanitizePlain(req.Title),
		Body:        utils.SanitizeBody(req.Body),
		Images:      req.Images,
		Attachments: req.Attachments,
	})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	p.store.Claim(append(req.Images, req.Attachments...), 0)
	utils.InvalidatePostCaches(ctx.Request.Context(), post.ID)
	utils.Success(ctx, enrichPost(ctx.Request.Context(), p.dir, post))
}

// UpdateStatus moves a post through its lifecycle. The target status
// names the edge; ban requires a reason only admins can supply.
func (p *PostController) UpdateStatus(ctx *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	actor := middleware.CurrentActor(ctx)
	post, err := p.posts.TransitionStatus(ctx.Request.Context(), ctx.Param("id"), domain.Status(req.Status), actor, utils.SanitizePlain(req.Reason))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	utils.InvalidatePostCaches(ctx.Request.Context(), post.ID)
	utils.Success(ctx, enrichPost(ctx.Request.Context(), p.dir, post))
}

// DeletePost soft-deletes through the lifecycle engine.
func (p *PostController) DeletePost(ctx *gin.Context) {
	actor := middleware.CurrentActor(ctx)
	id := ctx.Param("id")
	if err := p.posts.Delete(ctx.Request.Context(), id, actor); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.InvalidatePostCaches(ctx.Request.Context(), id)
	utils.Success(ctx, gin.H{"message": "deleted"})
}

// SetRepliesEnabled toggles whether new replies are accepted.
func (p *PostController) SetRepliesEnabled(ctx *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	actor := middleware.CurrentActor(ctx)
	post, err := p.posts.SetRepliesDisabled(ctx.Request.Context(), ctx.Param("id"), actor, !*req.Enabled)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	utils.InvalidatePostCaches(ctx.Request.Context(), post.ID)
	utils.Success(ctx, enrichPost(ctx.Request.Context(), p.dir, post))
}

// Upload stores attachment files and returns their URLs. Files not
// claimed by a post or reply within the upload TTL are reaped.
func (p *PostController) Upload(ctx *gin.Context) {
	form, err := ctx.MultipartForm()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid multipart payload")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40041, "no files provided")
		return
	}

	actor := middleware.CurrentActor(ctx)
	urls, err := p.store.Upload(actor.ID, headers)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, err.Error())
		return
	}
	utils.Success(ctx, gin.H{"urls": urls})
}
