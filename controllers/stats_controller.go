package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nestboard/nestboard/config"
	"github.com/nestboard/nestboard/domain"
	"github.com/nestboard/nestboard/models"
	"github.com/nestboard/nestboard/utils"
)

// StatsController serves aggregate forum counters.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// Overview returns forum-wide totals. The document is cached in Redis
// and dropped on any post or reply write.
func (s *StatsController) Overview(ctx *gin.Context) {
	var cached gin.H
	if utils.CacheGetJSON(ctx.Request.Context(), utils.StatsKey, &cached) {
		utils.Success(ctx, cached)
		return
	}

	var users, publishedPosts, totalPosts, activeReplies int64
	if err := s.db.Model(&models.User{}).Count(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal error")
		return
	}
	if err := s.db.Model(&models.Post{}).
		Where("status = ?", domain.StatusPublished).
		Count(&publishedPosts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal error")
		return
	}
	if err := s.db.Model(&models.Post{}).
		Where("status <> ?", domain.StatusDeleted).
		Count(&totalPosts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal error")
		return
	}
	if err := s.db.Model(&models.Reply{}).
		Where("is_active = ?", true).
		Count(&activeReplies).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal error")
		return
	}

	payload := gin.H{
		"users":           users,
		"published_posts": publishedPosts,
		"total_posts":     totalPosts,
		"active_replies":  activeReplies,
	}
	ttl := time.Duration(config.Get().CacheTTLSec) * time.Second
	utils.CacheSetJSON(ctx.Request.Context(), utils.StatsKey, payload, ttl)
	utils.Success(ctx, payload)
}
