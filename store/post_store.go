package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nestboard/nestboard/domain"
	"github.com/nestboard/nestboard/models"
)

type gormPostStore struct {
	db *gorm.DB
}

// NewPostStore returns the gorm-backed PostStore.
func NewPostStore(db *gorm.DB) PostStore {
	return &gormPostStore{db: db}
}

func (s *gormPostStore) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (s *gormPostStore) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(post).Error
}

func (s *gormPostStore) Update(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now()
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]any{
			"title":       post.Title,
			"body":        post.Body,
			"images":      post.Images,
			"attachments": post.Attachments,
			"updated_at":  post.UpdatedAt,
		}).Error
}

func (s *gormPostStore) ConditionalUpdateStatus(ctx context.Context, id string, expected, next domain.Status, fields map[string]any) error {
	updates := map[string]any{
		"status":     next,
		"updated_at": time.Now(),
	}
	for k, v := range fields {
		updates[k] = v
	}
	res := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// either the row vanished or a concurrent transition won
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err == nil && count == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	return nil
}

func (s *gormPostStore) SetRepliesDisabled(ctx context.Context, id string, disabled bool) error {
	res := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND status = ?", id, domain.StatusPublished).
		Updates(map[string]any{"replies_disabled": disabled, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (s *gormPostStore) List(ctx context.Context, statuses []domain.Status, page, pageSize int) ([]models.Post, int64, error) {
	if len(statuses) == 0 {
		return []models.Post{}, 0, nil
	}
	var posts []models.Post
	var total int64
	q := s.db.WithContext(ctx).Model(&models.Post{}).Where("status IN ?", statuses)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error
	return posts, total, err
}

func (s *gormPostStore) ListByOwner(ctx context.Context, ownerID uint, page, pageSize int) ([]models.Post, int64, error) {
	var posts []models.Post
	var total int64
	q := s.db.WithContext(ctx).Model(&models.Post{}).Where("owner_id = ?", ownerID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error
	return posts, total, err
}

func (s *gormPostStore) SetReplyCount(ctx context.Context, id string, count int64) error {
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("reply_count", count).Error
}
