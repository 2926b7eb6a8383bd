package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nestboard/nestboard/domain"
	"github.com/nestboard/nestboard/models"
)

type gormReplyStore struct {
	db *gorm.DB
}

// NewReplyStore returns the gorm-backed ReplyStore.
func NewReplyStore(db *gorm.DB) ReplyStore {
	return &gormReplyStore{db: db}
}

func (s *gormReplyStore) Get(ctx context.Context, id string) (*models.Reply, error) {
	var reply models.Reply
	if err := s.db.WithContext(ctx).First(&reply, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &reply, nil
}

func (s *gormReplyStore) ForPost(ctx context.Context, postID string) ([]models.Reply, error) {
	var replies []models.Reply
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&replies).Error
	return replies, err
}

func (s *gormReplyStore) TopLevel(ctx context.Context, postID string, page, pageSize int) ([]models.Reply, error) {
	var replies []models.Reply
	err := s.db.WithContext(ctx).
		Where("post_id = ? AND parent_reply_id IS NULL AND is_active = ?", postID, true).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&replies).Error
	return replies, err
}

func (s *gormReplyStore) Children(ctx context.Context, parentID string, page, pageSize int) ([]models.Reply, error) {
	var replies []models.Reply
	err := s.db.WithContext(ctx).
		Where("parent_reply_id = ? AND is_active = ?", parentID, true).
		Order("created_at ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&replies).Error
	return replies, err
}

// Create inserts the reply. When it has a parent the parent row is locked
// for the duration of the transaction and re-validated, so two concurrent
// sub-replies cannot lose each other's child-id append and a parent deleted
// mid-flight is caught.
func (s *gormReplyStore) Create(ctx context.Context, reply *models.Reply) error {
	if reply.ID == "" {
		reply.ID = uuid.NewString()
	}
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now()
	}
	reply.IsActive = true

	if reply.ParentReplyID == nil {
		return s.db.WithContext(ctx).Create(reply).Error
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parent models.Reply
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&parent, "id = ?", *reply.ParentReplyID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrParentNotFound
			}
			return err
		}
		if parent.PostID != reply.PostID {
			return domain.ErrParentPostMismatch
		}
		if !parent.IsActive {
			return domain.ErrParentInactive
		}
		if err := tx.Create(reply).Error; err != nil {
			return err
		}
		childIDs := append(parent.ChildIDs, reply.ID)
		return tx.Model(&models.Reply{}).
			Where("id = ?", parent.ID).
			UpdateColumn("child_ids", childIDs).Error
	})
}

func (s *gormReplyStore) SoftDelete(ctx context.Context, id string) (bool, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Reply{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{"is_active": false, "deleted_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// distinguish "already deleted" (a no-op) from "never existed"
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Reply{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		if count == 0 {
			return false, domain.ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

func (s *gormReplyStore) IncrementPostCounter(ctx context.Context, postID string, delta int) error {
	if delta == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("reply_count", gorm.Expr("GREATEST(reply_count + ?, 0)", delta)).Error
}
