package directory

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nestboard/nestboard/models"
)

// UserSummary is the enrichment payload attached to posts and replies.
type UserSummary struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// Directory resolves author ids to public user summaries. It is an optional
// collaborator: every lookup runs under a bounded timeout and callers treat
// a miss or failure as "no enrichment", never as a request failure.
type Directory struct {
	db      *gorm.DB
	cache   *summaryCache
	timeout time.Duration
	log     *zap.SugaredLogger
}

// New builds a Directory with the given per-lookup timeout and cache TTL.
func New(db *gorm.DB, timeout, ttl time.Duration, log *zap.SugaredLogger) *Directory {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Directory{
		db:      db,
		cache:   newSummaryCache(ttl),
		timeout: timeout,
		log:     log,
	}
}

// GetByID returns a user summary or nil when the user is unknown or the
// lookup failed.
func (d *Directory) GetByID(ctx context.Context, id uint) *UserSummary {
	if id == 0 {
		return nil
	}
	if s, ok := d.cache.get(id); ok {
		return s
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var user models.User
	if err := d.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			d.log.Debugf("user lookup %d degraded: %v", id, err)
		}
		return nil
	}
	s := &UserSummary{ID: user.ID, Username: user.Username, AvatarURL: user.AvatarURL}
	d.cache.put(id, s)
	return s
}

// GetMany resolves a batch of ids best-effort; absent ids are simply
// missing from the result map.
func (d *Directory) GetMany(ctx context.Context, ids []uint) map[uint]*UserSummary {
	out := make(map[uint]*UserSummary, len(ids))
	var misses []uint
	for _, id := range dedupe(ids) {
		if s, ok := d.cache.get(id); ok {
			out[id] = s
		} else {
			misses = append(misses, id)
		}
	}
	if len(misses) == 0 {
		return out
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var users []models.User
	if err := d.db.WithContext(ctx).Find(&users, misses).Error; err != nil {
		d.log.Debugf("user batch lookup degraded: %v", err)
		return out
	}
	for i := range users {
		s := &UserSummary{ID: users[i].ID, Username: users[i].Username, AvatarURL: users[i].AvatarURL}
		d.cache.put(s.ID, s)
		out[s.ID] = s
	}
	return out
}

// Evict drops one cached summary, e.g. after a profile update.
func (d *Directory) Evict(id uint) { d.cache.evict(id) }

// EvictAll clears the cache.
func (d *Directory) EvictAll() { d.cache.evictAll() }

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
