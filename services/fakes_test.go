package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nestboard/nestboard/domain"
	"github.com/nestboard/nestboard/models"
)

// fakePostStore is an in-memory PostStore. The mutex makes conditional
// updates atomic the way the real store's single-statement UPDATE is.
type fakePostStore struct {
	mu      sync.Mutex
	posts   map[string]*models.Post
	nextID  int
	getErr  error // simulates an unavailable collaborator
	saveErr error
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{posts: map[string]*models.Post{}}
}

func (f *fakePostStore) Get(ctx context.Context, id string) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	post, ok := f.posts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *post
	return &cp, nil
}

func (f *fakePostStore) Create(ctx context.Context, post *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if post.ID == "" {
		f.nextID++
		post.ID = fmt.Sprintf("post-%d", f.nextID)
	}
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	cp := *post
	f.posts[post.ID] = &cp
	return nil
}

func (f *fakePostStore) Update(ctx context.Context, post *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[post.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.Title = post.Title
	stored.Body = post.Body
	stored.Images = post.Images
	stored.Attachments = post.Attachments
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakePostStore) ConditionalUpdateStatus(ctx context.Context, id string, expected, next domain.Status, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return domain.ErrNotFound
	}
	if post.Status != expected {
		return domain.ErrConflict
	}
	post.Status = next
	post.UpdatedAt = time.Now()
	for k, v := range fields {
		switch k {
		case "banned_at":
			if v == nil {
				post.BannedAt = nil
			} else {
				t := v.(time.Time)
				post.BannedAt = &t
			}
		case "banned_by":
			if v == nil {
				post.BannedBy = nil
			} else {
				u := v.(uint)
				post.BannedBy = &u
			}
		case "ban_reason":
			post.BanReason = v.(string)
		case "deleted_at":
			if v == nil {
				post.DeletedAt = nil
			} else {
				t := v.(time.Time)
				post.DeletedAt = &t
			}
		}
	}
	return nil
}

func (f *fakePostStore) SetRepliesDisabled(ctx context.Context, id string, disabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok || post.Status != domain.StatusPublished {
		return domain.ErrConflict
	}
	post.RepliesDisabled = disabled
	return nil
}

func (f *fakePostStore) List(ctx context.Context, statuses []domain.Status, page, pageSize int) ([]models.Post, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[domain.Status]bool{}
	for _, s := range statuses {
		want[s] = true
	}
	var out []models.Post
	for _, p := range f.posts {
		if want[p.Status] {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakePostStore) ListByOwner(ctx context.Context, ownerID uint, page, pageSize int) ([]models.Post, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Post
	for _, p := range f.posts {
		if p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakePostStore) SetReplyCount(ctx context.Context, id string, count int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return domain.ErrNotFound
	}
	post.ReplyCount = count
	return nil
}

// counter returns the denormalized reply count for assertions.
func (f *fakePostStore) counter(id string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[id].ReplyCount
}

// fakeReplyStore is an in-memory ReplyStore wired to a fakePostStore so
// counter moves are observable.
type fakeReplyStore struct {
	mu      sync.Mutex
	replies map[string]*models.Reply
	order   []string
	posts   *fakePostStore
	nextID  int
}

func newFakeReplyStore(posts *fakePostStore) *fakeReplyStore {
	return &fakeReplyStore{replies: map[string]*models.Reply{}, posts: posts}
}

func (f *fakeReplyStore) Get(ctx context.Context, id string) (*models.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reply, ok := f.replies[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *reply
	return &cp, nil
}

func (f *fakeReplyStore) ForPost(ctx context.Context, postID string) ([]models.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reply
	for _, id := range f.order {
		if r := f.replies[id]; r.PostID == postID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReplyStore) TopLevel(ctx context.Context, postID string, page, pageSize int) ([]models.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reply
	for i := len(f.order) - 1; i >= 0; i-- { // newest first
		r := f.replies[f.order[i]]
		if r.PostID == postID && r.ParentReplyID == nil && r.IsActive {
			out = append(out, *r)
		}
	}
	return pageOf(out, page, pageSize), nil
}

func (f *fakeReplyStore) Children(ctx context.Context, parentID string, page, pageSize int) ([]models.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reply
	for _, id := range f.order {
		r := f.replies[id]
		if r.ParentReplyID != nil && *r.ParentReplyID == parentID && r.IsActive {
			out = append(out, *r)
		}
	}
	return pageOf(out, page, pageSize), nil
}

func pageOf(items []models.Reply, page, pageSize int) []models.Reply {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []models.Reply{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (f *fakeReplyStore) Create(ctx context.Context, reply *models.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if reply.ID == "" {
		f.nextID++
		reply.ID = fmt.Sprintf("reply-%d", f.nextID)
	}
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now().Add(time.Duration(f.nextID) * time.Millisecond)
	}
	reply.IsActive = true
	if reply.ParentReplyID != nil {
		parent, ok := f.replies[*reply.ParentReplyID]
		if !ok {
			return domain.ErrParentNotFound
		}
		if parent.PostID != reply.PostID {
			return domain.ErrParentPostMismatch
		}
		if !parent.IsActive {
			return domain.ErrParentInactive
		}
		parent.ChildIDs = append(parent.ChildIDs, reply.ID)
	}
	cp := *reply
	f.replies[reply.ID] = &cp
	f.order = append(f.order, reply.ID)
	return nil
}

func (f *fakeReplyStore) SoftDelete(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reply, ok := f.replies[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !reply.IsActive {
		return false, nil
	}
	now := time.Now()
	reply.IsActive = false
	reply.DeletedAt = &now
	return true, nil
}

func (f *fakeReplyStore) IncrementPostCounter(ctx context.Context, postID string, delta int) error {
	f.posts.mu.Lock()
	defer f.posts.mu.Unlock()
	if post, ok := f.posts.posts[postID]; ok {
		post.ReplyCount += int64(delta)
		if post.ReplyCount < 0 {
			post.ReplyCount = 0
		}
	}
	return nil
}
