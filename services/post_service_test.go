package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nestboard/nestboard/domain"
	"github.com/nestboard/nestboard/models"
)

var (
	owner    = Actor{ID: 1, Role: domain.RoleUser}
	stranger = Actor{ID: 2, Role: domain.RoleUser}
	admin    = Actor{ID: 9, Role: domain.RoleAdmin}
)

func newPostService() (*PostService, *fakePostStore) {
	posts := newFakePostStore()
	return NewPostService(posts, zap.NewNop().Sugar()), posts
}

func seedPost(t *testing.T, svc *PostService, actor Actor, publish bool) *models.Post {
	t.Helper()
	post, err := svc.Create(context.Background(), actor, CreatePostInput{
		Title:   "hello",
		Body:    "world",
		Publish: publish,
	})
	require.NoError(t, err)
	return post
}

func TestCreate_DraftAndPublished(t *testing.T) {
	svc, _ := newPostService()
	ctx := context.Background()

	draft := seedPost(t, svc, owner, false)
	assert.Equal(t, domain.StatusUnpublished, draft.Status)

	published := seedPost(t, svc, owner, true)
	assert.Equal(t, domain.StatusPublished, published.Status)

	_, err := svc.Create(ctx, owner, CreatePostInput{Title: " ", Body: "x", Publish: true})
	assert.True(t, domain.IsInvalid(err), "publishing without a title is invalid, got %v", err)
}

func TestTransition_PublishRequiresContent(t *testing.T) {
	svc, posts := newPostService()
	ctx := context.Background()

	post, err := svc.Create(ctx, owner, CreatePostInput{Title: "t", Body: "b"})
	require.NoError(t, err)
	posts.posts[post.ID].Body = "  "

	_, err = svc.TransitionStatus(ctx, post.ID, domain.StatusPublished, owner, "")
	assert.True(t, domain.IsInvalid(err), "empty body must deny publish as invalid request, got %v", err)
	got, _ := posts.Get(ctx, post.ID)
	assert.Equal(t, domain.StatusUnpublished, got.Status)
}

func TestTransition_OwnerLifecycle(t *testing.T) {
	svc, _ := newPostService()
	ctx := context.Background()
	post := seedPost(t, svc, owner, true)

	hidden, err := svc.TransitionStatus(ctx, post.ID, domain.StatusHidden, owner, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusHidden, hidden.Status)

	republished, err := svc.TransitionStatus(ctx, post.ID, domain.StatusPublished, owner, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, republished.Status)

	_, err = svc.TransitionStatus(ctx, post.ID, domain.StatusBanned, owner, "")
	require.Error(t, err)
	var fe *domain.ForbiddenError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "cannot transition from published to banned", fe.Reason)
}

func TestTransition_StrangerDenied(t *testing.T) {
	svc, _ := newPostService()
	post := seedPost(t, svc, owner, true)

	_, err := svc.TransitionStatus(context.Background(), post.ID, domain.StatusHidden, stranger, "")
	assert.True(t, domain.IsForbidden(err))
}

func TestTransition_AdminBanAndUnban(t *testing.T) {
	svc, posts := newPostService()
	ctx := context.Background()
	post := seedPost(t, svc, owner, true)

	banned, err := svc.TransitionStatus(ctx, post.ID, domain.StatusBanned, admin, "spam")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBanned, banned.Status)
	require.NotNil(t, banned.BannedAt)
	require.NotNil(t, banned.BannedBy)
	assert.Equal(t, admin.ID, *banned.BannedBy)
	assert.Equal(t, "spam", banned.BanReason)

	// the owner may no longer edit a banned post
	_, err = svc.Update(ctx, post.ID, owner, UpdatePostInput{Title: "x", Body: "y"})
	assert.True(t, domain.IsForbidden(err))

	unbanned, err := svc.TransitionStatus(ctx, post.ID, domain.StatusPublished, admin, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, unbanned.Status)
	assert.Nil(t, unbanned.BannedAt)
	assert.Nil(t, unbanned.BannedBy)
	assert.Empty(t, unbanned.BanReason)

	got, _ := posts.Get(ctx, post.ID)
	assert.Nil(t, got.DeletedAt)
}

func TestTransition_DeleteAndAdminRecover(t *testing.T) {
	svc, _ := newPostService()
	ctx := context.Background()
	post := seedPost(t, svc, owner, true)

	require.NoError(t, svc.Delete(ctx, post.ID, owner))
	got, err := svc.Get(ctx, post.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeleted, got.Status)
	assert.NotNil(t, got.DeletedAt)

	// owner cannot leave deleted
	_, err = svc.TransitionStatus(ctx, post.ID, domain.StatusPublished, owner, "")
	assert.True(t, domain.IsForbidden(err))

	recovered, err := svc.TransitionStatus(ctx, post.ID, domain.StatusPublished, admin, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, recovered.Status)
	assert.Nil(t, recovered.DeletedAt)
}

func TestTransition_AdminOwnPostUnion(t *testing.T) {
	svc, _ := newPostService()
	ctx := context.Background()
	post := seedPost(t, svc, admin, true)

	// owner edge
	_, err := svc.TransitionStatus(ctx, post.ID, domain.StatusHidden, admin, "")
	require.NoError(t, err)
	// admin edge on the same post
	banned, err := svc.TransitionStatus(ctx, post.ID, domain.StatusBanned, admin, "self ban")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBanned, banned.Status)
}

func TestTransition_ConcurrentBanAppliesOnce(t *testing.T) {
	svc, posts := newPostService()
	ctx := context.Background()
	post := seedPost(t, svc, owner, true)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.TransitionStatus(ctx, post.ID, domain.StatusBanned, admin, "race")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrConflict):
		case domain.IsForbidden(err): // loaded the already-banned state
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one transition wins the conditional update")
	got, _ := posts.Get(ctx, post.ID)
	assert.Equal(t, domain.StatusBanned, got.Status)
	assert.NotNil(t, got.BannedAt)
}

func TestGet_VisibilityGate(t *testing.T) {
	svc, _ := newPostService()
	ctx := context.Background()
	post := seedPost(t, svc, owner, false)

	_, err := svc.Get(ctx, post.ID, owner)
	require.NoError(t, err)
	_, err = svc.Get(ctx, post.ID, stranger)
	assert.ErrorIs(t, err, domain.ErrNotFound, "drafts stay invisible to strangers")
	_, err = svc.Get(ctx, post.ID, admin)
	assert.ErrorIs(t, err, domain.ErrNotFound, "admins do not see others' drafts")
}

func TestSetRepliesDisabled(t *testing.T) {
	svc, _ := newPostService()
	ctx := context.Background()
	post := seedPost(t, svc, owner, true)

	updated, err := svc.SetRepliesDisabled(ctx, post.ID, owner, true)
	require.NoError(t, err)
	assert.True(t, updated.RepliesDisabled)

	_, err = svc.SetRepliesDisabled(ctx, post.ID, stranger, false)
	assert.True(t, domain.IsForbidden(err))

	draft := seedPost(t, svc, owner, false)
	_, err = svc.SetRepliesDisabled(ctx, draft.ID, owner, true)
	assert.True(t, domain.IsForbidden(err), "toggle only while published")
}

func TestListing_PolicyFilter(t *testing.T) {
	svc, _ := newPostService()
	ctx := context.Background()
	seedPost(t, svc, owner, true)
	draft := seedPost(t, svc, owner, false)
	_ = draft

	items, total, err := svc.Listing(ctx, stranger, "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, domain.StatusPublished, items[0].Status)

	items, total, err = svc.Listing(ctx, stranger, domain.StatusHidden, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	_, _, err = svc.Listing(ctx, stranger, domain.Status("bogus"), 1, 10)
	assert.True(t, domain.IsInvalid(err))

	// admin sees banned posts in the general listing
	banned := seedPost(t, svc, owner, true)
	_, err = svc.TransitionStatus(ctx, banned.ID, domain.StatusBanned, admin, "r")
	require.NoError(t, err)
	_, total, err = svc.Listing(ctx, admin, "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total, "published and banned posts, never the draft")
}
