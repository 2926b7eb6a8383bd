package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treePost = "post-1"

var treeClock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func node(id, parent string, offset int) *ReplyNode {
	return &ReplyNode{
		ID:        id,
		PostID:    treePost,
		ParentID:  parent,
		AuthorID:  1,
		Body:      "body of " + id,
		IsActive:  true,
		CreatedAt: treeClock.Add(time.Duration(offset) * time.Minute),
	}
}

// buildChain returns a tree with A (top-level) -> B -> C.
func buildChain(t *testing.T) *ReplyTree {
	t.Helper()
	tree := NewReplyTree(treePost, nil)
	require.NoError(t, tree.Insert("", node("A", "", 0)))
	require.NoError(t, tree.Insert("A", node("B", "", 1)))
	require.NoError(t, tree.Insert("B", node("C", "", 2)))
	return tree
}

func TestInsert_TopLevelAndNested(t *testing.T) {
	tree := buildChain(t)
	a, ok := tree.Get("A")
	require.True(t, ok)
	assert.Equal(t, []string{"B"}, a.ChildIDs)
	b, _ := tree.Get("B")
	assert.Equal(t, "A", b.ParentID)
	assert.Equal(t, 3, tree.CountActive())
}

func TestInsert_ParentErrors(t *testing.T) {
	tree := buildChain(t)

	err := tree.Insert("missing", node("X", "", 3))
	assert.ErrorIs(t, err, ErrParentNotFound)

	_, err = tree.SoftDelete("B")
	require.NoError(t, err)
	err = tree.Insert("B", node("Y", "", 4))
	assert.ErrorIs(t, err, ErrParentInactive)

	foreign := node("Z", "", 5)
	foreign.PostID = "post-2"
	err = tree.Insert("A", foreign)
	assert.ErrorIs(t, err, ErrParentPostMismatch)
}

func TestSoftDelete_OnlyTargetAndIdempotent(t *testing.T) {
	tree := buildChain(t)

	delta, err := tree.SoftDelete("B")
	require.NoError(t, err)
	assert.Equal(t, 1, delta)

	b, _ := tree.Get("B")
	c, _ := tree.Get("C")
	assert.False(t, b.IsActive)
	assert.True(t, c.IsActive, "descendants keep their own liveness")
	assert.Equal(t, []string{"C"}, b.ChildIDs, "child ids survive deletion")

	// second delete is a no-op, not an error and not a second decrement
	delta, err = tree.SoftDelete("B")
	require.NoError(t, err)
	assert.Equal(t, 0, delta)
	assert.Equal(t, 2, tree.CountActive())

	_, err = tree.SoftDelete("nope")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestCountActive_SkipsInactiveButReachesThrough(t *testing.T) {
	tree := buildChain(t)
	assert.Equal(t, 3, tree.CountActive())
	_, _ = tree.SoftDelete("B")
	// A and C remain active; C stays reachable through inactive B
	assert.Equal(t, 2, tree.CountActive())
	_, _ = tree.SoftDelete("C")
	assert.Equal(t, 1, tree.CountActive())
}

func TestMaterialize_OrphanSplicedAtParentPosition(t *testing.T) {
	tree := buildChain(t)
	_, err := tree.SoftDelete("B")
	require.NoError(t, err)

	views := tree.Materialize(0)
	require.Len(t, views, 1)
	assert.Equal(t, "A", views[0].Node.ID)
	// B excluded; C appears where B was
	require.Len(t, views[0].Children, 1)
	assert.Equal(t, "C", views[0].Children[0].Node.ID)
	assert.Empty(t, views[0].Children[0].Children)
}

func TestMaterialize_SiblingOrderAndDepthLimit(t *testing.T) {
	tree := NewReplyTree(treePost, nil)
	require.NoError(t, tree.Insert("", node("r1", "", 0)))
	require.NoError(t, tree.Insert("r1", node("c2", "", 5)))
	require.NoError(t, tree.Insert("r1", node("c1", "", 3)))
	require.NoError(t, tree.Insert("c1", node("g1", "", 6)))

	views := tree.Materialize(0)
	require.Len(t, views, 1)
	require.Len(t, views[0].Children, 2)
	assert.Equal(t, "c1", views[0].Children[0].Node.ID, "siblings ascend by creation time")
	assert.Equal(t, "c2", views[0].Children[1].Node.ID)
	require.Len(t, views[0].Children[0].Children, 1)

	capped := tree.Materialize(2)
	assert.Empty(t, capped[0].Children[0].Children, "depth limit prunes grandchildren")
}

func TestTopLevel_PaginationNewestFirst(t *testing.T) {
	tree := NewReplyTree(treePost, nil)
	for i := 0; i < 5; i++ {
		require.NoError(t, tree.Insert("", node(fmt.Sprintf("r%d", i), "", i)))
	}
	_, err := tree.SoftDelete("r4")
	require.NoError(t, err)

	page1 := tree.TopLevel(1, 2)
	require.Len(t, page1, 2)
	assert.Equal(t, "r3", page1[0].ID, "newest active first")
	assert.Equal(t, "r2", page1[1].ID)

	page2 := tree.TopLevel(2, 2)
	require.Len(t, page2, 2)
	assert.Equal(t, "r1", page2[0].ID)

	assert.Empty(t, tree.TopLevel(9, 2))
}

func TestChildren_PaginationOldestFirst(t *testing.T) {
	tree := NewReplyTree(treePost, nil)
	require.NoError(t, tree.Insert("", node("root", "", 0)))
	for i := 0; i < 4; i++ {
		require.NoError(t, tree.Insert("root", node(fmt.Sprintf("c%d", i), "", i+1)))
	}
	_, _ = tree.SoftDelete("c1")

	kids, err := tree.Children("root", 1, 10)
	require.NoError(t, err)
	require.Len(t, kids, 3)
	assert.Equal(t, "c0", kids[0].ID)
	assert.Equal(t, "c2", kids[1].ID)

	_, err = tree.Children("missing", 1, 10)
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestSoftDeleteAtPath(t *testing.T) {
	tree := buildChain(t)
	require.NoError(t, tree.Insert("", node("D", "", 3)))

	// path [0 0 0] is A -> B -> C
	id, delta, err := tree.SoftDeleteAtPath([]int{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, "C", id)
	assert.Equal(t, 1, delta)

	// C left the served view, so its old path no longer resolves
	_, _, err = tree.SoftDeleteAtPath([]int{0, 0, 0})
	assert.ErrorIs(t, err, ErrTargetNotFound)

	_, _, err = tree.SoftDeleteAtPath([]int{0, 5})
	assert.ErrorIs(t, err, ErrTargetNotFound)
	_, _, err = tree.SoftDeleteAtPath(nil)
	assert.ErrorIs(t, err, ErrTargetNotFound)

	// second root addressed by index 1
	id, _, err = tree.SoftDeleteAtPath([]int{1})
	require.NoError(t, err)
	assert.Equal(t, "D", id)
}

func TestSoftDeleteAtPath_SplicedAddressing(t *testing.T) {
	tree := buildChain(t)
	_, err := tree.SoftDelete("B")
	require.NoError(t, err)

	// the served view splices C into B's slot under A
	views := tree.Materialize(0)
	require.Len(t, views, 1)
	require.Len(t, views[0].Children, 1)
	require.Equal(t, "C", views[0].Children[0].Node.ID)

	// so the path clients compute from that view, [0 0], targets C
	id, delta, err := tree.SoftDeleteAtPath([]int{0, 0})
	require.NoError(t, err)
	assert.Equal(t, "C", id)
	assert.Equal(t, 1, delta)
}

func TestNewReplyTree_IgnoresForeignRecords(t *testing.T) {
	foreign := node("F", "", 0)
	foreign.PostID = "post-2"
	tree := NewReplyTree(treePost, []*ReplyNode{node("A", "", 0), foreign})
	_, ok := tree.Get("F")
	assert.False(t, ok)
	assert.Equal(t, 1, tree.CountActive())
}
