package domain

import (
	"sort"
	"time"
)

// ReplyNode is the in-memory projection of one reply record. ChildIDs is an
// ordered adjacency list of direct children; ids of deleted children are
// kept so their own descendants stay reachable.
type ReplyNode struct {
	ID        string
	PostID    string
	ParentID  string // empty means top-level
	AuthorID  uint
	Body      string
	IsActive  bool
	ChildIDs  []string
	CreatedAt time.Time
}

// ReplyView is a materialized node with its nested, still-active children.
type ReplyView struct {
	Node     *ReplyNode
	Children []*ReplyView
}

// ReplyTree indexes all replies of one post and implements the tree
// contract: insert-under-parent, idempotent soft delete (by id or by index
// path), authoritative active counting and ordered materialization. It does
// no I/O; callers load records, mutate the tree and persist the outcome.
type ReplyTree struct {
	postID string
	nodes  map[string]*ReplyNode
	roots  []string // top-level ids, creation-ascending
}

// NewReplyTree builds a tree over the given records. Records whose PostID
// differs from postID are ignored.
func NewReplyTree(postID string, records []*ReplyNode) *ReplyTree {
	t := &ReplyTree{
		postID: postID,
		nodes:  make(map[string]*ReplyNode, len(records)),
	}
	for _, r := range records {
		if r.PostID != postID {
			continue
		}
		t.nodes[r.ID] = r
		if r.ParentID == "" {
			t.roots = append(t.roots, r.ID)
		}
	}
	sort.Slice(t.roots, func(i, j int) bool {
		return t.nodes[t.roots[i]].CreatedAt.Before(t.nodes[t.roots[j]].CreatedAt)
	})
	return t
}

// Get returns the node with the given id, if present.
func (t *ReplyTree) Get(id string) (*ReplyNode, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Insert attaches node under parentID, or as a new top-level reply when
// parentID is empty. The parent must exist, be active, and belong to the
// same post.
func (t *ReplyTree) Insert(parentID string, node *ReplyNode) error {
	if node.PostID != t.postID {
		return ErrParentPostMismatch
	}
	if parentID == "" {
		node.ParentID = ""
		t.nodes[node.ID] = node
		t.roots = append(t.roots, node.ID)
		return nil
	}
	parent, ok := t.nodes[parentID]
	if !ok {
		return ErrParentNotFound
	}
	if !parent.IsActive {
		return ErrParentInactive
	}
	if parent.PostID != node.PostID {
		return ErrParentPostMismatch
	}
	node.ParentID = parentID
	t.nodes[node.ID] = node
	parent.ChildIDs = append(parent.ChildIDs, node.ID)
	return nil
}

// SoftDelete marks the target inactive and returns the amount by which the
// post's denormalized counter should move: 1 when the node was active, 0
// when it already was not. Descendants are untouched; a second call is a
// no-op, never an error or a double decrement.
func (t *ReplyTree) SoftDelete(id string) (int, error) {
	node, ok := t.nodes[id]
	if !ok {
		return 0, ErrTargetNotFound
	}
	if !node.IsActive {
		return 0, nil
	}
	node.IsActive = false
	return 1, nil
}

// SoftDeleteAtPath resolves a sequence of sibling indices down to the
// target and soft-deletes it. Indices address the exact view Materialize
// serves: siblings creation-ascending at every level, inactive nodes
// absent with their active descendants spliced into their slot. A path a
// client computed from the served tree therefore lands on the node it saw
// there. Any index out of range fails with ErrTargetNotFound.
func (t *ReplyTree) SoftDeleteAtPath(path []int) (string, int, error) {
	if len(path) == 0 {
		return "", 0, ErrTargetNotFound
	}
	siblings := t.Materialize(0)
	var current *ReplyView
	for _, idx := range path {
		if idx < 0 || idx >= len(siblings) {
			return "", 0, ErrTargetNotFound
		}
		current = siblings[idx]
		siblings = current.Children
	}
	delta, err := t.SoftDelete(current.Node.ID)
	return current.Node.ID, delta, err
}

// CountActive walks the tree from every top-level root and counts nodes
// still active. This is the authoritative count the denormalized
// reply_count cache reconciles against.
func (t *ReplyTree) CountActive() int {
	total := 0
	var walk func(ids []string)
	walk = func(ids []string) {
		for _, id := range ids {
			node, ok := t.nodes[id]
			if !ok {
				continue
			}
			if node.IsActive {
				total++
			}
			walk(node.ChildIDs)
		}
	}
	walk(t.roots)
	return total
}

// TopLevel returns one page of active top-level replies, newest first.
func (t *ReplyTree) TopLevel(page, pageSize int) []*ReplyNode {
	active := make([]*ReplyNode, 0, len(t.roots))
	for _, id := range t.roots {
		if n := t.nodes[id]; n != nil && n.IsActive {
			active = append(active, n)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	return paginate(active, page, pageSize)
}

// Children returns one page of a node's active direct children in creation
// order. Expansion is lazy; callers page deeper levels on demand.
func (t *ReplyTree) Children(id string, page, pageSize int) ([]*ReplyNode, error) {
	parent, ok := t.nodes[id]
	if !ok {
		return nil, ErrTargetNotFound
	}
	active := make([]*ReplyNode, 0, len(parent.ChildIDs))
	for _, cid := range parent.ChildIDs {
		if n := t.nodes[cid]; n != nil && n.IsActive {
			active = append(active, n)
		}
	}
	return paginate(active, page, pageSize), nil
}

// Materialize produces the fully nested view up to maxDepth levels
// (maxDepth <= 0 means unbounded). Siblings sort by creation time ascending
// at every level. Inactive nodes never appear, but their active descendants
// are spliced into the inactive node's position so they stay reachable.
// Response size is unbounded; intended for small threads and admin views.
func (t *ReplyTree) Materialize(maxDepth int) []*ReplyView {
	return t.materializeLevel(t.roots, 1, maxDepth)
}

func (t *ReplyTree) materializeLevel(ids []string, depth, maxDepth int) []*ReplyView {
	if maxDepth > 0 && depth > maxDepth {
		return nil
	}
	views := make([]*ReplyView, 0, len(ids))
	for _, id := range ids {
		node, ok := t.nodes[id]
		if !ok {
			continue
		}
		if !node.IsActive {
			// orphaned descendants surface at the deleted node's slot
			views = append(views, t.materializeLevel(node.ChildIDs, depth, maxDepth)...)
			continue
		}
		views = append(views, &ReplyView{
			Node:     node,
			Children: t.materializeLevel(node.ChildIDs, depth+1, maxDepth),
		})
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Node.CreatedAt.Before(views[j].Node.CreatedAt)
	})
	return views
}

func paginate(nodes []*ReplyNode, page, pageSize int) []*ReplyNode {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	start := (page - 1) * pageSize
	if start >= len(nodes) {
		return []*ReplyNode{}
	}
	end := start + pageSize
	if end > len(nodes) {
		end = len(nodes)
	}
	return nodes[start:end]
}
