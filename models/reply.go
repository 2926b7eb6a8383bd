package models

import (
	"time"

	"github.com/nestboard/nestboard/domain"
)

// Reply is one node of a post's reply tree, stored flat with an adjacency
// projection: ParentReplyID points up, ChildIDs lists direct children in
// creation order. Replies are only ever soft-deleted; ChildIDs keeps the
// ids of deleted children so their descendants stay reachable.
type Reply struct {
	ID            string     `gorm:"type:char(36);primaryKey" json:"id"`
	PostID        string     `gorm:"type:char(36);index;not null" json:"post_id"`
	ParentReplyID *string    `gorm:"type:char(36);index" json:"parent_reply_id,omitempty"`
	AuthorID      uint       `gorm:"index;not null" json:"author_id"`
	Body          string     `gorm:"type:text;not null" json:"body"`
	Attachments   StringList `gorm:"type:text" json:"attachments"`
	IsActive      bool       `gorm:"not null;default:true;index" json:"is_active"`
	ChildIDs      StringList `gorm:"type:text" json:"child_ids"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// Node converts the record into the tree engine's projection.
func (r *Reply) Node() *domain.ReplyNode {
	parent := ""
	if r.ParentReplyID != nil {
		parent = *r.ParentReplyID
	}
	return &domain.ReplyNode{
		ID:        r.ID,
		PostID:    r.PostID,
		ParentID:  parent,
		AuthorID:  r.AuthorID,
		Body:      r.Body,
		IsActive:  r.IsActive,
		ChildIDs:  append([]string(nil), r.ChildIDs...),
		CreatedAt: r.CreatedAt,
	}
}

// ReplyNodes converts a batch of records for tree assembly.
func ReplyNodes(replies []Reply) []*domain.ReplyNode {
	nodes := make([]*domain.ReplyNode, 0, len(replies))
	for i := range replies {
		nodes = append(nodes, replies[i].Node())
	}
	return nodes
}
