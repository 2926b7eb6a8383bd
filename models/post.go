package models

import (
	"time"

	"github.com/nestboard/nestboard/domain"
)

// Post is a forum post. Status only ever changes through the transition
// engine in domain; nothing writes the column directly.
type Post struct {
	ID              string        `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerID         uint          `gorm:"index;not null" json:"owner_id"`
	Status          domain.Status `gorm:"type:varchar(16);index;not null;default:'unpublished'" json:"status"`
	Title           string        `gorm:"size:255;not null" json:"title"`
	Body            string        `gorm:"type:text;not null" json:"body"`
	Images          StringList    `gorm:"type:text" json:"images"`
	Attachments     StringList    `gorm:"type:text" json:"attachments"`
	RepliesDisabled bool          `gorm:"not null;default:false" json:"replies_disabled"`
	// ReplyCount is a best-effort cache; the live tree is authoritative.
	ReplyCount int64      `gorm:"not null;default:0" json:"reply_count"`
	BannedAt   *time.Time `json:"banned_at,omitempty"`
	BannedBy   *uint      `json:"banned_by,omitempty"`
	BanReason  string     `gorm:"size:255" json:"ban_reason,omitempty"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"modified_at"`
}

// Ref projects the fields the access policy consumes.
func (p *Post) Ref() domain.PostRef {
	return domain.PostRef{OwnerID: p.OwnerID, Status: p.Status}
}
