package models

import (
	"time"
)

// ReactionKind is one of the enumerated reactions.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
	ReactionLove    ReactionKind = "love"
	ReactionHaha    ReactionKind = "haha"
	ReactionWow     ReactionKind = "wow"
	ReactionSad     ReactionKind = "sad"
	ReactionAngry   ReactionKind = "angry"
)

// ReactionKinds lists every accepted kind in display order.
var ReactionKinds = []ReactionKind{
	ReactionLike, ReactionDislike, ReactionLove, ReactionHaha, ReactionWow, ReactionSad, ReactionAngry,
}

// Valid reports whether k is an accepted kind.
func (k ReactionKind) Valid() bool {
	for _, kind := range ReactionKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ReactionAction is the outcome of a toggle.
type ReactionAction string

const (
	ReactionAdded   ReactionAction = "added"
	ReactionRemoved ReactionAction = "removed"
	ReactionUpdated ReactionAction = "updated"
)

// Reaction is a single user's reaction to a post; at most one per (user, post).
type Reaction struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	UserID    uint         `gorm:"not null;uniqueIndex:idx_reactions_user_post" json:"user_id"`
	User      User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	PostID    uint         `gorm:"not null;uniqueIndex:idx_reactions_user_post;index" json:"post_id"`
	Post      *Post        `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Kind      ReactionKind `gorm:"column:reaction;size:10;not null" json:"reaction"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Reaction) TableName() string {
	return "reactions"
}
