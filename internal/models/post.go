package models

import (
	"time"
)

// Privacy is the audience tier of a post.
type Privacy string

const (
	PrivacyPublic    Privacy = "public"
	PrivacyPrivate   Privacy = "private"
	PrivacyFollowers Privacy = "followers"
)

// Valid reports whether p is one of the known tiers.
func (p Privacy) Valid() bool {
	switch p {
	case PrivacyPublic, PrivacyPrivate, PrivacyFollowers:
		return true
	}
	return false
}

// Post represents a post in the SnapVerse application.
type Post struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	UserID   uint    `gorm:"not null;index" json:"user_id"`
	User     User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	Caption  string  `gorm:"type:text" json:"caption"`
	ImageURL string  `json:"image_url"`
	Location string  `gorm:"size:100" json:"location"`
	Privacy  Privacy `gorm:"size:10;not null;default:public;index" json:"privacy"`
	IsEdited bool    `gorm:"not null;default:false" json:"is_edited"`
	// ReactionsCount is not persisted; computed at query time
	ReactionsCount int `gorm:"->;-:migration" json:"reactions_count"`
	// LikesCount counts only "like" reactions
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`
	// ViewerReaction is the requesting user's reaction kind, if any (computed)
	ViewerReaction string    `gorm:"->;-:migration" json:"viewer_reaction,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}
