package models

import (
	"time"
)

// MaxCommentLength bounds comment and reply text.
const MaxCommentLength = 1000

// Comment represents a comment on a post. Replies point at a top-level
// comment through ParentCommentID and always share its PostID.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	User            User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	PostID          uint      `gorm:"not null;index" json:"post_id"`
	Post            *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	ParentCommentID *uint     `gorm:"index" json:"parent_comment_id"`
	Parent          *Comment  `gorm:"foreignKey:ParentCommentID;constraint:OnDelete:CASCADE" json:"-"`
	Text            string    `gorm:"type:text;not null" json:"text"`
	IsEdited        bool      `gorm:"not null;default:false" json:"is_edited"`
	RepliesCount    int       `gorm:"->;-:migration" json:"replies_count"`
	Replies         []Comment `gorm:"-" json:"replies,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Comment) TableName() string {
	return "comments"
}

// IsReply reports whether the comment hangs off another comment.
func (c *Comment) IsReply() bool {
	return c.ParentCommentID != nil
}

// SetText replaces the text and marks the comment edited when it changed.
func (c *Comment) SetText(text string) {
	if c.ID != 0 && c.Text != text {
		c.IsEdited = true
	}
	c.Text = text
}
