// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// FollowStatus is the lifecycle state of a follow edge.
type FollowStatus string

const (
	// FollowStatusPending is an unapproved request to a private account.
	FollowStatusPending FollowStatus = "pending"
	// FollowStatusActive is an approved edge.
	FollowStatusActive FollowStatus = "active"
)

// Relationship labels reported to a viewer looking at another account.
const (
	RelationFollowing    = "following"
	RelationPending      = "pending"
	RelationNotFollowing = "not-following"
)

// Follow is a directed edge from a follower to a followee.
// Rejection and unfollowing delete the row; there is no declined state.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follows_pair;index:idx_follows_follower_approved,priority:1" json:"follower_id"`
	FolloweeID uint      `gorm:"not null;uniqueIndex:idx_follows_pair;index:idx_follows_followee_approved,priority:1" json:"followee_id"`
	Approved   bool      `gorm:"column:is_approved;not null;default:false;index:idx_follows_follower_approved,priority:2;index:idx_follows_followee_approved,priority:2" json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`

	// Relationships
	Follower User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"follower,omitempty"`
	Followee User `gorm:"foreignKey:FolloweeID;constraint:OnDelete:CASCADE" json:"followee,omitempty"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// NewFollow seeds the approval flag from the followee's privacy.
func NewFollow(followerID uint, followee *User) *Follow {
	return &Follow{
		FollowerID: followerID,
		FolloweeID: followee.ID,
		Approved:   !followee.IsPrivate,
	}
}

// Status reports the edge's lifecycle state.
func (f *Follow) Status() FollowStatus {
	if f.Approved {
		return FollowStatusActive
	}
	return FollowStatusPending
}

// Pending reports whether the edge still awaits approval.
func (f *Follow) Pending() bool {
	return !f.Approved
}

// FollowStats are the follow counts for one account, derived on read.
type FollowStats struct {
	FollowersCount       int64 `json:"followers_count"`
	FollowingCount       int64 `json:"following_count"`
	PendingRequestsCount int64 `json:"pending_requests_count"`
}
