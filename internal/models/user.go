package models

import (
	"strings"
	"time"
)

// Gender values accepted on profiles.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// RelationshipStatuses lists the accepted relationship_status values.
var RelationshipStatuses = []string{"single", "in_a_relationship", "married", "divorced", "widowed"}

// ProSubscriptionPeriod is how long a single pro payment keeps an account pro.
const ProSubscriptionPeriod = 30 * 24 * time.Hour

// User represents an account in the SnapVerse application.
type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Username           string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email              string     `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password           string     `gorm:"not null" json:"-"`
	FirstName          string     `gorm:"size:150" json:"first_name"`
	LastName           string     `gorm:"size:150" json:"last_name"`
	Bio                string     `gorm:"size:200" json:"bio"`
	Location           string     `gorm:"size:100" json:"location"`
	PhoneNumber        string     `gorm:"size:15" json:"phone_number"`
	DateOfBirth        *time.Time `gorm:"type:date" json:"date_of_birth"`
	Gender             string     `gorm:"size:10" json:"gender"`
	RelationshipStatus string     `gorm:"size:20" json:"relationship_status"`
	ProfilePicture     string     `json:"profile_picture"`
	CoverPhoto         string     `json:"cover_photo"`
	IsPrivate          bool       `gorm:"not null;default:false" json:"is_private"`
	IsStaff            bool       `gorm:"not null;default:false" json:"is_staff"`
	IsSuperuser        bool       `gorm:"not null;default:false" json:"is_superuser"`
	IsActive           bool       `gorm:"not null;default:true" json:"-"`

	ProSubscriptionStart *time.Time `json:"pro_subscription_start"`
	ProSubscriptionEnd   *time.Time `json:"pro_subscription_end"`

	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `json:"date_joined"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Computed at query time, never persisted.
	FollowersCount int `gorm:"->;-:migration" json:"followers_count"`
	FollowingCount int `gorm:"->;-:migration" json:"following_count"`
	PostsCount     int `gorm:"->;-:migration" json:"posts_count"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsPro reports whether the pro subscription window is open at now.
// Expired windows are left in place; nothing is cleared on read.
func (u *User) IsPro(now time.Time) bool {
	return u.ProSubscriptionEnd != nil && now.Before(*u.ProSubscriptionEnd)
}

// ProDaysRemaining counts whole days left in the subscription window.
func (u *User) ProDaysRemaining(now time.Time) int {
	if !u.IsPro(now) {
		return 0
	}
	return int(u.ProSubscriptionEnd.Sub(now) / (24 * time.Hour))
}

// ActivatePro opens a fresh subscription window starting at now.
func (u *User) ActivatePro(now time.Time) {
	start := now
	end := now.Add(ProSubscriptionPeriod)
	u.ProSubscriptionStart = &start
	u.ProSubscriptionEnd = &end
}
