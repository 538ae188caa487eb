// Package testutil provides shared test databases and fixtures for backend tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"snapverse/internal/config"
	"snapverse/internal/database"
	"snapverse/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory sqlite database with the full schema
// applied. It is closed when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		Env:        "test",
		DBDriver:   "sqlite",
		DBPath:     fmt.Sprintf("file:snapverse_test_%d?mode=memory&cache=shared&_foreign_keys=on", dbSeq.Add(1)),
		DBLogLevel: "silent",
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts an active account. The password is not hashed.
func CreateUser(t testing.TB, db *gorm.DB, username string, private bool) *models.User {
	t.Helper()
	u := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "unused",
		FirstName: username,
		IsPrivate: private,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateStaff inserts a staff account.
func CreateStaff(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := CreateUser(t, db, username, false)
	require.NoError(t, db.Model(u).Update("is_staff", true).Error)
	u.IsStaff = true
	return u
}

// CreateFollow inserts an edge in the given state.
func CreateFollow(t testing.TB, db *gorm.DB, follower, followee *models.User, approved bool) *models.Follow {
	t.Helper()
	f := &models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID, Approved: approved}
	require.NoError(t, db.Omit(clause.Associations).Create(f).Error)
	return f
}

// CreatePost inserts a post. Each call is stamped one second after the
// previous one so newest-first ordering is deterministic.
func CreatePost(t testing.TB, db *gorm.DB, owner *models.User, privacy models.Privacy, caption string) *models.Post {
	t.Helper()
	p := &models.Post{
		UserID:    owner.ID,
		Caption:   caption,
		Privacy:   privacy,
		CreatedAt: nextStamp(),
	}
	require.NoError(t, db.Omit(clause.Associations).Create(p).Error)
	return p
}

// CreateComment inserts a comment, or a reply when parent is set.
func CreateComment(t testing.TB, db *gorm.DB, author *models.User, post *models.Post, parent *models.Comment, text string) *models.Comment {
	t.Helper()
	c := &models.Comment{
		UserID:    author.ID,
		PostID:    post.ID,
		Text:      text,
		CreatedAt: nextStamp(),
	}
	if parent != nil {
		c.ParentCommentID = &parent.ID
	}
	require.NoError(t, db.Omit(clause.Associations).Create(c).Error)
	return c
}

var stampSeq atomic.Int64

func nextStamp() time.Time {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(stampSeq.Add(1)) * time.Second)
}
