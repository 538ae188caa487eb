package seed

import (
	"testing"
	"time"

	"snapverse/internal/models"
	"snapverse/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeed_BuildsConsistentGraph(t *testing.T) {
	db := testutil.NewDB(t)

	res, err := Seed(db, Options{NumUsers: 12, NumPosts: 20, RandomSeed: 42, SkipBcrypt: true})
	require.NoError(t, err)
	assert.Equal(t, 20, res.Posts)

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	assert.Len(t, users, res.Users)
	private := make(map[uint]bool, len(users))
	for _, u := range users {
		private[u.ID] = u.IsPrivate
	}

	var follows []models.Follow
	require.NoError(t, db.Find(&follows).Error)
	assert.Len(t, follows, res.Follows)
	for _, f := range follows {
		assert.NotEqual(t, f.FollowerID, f.FolloweeID)
		assert.Equal(t, !private[f.FolloweeID], f.Approved, "edge %d->%d", f.FollowerID, f.FolloweeID)
	}

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	for _, p := range posts {
		assert.True(t, p.Privacy.Valid())
		assert.False(t, p.CreatedAt.After(time.Now()))
	}

	var replies []models.Comment
	require.NoError(t, db.Preload("Parent").Where("parent_comment_id IS NOT NULL").Find(&replies).Error)
	for _, r := range replies {
		require.NotNil(t, r.Parent)
		assert.Equal(t, r.Parent.PostID, r.PostID)
		assert.Nil(t, r.Parent.ParentCommentID, "replies hang off top-level comments")
	}

	var reactions int64
	require.NoError(t, db.Model(&models.Reaction{}).Count(&reactions).Error)
	assert.Equal(t, int64(res.Reactions), reactions)
}

func TestSeed_CleanResetsData(t *testing.T) {
	db := testutil.NewDB(t)

	_, err := Seed(db, Options{NumUsers: 4, NumPosts: 3, SkipBcrypt: true})
	require.NoError(t, err)
	_, err = Seed(db, Options{NumUsers: 3, NumPosts: 1, ShouldClean: true, SkipBcrypt: true})
	require.NoError(t, err)

	var users, posts int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Equal(t, int64(3), users)
	assert.Equal(t, int64(1), posts)
}

func TestSeed_Validation(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := Seed(db, Options{NumUsers: 1})
	assert.Error(t, err)
}

func TestSeed_DryRunWritesNothing(t *testing.T) {
	db := testutil.NewDB(t)

	res, err := Seed(db, Options{NumUsers: 5, NumPosts: 4, DryRun: true, SkipBcrypt: true})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Users)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)
}

func TestScenario_Apply(t *testing.T) {
	db := testutil.NewDB(t)

	s, err := LoadScenario("testdata/privacy.yaml")
	require.NoError(t, err)
	users, err := s.Apply(db, Options{})
	require.NoError(t, err)
	require.Len(t, users, 4)

	alice, bob, carol := users["alice"], users["bob"], users["carol"]
	assert.True(t, alice.IsPrivate)
	assert.True(t, users["mod"].IsStaff)
	assert.True(t, carol.IsPro(time.Now()))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(bob.Password), []byte("Snapverse-Demo-1")))

	edge := func(from, to *models.User) models.Follow {
		var f models.Follow
		require.NoError(t, db.Where("follower_id = ? AND followee_id = ?", from.ID, to.ID).First(&f).Error)
		return f
	}
	assert.False(t, edge(bob, alice).Approved, "private followee starts pending")
	assert.False(t, edge(carol, alice).Approved)
	assert.True(t, edge(alice, bob).Approved)

	var posts []models.Post
	require.NoError(t, db.Order("created_at DESC").Find(&posts).Error)
	require.Len(t, posts, 3)
	assert.Equal(t, "just me", posts[0].Caption)
	assert.Equal(t, models.PrivacyPrivate, posts[0].Privacy)

	var reaction models.Reaction
	require.NoError(t, db.Where("user_id = ?", bob.ID).First(&reaction).Error)
	assert.Equal(t, models.ReactionLove, reaction.Kind)

	var reply models.Comment
	require.NoError(t, db.Where("parent_comment_id IS NOT NULL").First(&reply).Error)
	assert.Equal(t, "thanks", reply.Text)
	assert.Equal(t, alice.ID, reply.UserID)
}

func TestParseScenario_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "users:\n  - username: a\n    colour: red\n"},
		{"duplicate user", "users:\n  - username: a\n  - username: a\n"},
		{"unknown follower", "users:\n  - username: a\nfollows:\n  - follower: z\n    followee: a\n"},
		{"self follow", "users:\n  - username: a\nfollows:\n  - follower: a\n    followee: a\n"},
		{"bad privacy", "users:\n  - username: a\nposts:\n  - author: a\n    privacy: friends\n"},
		{"bad reaction", "users:\n  - username: a\nposts:\n  - author: a\n    reactions: {a: meh}\n"},
		{"nested reply", "users:\n  - username: a\nposts:\n  - author: a\n    comments:\n      - author: a\n        replies:\n          - author: a\n            replies:\n              - author: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
