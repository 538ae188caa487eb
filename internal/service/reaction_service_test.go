package service

import (
	"context"
	"testing"

	"snapverse/internal/models"
	"snapverse/internal/testutil"
	"snapverse/internal/visibility"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReactionKind(t *testing.T) {
	kind, err := ParseReactionKind("  LOVE ")
	require.NoError(t, err)
	assert.Equal(t, models.ReactionLove, kind)

	_, err = ParseReactionKind("meh")
	assertCode(t, err, models.CodeValidation)
}

func TestReactionService_Toggle(t *testing.T) {
	env := newTestEnv(t, visibility.Policy{})
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner", false)
	alice := testutil.CreateUser(t, env.db, "alice", false)
	post := testutil.CreatePost(t, env.db, owner, models.PrivacyPublic, "p")

	count := func() int64 {
		var n int64
		require.NoError(t, env.db.Model(&models.Reaction{}).Where("post_id = ?", post.ID).Count(&n).Error)
		return n
	}

	t.Run("like twice removes it", func(t *testing.T) {
		res, err := env.reactions.React(ctx, viewer(alice), post.ID, models.ReactionLike)
		require.NoError(t, err)
		assert.Equal(t, models.ReactionAdded, res.Action)

		res, err = env.reactions.React(ctx, viewer(alice), post.ID, models.ReactionLike)
		require.NoError(t, err)
		assert.Equal(t, models.ReactionRemoved, res.Action)
		assert.Zero(t, count())
	})

	t.Run("like then love leaves one love", func(t *testing.T) {
		_, err := env.reactions.React(ctx, viewer(alice), post.ID, models.ReactionLike)
		require.NoError(t, err)
		res, err := env.reactions.React(ctx, viewer(alice), post.ID, models.ReactionLove)
		require.NoError(t, err)
		assert.Equal(t, models.ReactionUpdated, res.Action)
		assert.Equal(t, int64(1), count())

		summary, err := env.reactions.Summary(ctx, viewer(owner), post.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), summary.Total)
		assert.Equal(t, int64(0), summary.LikesCount)
		assert.Equal(t, int64(1), summary.ByKind[models.ReactionLove])
	})

	t.Run("invalid kind", func(t *testing.T) {
		_, err := env.reactions.React(ctx, viewer(alice), post.ID, "meh")
		assertCode(t, err, models.CodeValidation)
	})
}

func TestReactionService_RequiresReadablePost(t *testing.T) {
	env := newTestEnv(t, visibility.Policy{})
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner", false)
	stranger := testutil.CreateUser(t, env.db, "stranger", false)
	post := testutil.CreatePost(t, env.db, owner, models.PrivacyPrivate, "p")

	_, err := env.reactions.React(ctx, viewer(stranger), post.ID, models.ReactionLike)
	assertCode(t, err, models.CodeForbidden)
	_, err = env.reactions.React(ctx, viewer(stranger), 9999, models.ReactionLike)
	assertCode(t, err, models.CodeNotFound)
	_, err = env.reactions.ListReactions(ctx, viewer(stranger), post.ID, "", firstPage(10))
	assertCode(t, err, models.CodeForbidden)
}

func TestReactionService_RemoveAndList(t *testing.T) {
	env := newTestEnv(t, visibility.Policy{})
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner", false)
	alice := testutil.CreateUser(t, env.db, "alice", false)
	bob := testutil.CreateUser(t, env.db, "bob", false)
	post := testutil.CreatePost(t, env.db, owner, models.PrivacyPublic, "p")

	_, err := env.reactions.React(ctx, viewer(alice), post.ID, models.ReactionLike)
	require.NoError(t, err)
	_, err = env.reactions.React(ctx, viewer(bob), post.ID, models.ReactionHaha)
	require.NoError(t, err)

	all, err := env.reactions.ListReactions(ctx, viewer(owner), post.ID, "", firstPage(10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Count)

	likes, err := env.reactions.ListReactions(ctx, viewer(owner), post.ID, "like", firstPage(10))
	require.NoError(t, err)
	require.Len(t, likes.Results, 1)
	assert.Equal(t, "alice", likes.Results[0].User.Username)

	_, err = env.reactions.ListReactions(ctx, viewer(owner), post.ID, "bogus", firstPage(10))
	assertCode(t, err, models.CodeValidation)

	removed, err := env.reactions.RemoveReaction(ctx, viewer(bob), post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionHaha, removed.Kind)

	_, err = env.reactions.RemoveReaction(ctx, viewer(bob), post.ID)
	assertCode(t, err, models.CodeNotFound)

	detail, err := env.postSvc.GetPost(ctx, viewer(alice), post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.ReactionsCount)
	assert.Equal(t, 1, detail.LikesCount)
	assert.Equal(t, "like", detail.ViewerReaction)
}
