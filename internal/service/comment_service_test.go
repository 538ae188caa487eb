package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"snapverse/internal/models"
	"snapverse/internal/testutil"
	"snapverse/internal/visibility"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

func TestCommentService_CreateComment(t *testing.T) {
	env := newTestEnv(t, visibility.Policy{})
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner", false)
	alice := testutil.CreateUser(t, env.db, "alice", false)
	p1 := testutil.CreatePost(t, env.db, owner, models.PrivacyPublic, "p1")
	p2 := testutil.CreatePost(t, env.db, owner, models.PrivacyPublic, "p2")
	hidden := testutil.CreatePost(t, env.db, owner, models.PrivacyPrivate, "hidden")

	top, err := env.comments.CreateComment(ctx, viewer(alice), CreateCommentInput{PostID: p1.ID, Text: "  nice  "})
	require.NoError(t, err)
	assert.Equal(t, "nice", top.Text)
	assert.Equal(t, "alice", top.User.Username)

	t.Run("reply on the same post", func(t *testing.T) {
		reply, err := env.comments.CreateComment(ctx, viewer(owner), CreateCommentInput{
			PostID: p1.ID, ParentCommentID: uintPtr(top.ID), Text: "thanks",
		})
		require.NoError(t, err)
		require.NotNil(t, reply.ParentCommentID)
		assert.Equal(t, top.ID, *reply.ParentCommentID)
	})

	t.Run("reply across posts", func(t *testing.T) {
		_, err := env.comments.CreateComment(ctx, viewer(alice), CreateCommentInput{
			PostID: p2.ID, ParentCommentID: uintPtr(top.ID), Text: "wrong post",
		})
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("missing parent", func(t *testing.T) {
		_, err := env.comments.CreateComment(ctx, viewer(alice), CreateCommentInput{
			PostID: p1.ID, ParentCommentID: uintPtr(9999), Text: "orphan",
		})
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("nested reply", func(t *testing.T) {
		reply := testutil.CreateComment(t, env.db, owner, p1, top, "level one")
		_, err := env.comments.CreateComment(ctx, viewer(alice), CreateCommentInput{
			PostID: p1.ID, ParentCommentID: uintPtr(reply.ID), Text: "level two",
		})
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("text rules", func(t *testing.T) {
		_, err := env.comments.CreateComment(ctx, viewer(alice), CreateCommentInput{PostID: p1.ID, Text: "   "})
		assertCode(t, err, models.CodeValidation)
		_, err = env.comments.CreateComment(ctx, viewer(alice), CreateCommentInput{PostID: p1.ID, Text: strings.Repeat("x", 1001)})
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("limit counts characters", func(t *testing.T) {
		c, err := env.comments.CreateComment(ctx, viewer(alice), CreateCommentInput{PostID: p1.ID, Text: strings.Repeat("ব", 1000)})
		require.NoError(t, err)
		assert.Equal(t, 1000, utf8.RuneCountInString(c.Text))

		_, err = env.comments.CreateComment(ctx, viewer(alice), CreateCommentInput{PostID: p1.ID, Text: strings.Repeat("ব", 1001)})
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("unreadable post", func(t *testing.T) {
		_, err := env.comments.CreateComment(ctx, viewer(alice), CreateCommentInput{PostID: hidden.ID, Text: "peek"})
		assertCode(t, err, models.CodeForbidden)
	})
}

func TestCommentService_CreateReply_InheritsPost(t *testing.T) {
	env := newTestEnv(t, visibility.Policy{})
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner", false)
	post := testutil.CreatePost(t, env.db, owner, models.PrivacyPublic, "p")
	top := testutil.CreateComment(t, env.db, owner, post, nil, "top")

	reply, err := env.comments.CreateReply(ctx, viewer(owner), top.ID, "reply")
	require.NoError(t, err)
	assert.Equal(t, post.ID, reply.PostID)

	_, err = env.comments.CreateReply(ctx, viewer(owner), reply.ID, "deeper")
	assertCode(t, err, models.CodeValidation)

	_, err = env.comments.CreateReply(ctx, viewer(owner), 9999, "none")
	assertCode(t, err, models.CodeNotFound)
}

func TestCommentService_ListComments(t *testing.T) {
	env := newTestEnv(t, visibility.Policy{})
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner", false)
	stranger := testutil.CreateUser(t, env.db, "stranger", false)
	post := testutil.CreatePost(t, env.db, owner, models.PrivacyPublic, "p")
	older := testutil.CreateComment(t, env.db, owner, post, nil, "older")
	for i := 0; i < 7; i++ {
		testutil.CreateComment(t, env.db, stranger, post, older, fmt.Sprintf("r%d", i))
	}
	newer := testutil.CreateComment(t, env.db, stranger, post, nil, "newer")

	got, err := env.comments.ListComments(ctx, viewer(stranger), post.ID, firstPage(10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Count, "replies are not listed at top level")
	require.Len(t, got.Results, 2)
	assert.Equal(t, newer.ID, got.Results[0].ID)
	assert.Equal(t, older.ID, got.Results[1].ID)
	assert.Equal(t, 7, got.Results[1].RepliesCount)
	require.Len(t, got.Results[1].Replies, 5)
	assert.Equal(t, "r0", got.Results[1].Replies[0].Text)
	assert.Empty(t, got.Results[0].Replies)

	replies, err := env.comments.ListReplies(ctx, viewer(stranger), older.ID, models.Page{Number: 2, Size: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(7), replies.Count)
	require.Len(t, replies.Results, 2)
	assert.Equal(t, "r5", replies.Results[0].Text)
	assert.Nil(t, replies.Next)
}

func TestCommentService_HiddenPostHidesComments(t *testing.T) {
	env := newTestEnv(t, visibility.Policy{})
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner", false)
	stranger := testutil.CreateUser(t, env.db, "stranger", false)
	post := testutil.CreatePost(t, env.db, owner, models.PrivacyFollowers, "p")
	c := testutil.CreateComment(t, env.db, owner, post, nil, "secret")

	_, err := env.comments.ListComments(ctx, viewer(stranger), post.ID, firstPage(10))
	assertCode(t, err, models.CodeForbidden)
	_, err = env.comments.GetComment(ctx, viewer(stranger), c.ID)
	assertCode(t, err, models.CodeForbidden)
	_, err = env.comments.ListReplies(ctx, viewer(stranger), c.ID, firstPage(10))
	assertCode(t, err, models.CodeForbidden)
}

func TestCommentService_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t, visibility.Policy{StaffOverride: true})
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.db, "owner", false)
	author := testutil.CreateUser(t, env.db, "author", false)
	third := testutil.CreateUser(t, env.db, "third", false)
	staff := testutil.CreateStaff(t, env.db, "mod")
	post := testutil.CreatePost(t, env.db, owner, models.PrivacyPublic, "p")
	c := testutil.CreateComment(t, env.db, author, post, nil, "first")

	_, err := env.comments.UpdateComment(ctx, viewer(owner), c.ID, "owner edit")
	assertCode(t, err, models.CodeForbidden)

	updated, err := env.comments.UpdateComment(ctx, viewer(author), c.ID, "first")
	require.NoError(t, err)
	assert.False(t, updated.IsEdited, "same text is not an edit")

	updated, err = env.comments.UpdateComment(ctx, viewer(author), c.ID, "second")
	require.NoError(t, err)
	assert.True(t, updated.IsEdited)
	assert.Equal(t, "second", updated.Text)

	updated, err = env.comments.UpdateComment(ctx, viewer(staff), c.ID, "moderated")
	require.NoError(t, err)
	assert.Equal(t, "moderated", updated.Text)

	_, err = env.comments.UpdateComment(ctx, viewer(author), c.ID, "")
	assertCode(t, err, models.CodeValidation)

	assertCode(t, env.comments.DeleteComment(ctx, viewer(third), c.ID), models.CodeForbidden)

	byAuthor := testutil.CreateComment(t, env.db, author, post, nil, "mine")
	require.NoError(t, env.comments.DeleteComment(ctx, viewer(author), byAuthor.ID))

	testutil.CreateComment(t, env.db, third, post, c, "reply")
	require.NoError(t, env.comments.DeleteComment(ctx, viewer(owner), c.ID), "post owner may delete")

	var n int64
	require.NoError(t, env.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&n).Error)
	assert.Zero(t, n, "replies go with their parent")

	assertCode(t, env.comments.DeleteComment(ctx, viewer(owner), c.ID), models.CodeNotFound)
}
