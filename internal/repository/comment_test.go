package repository

import (
	"context"
	"regexp"
	"testing"

	"snapverse/internal/models"
	"snapverse/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	comment := &models.Comment{Text: "Nice post!", PostID: 1, UserID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "comments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, comment)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_Threads(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner", false)
	fan := testutil.CreateUser(t, db, "fan", false)
	post := testutil.CreatePost(t, db, owner, models.PrivacyPublic, "thread")

	older := testutil.CreateComment(t, db, fan, post, nil, "first")
	newer := testutil.CreateComment(t, db, owner, post, nil, "second")
	var replies []*models.Comment
	for _, text := range []string{"r1", "r2", "r3", "r4", "r5", "r6"} {
		replies = append(replies, testutil.CreateComment(t, db, owner, post, older, text))
	}

	top, total, err := repo.ListTopLevel(ctx, post.ID, models.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, top, 2)
	assert.Equal(t, newer.ID, top[0].ID, "top-level comments are newest first")
	assert.Equal(t, 6, top[1].RepliesCount)
	assert.Equal(t, "fan", top[1].User.Username)

	got, total, err := repo.ListReplies(ctx, older.ID, models.Page{Number: 2, Size: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	require.Len(t, got, 2)
	assert.Equal(t, replies[4].ID, got[0].ID, "replies are oldest first")

	preview, err := repo.PreviewReplies(ctx, []uint{older.ID, newer.ID}, ReplyPreviewSize)
	require.NoError(t, err)
	require.Len(t, preview[older.ID], ReplyPreviewSize)
	assert.Equal(t, "r1", preview[older.ID][0].Text)
	assert.Empty(t, preview[newer.ID])

	for _, text := range []string{"n1", "n2"} {
		testutil.CreateComment(t, db, fan, post, newer, text)
	}
	preview, err = repo.PreviewReplies(ctx, []uint{older.ID, newer.ID}, 3)
	require.NoError(t, err)
	require.Len(t, preview[older.ID], 3)
	assert.Equal(t, []string{"r1", "r2", "r3"}, commentTexts(preview[older.ID]))
	assert.Equal(t, []string{"n1", "n2"}, commentTexts(preview[newer.ID]))
	assert.Equal(t, "owner", preview[older.ID][0].User.Username)

	one, err := repo.GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, one.RepliesCount)
	assert.False(t, one.IsReply())
}

func TestCommentRepository_UpdateAndDelete(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner", false)
	post := testutil.CreatePost(t, db, owner, models.PrivacyPublic, "thread")
	parent := testutil.CreateComment(t, db, owner, post, nil, "parent")
	testutil.CreateComment(t, db, owner, post, parent, "child")

	parent.SetText("edited")
	require.NoError(t, repo.Update(ctx, parent))
	got, err := repo.GetByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Text)
	assert.True(t, got.IsEdited)

	require.NoError(t, repo.Delete(ctx, parent.ID))
	var n int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&n).Error)
	assert.Zero(t, n, "replies go with their parent")

	_, err = repo.GetByID(ctx, parent.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func commentTexts(comments []models.Comment) []string {
	out := make([]string, len(comments))
	for i, c := range comments {
		out[i] = c.Text
	}
	return out
}

func TestCommentRepository_PreviewReplies_LimitsInQuery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectQuery(`ROW_NUMBER\(\) OVER \(PARTITION BY parent_comment_id ORDER BY created_at ASC, id ASC\).*rn <= \$`).
		WithArgs(7, 8, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "parent_comment_id", "text"}))

	preview, err := repo.PreviewReplies(context.Background(), []uint{7, 8}, ReplyPreviewSize)
	require.NoError(t, err)
	assert.Empty(t, preview)
	assert.NoError(t, mock.ExpectationsWereMet())

	preview, err = repo.PreviewReplies(context.Background(), nil, ReplyPreviewSize)
	require.NoError(t, err)
	assert.Empty(t, preview)
}
