package repository

import (
	"context"
	"regexp"
	"testing"

	"snapverse/internal/models"
	"snapverse/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository_GetOrCreate_SeedsApproval(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	viewer := testutil.CreateUser(t, db, "viewer", false)
	public := testutil.CreateUser(t, db, "public", false)
	private := testutil.CreateUser(t, db, "private", true)

	edge, created, err := repo.GetOrCreate(ctx, viewer.ID, public)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, edge.Approved)

	edge, created, err = repo.GetOrCreate(ctx, viewer.ID, private)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, edge.Approved)

	again, created, err := repo.GetOrCreate(ctx, viewer.ID, private)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, edge.ID, again.ID)

	var n int64
	require.NoError(t, db.Model(&models.Follow{}).Where("follower_id = ?", viewer.ID).Count(&n).Error)
	assert.Equal(t, int64(2), n)
}

func TestFollowRepository_GetOrCreate_UniqueViolationFetches(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFollowRepository(db)
	followee := &models.User{ID: 2, IsPrivate: true}

	selectEdge := regexp.QuoteMeta(`SELECT * FROM "follows" WHERE follower_id = $1 AND followee_id = $2`)

	mock.ExpectQuery(selectEdge).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "follows"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()
	mock.ExpectQuery(selectEdge).
		WillReturnRows(sqlmock.NewRows([]string{"id", "follower_id", "followee_id", "is_approved"}).
			AddRow(7, 1, 2, false))

	edge, created, err := repo.GetOrCreate(context.Background(), 1, followee)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uint(7), edge.ID)
	assert.True(t, edge.Pending())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_GetOrCreate_OtherInsertErrorSurfaces(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "follows"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "follows"`)).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	_, _, err := repo.GetOrCreate(context.Background(), 1, &models.User{ID: 2})
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_ApproveIsConditional(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner", true)
	fan := testutil.CreateUser(t, db, "fan", false)
	edge := testutil.CreateFollow(t, db, fan, owner, false)

	active, err := repo.IsActiveFollower(ctx, fan.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, active)

	ok, err := repo.Approve(ctx, edge.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Approve(ctx, edge.ID)
	require.NoError(t, err)
	assert.False(t, ok, "second approve changes nothing")

	active, err = repo.IsActiveFollower(ctx, fan.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, active)

	active, err = repo.IsActiveFollower(ctx, 0, owner.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestFollowRepository_DeleteBetween(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "a", false)
	b := testutil.CreateUser(t, db, "b", true)
	testutil.CreateFollow(t, db, a, b, false)

	removed, err := repo.DeleteBetween(ctx, a.ID, b.ID, true)
	require.NoError(t, err)
	assert.False(t, removed, "pending edge is not an active follow")

	removed, err = repo.DeleteBetween(ctx, a.ID, b.ID, false)
	require.NoError(t, err)
	assert.True(t, removed)

	edge, err := repo.Find(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Nil(t, edge)

	_, err = repo.GetByID(ctx, 999)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestFollowRepository_StatsAndStatuses(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	me := testutil.CreateUser(t, db, "me", true)
	f1 := testutil.CreateUser(t, db, "f1", false)
	f2 := testutil.CreateUser(t, db, "f2", false)
	p1 := testutil.CreateUser(t, db, "p1", false)
	other := testutil.CreateUser(t, db, "other", true)

	testutil.CreateFollow(t, db, f1, me, true)
	testutil.CreateFollow(t, db, f2, me, true)
	testutil.CreateFollow(t, db, p1, me, false)
	testutil.CreateFollow(t, db, me, f1, true)
	testutil.CreateFollow(t, db, me, other, false)

	stats, err := repo.Stats(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FollowStats{FollowersCount: 2, FollowingCount: 1, PendingRequestsCount: 1}, stats)

	statuses, err := repo.StatusesFor(ctx, me.ID, []uint{f1.ID, f2.ID, other.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]models.FollowStatus{
		f1.ID:    models.FollowStatusActive,
		other.ID: models.FollowStatusPending,
	}, statuses)

	empty, err := repo.StatusesFor(ctx, 0, []uint{f1.ID})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFollowRepository_Lists(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	me := testutil.CreateUser(t, db, "me", true)
	first := testutil.CreateUser(t, db, "first", false)
	second := testutil.CreateUser(t, db, "second", false)
	asking := testutil.CreateUser(t, db, "asking", false)

	e1 := testutil.CreateFollow(t, db, first, me, true)
	e2 := testutil.CreateFollow(t, db, second, me, true)
	testutil.CreateFollow(t, db, asking, me, false)
	testutil.CreateFollow(t, db, me, first, true)

	followers, total, err := repo.ListFollowers(ctx, me.ID, models.Page{Number: 1, Size: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, followers, 2)
	assert.Equal(t, e2.ID, followers[0].ID, "newest first")
	assert.Equal(t, e1.ID, followers[1].ID)
	assert.Equal(t, "second", followers[0].Follower.Username)

	pending, total, err := repo.ListPending(ctx, me.ID, models.Page{Number: 1, Size: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, pending, 1)
	assert.Equal(t, "asking", pending[0].Follower.Username)

	following, total, err := repo.ListFollowing(ctx, me.ID, models.Page{Number: 1, Size: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, following, 1)
	assert.Equal(t, "first", following[0].Followee.Username)

	page2, total, err := repo.ListFollowers(ctx, me.ID, models.Page{Number: 2, Size: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page2, 1)
	assert.Equal(t, e1.ID, page2[0].ID)
}
