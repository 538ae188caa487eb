package service

import (
	"errors"
	"testing"

	"snapverse/internal/models"
	"snapverse/internal/repository"
	"snapverse/internal/testutil"
	"snapverse/internal/visibility"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv wires every service against one in-memory database.
type testEnv struct {
	db        *gorm.DB
	users     repository.UserRepository
	follows   repository.FollowRepository
	eval      *visibility.Evaluator
	followSvc *FollowService
	postSvc   *PostService
	comments  *CommentService
	reactions *ReactionService
	userSvc   *UserService
}

func newTestEnv(t *testing.T, policy visibility.Policy) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)
	posts := repository.NewPostRepository(db)
	eval := visibility.NewEvaluator(policy, follows)
	return &testEnv{
		db:        db,
		users:     users,
		follows:   follows,
		eval:      eval,
		followSvc: NewFollowService(follows, users),
		postSvc:   NewPostService(posts, users, eval),
		comments:  NewCommentService(repository.NewCommentRepository(db), posts, eval),
		reactions: NewReactionService(repository.NewReactionRepository(db), posts, eval),
		userSvc:   NewUserService(users, follows),
	}
}

func viewer(u *models.User) visibility.Viewer {
	return visibility.ViewerOf(u)
}

func firstPage(size int) models.Page {
	return models.Page{Number: 1, Size: size}
}

// assertCode asserts that err is an AppError carrying code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func postIDs(posts []models.Post) []uint {
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}
