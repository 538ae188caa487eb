package repository

import (
	"errors"
	"fmt"
	"testing"

	"snapverse/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped pg unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"pg foreign key violation", &pgconn.PgError{Code: "23503"}, false},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true},
		{"sqlite message", errors.New("UNIQUE constraint failed: follows.follower_id, follows.followee_id"), true},
		{"postgres text", errors.New(`duplicate key value violates unique constraint "idx_follows_pair"`), true},
		{"other", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueConstraintError(tt.err))
		})
	}
}

func TestNotFoundOr(t *testing.T) {
	err := notFoundOr(gorm.ErrRecordNotFound, "Post", 7)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	assert.Contains(t, err.Error(), "Post with ID 7")

	err = notFoundOr(errors.New("boom"), "Post", 7)
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%alice%", likePattern("  Alice "))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
	assert.Equal(t, `%c:\\d%`, likePattern(`C:\d`))
}
