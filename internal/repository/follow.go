package repository

import (
	"context"
	"errors"

	"snapverse/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository defines persistence operations for follow edges.
type FollowRepository interface {
	GetOrCreate(ctx context.Context, followerID uint, followee *models.User) (*models.Follow, bool, error)
	GetByID(ctx context.Context, id uint) (*models.Follow, error)
	Find(ctx context.Context, followerID, followeeID uint) (*models.Follow, error)
	IsActiveFollower(ctx context.Context, followerID, followeeID uint) (bool, error)
	Approve(ctx context.Context, id uint) (bool, error)
	Delete(ctx context.Context, id uint) error
	DeleteBetween(ctx context.Context, followerID, followeeID uint, approvedOnly bool) (bool, error)
	Stats(ctx context.Context, userID uint) (models.FollowStats, error)
	StatusesFor(ctx context.Context, followerID uint, followeeIDs []uint) (map[uint]models.FollowStatus, error)
	ListFollowing(ctx context.Context, userID uint, page models.Page) ([]models.Follow, int64, error)
	ListFollowers(ctx context.Context, userID uint, page models.Page) ([]models.Follow, int64, error)
	ListPending(ctx context.Context, userID uint, page models.Page) ([]models.Follow, int64, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

// GetOrCreate returns the edge from followerID to followee, creating it with
// the approval flag seeded from the followee's privacy when none exists. A
// concurrent insert that wins the unique index turns this call into a fetch.
func (r *followRepository) GetOrCreate(ctx context.Context, followerID uint, followee *models.User) (*models.Follow, bool, error) {
	existing, err := r.Find(ctx, followerID, followee.ID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	edge := models.NewFollow(followerID, followee)
	err = r.db.WithContext(ctx).Omit(clause.Associations).Create(edge).Error
	if err == nil {
		return edge, true, nil
	}
	if !isUniqueConstraintError(err) {
		return nil, false, models.NewInternalError(err)
	}

	existing, err = r.Find(ctx, followerID, followee.ID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, models.NewInternalError(errors.New("follow edge vanished after unique violation"))
	}
	return existing, false, nil
}

func (r *followRepository) GetByID(ctx context.Context, id uint) (*models.Follow, error) {
	var edge models.Follow
	if err := r.db.WithContext(ctx).First(&edge, id).Error; err != nil {
		return nil, notFoundOr(err, "Follow request", id)
	}
	return &edge, nil
}

// Find returns nil without error when no edge exists.
func (r *followRepository) Find(ctx context.Context, followerID, followeeID uint) (*models.Follow, error) {
	var edge models.Follow
	err := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &edge, nil
}

func (r *followRepository) IsActiveFollower(ctx context.Context, followerID, followeeID uint) (bool, error) {
	if followerID == 0 {
		return false, nil
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ? AND is_approved = ?", followerID, followeeID, true).
		Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

// Approve flips a pending edge to active. It reports false when the edge was
// already active or no longer exists.
func (r *followRepository) Approve(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("id = ? AND is_approved = ?", id, false).
		Update("is_approved", true)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Follow{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// DeleteBetween removes the edge followerID -> followeeID and reports
// whether one was removed.
func (r *followRepository) DeleteBetween(ctx context.Context, followerID, followeeID uint, approvedOnly bool) (bool, error) {
	q := r.db.WithContext(ctx).Where("follower_id = ? AND followee_id = ?", followerID, followeeID)
	if approvedOnly {
		q = q.Where("is_approved = ?", true)
	}
	res := q.Delete(&models.Follow{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Stats(ctx context.Context, userID uint) (models.FollowStats, error) {
	var stats models.FollowStats
	err := r.db.WithContext(ctx).Raw(
		"SELECT "+
			"(SELECT COUNT(*) FROM follows WHERE followee_id = ? AND is_approved = ?) AS followers_count, "+
			"(SELECT COUNT(*) FROM follows WHERE follower_id = ? AND is_approved = ?) AS following_count, "+
			"(SELECT COUNT(*) FROM follows WHERE followee_id = ? AND is_approved = ?) AS pending_requests_count",
		userID, true, userID, true, userID, false,
	).Scan(&stats).Error
	if err != nil {
		return stats, models.NewInternalError(err)
	}
	return stats, nil
}

// StatusesFor maps each followee in followeeIDs that followerID has an edge
// to onto that edge's status.
func (r *followRepository) StatusesFor(ctx context.Context, followerID uint, followeeIDs []uint) (map[uint]models.FollowStatus, error) {
	out := make(map[uint]models.FollowStatus, len(followeeIDs))
	if followerID == 0 || len(followeeIDs) == 0 {
		return out, nil
	}
	var edges []models.Follow
	if err := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id IN ?", followerID, followeeIDs).
		Find(&edges).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range edges {
		out[edges[i].FolloweeID] = edges[i].Status()
	}
	return out, nil
}

func (r *followRepository) ListFollowing(ctx context.Context, userID uint, page models.Page) ([]models.Follow, int64, error) {
	return r.listEdges(ctx, "Followee", page, "follower_id = ? AND is_approved = ?", userID, true)
}

func (r *followRepository) ListFollowers(ctx context.Context, userID uint, page models.Page) ([]models.Follow, int64, error) {
	return r.listEdges(ctx, "Follower", page, "followee_id = ? AND is_approved = ?", userID, true)
}

func (r *followRepository) ListPending(ctx context.Context, userID uint, page models.Page) ([]models.Follow, int64, error) {
	return r.listEdges(ctx, "Follower", page, "followee_id = ? AND is_approved = ?", userID, false)
}

func (r *followRepository) listEdges(ctx context.Context, preload string, page models.Page, where string, args ...any) ([]models.Follow, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).Where(where, args...).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var edges []models.Follow
	if err := r.db.WithContext(ctx).
		Preload(preload).
		Where(where, args...).
		Order("created_at DESC").
		Order("id DESC").
		Scopes(paginate(page)).
		Find(&edges).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return edges, total, nil
}
