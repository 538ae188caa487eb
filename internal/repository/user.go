package repository

import (
	"context"
	"errors"

	"snapverse/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDWithCounts(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	List(ctx context.Context, search string, page models.Page) ([]models.User, int64, error)
	ListFollowers(ctx context.Context, userID uint, page models.Page) ([]models.User, int64, error)
	ListFollowing(ctx context.Context, userID uint, page models.Page) ([]models.User, int64, error)
	ListStaff(ctx context.Context) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// withUserCounts selects the follow and post counts alongside each user row.
func withUserCounts(db *gorm.DB) *gorm.DB {
	return db.Select("users.*, "+
		"(SELECT COUNT(*) FROM follows f WHERE f.followee_id = users.id AND f.is_approved = ?) AS followers_count, "+
		"(SELECT COUNT(*) FROM follows f WHERE f.follower_id = users.id AND f.is_approved = ?) AS following_count, "+
		"(SELECT COUNT(*) FROM posts p WHERE p.user_id = users.id) AS posts_count",
		true, true)
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByIDWithCounts(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Scopes(withUserCounts).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

// GetByEmail returns nil without error when no account uses email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByUsername looks up an active account with its counts.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Scopes(withUserCounts).
		Where("users.username = ? AND users.is_active = ?", username, true).
		First(&user).Error; err != nil {
		return nil, notFoundOr(err, "User", username)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A user with that username or email already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Omit("created_at").Save(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A user with that username or email already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

// List returns active users ordered by username, optionally filtered by a
// case-insensitive match on username, names or email.
func (r *userRepository) List(ctx context.Context, search string, page models.Page) ([]models.User, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.User{}).Where("users.is_active = ?", true)
		if search != "" {
			like := likePattern(search)
			q = q.Where("LOWER(users.username) LIKE ? ESCAPE '\\' OR LOWER(users.first_name) LIKE ? ESCAPE '\\' "+
				"OR LOWER(users.last_name) LIKE ? ESCAPE '\\' OR LOWER(users.email) LIKE ? ESCAPE '\\'",
				like, like, like, like)
		}
		return q
	}
	return r.findPage(base, page)
}

// ListFollowers returns the accounts with an approved edge to userID.
func (r *userRepository) ListFollowers(ctx context.Context, userID uint, page models.Page) ([]models.User, int64, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.User{}).
			Where("users.id IN (SELECT follower_id FROM follows WHERE followee_id = ? AND is_approved = ?)", userID, true)
	}
	return r.findPage(base, page)
}

// ListFollowing returns the accounts userID follows through an approved edge.
func (r *userRepository) ListFollowing(ctx context.Context, userID uint, page models.Page) ([]models.User, int64, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.User{}).
			Where("users.id IN (SELECT followee_id FROM follows WHERE follower_id = ? AND is_approved = ?)", userID, true)
	}
	return r.findPage(base, page)
}

func (r *userRepository) findPage(base func() *gorm.DB, page models.Page) ([]models.User, int64, error) {
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var users []models.User
	if err := base().
		Scopes(withUserCounts, paginate(page)).
		Order("users.username ASC").
		Find(&users).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}

func (r *userRepository) ListStaff(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("is_staff = ? OR is_superuser = ?", true, true).
		Order("username ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
