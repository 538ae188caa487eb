package repository

import (
	"context"
	"strings"

	"snapverse/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostQuery filters a post listing. Scope is the visibility filter for the
// viewer and is always applied before the other filters.
type PostQuery struct {
	Scope    func(*gorm.DB) *gorm.DB
	ViewerID uint
	UserID   uint
	Privacy  models.Privacy
	Search   string
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	List(ctx context.Context, q PostQuery, page models.Page) ([]models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Scopes(withPostDetails(viewerID)).
		Preload("User").
		First(&post, id).Error
	if err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

// List returns the posts matching q, newest first.
func (r *postRepository) List(ctx context.Context, q PostQuery, page models.Page) ([]models.Post, int64, error) {
	base := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&models.Post{})
		if q.Scope != nil {
			db = db.Scopes(q.Scope)
		}
		if q.UserID != 0 {
			db = db.Where("posts.user_id = ?", q.UserID)
		}
		if q.Privacy != "" {
			db = db.Where("posts.privacy = ?", string(q.Privacy))
		}
		if term := strings.TrimSpace(q.Search); term != "" {
			like := likePattern(term)
			db = db.Where(
				"(LOWER(posts.caption) LIKE ? ESCAPE '\\' OR LOWER(posts.location) LIKE ? ESCAPE '\\' OR "+
					"posts.user_id IN (SELECT id FROM users WHERE LOWER(username) LIKE ? ESCAPE '\\'))",
				like, like, like)
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []models.Post
	if err := base().
		Scopes(withPostDetails(q.ViewerID), paginate(page)).
		Preload("User").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Find(&posts).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

// withPostDetails adds subqueries to fetch counts and the viewer's reaction in a single query.
func withPostDetails(viewerID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Select("posts.*, "+
			"(SELECT COUNT(*) FROM comments c WHERE c.post_id = posts.id) AS comments_count, "+
			"(SELECT COUNT(*) FROM reactions r WHERE r.post_id = posts.id) AS reactions_count, "+
			"(SELECT COUNT(*) FROM reactions r WHERE r.post_id = posts.id AND r.reaction = ?) AS likes_count, "+
			"COALESCE((SELECT r.reaction FROM reactions r WHERE r.post_id = posts.id AND r.user_id = ?), '') AS viewer_reaction",
			string(models.ReactionLike), viewerID)
	}
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Model(post).
		Select("caption", "image_url", "location", "privacy", "is_edited", "updated_at").
		Updates(post).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the post with its comments and reactions.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		if models.ErrorCode(err) != "" {
			return err
		}
		return models.NewInternalError(err)
	}
	return nil
}
