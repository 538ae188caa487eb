package repository

import (
	"context"

	"snapverse/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReplyPreviewSize is how many replies are embedded under each top-level comment.
const ReplyPreviewSize = 5

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListTopLevel(ctx context.Context, postID uint, page models.Page) ([]models.Comment, int64, error)
	ListReplies(ctx context.Context, parentID uint, page models.Page) ([]models.Comment, int64, error)
	PreviewReplies(ctx context.Context, parentIDs []uint, limit int) (map[uint][]models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).
		Scopes(withRepliesCount).
		Preload("User").
		First(&comment, id).Error; err != nil {
		return nil, notFoundOr(err, "Comment", id)
	}
	return &comment, nil
}

func withRepliesCount(db *gorm.DB) *gorm.DB {
	return db.Select("comments.*, " +
		"(SELECT COUNT(*) FROM comments rc WHERE rc.parent_comment_id = comments.id) AS replies_count")
}

// ListTopLevel pages a post's top-level comments, newest first.
func (r *commentRepository) ListTopLevel(ctx context.Context, postID uint, page models.Page) ([]models.Comment, int64, error) {
	return r.list(ctx, page, "comments.created_at DESC",
		"comments.post_id = ? AND comments.parent_comment_id IS NULL", postID)
}

// ListReplies pages the replies to a comment, oldest first.
func (r *commentRepository) ListReplies(ctx context.Context, parentID uint, page models.Page) ([]models.Comment, int64, error) {
	return r.list(ctx, page, "comments.created_at ASC", "comments.parent_comment_id = ?", parentID)
}

func (r *commentRepository) list(ctx context.Context, page models.Page, order string, where string, args ...any) ([]models.Comment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).Where(where, args...).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Scopes(withRepliesCount, paginate(page)).
		Preload("User").
		Where(where, args...).
		Order(order).
		Order("comments.id").
		Find(&comments).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return comments, total, nil
}

// PreviewReplies returns up to limit of the oldest replies for each parent.
func (r *commentRepository) PreviewReplies(ctx context.Context, parentIDs []uint, limit int) (map[uint][]models.Comment, error) {
	out := make(map[uint][]models.Comment, len(parentIDs))
	if len(parentIDs) == 0 || limit <= 0 {
		return out, nil
	}

	ranked := r.db.Model(&models.Comment{}).
		Select("id, ROW_NUMBER() OVER (PARTITION BY parent_comment_id ORDER BY created_at ASC, id ASC) AS rn").
		Where("parent_comment_id IN ?", parentIDs)
	head := r.db.Table("(?) AS ranked", ranked).Select("id").Where("rn <= ?", limit)

	var replies []models.Comment
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("id IN (?)", head).
		Order("created_at ASC").
		Order("id ASC").
		Find(&replies).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, reply := range replies {
		parent := *reply.ParentCommentID
		out[parent] = append(out[parent], reply)
	}
	return out, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Model(comment).
		Select("text", "is_edited", "updated_at").
		Updates(comment).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes a comment and its replies.
func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_comment_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
