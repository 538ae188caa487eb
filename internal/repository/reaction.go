package repository

import (
	"context"
	"errors"

	"snapverse/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// toggleAttempts bounds how often Toggle re-runs after losing an insert race.
const toggleAttempts = 2

// ReactionRepository defines persistence operations for reactions.
type ReactionRepository interface {
	Toggle(ctx context.Context, userID, postID uint, kind models.ReactionKind) (models.ReactionAction, error)
	Remove(ctx context.Context, userID, postID uint) (bool, error)
	Get(ctx context.Context, userID, postID uint) (*models.Reaction, error)
	List(ctx context.Context, postID uint, kind models.ReactionKind, page models.Page) ([]models.Reaction, int64, error)
	Counts(ctx context.Context, postID uint) (map[models.ReactionKind]int64, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

// Toggle applies the reaction toggle inside a transaction: no row creates
// one, the same kind deletes it and a different kind overwrites it. When a
// concurrent insert for the same (user, post) wins the unique index the
// whole sequence runs again in a fresh transaction and sees that row.
func (r *reactionRepository) Toggle(ctx context.Context, userID, postID uint, kind models.ReactionKind) (models.ReactionAction, error) {
	var (
		action models.ReactionAction
		err    error
	)
	for attempt := 0; attempt < toggleAttempts; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var existing models.Reaction
			findErr := tx.Where("user_id = ? AND post_id = ?", userID, postID).First(&existing).Error
			switch {
			case errors.Is(findErr, gorm.ErrRecordNotFound):
				row := models.Reaction{UserID: userID, PostID: postID, Kind: kind}
				if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
					return err
				}
				action = models.ReactionAdded
			case findErr != nil:
				return findErr
			case existing.Kind == kind:
				if err := tx.Delete(&existing).Error; err != nil {
					return err
				}
				action = models.ReactionRemoved
			default:
				if err := tx.Model(&existing).Update("reaction", kind).Error; err != nil {
					return err
				}
				action = models.ReactionUpdated
			}
			return nil
		})
		if err == nil {
			return action, nil
		}
		if !isUniqueConstraintError(err) {
			break
		}
	}
	return "", models.NewInternalError(err)
}

// Remove deletes the user's reaction and reports whether one existed.
func (r *reactionRepository) Remove(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Reaction{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Get returns nil without error when the user has not reacted.
func (r *reactionRepository) Get(ctx context.Context, userID, postID uint) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).First(&reaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &reaction, nil
}

// List pages a post's reactions, newest first, optionally narrowed to one kind.
func (r *reactionRepository) List(ctx context.Context, postID uint, kind models.ReactionKind, page models.Page) ([]models.Reaction, int64, error) {
	base := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&models.Reaction{}).Where("post_id = ?", postID)
		if kind != "" {
			db = db.Where("reaction = ?", string(kind))
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var reactions []models.Reaction
	if err := base().
		Preload("User").
		Order("created_at DESC").
		Order("id DESC").
		Scopes(paginate(page)).
		Find(&reactions).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return reactions, total, nil
}

// Counts returns the number of reactions of each kind on a post. Kinds with
// no reactions are present with a zero count.
func (r *reactionRepository) Counts(ctx context.Context, postID uint) (map[models.ReactionKind]int64, error) {
	var rows []struct {
		Kind  string
		Total int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Reaction{}).
		Select("reaction AS kind, COUNT(*) AS total").
		Where("post_id = ?", postID).
		Group("reaction").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	counts := make(map[models.ReactionKind]int64, len(models.ReactionKinds))
	for _, k := range models.ReactionKinds {
		counts[k] = 0
	}
	for _, row := range rows {
		counts[models.ReactionKind(row.Kind)] = row.Total
	}
	return counts, nil
}
