package service

import (
	"context"
	"strings"

	"snapverse/internal/models"
	"snapverse/internal/observability"
	"snapverse/internal/repository"
	"snapverse/internal/visibility"

	"go.opentelemetry.io/otel/attribute"
)

// ReactionResult is the outcome of a toggle.
type ReactionResult struct {
	Action models.ReactionAction `json:"action"`
	Kind   models.ReactionKind   `json:"reaction_type"`
}

// ReactionSummary is the per-kind breakdown of a post's reactions.
type ReactionSummary struct {
	Total      int64                         `json:"reactions_count"`
	LikesCount int64                         `json:"likes_count"`
	ByKind     map[models.ReactionKind]int64 `json:"reaction_counts"`
}

// ReactionService toggles and lists reactions on readable posts.
type ReactionService struct {
	reactionRepo repository.ReactionRepository
	postRepo     repository.PostRepository
	eval         *visibility.Evaluator
	events       *observability.EventLogger
}

func NewReactionService(
	reactionRepo repository.ReactionRepository,
	postRepo repository.PostRepository,
	eval *visibility.Evaluator,
) *ReactionService {
	return &ReactionService{
		reactionRepo: reactionRepo,
		postRepo:     postRepo,
		eval:         eval,
		events:       observability.NewEventLogger("reaction"),
	}
}

// ParseReactionKind normalises a client supplied kind.
func ParseReactionKind(raw string) (models.ReactionKind, error) {
	kind := models.ReactionKind(strings.ToLower(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return "", models.NewValidationError("Invalid reaction type")
	}
	return kind, nil
}

// React adds, removes or switches the viewer's reaction on a post.
func (s *ReactionService) React(ctx context.Context, v visibility.Viewer, postID uint, kind models.ReactionKind) (res ReactionResult, err error) {
	ctx, span := observability.StartSpan(ctx, "ReactionService", "React",
		attribute.Int64("post_id", int64(postID)),
		attribute.String("reaction", string(kind)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if !kind.Valid() {
		return ReactionResult{}, models.NewValidationError("Invalid reaction type")
	}
	if _, err := readablePost(ctx, s.postRepo, s.eval, v, postID); err != nil {
		return ReactionResult{}, err
	}

	action, err := s.reactionRepo.Toggle(ctx, v.ID, postID, kind)
	if err != nil {
		return ReactionResult{}, err
	}
	s.events.ReactionToggled(ctx, string(action), string(kind), v.ID, postID)
	return ReactionResult{Action: action, Kind: kind}, nil
}

// RemoveReaction deletes the viewer's reaction, whatever its kind.
func (s *ReactionService) RemoveReaction(ctx context.Context, v visibility.Viewer, postID uint) (*models.Reaction, error) {
	if _, err := readablePost(ctx, s.postRepo, s.eval, v, postID); err != nil {
		return nil, err
	}
	existing, err := s.reactionRepo.Get(ctx, v.ID, postID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, models.NewNotFoundError("Reaction on post", postID)
	}
	removed, err := s.reactionRepo.Remove(ctx, v.ID, postID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, models.NewNotFoundError("Reaction on post", postID)
	}
	s.events.ReactionToggled(ctx, string(models.ReactionRemoved), string(existing.Kind), v.ID, postID)
	return existing, nil
}

// ListReactions pages a readable post's reactions, newest first. An empty
// kind lists every kind.
func (s *ReactionService) ListReactions(ctx context.Context, v visibility.Viewer, postID uint, kind string, page models.Page) (models.PageResult[models.Reaction], error) {
	var filter models.ReactionKind
	if strings.TrimSpace(kind) != "" {
		k, err := ParseReactionKind(kind)
		if err != nil {
			return models.PageResult[models.Reaction]{}, err
		}
		filter = k
	}
	if _, err := readablePost(ctx, s.postRepo, s.eval, v, postID); err != nil {
		return models.PageResult[models.Reaction]{}, err
	}
	reactions, total, err := s.reactionRepo.List(ctx, postID, filter, page)
	if err != nil {
		return models.PageResult[models.Reaction]{}, err
	}
	return models.NewPageResult(reactions, total, page), nil
}

// Summary counts a readable post's reactions by kind. LikesCount is the
// "like" bucket alone; dislikes are reported but never subtracted.
func (s *ReactionService) Summary(ctx context.Context, v visibility.Viewer, postID uint) (*ReactionSummary, error) {
	if _, err := readablePost(ctx, s.postRepo, s.eval, v, postID); err != nil {
		return nil, err
	}
	counts, err := s.reactionRepo.Counts(ctx, postID)
	if err != nil {
		return nil, err
	}
	sum := &ReactionSummary{ByKind: counts, LikesCount: counts[models.ReactionLike]}
	for _, n := range counts {
		sum.Total += n
	}
	return sum, nil
}
