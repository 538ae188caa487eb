package service

import (
	"context"
	"strings"

	"snapverse/internal/models"
	"snapverse/internal/observability"
	"snapverse/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Decisions accepted by HandleRequest.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// FollowResult is the outcome of a follow request.
type FollowResult struct {
	Edge    *models.Follow
	Created bool
	Pending bool
}

// FollowService runs the follow edge state machine.
type FollowService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
	events  *observability.EventLogger
}

// NewFollowService returns a new FollowService.
func NewFollowService(follows repository.FollowRepository, users repository.UserRepository) *FollowService {
	return &FollowService{
		follows: follows,
		users:   users,
		events:  observability.NewEventLogger("follow"),
	}
}

// RequestFollow returns the edge from followerID to followeeID, creating it
// when missing. A new edge to a private account starts pending.
func (s *FollowService) RequestFollow(ctx context.Context, followerID, followeeID uint) (res *FollowResult, err error) {
	ctx, span := observability.StartSpan(ctx, "FollowService", "RequestFollow",
		attribute.Int64("follower_id", int64(followerID)),
		attribute.Int64("followee_id", int64(followeeID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if followerID == followeeID {
		return nil, models.NewSelfFollowError()
	}
	followee, err := s.users.GetByID(ctx, followeeID)
	if err != nil {
		return nil, err
	}
	if !followee.IsActive {
		return nil, models.NewNotFoundError("User", followeeID)
	}

	edge, created, err := s.follows.GetOrCreate(ctx, followerID, followee)
	if err != nil {
		return nil, err
	}
	if created {
		transition := observability.TransitionFollowed
		if edge.Pending() {
			transition = observability.TransitionRequested
		}
		s.events.FollowTransition(ctx, transition, followerID, followeeID)
	}
	return &FollowResult{Edge: edge, Created: created, Pending: edge.Pending()}, nil
}

// Unfollow deletes the edge from followerID to followeeID, pending or not.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	removed, err := s.follows.DeleteBetween(ctx, followerID, followeeID, false)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFollowingError()
	}
	s.events.FollowTransition(ctx, observability.TransitionUnfollow, followerID, followeeID)
	return nil
}

// pendingFor loads a pending edge the actor may decide on.
func (s *FollowService) pendingFor(ctx context.Context, actorID, edgeID uint) (*models.Follow, error) {
	edge, err := s.follows.GetByID(ctx, edgeID)
	if err != nil {
		return nil, err
	}
	if edge.FolloweeID != actorID {
		return nil, models.NewNotAuthorizedError("Only the followed account can answer this request")
	}
	if !edge.Pending() {
		return nil, models.NewInvalidStateError("Follow request is already approved")
	}
	return edge, nil
}

// Approve flips a pending edge to active. Only the followee may approve.
func (s *FollowService) Approve(ctx context.Context, actorID, edgeID uint) (edge *models.Follow, err error) {
	ctx, span := observability.StartSpan(ctx, "FollowService", "Approve")
	defer func() { observability.EndSpan(span, err) }()

	edge, err = s.pendingFor(ctx, actorID, edgeID)
	if err != nil {
		return nil, err
	}
	ok, err := s.follows.Approve(ctx, edge.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another approve, or the follower withdrew.
		current, err := s.follows.GetByID(ctx, edge.ID)
		if err != nil {
			return nil, err
		}
		if current.Approved {
			return nil, models.NewInvalidStateError("Follow request is already approved")
		}
	}
	edge.Approved = true
	s.events.FollowTransition(ctx, observability.TransitionApproved, edge.FollowerID, edge.FolloweeID)
	return edge, nil
}

// Reject deletes a pending edge. Only the followee may reject; an active
// edge is removed with RemoveFollower instead.
func (s *FollowService) Reject(ctx context.Context, actorID, edgeID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "FollowService", "Reject")
	defer func() { observability.EndSpan(span, err) }()

	edge, err := s.pendingFor(ctx, actorID, edgeID)
	if err != nil {
		return err
	}
	if err := s.follows.Delete(ctx, edge.ID); err != nil {
		return err
	}
	s.events.FollowTransition(ctx, observability.TransitionRejected, edge.FollowerID, edge.FolloweeID)
	return nil
}

// HandleRequest applies an approve or reject decision. The returned edge is
// nil after a rejection.
func (s *FollowService) HandleRequest(ctx context.Context, actorID, edgeID uint, decision string) (*models.Follow, error) {
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case DecisionApprove:
		return s.Approve(ctx, actorID, edgeID)
	case DecisionReject:
		return nil, s.Reject(ctx, actorID, edgeID)
	default:
		return nil, models.NewValidationError("Invalid action. Use 'approve' or 'reject'")
	}
}

// RemoveFollower lets followeeID drop an active follower.
func (s *FollowService) RemoveFollower(ctx context.Context, followeeID, followerID uint) error {
	removed, err := s.follows.DeleteBetween(ctx, followerID, followeeID, true)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFollowingError()
	}
	s.events.FollowTransition(ctx, observability.TransitionRemoved, followerID, followeeID)
	return nil
}

// Stats counts active followers, active followees and pending requests.
func (s *FollowService) Stats(ctx context.Context, userID uint) (models.FollowStats, error) {
	return s.follows.Stats(ctx, userID)
}

// Following lists the active edges userID follows through.
func (s *FollowService) Following(ctx context.Context, userID uint, page models.Page) (models.PageResult[models.Follow], error) {
	edges, total, err := s.follows.ListFollowing(ctx, userID, page)
	if err != nil {
		return models.PageResult[models.Follow]{}, err
	}
	return models.NewPageResult(edges, total, page), nil
}

// Followers lists the active edges pointing at userID.
func (s *FollowService) Followers(ctx context.Context, userID uint, page models.Page) (models.PageResult[models.Follow], error) {
	edges, total, err := s.follows.ListFollowers(ctx, userID, page)
	if err != nil {
		return models.PageResult[models.Follow]{}, err
	}
	return models.NewPageResult(edges, total, page), nil
}

// PendingRequests lists the requests awaiting userID's decision.
func (s *FollowService) PendingRequests(ctx context.Context, userID uint, page models.Page) (models.PageResult[models.Follow], error) {
	edges, total, err := s.follows.ListPending(ctx, userID, page)
	if err != nil {
		return models.PageResult[models.Follow]{}, err
	}
	return models.NewPageResult(edges, total, page), nil
}

// FollowStatus describes the viewer's edge to targetID as one of the
// Relation labels.
func (s *FollowService) FollowStatus(ctx context.Context, viewerID, targetID uint) (string, error) {
	if viewerID == 0 || viewerID == targetID {
		return models.RelationNotFollowing, nil
	}
	edge, err := s.follows.Find(ctx, viewerID, targetID)
	if err != nil {
		return "", err
	}
	return relationOf(edge), nil
}

func relationOf(edge *models.Follow) string {
	switch {
	case edge == nil:
		return models.RelationNotFollowing
	case edge.Pending():
		return models.RelationPending
	default:
		return models.RelationFollowing
	}
}
