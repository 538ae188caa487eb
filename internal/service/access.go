package service

import (
	"context"

	"snapverse/internal/models"
	"snapverse/internal/observability"
	"snapverse/internal/visibility"
)

var accessEvents = observability.NewEventLogger("visibility")

// deny records a refused access check and returns the matching error.
func deny(ctx context.Context, op visibility.Operation, v visibility.Viewer, ownerID uint, message string) error {
	accessEvents.AccessDenied(ctx, string(op), v.ID, ownerID)
	return models.NewNotAuthorizedError(message)
}

// readablePost loads a post and checks the viewer may read it.
func readablePost(ctx context.Context, posts postGetter, eval *visibility.Evaluator, v visibility.Viewer, postID uint) (*models.Post, error) {
	post, err := posts.GetByID(ctx, postID, v.ID)
	if err != nil {
		return nil, err
	}
	ok, err := eval.CanReadPost(ctx, v, post)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ok {
		return nil, deny(ctx, visibility.PostRead, v, post.UserID, "You do not have permission to view this post")
	}
	return post, nil
}

type postGetter interface {
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
}
