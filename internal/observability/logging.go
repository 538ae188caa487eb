// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// SetLogger replaces the logger behind every EventLogger. Servers call it
// with the request-aware logger so events carry request and user IDs.
func SetLogger(l *slog.Logger) {
	if l != nil {
		GlobalLogger = &Logger{Logger: l}
	}
}

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableDomainEvents bool
	EnableDenials      bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableDomainEvents: true,
	EnableDenials:      true,
}

// Follow transitions reported by EventLogger.FollowTransition.
const (
	TransitionRequested = "requested"
	TransitionFollowed  = "followed"
	TransitionApproved  = "approved"
	TransitionRejected  = "rejected"
	TransitionUnfollow  = "unfollowed"
	TransitionRemoved   = "removed"
)

// EventLogger records domain events for one component and bumps the
// matching counters.
type EventLogger struct {
	component string
}

// NewEventLogger creates an EventLogger for the given component.
func NewEventLogger(component string) *EventLogger {
	return &EventLogger{component: component}
}

func (l *EventLogger) info(ctx context.Context, msg string, attrs ...any) {
	if !Config.EnableDomainEvents {
		return
	}
	GlobalLogger.InfoContext(ctx, msg, append([]any{slog.String("component", l.component)}, attrs...)...)
}

// FollowTransition logs a follow edge state change.
func (l *EventLogger) FollowTransition(ctx context.Context, transition string, followerID, followeeID uint) {
	FollowTransitions.WithLabelValues(transition).Inc()
	l.info(ctx, "follow transition",
		slog.String("transition", transition),
		slog.Uint64("follower_id", uint64(followerID)),
		slog.Uint64("followee_id", uint64(followeeID)),
	)
}

// ReactionToggled logs the outcome of a reaction toggle.
func (l *EventLogger) ReactionToggled(ctx context.Context, action, kind string, userID, postID uint) {
	ReactionToggles.WithLabelValues(action, kind).Inc()
	l.info(ctx, "reaction toggled",
		slog.String("action", action),
		slog.String("kind", kind),
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("post_id", uint64(postID)),
	)
}

// AccessDenied logs a visibility refusal.
func (l *EventLogger) AccessDenied(ctx context.Context, operation string, viewerID, ownerID uint) {
	AccessDenials.WithLabelValues(operation).Inc()
	if !Config.EnableDenials {
		return
	}
	GlobalLogger.DebugContext(ctx, "access denied",
		slog.String("component", l.component),
		slog.String("operation", operation),
		slog.Uint64("viewer_id", uint64(viewerID)),
		slog.Uint64("owner_id", uint64(ownerID)),
	)
}

// PaymentEvent logs a payment session outcome.
func (l *EventLogger) PaymentEvent(ctx context.Context, outcome, tranID string, userID uint) {
	PaymentSessions.WithLabelValues(outcome).Inc()
	l.info(ctx, "payment session",
		slog.String("outcome", outcome),
		slog.String("tran_id", tranID),
		slog.Uint64("user_id", uint64(userID)),
	)
}

// SubscriptionActivated logs a pro subscription window opening.
func (l *EventLogger) SubscriptionActivated(ctx context.Context, userID uint, end time.Time) {
	l.info(ctx, "pro subscription activated",
		slog.Uint64("user_id", uint64(userID)),
		slog.Time("ends_at", end),
	)
}

// Error logs a failed operation.
func (l *EventLogger) Error(ctx context.Context, err error, operation string) {
	GlobalLogger.ErrorContext(ctx, "operation failed",
		slog.String("component", l.component),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}
