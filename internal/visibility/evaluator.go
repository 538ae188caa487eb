package visibility

import (
	"context"

	"snapverse/internal/models"

	"gorm.io/gorm"
)

// FollowChecker reports whether an ACTIVE edge exists from follower to followee.
type FollowChecker interface {
	IsActiveFollower(ctx context.Context, followerID, followeeID uint) (bool, error)
}

// Evaluator answers access questions against live follow state. It holds no
// cached decisions; every call reads the current edge.
type Evaluator struct {
	policy  Policy
	follows FollowChecker
}

// NewEvaluator creates an Evaluator bound to a policy and a follow lookup.
func NewEvaluator(policy Policy, follows FollowChecker) *Evaluator {
	return &Evaluator{policy: policy, follows: follows}
}

// Policy returns the policy the evaluator applies.
func (e *Evaluator) Policy() Policy {
	return e.policy
}

// Check decides op, looking up the viewer's follow edge only when the
// answer depends on it.
func (e *Evaluator) Check(ctx context.Context, op Operation, v Viewer, s Subject) (bool, error) {
	if Allowed(op, v, s, e.policy) {
		return true, nil
	}
	if s.ViewerFollows || !dependsOnFollow(op, v, s) || e.follows == nil {
		return false, nil
	}
	follows, err := e.follows.IsActiveFollower(ctx, v.ID, s.AudienceOwnerID)
	if err != nil {
		return false, err
	}
	s.ViewerFollows = follows
	return Allowed(op, v, s, e.policy), nil
}

// CanReadPost applies the post read rule.
func (e *Evaluator) CanReadPost(ctx context.Context, v Viewer, post *models.Post) (bool, error) {
	return e.Check(ctx, PostRead, v, PostSubject(post))
}

// CanWritePost applies the post update/delete rule.
func (e *Evaluator) CanWritePost(v Viewer, post *models.Post) bool {
	return Allowed(PostWrite, v, PostSubject(post), e.policy)
}

// CanReadComment re-evaluates the parent post's read rule.
func (e *Evaluator) CanReadComment(ctx context.Context, v Viewer, comment *models.Comment, post *models.Post) (bool, error) {
	return e.Check(ctx, CommentRead, v, CommentSubject(comment, post))
}

// CanUpdateComment applies the comment edit rule.
func (e *Evaluator) CanUpdateComment(v Viewer, comment *models.Comment, post *models.Post) bool {
	return Allowed(CommentUpdate, v, CommentSubject(comment, post), e.policy)
}

// CanDeleteComment applies the comment delete rule, which also admits the
// post owner and staff.
func (e *Evaluator) CanDeleteComment(v Viewer, comment *models.Comment, post *models.Post) bool {
	return Allowed(CommentDelete, v, CommentSubject(comment, post), e.policy)
}

// CanViewPrivateContent reports whether v may see the non-public content of
// the account.
func (e *Evaluator) CanViewPrivateContent(ctx context.Context, v Viewer, accountID uint) (bool, error) {
	return e.Check(ctx, AccountPrivateContent, v, AccountSubject(accountID))
}

// PostsScope narrows a posts query to the rows v may read. It is built from
// the same tier table as CanReadPost, so every row it admits passes that check.
func (e *Evaluator) PostsScope(v Viewer) func(*gorm.DB) *gorm.DB {
	return PostsScope(v, e.policy)
}
