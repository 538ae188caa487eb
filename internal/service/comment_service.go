package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"snapverse/internal/models"
	"snapverse/internal/observability"
	"snapverse/internal/repository"
	"snapverse/internal/visibility"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	eval        *visibility.Evaluator
}

// CreateCommentInput is a new comment on PostID. When ParentCommentID is
// set the comment is a reply and must target the parent's post.
type CreateCommentInput struct {
	PostID          uint
	ParentCommentID *uint
	Text            string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	eval *visibility.Evaluator,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		eval:        eval,
	}
}

func validateCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.NewValidationError("Text is required")
	}
	if utf8.RuneCountInString(text) > models.MaxCommentLength {
		return "", models.NewValidationError("Comment too long (max 1000 characters)")
	}
	return text, nil
}

func (s *CommentService) CreateComment(ctx context.Context, v visibility.Viewer, in CreateCommentInput) (c *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService", "CreateComment")
	defer func() { observability.EndSpan(span, err) }()

	text, err := validateCommentText(in.Text)
	if err != nil {
		return nil, err
	}
	if _, err := readablePost(ctx, s.postRepo, s.eval, v, in.PostID); err != nil {
		return nil, err
	}

	if in.ParentCommentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentCommentID)
		if err != nil {
			if models.ErrorCode(err) == models.CodeNotFound {
				return nil, models.NewValidationError("Parent comment does not exist")
			}
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment must belong to the same post")
		}
		if parent.IsReply() {
			return nil, models.NewValidationError("Replies cannot be nested more than one level")
		}
	}

	comment := &models.Comment{
		UserID:          v.ID,
		PostID:          in.PostID,
		ParentCommentID: in.ParentCommentID,
		Text:            text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID)
}

// CreateReply answers a top-level comment; the reply inherits its post.
func (s *CommentService) CreateReply(ctx context.Context, v visibility.Viewer, parentID uint, text string) (*models.Comment, error) {
	parent, err := s.commentRepo.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return s.CreateComment(ctx, v, CreateCommentInput{
		PostID:          parent.PostID,
		ParentCommentID: &parent.ID,
		Text:            text,
	})
}

// ListComments pages the top-level comments of a readable post, each with
// a preview of its oldest replies.
func (s *CommentService) ListComments(ctx context.Context, v visibility.Viewer, postID uint, page models.Page) (models.PageResult[models.Comment], error) {
	if _, err := readablePost(ctx, s.postRepo, s.eval, v, postID); err != nil {
		return models.PageResult[models.Comment]{}, err
	}
	comments, total, err := s.commentRepo.ListTopLevel(ctx, postID, page)
	if err != nil {
		return models.PageResult[models.Comment]{}, err
	}

	ids := make([]uint, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
	}
	previews, err := s.commentRepo.PreviewReplies(ctx, ids, repository.ReplyPreviewSize)
	if err != nil {
		return models.PageResult[models.Comment]{}, err
	}
	for i := range comments {
		comments[i].Replies = previews[comments[i].ID]
	}
	return models.NewPageResult(comments, total, page), nil
}

// ListReplies pages the replies to a comment whose post the viewer may read.
func (s *CommentService) ListReplies(ctx context.Context, v visibility.Viewer, commentID uint, page models.Page) (models.PageResult[models.Comment], error) {
	comment, _, err := s.readableComment(ctx, v, commentID)
	if err != nil {
		return models.PageResult[models.Comment]{}, err
	}
	replies, total, err := s.commentRepo.ListReplies(ctx, comment.ID, page)
	if err != nil {
		return models.PageResult[models.Comment]{}, err
	}
	return models.NewPageResult(replies, total, page), nil
}

// GetComment returns a comment whose post the viewer may read.
func (s *CommentService) GetComment(ctx context.Context, v visibility.Viewer, commentID uint) (*models.Comment, error) {
	comment, _, err := s.readableComment(ctx, v, commentID)
	return comment, err
}

func (s *CommentService) readableComment(ctx context.Context, v visibility.Viewer, commentID uint) (*models.Comment, *models.Post, error) {
	comment, post, err := s.withPost(ctx, v, commentID)
	if err != nil {
		return nil, nil, err
	}
	ok, err := s.eval.CanReadComment(ctx, v, comment, post)
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	if !ok {
		return nil, nil, deny(ctx, visibility.CommentRead, v, post.UserID, "You do not have permission to view this comment")
	}
	return comment, post, nil
}

func (s *CommentService) withPost(ctx context.Context, v visibility.Viewer, commentID uint) (*models.Comment, *models.Post, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, nil, err
	}
	post, err := s.postRepo.GetByID(ctx, comment.PostID, v.ID)
	if err != nil {
		return nil, nil, err
	}
	return comment, post, nil
}

// UpdateComment replaces the text. Only the author (or staff under the
// staff override) may edit.
func (s *CommentService) UpdateComment(ctx context.Context, v visibility.Viewer, commentID uint, text string) (*models.Comment, error) {
	comment, post, err := s.withPost(ctx, v, commentID)
	if err != nil {
		return nil, err
	}
	if !s.eval.CanUpdateComment(v, comment, post) {
		return nil, deny(ctx, visibility.CommentUpdate, v, comment.UserID, "You can only update your own comments")
	}
	text, err = validateCommentText(text)
	if err != nil {
		return nil, err
	}

	comment.SetText(text)
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID)
}

// DeleteComment removes a comment with its replies. The author, the post
// owner and staff may delete.
func (s *CommentService) DeleteComment(ctx context.Context, v visibility.Viewer, commentID uint) error {
	comment, post, err := s.withPost(ctx, v, commentID)
	if err != nil {
		return err
	}
	if !s.eval.CanDeleteComment(v, comment, post) {
		return deny(ctx, visibility.CommentDelete, v, comment.UserID, "You can only delete your own comments or comments on your posts")
	}
	return s.commentRepo.Delete(ctx, comment.ID)
}
