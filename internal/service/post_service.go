package service

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"snapverse/internal/models"
	"snapverse/internal/observability"
	"snapverse/internal/repository"
	"snapverse/internal/visibility"
)

const (
	maxCaptionLen  = 2200
	maxLocationLen = 100
)

// PostService provides post business logic behind the visibility rules.
type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	eval     *visibility.Evaluator
}

type CreatePostInput struct {
	Caption  string
	ImageURL string
	Location string
	Privacy  models.Privacy
}

// UpdatePostInput carries the fields to change; nil leaves a field as is.
type UpdatePostInput struct {
	Caption  *string
	ImageURL *string
	Location *string
	Privacy  *models.Privacy
}

type ListPostsInput struct {
	UserID  uint
	Privacy models.Privacy
	Search  string
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	eval *visibility.Evaluator,
) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		eval:     eval,
	}
}

func validatePostFields(caption, imageURL, location string, privacy models.Privacy) error {
	if strings.TrimSpace(caption) == "" && strings.TrimSpace(imageURL) == "" {
		return models.NewValidationError("A post needs a caption or an image")
	}
	if utf8.RuneCountInString(caption) > maxCaptionLen {
		return models.NewValidationError("Caption too long (max 2200 characters)")
	}
	if utf8.RuneCountInString(location) > maxLocationLen {
		return models.NewValidationError("Location too long (max 100 characters)")
	}
	if imageURL != "" {
		if _, err := url.ParseRequestURI(imageURL); err != nil {
			return models.NewValidationError("image_url must be a valid URL")
		}
	}
	if !privacy.Valid() {
		return models.NewValidationError("privacy must be one of public, private, followers")
	}
	return nil
}

func (s *PostService) CreatePost(ctx context.Context, v visibility.Viewer, in CreatePostInput) (*models.Post, error) {
	if v.ID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if in.Privacy == "" {
		in.Privacy = models.PrivacyPublic
	}
	if err := validatePostFields(in.Caption, in.ImageURL, in.Location, in.Privacy); err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:   v.ID,
		Caption:  in.Caption,
		ImageURL: strings.TrimSpace(in.ImageURL),
		Location: strings.TrimSpace(in.Location),
		Privacy:  in.Privacy,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, v.ID)
}

// GetPost returns a post the viewer may read. A post that exists but is
// hidden from the viewer yields a forbidden error, not a not-found.
func (s *PostService) GetPost(ctx context.Context, v visibility.Viewer, id uint) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService", "GetPost")
	defer func() { observability.EndSpan(span, err) }()

	return readablePost(ctx, s.postRepo, s.eval, v, id)
}

func (s *PostService) writablePost(ctx context.Context, v visibility.Viewer, id uint, verb string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id, v.ID)
	if err != nil {
		return nil, err
	}
	if !s.eval.CanWritePost(v, post) {
		return nil, deny(ctx, visibility.PostWrite, v, post.UserID, "You can only "+verb+" your own posts")
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, v visibility.Viewer, id uint, in UpdatePostInput) (*models.Post, error) {
	post, err := s.writablePost(ctx, v, id, "update")
	if err != nil {
		return nil, err
	}

	before := *post
	if in.Caption != nil {
		post.Caption = *in.Caption
	}
	if in.ImageURL != nil {
		post.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.Location != nil {
		post.Location = strings.TrimSpace(*in.Location)
	}
	if in.Privacy != nil {
		post.Privacy = *in.Privacy
	}
	if err := validatePostFields(post.Caption, post.ImageURL, post.Location, post.Privacy); err != nil {
		return nil, err
	}
	if post.Caption != before.Caption || post.ImageURL != before.ImageURL || post.Location != before.Location {
		post.IsEdited = true
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, v.ID)
}

func (s *PostService) DeletePost(ctx context.Context, v visibility.Viewer, id uint) error {
	if _, err := s.writablePost(ctx, v, id, "delete"); err != nil {
		return err
	}
	return s.postRepo.Delete(ctx, id)
}

// ListPosts returns the posts the viewer may read, newest first.
func (s *PostService) ListPosts(ctx context.Context, v visibility.Viewer, in ListPostsInput, page models.Page) (models.PageResult[models.Post], error) {
	if in.Privacy != "" && !in.Privacy.Valid() {
		return models.PageResult[models.Post]{}, models.NewValidationError("privacy must be one of public, private, followers")
	}
	posts, total, err := s.postRepo.List(ctx, repository.PostQuery{
		Scope:    s.eval.PostsScope(v),
		ViewerID: v.ID,
		UserID:   in.UserID,
		Privacy:  in.Privacy,
		Search:   in.Search,
	}, page)
	if err != nil {
		return models.PageResult[models.Post]{}, err
	}
	return models.NewPageResult(posts, total, page), nil
}

// Feed is the viewer's own posts, public posts and the followers-tier
// posts of accounts the viewer actively follows.
func (s *PostService) Feed(ctx context.Context, v visibility.Viewer, page models.Page) (models.PageResult[models.Post], error) {
	return s.ListPosts(ctx, v, ListPostsInput{}, page)
}

// MyPosts lists every post the viewer owns.
func (s *PostService) MyPosts(ctx context.Context, v visibility.Viewer, page models.Page) (models.PageResult[models.Post], error) {
	return s.ListPosts(ctx, v, ListPostsInput{UserID: v.ID}, page)
}

// UserPosts lists an account's posts. Private accounts are closed to
// viewers who cannot see their non-public content; the remaining posts
// still go through the per-post visibility filter.
func (s *PostService) UserPosts(ctx context.Context, v visibility.Viewer, username string, page models.Page) (models.PageResult[models.Post], error) {
	owner, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return models.PageResult[models.Post]{}, err
	}
	if owner.IsPrivate {
		ok, err := s.eval.CanViewPrivateContent(ctx, v, owner.ID)
		if err != nil {
			return models.PageResult[models.Post]{}, models.NewInternalError(err)
		}
		if !ok {
			return models.PageResult[models.Post]{}, deny(ctx, visibility.AccountPrivateContent, v, owner.ID, "This account is private")
		}
	}
	return s.ListPosts(ctx, v, ListPostsInput{UserID: owner.ID}, page)
}
