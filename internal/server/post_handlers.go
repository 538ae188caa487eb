package server

import (
	"strings"

	"snapverse/internal/models"
	"snapverse/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Caption  string         `json:"caption" validate:"max=2200"`
	ImageURL string         `json:"image_url"`
	Location string         `json:"location" validate:"max=100"`
	Privacy  models.Privacy `json:"privacy"`
}

type updatePostRequest struct {
	Caption  *string         `json:"caption" validate:"omitempty,max=2200"`
	ImageURL *string         `json:"image_url"`
	Location *string         `json:"location" validate:"omitempty,max=100"`
	Privacy  *models.Privacy `json:"privacy"`
}

func (s *Server) postPageSize() int {
	if s.config == nil {
		return 0
	}
	return s.config.PostPageSize
}

func (s *Server) commentPageSize() int {
	if s.config == nil {
		return 0
	}
	return s.config.CommentPageSize
}

// ListPosts handles GET /api/posts
// @Summary List posts
// @Description Posts the caller may see, newest first
// @Tags posts
// @Produce json
// @Param user_id query int false "Author ID"
// @Param privacy query string false "public, followers or private"
// @Param search query string false "Caption or location contains"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} models.PageResult[models.Post]
// @Router /posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}

	in := service.ListPostsInput{
		Privacy: models.Privacy(strings.ToLower(strings.TrimSpace(c.Query("privacy")))),
		Search:  strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("user_id"); raw != "" {
		id := c.QueryInt("user_id", 0)
		if id <= 0 {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid user ID"))
		}
		in.UserID = uint(id)
	}

	res, err := s.postService.ListPosts(c.UserContext(), v, in, s.parsePage(c, s.postPageSize()))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Description A post needs a caption or an image. Privacy defaults to public.
// @Tags posts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body createPostRequest true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := bind(c, &req); err != nil {
		return nil
	}
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), v, service.CreatePostInput{
		Caption:  req.Caption,
		ImageURL: req.ImageURL,
		Location: req.Location,
		Privacy:  req.Privacy,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetFeed handles GET /api/posts/feed
// @Summary Feed
// @Description Public posts, the caller's own posts and follower-only posts of accounts they follow
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.PageResult[models.Post]
// @Router /posts/feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}
	res, err := s.postService.Feed(c.UserContext(), v, s.parsePage(c, s.postPageSize()))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetMyPosts handles GET /api/posts/mine
// @Summary My posts
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.PageResult[models.Post]
// @Router /posts/mine [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}
	res, err := s.postService.MyPosts(c.UserContext(), v, s.parsePage(c, s.postPageSize()))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetPost handles GET /api/posts/:id
// @Summary Get post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}
	post, err := s.postService.GetPost(c.UserContext(), v, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Update post
// @Description Only the author (or staff) may edit a post
// @Tags posts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body updatePostRequest true "Fields to change"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updatePostRequest
	if err := bind(c, &req); err != nil {
		return nil
	}
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), v, id, service.UpdatePostInput{
		Caption:  req.Caption,
		ImageURL: req.ImageURL,
		Location: req.Location,
		Privacy:  req.Privacy,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.postService.DeletePost(c.UserContext(), v, id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
