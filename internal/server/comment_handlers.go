package server

import (
	"snapverse/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createCommentRequest struct {
	Text            string `json:"text" validate:"required,max=1000"`
	ParentCommentID *uint  `json:"parent_comment_id" validate:"omitempty,gt=0"`
}

type commentTextRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

// ListComments handles GET /api/posts/:id/comments
// @Summary Post comments
// @Description Top-level comments, newest first, each with a preview of its replies
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} models.PageResult[models.Comment]
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id}/comments [get]
func (s *Server) ListComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}
	res, err := s.commentService.ListComments(c.UserContext(), v, postID, s.parsePage(c, s.commentPageSize()))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// CreateComment handles POST /api/posts/:id/comments
// @Summary Comment on post
// @Description Set parent_comment_id to reply to a top-level comment of the same post
// @Tags comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body createCommentRequest true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req createCommentRequest
	if err := bind(c, &req); err != nil {
		return nil
	}
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), v, service.CreateCommentInput{
		PostID:          postID,
		ParentCommentID: req.ParentCommentID,
		Text:            req.Text,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ListReplies handles GET /api/comments/:id/replies
// @Summary Comment replies
// @Description Replies oldest first
// @Tags comments
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} models.PageResult[models.Comment]
// @Router /comments/{id}/replies [get]
func (s *Server) ListReplies(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}
	res, err := s.commentService.ListReplies(c.UserContext(), v, commentID, s.parsePage(c, s.commentPageSize()))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// CreateReply handles POST /api/comments/:id/replies
// @Summary Reply to comment
// @Tags comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body commentTextRequest true "Reply"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Router /comments/{id}/replies [post]
func (s *Server) CreateReply(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req commentTextRequest
	if err := bind(c, &req); err != nil {
		return nil
	}
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}
	reply, err := s.commentService.CreateReply(c.UserContext(), v, commentID, req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reply)
}

// GetComment handles GET /api/comments/:id
// @Summary Get comment
// @Tags comments
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} models.Comment
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [get]
func (s *Server) GetComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}
	comment, err := s.commentService.GetComment(c.UserContext(), v, commentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// UpdateComment handles PUT /api/comments/:id
// @Summary Edit comment
// @Tags comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body commentTextRequest true "New text"
// @Success 200 {object} models.Comment
// @Failure 403 {object} models.ErrorResponse
// @Router /comments/{id} [put]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req commentTextRequest
	if err := bind(c, &req); err != nil {
		return nil
	}
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}
	comment, err := s.commentService.UpdateComment(c.UserContext(), v, commentID, req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
// @Summary Delete comment
// @Description Removes the comment and its replies
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.commentService.DeleteComment(c.UserContext(), v, commentID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
