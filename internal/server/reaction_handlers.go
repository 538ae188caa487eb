package server

import (
	"fmt"

	"snapverse/internal/models"
	"snapverse/internal/service"

	"github.com/gofiber/fiber/v2"
)

type reactRequest struct {
	Reaction string `json:"reaction"`
}

// reactResponse reports a toggle together with the post's fresh counts.
type reactResponse struct {
	Message string                   `json:"message"`
	Action  models.ReactionAction    `json:"action"`
	Kind    models.ReactionKind      `json:"reaction_type"`
	Summary *service.ReactionSummary `json:"summary,omitempty"`
}

func reactionMessage(action models.ReactionAction, kind models.ReactionKind) string {
	switch action {
	case models.ReactionAdded:
		return fmt.Sprintf("Added %s reaction", kind)
	case models.ReactionUpdated:
		return fmt.Sprintf("Changed reaction to %s", kind)
	default:
		return fmt.Sprintf("Removed %s reaction", kind)
	}
}

// React handles POST /api/posts/:id/react
// @Summary React to post
// @Description Adds a reaction, switches to another kind, or removes it when the same kind is sent again
// @Tags reactions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body reactRequest true "Reaction kind"
// @Success 200 {object} reactResponse
// @Success 201 {object} reactResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id}/react [post]
func (s *Server) React(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req reactRequest
	if err := bind(c, &req); err != nil {
		return nil
	}
	kind, err := service.ParseReactionKind(req.Reaction)
	if err != nil {
		return respondError(c, err)
	}
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}

	ctx := c.UserContext()
	res, err := s.reactionService.React(ctx, v, postID, kind)
	if err != nil {
		return respondError(c, err)
	}
	resp := reactResponse{
		Message: reactionMessage(res.Action, res.Kind),
		Action:  res.Action,
		Kind:    res.Kind,
	}
	if sum, err := s.reactionService.Summary(ctx, v, postID); err == nil {
		resp.Summary = sum
	}

	status := fiber.StatusOK
	if res.Action == models.ReactionAdded {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(resp)
}

// RemoveReaction handles DELETE /api/posts/:id/react
// @Summary Remove reaction
// @Tags reactions
// @Security BearerAuth
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} reactResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/react [delete]
func (s *Server) RemoveReaction(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}

	ctx := c.UserContext()
	removed, err := s.reactionService.RemoveReaction(ctx, v, postID)
	if err != nil {
		return respondError(c, err)
	}
	resp := reactResponse{
		Message: reactionMessage(models.ReactionRemoved, removed.Kind),
		Action:  models.ReactionRemoved,
		Kind:    removed.Kind,
	}
	if sum, err := s.reactionService.Summary(ctx, v, postID); err == nil {
		resp.Summary = sum
	}
	return c.JSON(resp)
}

// ListReactions handles GET /api/posts/:id/reactions
// @Summary Post reactions
// @Tags reactions
// @Produce json
// @Param id path int true "Post ID"
// @Param type query string false "Only this reaction kind"
// @Success 200 {object} models.PageResult[models.Reaction]
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id}/reactions [get]
func (s *Server) ListReactions(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}
	res, err := s.reactionService.ListReactions(c.UserContext(), v, postID, c.Query("type"), s.parsePage(c, s.postPageSize()))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}
