package server

import (
	"snapverse/internal/models"

	"github.com/gofiber/fiber/v2"
)

type followRequest struct {
	UserID uint `json:"user_id" validate:"required,gt=0"`
}

type pendingActionRequest struct {
	ID     uint   `json:"id" validate:"required,gt=0"`
	Action string `json:"action" validate:"required"`
}

// followedUser is the followee summary echoed back by follow actions.
type followedUser struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	IsPrivate bool   `json:"is_private"`
}

// followResponse describes the edge after a follow request.
type followResponse struct {
	Message    string       `json:"message"`
	User       followedUser `json:"user"`
	FollowID   uint         `json:"follow_id"`
	IsPending  bool         `json:"is_pending"`
	IsApproved bool         `json:"is_approved"`
	Status     string       `json:"status"`
}

// GetFollowStats handles GET /api/follows
// @Summary Follow stats
// @Tags follows
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.FollowStats
// @Router /follows [get]
func (s *Server) GetFollowStats(c *fiber.Ctx) error {
	stats, err := s.followService.Stats(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// Follow handles POST /api/follows/follow
// @Summary Follow a user
// @Description Public accounts are followed at once; private accounts receive a pending request.
// @Description Repeating the call returns the existing edge with 200.
// @Tags follows
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body followRequest true "Account to follow"
// @Success 201 {object} followResponse
// @Success 200 {object} followResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /follows/follow [post]
func (s *Server) Follow(c *fiber.Ctx) error {
	var req followRequest
	if err := bind(c, &req); err != nil {
		return nil
	}

	ctx := c.UserContext()
	res, err := s.followService.RequestFollow(ctx, currentUserID(c), req.UserID)
	if err != nil {
		return respondError(c, err)
	}
	followee, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return respondError(c, err)
	}

	body := followResponse{
		User: followedUser{
			ID:        followee.ID,
			Username:  followee.Username,
			FullName:  followee.FullName(),
			IsPrivate: followee.IsPrivate,
		},
		FollowID:   res.Edge.ID,
		IsPending:  res.Pending,
		IsApproved: !res.Pending,
		Status:     models.RelationFollowing,
	}
	if res.Pending {
		body.Status = models.RelationPending
	}

	status := fiber.StatusOK
	switch {
	case res.Created && res.Pending:
		body.Message = "Follow request sent (pending approval)"
		status = fiber.StatusCreated
	case res.Created:
		body.Message = "Successfully followed user"
		status = fiber.StatusCreated
	case res.Pending:
		body.Message = "Follow request already sent (still pending)"
	default:
		body.Message = "Already following this user"
	}
	return c.Status(status).JSON(body)
}

// Unfollow handles POST /api/follows/unfollow
// @Summary Unfollow a user
// @Description Also withdraws a pending request
// @Tags follows
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body followRequest true "Account to unfollow"
// @Success 200 {object} object{message=string,user_id=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /follows/unfollow [post]
func (s *Server) Unfollow(c *fiber.Ctx) error {
	var req followRequest
	if err := bind(c, &req); err != nil {
		return nil
	}
	if err := s.followService.Unfollow(c.UserContext(), currentUserID(c), req.UserID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Successfully unfollowed user",
		"user_id": req.UserID,
	})
}

// GetMyFollowing handles GET /api/follows/following
// @Summary Accounts I follow
// @Tags follows
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.PageResult[models.Follow]
// @Router /follows/following [get]
func (s *Server) GetMyFollowing(c *fiber.Ctx) error {
	res, err := s.followService.Following(c.UserContext(), currentUserID(c), s.parsePage(c, s.followPageSize()))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetMyFollowers handles GET /api/follows/followers
// @Summary My followers
// @Tags follows
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.PageResult[models.Follow]
// @Router /follows/followers [get]
func (s *Server) GetMyFollowers(c *fiber.Ctx) error {
	res, err := s.followService.Followers(c.UserContext(), currentUserID(c), s.parsePage(c, s.followPageSize()))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// RemoveFollower handles DELETE /api/follows/followers/:id
// @Summary Remove a follower
// @Tags follows
// @Security BearerAuth
// @Param id path int true "Follower user ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /follows/followers/{id} [delete]
func (s *Server) RemoveFollower(c *fiber.Ctx) error {
	followerID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.followService.RemoveFollower(c.UserContext(), currentUserID(c), followerID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetPendingRequests handles GET /api/follows/pending
// @Summary Pending follow requests
// @Tags follows
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.PageResult[models.Follow]
// @Router /follows/pending [get]
func (s *Server) GetPendingRequests(c *fiber.Ctx) error {
	res, err := s.followService.PendingRequests(c.UserContext(), currentUserID(c), s.parsePage(c, s.followPageSize()))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// HandlePendingRequest handles POST /api/follows/pending
// @Summary Approve or reject a follow request
// @Tags follows
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body pendingActionRequest true "Request ID and action (approve or reject)"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /follows/pending [post]
func (s *Server) HandlePendingRequest(c *fiber.Ctx) error {
	var req pendingActionRequest
	if err := bind(c, &req); err != nil {
		return nil
	}
	edge, err := s.followService.HandleRequest(c.UserContext(), currentUserID(c), req.ID, req.Action)
	if err != nil {
		return respondError(c, err)
	}
	if edge == nil {
		return c.JSON(fiber.Map{"message": "Follow request rejected successfully"})
	}
	return c.JSON(fiber.Map{"message": "Follow request approved successfully"})
}
