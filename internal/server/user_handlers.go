package server

import (
	"strings"

	"snapverse/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateProfileRequest struct {
	FirstName          *string `json:"first_name"`
	LastName           *string `json:"last_name"`
	Bio                *string `json:"bio"`
	Location           *string `json:"location"`
	PhoneNumber        *string `json:"phone_number"`
	DateOfBirth        *string `json:"date_of_birth"`
	Gender             *string `json:"gender"`
	RelationshipStatus *string `json:"relationship_status"`
	ProfilePicture     *string `json:"profile_picture"`
	CoverPhoto         *string `json:"cover_photo"`
	IsPrivate          *bool   `json:"is_private"`
}

func (s *Server) userPageSize() int {
	if s.config == nil {
		return 0
	}
	return s.config.UserPageSize
}

func (s *Server) followPageSize() int {
	if s.config == nil {
		return 0
	}
	return s.config.FollowPageSize
}

// GetMyProfile handles GET /api/users/me
// @Summary Current user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} service.UserProfile
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.userService.Me(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Update profile
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body updateProfileRequest true "Fields to change"
// @Success 200 {object} service.UserProfile
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := bind(c, &req); err != nil {
		return nil
	}

	profile, err := s.userService.UpdateProfile(c.UserContext(), currentUserID(c), service.UpdateProfileInput{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Bio:                req.Bio,
		Location:           req.Location,
		PhoneNumber:        req.PhoneNumber,
		DateOfBirth:        req.DateOfBirth,
		Gender:             req.Gender,
		RelationshipStatus: req.RelationshipStatus,
		ProfilePicture:     req.ProfilePicture,
		CoverPhoto:         req.CoverPhoto,
		IsPrivate:          req.IsPrivate,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// ListUsers handles GET /api/users?search=
// @Summary List users
// @Description Search by username, first or last name
// @Tags users
// @Produce json
// @Param search query string false "Search term"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} models.PageResult[service.UserListItem]
// @Router /users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	search := strings.TrimSpace(c.Query("search"))
	if search != "" && !s.featureFlags.Enabled("user_search", currentUserID(c)) {
		search = ""
	}
	res, err := s.userService.ListUsers(c.UserContext(), currentUserID(c), search, s.parsePage(c, s.userPageSize()))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetUserProfile handles GET /api/users/:username
// @Summary User profile
// @Description Includes the caller's follow status towards the account
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} service.UserProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	profile, err := s.userService.GetProfile(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// GetUserPosts handles GET /api/users/:username/posts
// @Summary User posts
// @Description Posts of a private account are only listed to its approved followers
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.PageResult[models.Post]
// @Failure 403 {object} models.ErrorResponse
// @Router /users/{username}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	v, err := s.viewer(c)
	if err != nil {
		return respondError(c, err)
	}
	res, err := s.postService.UserPosts(c.UserContext(), v, c.Params("username"), s.parsePage(c, s.postPageSize()))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetUserFollowers handles GET /api/users/:username/followers
// @Summary Followers of a user
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.PageResult[service.UserListItem]
// @Router /users/{username}/followers [get]
func (s *Server) GetUserFollowers(c *fiber.Ctx) error {
	res, err := s.userService.Followers(c.UserContext(), currentUserID(c), c.Params("username"), s.parsePage(c, s.followPageSize()))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetUserFollowing handles GET /api/users/:username/following
// @Summary Accounts a user follows
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.PageResult[service.UserListItem]
// @Router /users/{username}/following [get]
func (s *Server) GetUserFollowing(c *fiber.Ctx) error {
	res, err := s.userService.Following(c.UserContext(), currentUserID(c), c.Params("username"), s.parsePage(c, s.followPageSize()))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}
