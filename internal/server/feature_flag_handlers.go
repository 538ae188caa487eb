package server

import (
	"snapverse/internal/middleware"
	"snapverse/internal/models"

	"github.com/gofiber/fiber/v2"
)

type featureFlagRequest struct {
	Value string `json:"value" validate:"required"`
}

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
// @Summary Feature flags
// @Tags flags
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(currentUserID(c)),
	})
}

// SetFeatureFlag handles PUT /api/admin/feature-flags/:name
// @Summary Override a feature flag
// @Description Accepts on, off or a rollout percentage such as 25%
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param name path string true "Flag name"
// @Param request body featureFlagRequest true "Value"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/feature-flags/{name} [put]
func (s *Server) SetFeatureFlag(c *fiber.Ctx) error {
	var req featureFlagRequest
	if err := bind(c, &req); err != nil {
		return nil
	}
	name := c.Params("name")
	if err := s.featureFlags.Set(c.UserContext(), name, req.Value); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	middleware.Logger.InfoContext(c.UserContext(), "feature flag overridden",
		"flag", name, "value", req.Value, "by", currentUserID(c))
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(currentUserID(c)),
	})
}

// ClearFeatureFlag handles DELETE /api/admin/feature-flags/:name
// @Summary Drop a feature flag override
// @Tags admin
// @Security BearerAuth
// @Param name path string true "Flag name"
// @Success 204
// @Router /admin/feature-flags/{name} [delete]
func (s *Server) ClearFeatureFlag(c *fiber.Ctx) error {
	if err := s.featureFlags.Clear(c.UserContext(), c.Params("name")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
