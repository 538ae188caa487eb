package server

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"snapverse/internal/middleware"
	"snapverse/internal/models"
	"snapverse/internal/validation"
	"snapverse/internal/visibility"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// parsePage reads page and page_size. Out of range values fall back to the
// first page and are clamped to the configured maximum size.
func (s *Server) parsePage(c *fiber.Ctx, defaultSize int) models.Page {
	limit := maxPageSize
	if s.config != nil && s.config.MaxPageSize > 0 {
		limit = s.config.MaxPageSize
	}
	if defaultSize <= 0 {
		defaultSize = defaultPageSize
	}

	number := c.QueryInt("page", 1)
	if number < 1 {
		number = 1
	}
	size := c.QueryInt("page_size", defaultSize)
	if size <= 0 {
		size = defaultSize
	}
	if size > limit {
		size = limit
	}
	number = min(number, models.MaxPageNumber(size))
	return models.Page{Number: number, Size: size}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// bind parses the JSON body into dst and runs its validate tags.
// On failure it writes a 400 response and returns errResponseWritten.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	if err := validation.Struct(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, err)
		return errResponseWritten
	}
	return nil
}

// respondError writes err with the status its code maps to. Errors that
// carry no code are reported as internal.
func respondError(c *fiber.Ctx, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return c.Status(fiber.StatusGatewayTimeout).JSON(models.ErrorResponse{Error: "Request timeout"})
	}
	if models.ErrorCode(err) == "" {
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
			"path", c.Path(), "error", err.Error())
		err = models.NewInternalError(err)
	}
	return models.RespondWithError(c, models.StatusForError(err), err)
}

// viewer loads the caller's account so visibility rules see current staff
// flags. Anonymous callers get the zero Viewer.
func (s *Server) viewer(c *fiber.Ctx) (visibility.Viewer, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return visibility.Viewer{}, nil
	}
	user, err := s.userRepo.GetByID(c.UserContext(), userID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return visibility.Viewer{}, models.NewUnauthorizedError("Account no longer exists")
		}
		return visibility.Viewer{}, err
	}
	if !user.IsActive {
		return visibility.Viewer{}, models.NewUnauthorizedError("Account is disabled")
	}
	return visibility.ViewerOf(user), nil
}

// currentUserID returns the authenticated caller. Routes behind
// Authenticator.Required always have one.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := middleware.UserID(c)
	return id
}
