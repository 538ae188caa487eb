package middleware

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"snapverse/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Logger is the process-wide structured logger.
var Logger *slog.Logger

// logScope carries per-request identifiers to every log call made with the
// request context. Auth fills in userID after the scope is created.
type logScope struct {
	requestID string
	traceID   string
	userID    uint
}

type scopeKey struct{}

func scopeFrom(ctx context.Context) *logScope {
	s, _ := ctx.Value(scopeKey{}).(*logScope)
	return s
}

// WithUserID tags ctx's log scope with the authenticated user.
func WithUserID(ctx context.Context, uid uint) context.Context {
	if s := scopeFrom(ctx); s != nil {
		s.userID = uid
		return ctx
	}
	return context.WithValue(ctx, scopeKey{}, &logScope{userID: uid})
}

type scopeHandler struct {
	slog.Handler
}

func (h scopeHandler) Handle(ctx context.Context, r slog.Record) error {
	if s := scopeFrom(ctx); s != nil {
		if s.requestID != "" {
			r.AddAttrs(slog.String("request_id", s.requestID))
		}
		if s.traceID != "" {
			r.AddAttrs(slog.String("trace_id", s.traceID))
		}
		if s.userID != 0 {
			r.AddAttrs(slog.Uint64("user_id", uint64(s.userID)))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h scopeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return scopeHandler{h.Handler.WithAttrs(attrs)}
}

func (h scopeHandler) WithGroup(name string) slog.Handler {
	return scopeHandler{h.Handler.WithGroup(name)}
}

func init() {
	ConfigureLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
}

// ConfigureLogger rebuilds Logger: JSON in production, text elsewhere.
func ConfigureLogger(env, level string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var base slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if env == "production" || env == "prod" {
		base = slog.NewJSONHandler(os.Stdout, opts)
	}

	Logger = slog.New(scopeHandler{base})
	observability.SetLogger(Logger)
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	switch s := strings.ToLower(strings.TrimSpace(level)); s {
	case "warning":
		return slog.LevelWarn
	case "":
		return slog.LevelInfo
	default:
		if err := l.UnmarshalText([]byte(s)); err != nil {
			return slog.LevelInfo
		}
		return l
	}
}

// ContextMiddleware opens the log scope for the request. It must run after
// requestid and TracingMiddleware.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := &logScope{}
		s.requestID, _ = c.Locals("requestid").(string)
		s.traceID, _ = c.Locals("traceID").(string)
		s.userID, _ = c.Locals(LocalUserID).(uint)
		c.SetUserContext(context.WithValue(c.UserContext(), scopeKey{}, s))
		return c.Next()
	}
}

// StructuredLogger writes one access log line per request. Server errors log
// at error level, client errors at warn and health probes at debug.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}

		level := slog.LevelInfo
		switch {
		case err != nil:
			level = slog.LevelError
			attrs = append(attrs, slog.String("error", err.Error()))
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		case strings.HasPrefix(c.Path(), "/health"):
			level = slog.LevelDebug
		}
		Logger.LogAttrs(c.UserContext(), level, "request", attrs...)
		return err
	}
}
