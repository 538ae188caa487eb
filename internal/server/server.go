// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "snapverse/docs" // swagger docs
	"snapverse/internal/cache"
	"snapverse/internal/config"
	"snapverse/internal/bootstrap"
	"snapverse/internal/featureflags"
	"snapverse/internal/middleware"
	"snapverse/internal/models"
	"snapverse/internal/observability"
	"snapverse/internal/payment"
	"snapverse/internal/repository"
	"snapverse/internal/service"
	"snapverse/internal/visibility"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// flagRefreshInterval is how often runtime flag overrides are re-read from Redis.
const flagRefreshInterval = 30 * time.Second

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	auth         *middleware.Authenticator
	featureFlags *featureflags.Manager
	eval         *visibility.Evaluator

	userRepo     repository.UserRepository
	followRepo   repository.FollowRepository
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
	reactionRepo repository.ReactionRepository

	authService         *service.AuthService
	userService         *service.UserService
	followService       *service.FollowService
	postService         *service.PostService
	commentService      *service.CommentService
	reactionService     *service.ReactionService
	subscriptionService *service.SubscriptionService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	// Redis is optional; revocation, sessions and overrides degrade without it.
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{ScenarioPath: cfg.SeedScenario})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// Deps overrides collaborators that talk to the outside world.
type Deps struct {
	Gateway payment.Gateway
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, deps ...Deps) (*Server, error) {
	if err := observability.InstrumentGorm(db); err != nil {
		return nil, fmt.Errorf("instrument database: %w", err)
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: observability.InitMetrics("snapverse-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		userRepo:       repository.NewUserRepository(db),
		followRepo:     repository.NewFollowRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		reactionRepo:   repository.NewReactionRepository(db),
	}
	s.eval = visibility.NewEvaluator(visibility.Policy{StaffOverride: cfg.StaffOverride}, s.followRepo)

	var (
		revocations *cache.TokenRevocations
		sessions    payment.SessionStore
	)
	if redisClient != nil {
		revocations = cache.NewTokenRevocations(redisClient)
		sessions = payment.NewRedisSessions(redisClient)
		s.featureFlags.WithOverrides(redisClient)
		s.auth = middleware.NewAuthenticator(cfg, revocations)
		s.authService = service.NewAuthService(s.userRepo, s.auth, revocations)
	} else {
		s.auth = middleware.NewAuthenticator(cfg, nil)
		s.authService = service.NewAuthService(s.userRepo, s.auth, nil)
	}

	var gateway payment.Gateway = payment.NewSSLCommerz(cfg)
	for _, d := range deps {
		if d.Gateway != nil {
			gateway = d.Gateway
		}
	}

	s.userService = service.NewUserService(s.userRepo, s.followRepo)
	s.followService = service.NewFollowService(s.followRepo, s.userRepo)
	s.postService = service.NewPostService(s.postRepo, s.userRepo, s.eval)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo, s.eval)
	s.reactionService = service.NewReactionService(s.reactionRepo, s.postRepo, s.eval)
	s.subscriptionService = service.NewSubscriptionService(
		s.userRepo, gateway, sessions, s.featureFlags, cfg.BackendURL, cfg.FrontendURL,
	)
	s.subscriptionService.TrustTransactionIDs(cfg.Env == "development")

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Propagate request and trace IDs to the context-aware logger.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/", s.HealthCheck)
	api.Get("/swagger/*", swagger.HandlerDefault)

	required := s.auth.Required()
	optional := s.auth.Optional()

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", required, s.Logout)

	users := api.Group("/users")
	users.Get("/me", required, s.GetMyProfile)
	users.Put("/me", required, s.UpdateMyProfile)
	users.Get("/", optional, s.ListUsers)
	// Specific /:username/:resource routes before the generic /:username route.
	users.Get("/:username/posts", optional, s.GetUserPosts)
	users.Get("/:username/followers", optional, s.GetUserFollowers)
	users.Get("/:username/following", optional, s.GetUserFollowing)
	users.Get("/:username", optional, s.GetUserProfile)

	follows := api.Group("/follows", required)
	follows.Get("/", s.GetFollowStats)
	follows.Post("/follow", middleware.RateLimit(s.redis, 30, 5*time.Minute, "follow"), s.Follow)
	follows.Post("/unfollow", s.Unfollow)
	follows.Get("/following", s.GetMyFollowing)
	follows.Get("/followers", s.GetMyFollowers)
	follows.Delete("/followers/:id", s.RemoveFollower)
	follows.Get("/pending", s.GetPendingRequests)
	follows.Post("/pending", s.HandlePendingRequest)

	posts := api.Group("/posts")
	posts.Get("/", optional, s.ListPosts)
	posts.Post("/", required, middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Get("/feed", required, s.GetFeed)
	posts.Get("/mine", required, s.GetMyPosts)
	posts.Post("/:id/react", required, s.React)
	posts.Delete("/:id/react", required, s.RemoveReaction)
	posts.Get("/:id/reactions", optional, s.ListReactions)
	posts.Get("/:id/comments", optional, s.ListComments)
	posts.Post("/:id/comments", required, middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:id", optional, s.GetPost)
	posts.Put("/:id", required, s.UpdatePost)
	posts.Delete("/:id", required, s.DeletePost)

	comments := api.Group("/comments")
	comments.Get("/:id/replies", optional, s.ListReplies)
	comments.Post("/:id/replies", required, middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.CreateReply)
	comments.Get("/:id", optional, s.GetComment)
	comments.Put("/:id", required, s.UpdateComment)
	comments.Delete("/:id", required, s.DeleteComment)

	payments := api.Group("/payments")
	payments.Post("/initiate", required, s.InitiatePayment)
	payments.Get("/status", required, s.GetSubscriptionStatus)
	payments.Post("/success", s.PaymentSuccess)
	payments.Post("/fail", s.PaymentFail)
	payments.Post("/cancel", s.PaymentCancel)

	api.Get("/feature-flags", optional, s.GetFeatureFlags)

	admin := api.Group("/admin", required, s.StaffRequired())
	admin.Get("/metrics", monitor.New(monitor.Config{Title: "SnapVerse Backend Metrics"}))
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Put("/feature-flags/:name", s.SuperuserRequired(), s.SetFeatureFlag)
	admin.Delete("/feature-flags/:name", s.SuperuserRequired(), s.ClearFeatureFlag)
}

// HealthCheck is a simple alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so
// only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	} else if redisStatus != "healthy" {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// StaffRequired rejects callers that are not staff with 403.
// Must be placed after Authenticator.Required.
func (s *Server) StaffRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := s.viewer(c)
		if err != nil {
			return respondError(c, err)
		}
		if !v.IsStaff && !v.IsSuperuser {
			return respondError(c, models.NewNotAuthorizedError("Staff access required"))
		}
		return c.Next()
	}
}

// SuperuserRequired rejects callers that are not superusers with 403.
func (s *Server) SuperuserRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := s.viewer(c)
		if err != nil {
			return respondError(c, err)
		}
		if !v.IsSuperuser {
			return respondError(c, models.NewNotAuthorizedError("Superuser access required"))
		}
		return c.Next()
	}
}

// refreshFlags keeps runtime flag overrides in sync across instances.
func (s *Server) refreshFlags(ctx context.Context) {
	ticker := time.NewTicker(flagRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncFlags(ctx)
		}
	}
}

func (s *Server) syncFlags(ctx context.Context) {
	if err := s.featureFlags.Refresh(ctx); err != nil && ctx.Err() == nil {
		middleware.Logger.WarnContext(ctx, "feature flag refresh failed", slog.String("error", err.Error()))
	}
}

// App builds the Fiber app with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "SnapVerse API",
		BodyLimit: 4 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			return respondError(c, err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start serves until the listener closes. Flag overrides are polled while
// the server runs when Redis is available.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx, s.shutdownFn = ctx, cancel

	s.app = s.App()
	if s.redis != nil {
		s.syncFlags(ctx)
		go s.refreshFlags(ctx)
	}

	middleware.Logger.Info("server listening", slog.String("port", s.config.Port), slog.String("env", s.config.Env))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown drains HTTP connections, then closes the database and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http: %w", err))
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err == nil {
		middleware.Logger.Info("server stopped")
	}
	return err
}
