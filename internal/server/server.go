// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "handbook/docs" // swagger docs
	"handbook/internal/config"
	"handbook/internal/database"
	"handbook/internal/featureflags"
	"handbook/internal/middleware"
	"handbook/internal/models"
	"handbook/internal/realtime"
	"handbook/internal/repository"
	"handbook/internal/service"
	"handbook/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
)

const (
	apiName    = "Diaspora Handbook API"
	apiVersion = "1.0.0"
	bodyLimit  = 10 * 1024 * 1024
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          database.Store
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	featureFlags   *featureflags.Manager
	auth           *service.AuthService
	userService    *service.UserService
	feedService    *service.FeedService
	eventService   *service.EventService
	chatService    *service.ChatService
	hub            *realtime.Hub
	dispatcher     *realtime.Dispatcher
}

// NewServer creates a Server over already-initialized connections. The
// bootstrap layer owns opening the store and Redis; rdb may be nil.
func NewServer(cfg *config.Config, store database.Store, rdb *redis.Client) (*Server, error) {
	if store == nil {
		return nil, errors.New("server requires a store")
	}

	flags := featureflags.NewManager(cfg.FeatureFlags)

	userRepo := repository.NewUserRepository(store)
	postRepo := repository.NewPostRepository(store, flags)
	eventRepo := repository.NewEventRepository(store)
	chatRepo := repository.NewChatRepository(store, flags)

	auth := service.NewAuthService(cfg.JWTSecret)
	avatars := service.NewAvatarService(storage.New(cfg), cfg)

	s := &Server{
		config:         cfg,
		store:          store,
		redis:          rdb,
		promMiddleware: middleware.InitMetrics("handbook-api"),
		featureFlags:   flags,
		auth:           auth,
		userService:    service.NewUserService(userRepo, auth, avatars),
		feedService:    service.NewFeedService(postRepo),
		eventService:   service.NewEventService(eventRepo),
		chatService:    service.NewChatService(chatRepo, userRepo),
	}

	s.hub = realtime.NewHub(cfg.WSMaxConnections, realtime.NewNotifier(rdb))
	s.dispatcher = realtime.NewDispatcher(s.hub, s.chatService)
	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID, User ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers. Uploaded avatars are fetched cross-origin by the app.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(compress.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS must run before anything that can short-circuit so error
	// responses still carry the headers.
	origins := s.config.Origins()
	app.Use(originGuard(origins))
	corsConfig := cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400, // 24 hours
	}
	if origins == "" || origins == "*" {
		corsConfig.AllowOrigins = "*"
	} else {
		corsConfig.AllowCredentials = true
	}
	app.Use(cors.New(corsConfig))
}

// originGuard rejects browser requests from origins outside the allow-list.
// Requests without an Origin header (mobile clients, curl) always pass.
func originGuard(origins string) fiber.Handler {
	allowed := map[string]bool{}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" || allowed["*"] || allowed[origin] {
			return c.Next()
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "Forbidden",
			"message": "Origin not allowed by CORS policy",
		})
	}
}

// apiRateLimiter limits /api traffic per client. Redis-backed counters are
// shared between instances; without Redis each instance counts on its own.
func (s *Server) apiRateLimiter() fiber.Handler {
	limit := s.config.RateLimitPerMinute
	if limit <= 0 {
		limit = 1000
	}
	if s.redis != nil {
		return middleware.RateLimit(s.redis, limit, time.Minute, "api")
	}
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests from this IP, please try again later.",
			})
		},
	})
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/", s.Root)
	app.Get("/health", s.HealthCheck)
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static("/uploads", s.config.UploadDir)

	if !s.config.IsProduction() {
		app.Get("/swagger/*", swagger.HandlerDefault)
		app.Get("/api/metrics/dashboard", monitor.New(monitor.Config{
			Title: apiName + " Metrics",
		}))
	}

	// Websocket endpoints; /socket is kept for older app builds.
	app.Use("/ws", s.requireUpgrade)
	app.Get("/ws", s.WebSocketHandler())
	app.Use("/socket", s.requireUpgrade)
	app.Get("/socket", s.WebSocketHandler())

	api := app.Group("/api", s.apiRateLimiter())
	authRequired := middleware.AuthRequired(s.auth)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", s.Register)
	auth.Post("/login", s.Login)
	auth.Get("/me", authRequired, s.GetMe)
	auth.Get("/user/:id", s.GetUserProfile)
	auth.Put("/profile", authRequired, s.UpdateProfile)

	// Feed routes
	feed := api.Group("/feed")
	feed.Get("/", middleware.OptionalAuth(s.auth), s.GetFeed)
	feed.Post("/", authRequired, s.CreatePost)
	feed.Post("/:id/like", authRequired, s.ToggleLike)
	feed.Delete("/:id", authRequired, s.DeletePost)

	// Event routes
	events := api.Group("/events")
	events.Get("/", s.GetEvents)
	events.Post("/", s.CreateEvent)
	events.Get("/:id", s.GetEvent)
	events.Put("/:id", s.UpdateEvent)
	events.Delete("/:id", s.DeleteEvent)

	// Chat routes
	chat := api.Group("/chat")
	chat.Get("/channels", s.GetChannels)
	chat.Post("/channels", s.CreateChannel)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	chat.Get("/channels/:id/messages", s.GetMessages)
	chat.Post("/channels/:id/join", s.JoinChannel)
	chat.Post("/channels/:id/leave", s.LeaveChannel)
	chat.Get("/channels/:id", s.GetChannel)
	chat.Post("/users", s.ResolveChatUser)
	chat.Get("/users/:userId/channels", s.GetUserChannels)

	api.Get("/feature-flags", middleware.OptionalAuth(s.auth), s.GetFeatureFlags)

	app.Use(s.NotFound)
}

// App builds the fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      apiName,
		BodyLimit:    bodyLimit,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// Root describes the API.
func (s *Server) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":    apiName,
		"status":  "running",
		"version": apiVersion,
		"endpoints": fiber.Map{
			"health": "/health",
			"auth":   "/api/auth",
			"feed":   "/api/feed",
			"events": "/api/events",
			"chat":   "/api/chat",
		},
		"environment": s.config.Env,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheck reports that the process is serving requests.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "ok",
		"message":     apiName + " is running",
		"environment": s.config.Env,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so
// only an unreachable configured Redis makes the instance unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	realtimeStatus := "local"
	if s.hub.Subscribed() {
		realtimeStatus = "redis"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"version": apiVersion,
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"backend":  string(s.store.Dialect()),
			"redis":    redisStatus,
			"realtime": realtimeStatus,
		},
		"time": time.Now(),
	})
}

// NotFound answers every unmatched route.
func (s *Server) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":   "Not Found",
		"message": fmt.Sprintf("Cannot %s %s", c.Method(), c.Path()),
	})
}

// errorHandler catches errors that handlers return instead of writing.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return s.respondError(c, err)
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	// Subscribe before accepting connections; on failure the hub delivers
	// locally and keeps retrying.
	if err := s.hub.StartWiring(s.shutdownCtx); err != nil {
		middleware.Logger.Error("failed to start hub wiring",
			slog.String("hub", s.hub.Name()),
			slog.String("error", err.Error()))
	}

	middleware.Logger.Info("Server starting",
		slog.String("port", s.config.Port),
		slog.String("backend", string(s.store.Dialect())),
		slog.Bool("redis", s.redis != nil))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the Redis subscriber
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub",
			slog.String("hub", s.hub.Name()),
			slog.String("error", err.Error()))
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
