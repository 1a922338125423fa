// Package server wires the HTTP routes, middleware and page handlers.
package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"pinboard/internal/cache"
	"pinboard/internal/config"
	"pinboard/internal/database"
	"pinboard/internal/middleware"
	"pinboard/internal/models"
	"pinboard/internal/repository"
	"pinboard/internal/service"
	"pinboard/internal/session"
	"pinboard/internal/storage"
	"pinboard/internal/views"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *session.Manager
	uploads        *storage.Disk
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	userService    *service.UserService
	postService    *service.PostService
}

// NewServer connects to the database and Redis and builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; the app then runs without cache, rate limiting or
// session revocation.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	uploads, err := storage.NewDisk(cfg.UploadDir, cfg.UploadMaxBytes())
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("pinboard"),
		sessions:       session.NewManager(cfg.JWTSecret, cfg.SessionTTL(), cfg.CookieSecure, redisClient),
		uploads:        uploads,
		userRepo:       userRepo,
		postRepo:       postRepo,
		userService:    service.NewUserService(userRepo),
		postService:    service.NewPostService(postRepo),
	}, nil
}

// NewApp builds the fiber app with views, middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Pinboard",
		Views:        views.NewEngine(),
		ViewsLayout:  views.Layout,
		ErrorHandler: s.errorHandler,
		BodyLimit:    int(s.config.UploadMaxBytes()) + 1024*1024,
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware installs the global middleware chain.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestTracing("/stylesheets", "/metrics", "/health"))
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	app.Use(middleware.StructuredLogger())

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics" || c.Path() == "/health/live" || c.Path() == "/health/ready"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later.")
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static(views.UploadsPath, s.uploads.Dir())
	app.Use("/stylesheets", filesystem.New(filesystem.Config{
		Root:       views.Static(),
		PathPrefix: "stylesheets",
	}))

	// Public pages
	app.Get("/", s.ShowLanding)
	app.Get("/register", s.ShowRegister)
	app.Post("/register", s.rateLimit("register", 3, 10*time.Minute), s.Register)
	app.Post("/login", s.rateLimit("login", 10, 5*time.Minute), s.Login)
	app.Get("/logout", s.Logout)

	// Everything below requires a session
	guard := s.RequireSession()

	app.Get("/change-password", guard, s.ShowChangePassword)
	app.Post("/change-password", guard, s.ChangePassword)

	app.Get("/profile", guard, s.ShowProfile)
	app.Get("/edit", guard, s.ShowEditProfile)
	app.Post("/changedetail", guard, s.ChangeDetail)
	app.Post("/fileupload", guard, s.AcceptUpload("image"), s.UploadProfileImage)

	app.Get("/show/posts", guard, s.ShowPosts)
	app.Get("/show/post/:cardId", guard, s.ShowPost)
	app.Get("/feed", guard, s.ShowFeed)
	app.Get("/add", guard, s.ShowAddPost)
	app.Post("/createpost", guard, s.rateLimit("create_post", 10, time.Minute), s.AcceptUpload("post-image"), s.CreatePost)
	app.Get("/editpost/:cardId", guard, s.ShowEditPost)
	app.Post("/changepostdetail/:cardId", guard, s.ChangePostDetail)
	app.Get("/delete/:cardid", guard, s.DeletePost)
}

func (s *Server) rateLimit(resource string, limit int, window time.Duration) fiber.Handler {
	return middleware.RateLimit(s.redis, limit, window, resource, func(c *fiber.Ctx) string {
		if p := principalFrom(c); p != nil {
			return "user:" + strconv.FormatUint(uint64(p.UserID), 10)
		}
		return ""
	})
}

// errorHandler renders the error page for anything a handler did not
// handle itself.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := models.StatusCode(err)
	message := models.PublicMessage(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"path", c.Path(), "status", status, "error", err.Error())
	}

	c.Status(status)
	renderErr := c.Render("error", fiber.Map{
		"title":   "Error",
		"nav":     principalFrom(c) != nil,
		"status":  status,
		"message": message,
	})
	if renderErr != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "error page render failed", "error", renderErr.Error())
		return c.Status(status).SendString(message)
	}
	return nil
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	app := s.NewApp()
	middleware.Logger.Info("Server starting", "port", s.config.Port, "env", s.config.Env)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err.Error())
		}
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing sql DB", "error", err.Error())
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", "error", err.Error())
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}

// LivenessCheck reports that the process is serving requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Only the database is
// required; the app degrades without Redis.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus != "healthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}
