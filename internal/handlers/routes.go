package handlers

import (
	"errors"

	"github.com/arcade/backend/internal/config"
	"github.com/arcade/backend/internal/middleware"
	"github.com/arcade/backend/internal/services"
	"github.com/arcade/backend/pkg/logger"
	"github.com/arcade/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

const messageRouteNotFound = "Not found"

type Dependencies struct {
	Users     *services.UserService
	Demos     *services.DemoService
	Storage   ObjectStorage
	Tokens    *utils.TokenManager
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
}

// NewApp builds the fiber app with the shared middleware chain. Routes are
// added separately by RegisterRoutes.
func NewApp(cfg config.ServerConfig) *fiber.App {
	bodyLimitMB := cfg.BodyLimitMB
	if bodyLimitMB <= 0 {
		bodyLimitMB = 20
	}

	app := fiber.New(fiber.Config{
		BodyLimit:             bodyLimitMB * 1024 * 1024,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.FrontendURL))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())
	return app
}

func RegisterRoutes(app *fiber.App, deps Dependencies) {
	authMiddleware := middleware.NewAuthMiddleware(deps.Tokens)
	authHandler := NewAuthHandler(deps.Users, deps.Tokens)
	demosHandler := NewDemosHandler(deps.Demos)
	uploadsHandler := NewUploadsHandler(deps.Storage)

	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return utils.Success(c, fiber.StatusOK, fiber.Map{"status": "ok"})
	})

	authLimit := middleware.RateLimit(deps.Redis, "auth", deps.RateLimit.AuthMax, deps.RateLimit.AuthWindow)
	authRoutes := api.Group("/auth")
	authRoutes.Post("/signup", authLimit, authHandler.Signup)
	authRoutes.Post("/login", authLimit, authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	api.Get("/public/demos/:id", demosHandler.PublicGet)

	demoRoutes := api.Group("/demos", authMiddleware.RequireAuth)
	demoRoutes.Post("/", demosHandler.Create)
	demoRoutes.Get("/", demosHandler.List)
	demoRoutes.Get("/:id", demosHandler.Get)
	demoRoutes.Put("/:id", demosHandler.Update)
	demoRoutes.Delete("/:id", demosHandler.Delete)

	api.Post("/upload-image", authMiddleware.RequireAuth, uploadsHandler.UploadImage)
	api.Get("/upload-image-url", authMiddleware.RequireAuth, uploadsHandler.UploadImageURL)
	api.Get("/download-url/*", authMiddleware.RequireAuth, uploadsHandler.DownloadURL)
	api.Post("/upload-demo", authMiddleware.RequireAuth, uploadsHandler.UploadDemo)
}

// errorHandler keeps the {"message": ...} shape for errors raised outside the
// handlers: unknown routes, body limits and recovered panics.
func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := utils.MessageInternalError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
		switch {
		case status == fiber.StatusNotFound:
			message = messageRouteNotFound
		case status < fiber.StatusInternalServerError:
			message = fiberErr.Message
		}
	}

	if status >= fiber.StatusInternalServerError {
		logger.Error("unhandled_error", err, map[string]interface{}{
			"method":     c.Method(),
			"path":       c.Path(),
			"request_id": logger.GetRequestID(c),
		})
	}

	return utils.Error(c, status, message)
}
