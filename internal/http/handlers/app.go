package handlers

import (
	"errors"
	"time"

	"stockroom/internal/config"
	applog "stockroom/internal/log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// RateWindow is the period API_RATE_LIMIT and AUTH_RATE_LIMIT apply to.
const RateWindow = 15 * time.Minute

// ErrorHandler hides internal failures behind a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return jsonErr(c, fe.Code, fe.Message)
	}
	applog.Error(c, "server.error", err, nil)
	return jsonErr(c, fiber.StatusInternalServerError, "Internal server error")
}

func rateLimit(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: RateWindow,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.limit.hit", nil)
			return jsonErr(c, fiber.StatusTooManyRequests, "Too many requests from this IP, please try again later.")
		},
	})
}

// NewApp builds the JSON API with its middleware and routes.
func NewApp(d *Deps, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "stockroom",
		BodyLimit:    1 << 20,
		ErrorHandler: ErrorHandler,
	})

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	// credentials cannot be combined with a wildcard origin
	origins := cfg.FrontendURL
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "stockroom",
		})
	})
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics))
	}

	authed := RequireUser(d.Auth)

	auth := app.Group("/api/auth", rateLimit(cfg.AuthRateLimit))
	auth.Post("/register", d.AuthHandler.Register)
	auth.Post("/login", d.AuthHandler.Login)
	auth.Get("/me", authed, d.AuthHandler.Me)
	auth.Put("/profile", authed, d.AuthHandler.UpdateProfile)
	auth.Post("/change-password", authed, d.AuthHandler.ChangePassword)

	inv := app.Group("/api/inventory", rateLimit(cfg.APIRateLimit), authed)
	inv.Get("/", d.InventoryHandler.List)
	inv.Get("/dashboard-summary", d.InventoryHandler.Summary)
	inv.Get("/low-stock", d.InventoryHandler.LowStock)
	inv.Get("/search", d.InventoryHandler.Search)
	inv.Get("/:id", d.InventoryHandler.Get)
	inv.Post("/", d.InventoryHandler.Create)
	inv.Put("/:id", d.InventoryHandler.Update)
	inv.Delete("/:id", d.InventoryHandler.Delete)

	ven := app.Group("/api/vendors", rateLimit(cfg.APIRateLimit), authed)
	ven.Get("/", d.VendorHandler.List)
	ven.Get("/search", d.VendorHandler.Search)
	ven.Get("/specialty/:specialty", d.VendorHandler.BySpecialty)
	ven.Get("/contact-history", d.VendorHandler.ContactHistory)
	ven.Post("/contact", d.VendorHandler.Contact)
	ven.Get("/:id", d.VendorHandler.Get)
	ven.Get("/:id/inventory", d.VendorHandler.Items)
	ven.Post("/:id/inventory", d.VendorHandler.LinkItem)
	ven.Post("/", d.VendorHandler.Create)
	ven.Put("/:id", d.VendorHandler.Update)
	ven.Delete("/:id", d.VendorHandler.Delete)

	notes := app.Group("/api/notifications", rateLimit(cfg.APIRateLimit), authed)
	notes.Get("/", d.NotificationHandler.List)
	notes.Get("/recent", d.NotificationHandler.Recent)
	notes.Get("/unread-count", d.NotificationHandler.UnreadCount)
	notes.Post("/", d.NotificationHandler.Create)
	notes.Post("/push", d.NotificationHandler.Push)
	notes.Patch("/read-all", d.NotificationHandler.MarkAllRead)
	notes.Patch("/:id/read", d.NotificationHandler.MarkRead)
	notes.Delete("/:id", d.NotificationHandler.Delete)

	app.Use(func(c *fiber.Ctx) error {
		return jsonErr(c, fiber.StatusNotFound, "Route not found")
	})
	return app
}
