package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applog "detaltap/internal/log"
)

// NewApp builds the HTTP surface: webhook, admin, media, health and metrics.
func NewApp(d *Deps, views fiber.Views) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:                 views,
		DisableStartupMessage: true,
		BodyLimit:             4 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok && fe.Code < 500 {
				code = fe.Code
			} else {
				applog.Error(c.UserContext(), "server.error", err, map[string]any{"path": c.Path()})
			}
			if rerr := c.Status(code).Render("notfound", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(code).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})

	app.Use(requestid.New())
	app.Use(func(c *fiber.Ctx) error {
		if rid, ok := c.Locals("requestid").(string); ok {
			c.SetUserContext(applog.WithRequestID(c.UserContext(), rid))
		}
		return c.Next()
	})
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			// Telegram delivers from a small address pool; per-user throttling happens in the engine.
			return p == "/telegram/webhook" || strings.HasPrefix(p, "/media/") || p == "/healthz"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c.UserContext(), "rate.http.hit", map[string]any{"ip": c.IP(), "path": c.Path()})
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	app.Post("/telegram/webhook", d.Webhook.Receive)

	api := app.Group("/api/v1")
	searchLimiter := limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|search"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c.UserContext(), "rate.search.hit", map[string]any{"ip": c.IP()})
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})
	api.Get("/search", searchLimiter, d.Search.Search)
	api.Get("/listings/:id", d.Search.Detail)

	app.Get("/media/thumbs/:ref", d.Media.Thumb)
	app.Get("/media/:ref", d.Media.Photo)

	admin := app.Group("/admin", RequireAdminKey(d.AdminKeyHash))
	admin.Get("/", d.Admin.Dashboard)
	adminAPI := admin.Group("/api")
	adminAPI.Get("/listings", d.Admin.ListListings)
	adminAPI.Delete("/listings/:id", d.Admin.DeleteListing)
	adminAPI.Get("/bans", d.Admin.ListBans)
	adminAPI.Post("/bans", d.Admin.Ban)
	adminAPI.Delete("/bans/:userID", d.Admin.Unban)
	adminAPI.Get("/stats", d.Admin.Stats)

	app.Use(func(c *fiber.Ctx) error {
		return notFound(c, fiber.StatusNotFound, "Page not found")
	})
	return app
}
