// Package router wires every HTTP route to its handler and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/pmicianjur/pelantikan-api/internal/config"
	"github.com/pmicianjur/pelantikan-api/internal/handler"
	"github.com/pmicianjur/pelantikan-api/internal/middleware"
)

// Handlers bundles the constructed handlers the router mounts.
type Handlers struct {
	Land    *handler.LandHandler
	Draft   *handler.DraftHandler
	Payment *handler.PaymentHandler
	Webhook *handler.WebhookHandler
	Manual  *handler.ManualHandler
	Admin   *handler.AdminHandler
}

// Setup registers all routes on a new Echo instance.
//
// The public API carries the Redis rate limiter; the webhook is exempt
// so the gateway is never throttled into retry storms. The admin tree
// sits behind the session-cookie middleware, with the listing wrapped in
// the response cache.
func Setup(h Handlers, cache *middleware.Cache, rlCfg config.RateLimitConfig, rdb *redis.Client, sessionSecret string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORS())

	e.GET("/healthz", handler.Health)

	limited := e.Group("", middleware.RateLimit(rlCfg, rdb))
	limited.GET("/api/lahan", h.Land.List)

	limited.POST("/api/draft", h.Draft.Create)
	limited.GET("/api/draft/:id", h.Draft.Get)
	limited.PUT("/api/draft/:id", h.Draft.Update)
	limited.POST("/api/draft/:id/advance", h.Draft.Advance)
	limited.POST("/api/draft/:id/back", h.Draft.Back)
	limited.POST("/api/draft/:id/import", h.Draft.Import)
	limited.POST("/api/draft/:id/photos", h.Draft.UploadPhotos)
	limited.POST("/api/draft/:id/submit", h.Draft.Submit)

	limited.POST("/api/create-midtrans-transaction", h.Payment.CreateTransaction)
	limited.POST("/api/pendaftaran/manual", h.Manual.Create)

	e.POST("/api/midtrans-webhook", h.Webhook.Notify)

	e.POST("/api/admin/login", h.Admin.Login)
	admin := e.Group("/api/admin", middleware.AdminAuth(sessionSecret))
	admin.POST("/logout", h.Admin.Logout)
	admin.GET("/pendaftar", h.Admin.List, cache.Middleware())
	admin.GET("/pendaftar/:id", h.Admin.Detail)
	admin.POST("/pendaftar/:id/approve", h.Admin.Approve)
	admin.POST("/pendaftar/:id/revert", h.Admin.Revert)
	admin.GET("/pendaftar/:id/reject-link", h.Admin.RejectLink)

	return e
}
