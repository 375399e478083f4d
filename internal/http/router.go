// README: Route table; wires middleware and handlers onto the gin engine.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spotly/internal/http/handlers"
	"spotly/internal/http/middleware"
	"spotly/internal/ratelimit"
)

type RouterConfig struct {
	Debug   bool
	Limiter *ratelimit.Limiter
}

func NewRouter(
	cfg RouterConfig,
	sessions *handlers.SessionHandler,
	bookings *handlers.BookingHandler,
	spots *handlers.SpotHandler,
	webhooks *handlers.WebhookHandler,
	log *zap.Logger,
) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Logging(log), middleware.Recovery(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// gateway deliveries authenticate by signature, not by user identity
	r.POST("/api/webhooks/payments", webhooks.HandlePayment)

	api := r.Group("/api", middleware.Auth())

	limited := func(op string) gin.HandlerFunc {
		return middleware.RateLimit(cfg.Limiter, op, log)
	}

	api.POST("/ondemand/prepare", limited("ondemand.prepare"), sessions.Prepare)
	api.POST("/ondemand/start", limited("ondemand.start"), sessions.Start)
	api.POST("/ondemand/:id/stop", limited("ondemand.stop"), sessions.Stop)
	api.GET("/ondemand/:id/summary", sessions.Summary)

	api.POST("/bookings", bookings.Reserve)
	api.GET("/bookings/:id", bookings.Get)
	api.POST("/bookings/:id/cancel", bookings.Cancel)

	api.POST("/spots", spots.Register)
	api.GET("/spots", spots.List)
	api.GET("/spots/:id", spots.Get)

	return r
}
