// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, webhook authentication, and rate limiting.
//
// The surface splits in two:
//   - POST /webhook/telegram: the bot's inbound path, gated by the webhook
//     secret header rather than the rate limiter (Telegram retries on 429).
//   - the admin API under cfg.APIBasePath: manager-facing reads, gzipped
//     and rate limited.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/Schankelqt/meetings-dify-bot/internal/config"
	"github.com/Schankelqt/meetings-dify-bot/internal/http/handlers"
	"github.com/Schankelqt/meetings-dify-bot/internal/http/middleware"
	"github.com/Schankelqt/meetings-dify-bot/internal/services"
)

// Deps carries the collaborators the routes need. DB may be nil when the
// relational store is disabled; the summaries listing then responds 503 and
// webhook dedup is skipped.
type Deps struct {
	DB       *gorm.DB
	Teams    *config.Teams
	Reports  *services.ReportService
	Digest   *services.DigestService
	Notifier handlers.Notifier
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and security headers
//
// The webhook secret check and the rate limiter are per-group, not global.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())

	// Telegram caps message payloads well below this.
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// CORS posture for the admin API (allow all when none configured).
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(deps.Reports, deps.Digest, deps.Notifier, deps.DB, cfg.UpdateDedupTTL)

	// Inbound bot path: authenticated by the webhook secret header.
	r.POST("/webhook/telegram", middleware.WebhookAuth(cfg.Telegram.WebhookSecret), h.Webhook)

	// Admin API: rate limited per client IP, responses gzipped.
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst)
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(rl.Handler(), gzip.Gzip(gzip.DefaultCompression))
	{
		api.GET("/teams/:id/report", h.TeamReport(deps.Teams))
		api.GET("/summaries/recent", h.RecentSummaries)
	}
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader; reads beyond the cap error downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
