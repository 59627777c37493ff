// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, session authentication, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tenwords/go-words-backend/internal/auth"
	"github.com/tenwords/go-words-backend/internal/config"
	"github.com/tenwords/go-words-backend/internal/domain"
	"github.com/tenwords/go-words-backend/internal/http/handlers"
	"github.com/tenwords/go-words-backend/internal/http/middleware"
	"github.com/tenwords/go-words-backend/internal/mail"
	"github.com/tenwords/go-words-backend/internal/repo"
	"github.com/tenwords/go-words-backend/internal/services"
)

// wordRepoShim adapts the repository free functions to the services.WordRepo
// interface expected by the WordService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type wordRepoShim struct{}

// FindNormalized proxies repo.FindNormalized.
func (wordRepoShim) FindNormalized(ctx context.Context, db *gorm.DB, norms []string) ([]string, error) {
	return repo.FindNormalized(ctx, db, norms)
}

// InsertWordsOrdered proxies repo.InsertWordsOrdered.
func (wordRepoShim) InsertWordsOrdered(ctx context.Context, db *gorm.DB, userID string, texts, norms []string) ([]domain.Word, error) {
	return repo.InsertWordsOrdered(ctx, db, userID, texts, norms)
}

// ListWords proxies repo.ListWords.
func (wordRepoShim) ListWords(ctx context.Context, db *gorm.DB, f repo.WordFilter) ([]repo.WordRow, error) {
	return repo.ListWords(ctx, db, f)
}

// WordsStats proxies repo.WordsStats.
func (wordRepoShim) WordsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return repo.WordsStats(ctx, db, userID)
}

// EnsureNormalizedIndex proxies repo.EnsureNormalizedIndex.
func (wordRepoShim) EnsureNormalizedIndex(db *gorm.DB) error {
	return repo.EnsureNormalizedIndex(db)
}

// userRepoShim adapts the user repository free functions to
// services.UserRepo.
type userRepoShim struct{}

// CreateUser proxies repo.CreateUser.
func (userRepoShim) CreateUser(ctx context.Context, db *gorm.DB, email, displayName, passwordHash, verifyToken string) (*domain.User, error) {
	return repo.CreateUser(ctx, db, email, displayName, passwordHash, verifyToken)
}

// GetUserByEmail proxies repo.GetUserByEmail.
func (userRepoShim) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return repo.GetUserByEmail(ctx, db, email)
}

// GetUserByID proxies repo.GetUserByID.
func (userRepoShim) GetUserByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.GetUserByID(ctx, db, id)
}

// MarkUserVerified proxies repo.MarkUserVerified.
func (userRepoShim) MarkUserVerified(ctx context.Context, db *gorm.DB, verifyToken string) error {
	return repo.MarkUserVerified(ctx, db, verifyToken)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts
// the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip response compression
//  7. Metrics
//  8. Session auth resolution (identity available to the rate limiter)
//  9. Rate limiter (per user/IP)
//  10. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, mailer mail.Mailer, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	tokens := auth.NewTokenCodec(cfg.Session.Secret)

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction: Cookie and Authorization are
	// masked by default and the verification `token` query parameter is
	// scrubbed, so neither session nor verification credentials reach logs
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (64 KiB is plenty for ten words)
	r.Use(limitBody(64 << 10))

	// 6) Compress JSON responses (the global word listing benefits most)
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Resolve the session identity early so rate limiting keys by user
	//    where possible (enforcement happens per-route below).
	r.Use(middleware.SessionAuth(middleware.AuthOptions{
		CookieName: cfg.Session.CookieName,
		Verifier:   tokens,
		Required:   false,
	}))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: true, // cookie-based sessions need credentials
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
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

	// Dependency injection: services ← repo/db/mailer
	wordSvc := services.NewWordService(db, wordRepoShim{})
	wordSvc.MaxListResults = cfg.MaxListResults

	accountSvc := &services.AccountService{
		DB:            db,
		Repo:          userRepoShim{},
		Mailer:        mailer,
		Tokens:        tokens,
		SessionTTL:    cfg.Session.TTL,
		VerifyBaseURL: cfg.AppBaseURL + cfg.APIBasePath + "/auth/verify",
	}

	h := handlers.New(accountSvc, wordSvc, handlers.SessionCookie{
		Name:   cfg.Session.CookieName,
		TTL:    cfg.Session.TTL,
		Secure: cfg.Session.CookieSecure,
	})

	requireLogin := middleware.SessionAuth(middleware.AuthOptions{
		CookieName: cfg.Session.CookieName,
		Verifier:   tokens,
		Required:   true,
	})

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Accounts
		api.POST("/auth/register", h.Register)
		api.GET("/auth/verify", h.VerifyEmail)
		api.POST("/auth/login", h.Login)
		api.POST("/auth/logout", h.Logout)
		api.GET("/auth/me", requireLogin, h.Me)

		// Words
		api.POST("/words", requireLogin, h.SubmitWords)
		api.POST("/words/validate", requireLogin, h.ValidateWords)
		api.GET("/words", requireLogin, h.ListWords)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
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
