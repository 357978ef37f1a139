package app

import (
	"time"

	"bitwise74/auth-api/app/auth"
	"bitwise74/auth-api/app/root"
	"bitwise74/auth-api/internal"
	"bitwise74/auth-api/pkg/middleware"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxBodySize = 1 << 20

// NewRouter wires every route. The returned function releases what the
// middleware holds on to and should be called on shutdown.
func NewRouter(d *internal.Deps, tokens middleware.TokenParser) (*gin.Engine, func()) {
	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     d.Config.Host.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		ginzap.RecoveryWithZap(zap.L(), true),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	store := persist.NewMemoryStore(time.Minute)

	jwt := middleware.NewJWTMiddleware(tokens)
	turnstile := middleware.NewTurnstileMiddleware(&d.Config.Security.Turnstile, middleware.TurnstileVerifyURL)
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: d.Config.Security.RateLimit,
		Burst:             d.Config.Security.RateLimit * 2,
	})

	// GET /metrics			-> Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	m := router.Group("/api", rateLimiter.Middleware(), middleware.BodySizeLimiter(maxBodySize))
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// GET /api/health		-> Checks that the database is reachable
		m.GET("/health", cache.CacheByRequestURI(store, 5*time.Second), func(c *gin.Context) { root.Health(c, d) })
	}

	a := m.Group("/auth")
	{
		// POST /api/auth/register		-> Registers a new user and logs them in
		a.POST("/register", turnstile, func(c *gin.Context) { auth.Register(c, d) })

		// POST /api/auth/login			-> Logs in a user and returns a JWT token
		a.POST("/login", func(c *gin.Context) { auth.Login(c, d) })

		// POST /api/auth/forgot-password	-> Mails a password reset link
		a.POST("/forgot-password", turnstile, func(c *gin.Context) { auth.ForgotPassword(c, d) })

		// POST /api/auth/verify-reset-token	-> Checks a reset token before the form is shown
		a.POST("/verify-reset-token", func(c *gin.Context) { auth.VerifyResetToken(c, d) })

		// POST /api/auth/reset-password	-> Sets a new password using a reset token
		a.POST("/reset-password", func(c *gin.Context) { auth.ResetPassword(c, d) })

		// GET /api/auth/me			-> Returns the profile of the logged in user
		a.GET("/me", jwt, func(c *gin.Context) { auth.Me(c, d) })
	}

	return router, func() { rateLimiter.Close() }
}
