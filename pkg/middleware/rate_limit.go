package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	RequestsPerSecond int
	Burst             int
	// TTL is how long an idle client's limiter is remembered
	TTL time.Duration
}

// RateLimiter hands out one token bucket per client IP. Buckets of clients
// that went quiet expire from the cache on their own.
type RateLimiter struct {
	cfg      RateLimiterConfig
	mu       sync.Mutex
	visitors *ttlcache.Cache
}

func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.TTL == 0 {
		cfg.TTL = 3 * time.Minute
	}
	if cfg.Burst == 0 {
		cfg.Burst = cfg.RequestsPerSecond
	}

	visitors := ttlcache.NewCache()
	if err := visitors.SetTTL(cfg.TTL); err != nil {
		zap.L().Warn("Failed to set rate limiter TTL", zap.Error(err))
	}

	return &RateLimiter{cfg: cfg, visitors: visitors}
}

func (r *RateLimiter) limiter(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Hits extend the TTL, so only idle clients are evicted
	if v, err := r.visitors.Get(ip); err == nil {
		return v.(*rate.Limiter)
	}

	l := rate.NewLimiter(rate.Limit(r.cfg.RequestsPerSecond), r.cfg.Burst)
	if err := r.visitors.Set(ip, l); err != nil {
		zap.L().Warn("Failed to remember rate limiter", zap.Error(err), zap.String("ip", ip))
	}

	return l
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests",
			})
			return
		}

		c.Next()
	}
}

// Close stops the cache's expiry goroutine
func (r *RateLimiter) Close() error {
	return r.visitors.Close()
}
