package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/cache"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/logging"
)

const apiKeyHeader = "X-API-Key"

// APIKeyAuth requires the X-API-Key header to match expected.
func APIKeyAuth(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(apiKeyHeader)
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Missing API key. Provide X-API-Key header.",
			})
			return
		}
		if len(apiKey) < 16 || subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid API key.",
			})
			return
		}
		c.Next()
	}
}

// CORS allows the configured origins to call the API. With no origins
// configured cross-origin requests get no CORS headers.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	if len(allowedOrigins) == 0 {
		return func(c *gin.Context) { c.Next() }
	}
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", apiKeyHeader},
		ExposeHeaders: []string{"Content-Disposition", cacheHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
		}
	}
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = allowedOrigins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// RequestLogger logs method, path, status and latency of every request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	logger = logging.OrNop(logger)
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("bytes", c.Writer.Size()),
		}
		switch {
		case status >= 500:
			logger.Error("request", append(fields, zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()))...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// RateLimit allows maxRequests per client in each window. Clients are
// identified by API key, falling back to the client IP. Cache errors let the
// request through.
func RateLimit(c cache.ScriptCache, maxRequests int64, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	logger = logging.OrNop(logger)
	return func(ctx *gin.Context) {
		id := strings.TrimPrefix(ctx.GetHeader(apiKeyHeader), "Bearer ")
		if id == "" {
			id = ctx.ClientIP()
		}
		if len(id) > 16 {
			id = id[:16]
		}

		allowed, err := c.RateLimitCheck(ctx.Request.Context(), id, maxRequests, window)
		if err != nil {
			logger.Warn("rate limit check failed", zap.Error(err))
			ctx.Next()
			return
		}
		if !allowed {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please slow down.",
			})
			return
		}
		ctx.Next()
	}
}
