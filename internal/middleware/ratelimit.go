package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/clinic-api/internal/cache"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
)

// RateLimit allows limit requests per client IP and window for the routes
// it guards. A failing store lets the request through.
func RateLimit(store cache.Store, name string, limit int, window time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		key := cache.PrefixRateLimit + name + ":" + c.ClientIP()
		n, err := store.Incr(c.Request.Context(), key, window)
		if err != nil {
			log.Warn().Err(err).Str("limiter", name).Msg("rate limit store unavailable")
			c.Next()
			return
		}

		if n > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			httperr.TooManyRequests(c)
			return
		}
		c.Next()
	}
}
