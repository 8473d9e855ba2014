package logger

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MiddlewareConfig controls request logging.
type MiddlewareConfig struct {
	// SkipPaths are routes excluded from access logs (health probes).
	SkipPaths []string
}

// GinMiddleware assigns a request id and writes one access-log line per
// request with sensitive headers masked.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-Id", requestID)

		c.Next()

		if _, ok := skip[c.Request.URL.Path]; ok {
			return
		}
		log := FromContext(c.Request.Context())
		log.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
		if log.Core().Enabled(zap.DebugLevel) {
			log.Debug("http request headers",
				zap.String("request_id", requestID),
				zap.Any("headers", MaskHeaders(c.Request.Header)),
			)
		}
	}
}
