package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shopcore/backend/internal/domain/shared"
)

// IdempotencyKeyHeader is the header carrying the client's replay key
const IdempotencyKeyHeader = "Idempotency-Key"

// MaxIdempotencyKeyLength bounds the accepted key size
const MaxIdempotencyKeyLength = 128

// IdempotencyConfig configures the replay protection middleware
type IdempotencyConfig struct {
	Store  shared.IdempotencyStore
	TTL    time.Duration
	Logger *zap.Logger
}

// Idempotency rejects replays of mutating requests that carry an
// Idempotency-Key header. Requests without the header pass through
// untouched; only POST, PUT and PATCH are guarded.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_BAD_REQUEST",
					"message": "Idempotency key exceeds maximum length",
				},
			})
			return
		}

		fresh, err := cfg.Store.MarkProcessed(c.Request.Context(), key, ttl)
		if err != nil {
			// A broken store must not take the write path down
			logger.Warn("idempotency store unavailable, skipping replay check",
				zap.Error(err))
			c.Next()
			return
		}
		if !fresh {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_DUPLICATE_REQUEST",
					"message": "A request with this idempotency key was already processed",
				},
			})
			return
		}

		c.Next()
	}
}
