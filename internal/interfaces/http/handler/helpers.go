package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// parseLimit reads the limit query parameter. Missing limits fall back to
// the default; oversized limits are capped rather than rejected.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultPageLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, false
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return limit, true
}

// parseTimeQuery reads an RFC 3339 timestamp query parameter, returning the
// fallback when the parameter is absent.
func parseTimeQuery(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
