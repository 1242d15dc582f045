package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/shopcore/backend/internal/infrastructure/cache"
)

func newIdempotencyRouter(t *testing.T) (*gin.Engine, *cache.InMemoryIdempotencyStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	engine := gin.New()
	engine.Use(Idempotency(IdempotencyConfig{Store: store, TTL: time.Minute}))
	engine.POST("/orders", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"success": true})
	})
	engine.GET("/orders", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return engine, store
}

func TestIdempotency_FirstRequestPasses(t *testing.T) {
	engine, _ := newIdempotencyRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set(IdempotencyKeyHeader, "key-1")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestIdempotency_ReplayIsRejected(t *testing.T) {
	engine, _ := newIdempotencyRouter(t)

	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set(IdempotencyKeyHeader, "key-replay")
		engine.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "request %d", i+1)
	}
}

func TestIdempotency_MissingKeyPassesThrough(t *testing.T) {
	engine, _ := newIdempotencyRouter(t)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	}
}

func TestIdempotency_ReadsAreNotGuarded(t *testing.T) {
	engine, _ := newIdempotencyRouter(t)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set(IdempotencyKeyHeader, "key-read")
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestIdempotency_OversizedKeyRejected(t *testing.T) {
	engine, _ := newIdempotencyRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set(IdempotencyKeyHeader, strings.Repeat("k", MaxIdempotencyKeyLength+1))
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
