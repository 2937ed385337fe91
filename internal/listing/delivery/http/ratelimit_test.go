package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/farm-marketplace/internal/auth"
	"github.com/tair/farm-marketplace/internal/listing/domain"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, Response{Success: true})
}

func TestRateLimiter_FailsOpenWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	rl := NewRateLimiter(client, "test", 1, time.Minute)
	h := rl.Middleware(okHandler)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/api/listings", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiter_LimitsPerIdentity(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	rl := NewRateLimiter(client, "test-"+uuid.NewString(), 2, time.Minute)
	h := rl.Middleware(okHandler)

	call := func(id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/listings", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), domain.Identity{ID: id}))
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, call("a@example.com").Code)
	assert.Equal(t, http.StatusOK, call("a@example.com").Code)
	rec := call("a@example.com")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, call("b@example.com").Code)
}
