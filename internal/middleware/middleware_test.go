package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newLimitedRouter(limit time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRateLimiter(limit, time.Minute).Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func ping(r *gin.Engine, clientID string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if clientID != "" {
		req.Header.Set("X-Client-ID", clientID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiterRequiresClientID(t *testing.T) {
	r := newLimitedRouter(time.Millisecond)
	assert.Equal(t, http.StatusBadRequest, ping(r, ""))
}

func TestRateLimiterThrottlesRapidClient(t *testing.T) {
	r := newLimitedRouter(time.Hour)

	assert.Equal(t, http.StatusOK, ping(r, "alice"))
	assert.Equal(t, http.StatusTooManyRequests, ping(r, "alice"))
	// Other clients are unaffected.
	assert.Equal(t, http.StatusOK, ping(r, "bob"))
}

func TestRateLimiterAllowsAfterInterval(t *testing.T) {
	r := newLimitedRouter(5 * time.Millisecond)

	assert.Equal(t, http.StatusOK, ping(r, "alice"))
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, http.StatusOK, ping(r, "alice"))
}
