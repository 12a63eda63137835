package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(code) })
}

func limitedSender(h http.Handler) func(ip string) *httptest.ResponseRecorder {
	return func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
}

func TestRateLimitByIP_ThrottlesFailures(t *testing.T) {
	send := limitedSender(RateLimitByIP(2, time.Minute, nil, quietLogger())(statusHandler(http.StatusUnauthorized)))

	assert.Equal(t, http.StatusUnauthorized, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusUnauthorized, send("10.0.0.1").Code)

	rec := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, rec))
	assert.Equal(t, http.StatusUnauthorized, send("10.0.0.2").Code)
}

func TestRateLimitByIP_SuccessesNotCounted(t *testing.T) {
	send := limitedSender(RateLimitByIP(5, 15*time.Minute, nil, quietLogger())(okHandler()))

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, send("10.0.0.1").Code, "request %d", i+1)
	}
}

func TestRateLimitByIP_SuccessDoesNotResetFailures(t *testing.T) {
	status := http.StatusUnauthorized
	h := RateLimitByIP(2, time.Minute, nil, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	send := limitedSender(h)

	assert.Equal(t, http.StatusUnauthorized, send("10.0.0.1").Code)

	status = http.StatusOK
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	status = http.StatusUnauthorized
	assert.Equal(t, http.StatusUnauthorized, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1").Code)
}
