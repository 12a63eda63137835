package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(h http.Handler, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/posts", nil)
	req.Header.Set("Origin", origin)
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestCORS_AllowedOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"https://portfolio.dev"}, Environment: "production"})(okHandler())

	rec := corsRequest(h, http.MethodGet, "https://portfolio.dev")
	assert.Equal(t, "https://portfolio.dev", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_UnknownOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"https://portfolio.dev"}, Environment: "production"})(okHandler())

	rec := corsRequest(h, http.MethodGet, "https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_WildcardIgnoredOutsideDevelopment(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"*"}, Environment: "production"})(okHandler())
	rec := corsRequest(h, http.MethodGet, "https://anything.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	dev := CORS(CORSConfig{AllowedOrigins: []string{"*"}, Environment: "development"})(okHandler())
	rec = corsRequest(dev, http.MethodGet, "https://anything.example")
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"https://portfolio.dev"}})(okHandler())

	rec := corsRequest(h, http.MethodOptions, "https://portfolio.dev")
	assert.Contains(t, []int{http.StatusOK, http.StatusNoContent}, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestCORS_NoOriginsDeniesAll(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		h := CORS(CORSConfig{Environment: env})(okHandler())

		rec := corsRequest(h, http.MethodGet, "https://evil.example")
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), env)

		rec = corsRequest(h, http.MethodOptions, "https://evil.example")
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), env)
	}
}
