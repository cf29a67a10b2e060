package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/philanthrohub/directory/internal/config"
)

func corsRequest(cfg config.CORSConfig, method, origin string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(CORSMiddleware(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
		wantCreds  string
	}{
		{"allowed origin", []string{"https://philanthrohub.org"}, http.MethodGet, "https://philanthrohub.org", 200, "https://philanthrohub.org", "true"},
		{"wildcard echoes origin", []string{"*"}, http.MethodGet, "https://anything.com", 200, "https://anything.com", "true"},
		{"disallowed origin", []string{"https://allowed.com"}, http.MethodGet, "https://evil.com", 200, "", ""},
		{"wildcard without origin", []string{"*"}, http.MethodGet, "", 200, "*", ""},
		{"preflight", []string{"*"}, http.MethodOptions, "https://philanthrohub.org", 204, "https://philanthrohub.org", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := corsRequest(config.CORSConfig{AllowedOrigins: tt.origins}, tt.method, tt.origin)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}

func TestCORSMiddleware_ConfiguredMethods(t *testing.T) {
	cfg := config.CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "POST"}}
	w := corsRequest(cfg, http.MethodGet, "https://a.org")
	assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestLoggerMiddleware_PassesThrough(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusBadRequest, http.StatusInternalServerError} {
		r := gin.New()
		r.Use(RequestIDMiddleware(), LoggerMiddleware())
		r.GET("/", func(c *gin.Context) { c.Status(status) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, status, w.Code)
	}
}
