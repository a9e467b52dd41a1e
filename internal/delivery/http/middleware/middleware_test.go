package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recruitment-backend/internal/delivery/http/middleware"
	"recruitment-backend/internal/domain"
	"recruitment-backend/pkg/apperror"
	"recruitment-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(middleware.RequestIDKey)) })

	// Generated
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Body.String())
	require.NoError(t, err)
	assert.Equal(t, w.Body.String(), w.Header().Get("X-Request-ID"))

	// Propagated
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", id)
	assert.Equal(t, id, serve(r, req).Body.String())

	// Garbage is replaced
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "<script>")
	assert.NotEqual(t, "<script>", serve(r, req).Body.String())
}

func TestInMemoryRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(nil, security.NopSecurityLogger())
	r := gin.New()
	r.Use(limiter.Middleware(middleware.GlobalRateLimitConfig(3, time.Minute)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler())
	r.GET("/conflict", func(c *gin.Context) {
		c.Error(apperror.New(http.StatusConflict, "Application already handled by another recruiter",
			&domain.StatusConflictError{PersonID: 5, Current: domain.StatusRejected}))
	})
	r.GET("/validation", func(c *gin.Context) {
		c.Error(apperror.Validation("Invalid application", domain.ErrValidation, []string{"Competences: is required"}))
	})
	r.GET("/plain", func(c *gin.Context) {
		c.Error(errors.New("db exploded"))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/conflict", nil))
	require.Equal(t, http.StatusConflict, w.Code)
	var conflict map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conflict))
	assert.Equal(t, "REJECTED", conflict["currentStatus"])
	assert.Equal(t, "Application already handled by another recruiter", conflict["error"])
	assert.NotEmpty(t, conflict["request_id"])

	w = serve(r, httptest.NewRequest(http.MethodGet, "/validation", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `["Competences: is required"]`, mustField(t, w, "error"))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/plain", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db exploded")
}

func mustField(t *testing.T, w *httptest.ResponseRecorder, field string) string {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return string(body[field])
}

func TestRequireRoles(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Test-Role") == "recruiter" {
			c.Set(string(domain.KeyRole), domain.RoleRecruiter)
		} else {
			c.Set(string(domain.KeyRole), domain.RoleApplicant)
		}
	})
	r.GET("/", middleware.RequireRoles(domain.RoleRecruiter), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Test-Role", "recruiter")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(middleware.SecurityHeadersMiddleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Cache-Control"))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AuthCookieName, Value: "token"})
	w = serve(r, req)
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
}
