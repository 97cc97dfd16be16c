package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewAdminMiddleware(t *testing.T) {
	am := NewAdminMiddleware("test-admin-key")
	assert.NotNil(t, am)
	assert.Equal(t, "test-admin-key", am.apiKey)
}

func TestAdminMiddleware_RequireAdminAuth(t *testing.T) {
	am := NewAdminMiddleware("test-admin-key")
	gin.SetMode(gin.TestMode)

	// Create test router
	createTestRouter := func(m *AdminMiddleware) *gin.Engine {
		router := gin.New()
		router.Use(m.RequireAdminAuth())
		router.POST("/admin/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "admin access granted"})
		})
		return router
	}

	t.Run("valid API key in Authorization header", func(t *testing.T) {
		router := createTestRouter(am)
		req := httptest.NewRequest("POST", "/admin/test", nil)
		req.Header.Set("Authorization", "Bearer test-admin-key")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("valid API key in X-API-Key header", func(t *testing.T) {
		router := createTestRouter(am)
		req := httptest.NewRequest("POST", "/admin/test", nil)
		req.Header.Set("X-API-Key", "test-admin-key")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid API key", func(t *testing.T) {
		router := createTestRouter(am)
		req := httptest.NewRequest("POST", "/admin/test", nil)
		req.Header.Set("Authorization", "Bearer wrong-key")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing API key", func(t *testing.T) {
		router := createTestRouter(am)
		req := httptest.NewRequest("POST", "/admin/test", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("no key configured disables admin endpoints", func(t *testing.T) {
		router := createTestRouter(NewAdminMiddleware(""))
		req := httptest.NewRequest("POST", "/admin/test", nil)
		req.Header.Set("Authorization", "Bearer anything")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAdminMiddleware_ValidateAdminKey(t *testing.T) {
	am := NewAdminMiddleware("test-admin-key")

	assert.True(t, am.ValidateAdminKey("test-admin-key"))
	assert.False(t, am.ValidateAdminKey("wrong-key"))
	assert.False(t, am.ValidateAdminKey(""))

	// Empty configured key never validates
	disabled := NewAdminMiddleware("")
	assert.False(t, disabled.ValidateAdminKey(""))
	assert.False(t, disabled.ValidateAdminKey("anything"))
}
