package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andesgrid/bess-dispatch-go/internal/middleware"
	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

const defaultTokenExpiry = 24 * time.Hour

// AuthHandler exchanges the configured API key for a JWT.
type AuthHandler struct {
	auth   *middleware.AuthMiddleware
	siteID string
	expiry time.Duration
}

// NewAuthHandler creates the auth handler. An unparsable expiry falls
// back to 24h.
func NewAuthHandler(auth *middleware.AuthMiddleware, siteID, expiry string) *AuthHandler {
	duration := defaultTokenExpiry
	if expiry != "" {
		if d, err := time.ParseDuration(expiry); err == nil && d > 0 {
			duration = d
		}
	}
	return &AuthHandler{auth: auth, siteID: siteID, expiry: duration}
}

// IssueToken validates the presented API key and returns a signed JWT.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req models.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api_key is required"})
		return
	}

	if !h.auth.DevMode() && !h.auth.VerifyAPIKey(req.APIKey) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
		return
	}

	token, expiresAt, err := h.auth.GenerateToken(h.siteID, h.expiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, models.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
