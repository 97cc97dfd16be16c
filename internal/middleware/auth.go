package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// JWTClaims represents the JWT token claims issued by the token endpoint.
type JWTClaims struct {
	// SiteID identifies the edge site the token was issued for.
	SiteID string `json:"site_id"`
	// Scope is the access scope, currently always "operator".
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// AuthMiddleware authenticates dashboard requests: a bearer JWT issued by
// the token endpoint, or the raw operator API key compared against its
// configured bcrypt hash. An empty configured hash selects dev mode where
// every request passes.
type AuthMiddleware struct {
	secretKey  []byte
	apiKeyHash string
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(secretKey, apiKeyHash string) *AuthMiddleware {
	return &AuthMiddleware{
		secretKey:  []byte(secretKey),
		apiKeyHash: apiKeyHash,
	}
}

// DevMode reports whether authentication is disabled (no API key hash
// configured).
func (am *AuthMiddleware) DevMode() bool {
	return am.apiKeyHash == ""
}

// VerifyAPIKey compares a presented key against the configured bcrypt
// hash. Always false in dev mode: there is nothing to compare against.
func (am *AuthMiddleware) VerifyAPIKey(key string) bool {
	if am.apiKeyHash == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(am.apiKeyHash), []byte(key)) == nil
}

// RequireAuth middleware validates a bearer JWT or the operator API key.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.DevMode() {
			c.Next()
			return
		}

		// Extract token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Check Bearer prefix (case-insensitive as per RFC 6750)
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" || tokenParts[1] == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		credential := tokenParts[1]

		// A raw API key is accepted in place of a JWT
		if am.VerifyAPIKey(credential) {
			c.Set("auth_method", "api_key")
			c.Next()
			return
		}

		claims, err := am.ValidateToken(credential)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
				c.Abort()
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("auth_method", "jwt")
		c.Set("site_id", claims.SiteID)
		c.Next()
	}
}

// GenerateToken creates a new JWT for an authenticated operator.
func (am *AuthMiddleware) GenerateToken(siteID string, duration time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(duration)
	claims := &JWTClaims{
		SiteID: siteID,
		Scope:  "operator",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(am.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a JWT token and returns its claims.
func (am *AuthMiddleware) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return am.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
