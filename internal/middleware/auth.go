package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/waste3d/course-marketplace/internal/infrastructure/security"
)

const (
	ContextUserID = "userId"
	ContextRole   = "role"
	ContextName   = "userName"
)

type TokenValidator interface {
	ValidateAccessToken(token string) (security.Identity, error)
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		accessToken, ok := bearerToken(authHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		id, err := tokens.ValidateAccessToken(accessToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		setIdentity(c, id)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if accessToken, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if id, err := tokens.ValidateAccessToken(accessToken); err == nil {
				setIdentity(c, id)
			}
		}
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, id security.Identity) {
	c.Set(ContextUserID, id.Subject)
	c.Set(ContextRole, id.Role)
	c.Set(ContextName, id.Name)
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
