// Package middleware provides Gin HTTP middleware for authentication, rate
// limiting, CORS, security headers, request IDs, metrics and request logging.
//
// Middleware ordering is enforced in internal/api/router.go:
//
//	Recovery → RequestID → Metrics → Logger → Security → CORS → RateLimit → Auth → Handler
//
// Security headers run first among the policy middleware so they appear on
// every response, including rate limit and auth rejections.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tenderhub/tender-insight-hub/internal/auth"
	"github.com/tenderhub/tender-insight-hub/internal/db/models"
)

// Context keys set by the auth middleware.
const (
	UserKey           = "user"
	UserIDKey         = "user_id"
	EmailKey          = "email"
	OrganizationIDKey = "organization_id"
)

// UserLookup loads the user named by a token.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func setIdentity(c *gin.Context, user *models.User) {
	c.Set(UserKey, user)
	c.Set(UserIDKey, user.ID)
	c.Set(EmailKey, user.Email)
	c.Set(OrganizationIDKey, user.OrganizationID)
}

// AuthMiddleware requires a valid bearer JWT belonging to an active user.
func AuthMiddleware(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			abortUnauthorized(c, "Not authenticated")
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "Authorization header must start with 'Bearer '")
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			abortUnauthorized(c, "Could not validate credentials")
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load user",
			})
			return
		}
		if user == nil || !user.IsActive {
			abortUnauthorized(c, "Could not validate credentials")
			return
		}

		setIdentity(c, user)
		c.Next()
	}
}

// OptionalAuthMiddleware sets the caller identity when a valid token is
// present and lets the request through either way.
func OptionalAuthMiddleware(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		if claims, err := auth.ValidateJWT(token); err == nil {
			user, err := users.GetUserByID(c.Request.Context(), claims.UserID)
			if err == nil && user != nil && user.IsActive {
				setIdentity(c, user)
			}
		}

		c.Next()
	}
}

// CurrentUser returns the user set by the auth middleware, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(UserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
