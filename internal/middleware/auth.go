package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cellscope/internal/config"
	"cellscope/internal/models"
	"cellscope/internal/repository"
	"cellscope/internal/security"
)

const (
	ContextUser   = "current_user"
	ContextUserID = "user_id"
)

// Auth is the route-protection gate. It accepts the session token from the
// httpOnly cookie or a bearer header, verifies signature and expiry,
// resolves the user, and attaches the identity to the request context. Any
// failure short-circuits with 401 before handler logic runs.
func Auth(cfg *config.AppConfig, users repository.Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie(cfg.Security.CookieName)
		if err != nil || tokenStr == "" {
			authHeader := c.GetHeader("Authorization")
			if after, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
				tokenStr = after
			}
		}
		if tokenStr == "" {
			abortUnauthorized(c, "Authentication required")
			return
		}

		claims, err := security.ParseSessionToken(tokenStr, cfg.Security.JWTSecret)
		if err != nil {
			if errors.Is(err, security.ErrTokenExpired) {
				abortUnauthorized(c, "Token expired")
				return
			}
			abortUnauthorized(c, "Invalid token")
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			abortUnauthorized(c, "User not found")
			return
		}

		c.Set(ContextUser, user)
		c.Set(ContextUserID, user.ID)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
	})
}

// CurrentUser returns the identity attached by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(ContextUser)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}
