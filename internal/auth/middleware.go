package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/api"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/apperr"
)

const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxUserRole  = "user_role"
)

func unauthorized(c *gin.Context, msg string) {
	api.WriteError(c, apperr.New(apperr.CodeUnauthorized, msg))
}

func AuthMiddleware(accessTokenSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) != "Bearer" {
			unauthorized(c, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			unauthorized(c, "token is empty")
			return
		}

		claims, err := ValidateToken(tokenString, accessTokenSecret)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				unauthorized(c, "token expired")
			case errors.Is(err, ErrInvalidTokenType):
				unauthorized(c, "access token required")
			default:
				unauthorized(c, "invalid or malformed token")
			}
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserEmail, claims.Email)
		c.Set(ctxUserRole, claims.Role)

		c.Next()
	}
}

func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ctxUserRole)
		if !exists {
			unauthorized(c, "user role not found")
			return
		}

		roleStr, ok := role.(string)
		if !ok {
			unauthorized(c, "invalid role type")
			return
		}

		if roleStr != requiredRole {
			api.WriteError(c, apperr.New(apperr.CodeForbidden, "insufficient permissions"))
			return
		}

		c.Next()
	}
}

func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}

	id, ok := userID.(int64)
	if !ok {
		return 0, false
	}

	return id, true
}

// ActorFrom returns the authenticated caller, or an UNAUTHORIZED error.
func ActorFrom(c *gin.Context) (Actor, error) {
	id, ok := GetUserID(c)
	if !ok {
		return Actor{}, apperr.New(apperr.CodeUnauthorized, "user not authenticated")
	}
	role, _ := c.Get(ctxUserRole)
	roleStr, _ := role.(string)
	return Actor{UserID: id, Role: roleStr}, nil
}

// SetActor stores an identity on the context the way AuthMiddleware does.
func SetActor(c *gin.Context, a Actor) {
	c.Set(ctxUserID, a.UserID)
	c.Set(ctxUserRole, a.Role)
}
