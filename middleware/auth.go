package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nestboard/nestboard/domain"
	"github.com/nestboard/nestboard/services"
	"github.com/nestboard/nestboard/utils"
)

const (
	// ContextUserIDKey stores the authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextRoleKey stores the caller's role inside Gin context.
	ContextRoleKey = "role"
)

func bearerToken(ctx *gin.Context) (string, bool) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// AuthRequired ensures the request carries a valid, unrevoked JWT and
// populates user identity plus role in the Gin context.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, ok := bearerToken(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "missing or malformed authorization header")
			ctx.Abort()
			return
		}

		if utils.IsTokenBlacklisted(ctx.Request.Context(), token) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Set(ContextRoleKey, claims.Role)
		ctx.Next()
	}
}

// OptionalAuth decodes credentials when present but never rejects the
// request. Public read endpoints use it so moderators and owners see
// content that guests cannot.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, ok := bearerToken(ctx)
		if ok && !utils.IsTokenBlacklisted(ctx.Request.Context(), token) {
			if claims, err := utils.ParseToken(token); err == nil {
				ctx.Set(ContextUserIDKey, claims.UserID)
				ctx.Set(ContextUsernameKey, claims.Username)
				ctx.Set(ContextRoleKey, claims.Role)
			}
		}
		ctx.Next()
	}
}

// AdminRequired gates moderation endpoints. Must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !CurrentActor(ctx).Role.IsAdmin() {
			utils.Error(ctx, http.StatusForbidden, 40301, "admin privileges required")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// CurrentActor assembles the caller identity from Gin context. A
// request without credentials yields a guest actor with ID 0.
func CurrentActor(ctx *gin.Context) services.Actor {
	actor := services.Actor{Role: domain.RoleGuest}
	if v, ok := ctx.Get(ContextUserIDKey); ok {
		if id, ok := v.(uint); ok {
			actor.ID = id
		}
	}
	if v, ok := ctx.Get(ContextRoleKey); ok {
		if s, ok := v.(string); ok {
			actor.Role = domain.ParseRole(s)
		}
	}
	return actor
}
