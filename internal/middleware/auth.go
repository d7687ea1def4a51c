package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"design-review-server/internal/auth"
	"design-review-server/internal/errors"
)

const (
	CtxIdentity = "identity"
)

type Auth struct {
	JWTSecret      string
	InternalSecret string
}

// AuthMiddleware verifies the identity token issued by the authentication
// collaborator (or by the review-link exchange) and attaches the identity
// to the request context. The token may arrive in the Authorization header
// or, for websocket upgrades, as a query parameter.
func (m *Auth) AuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		var token string
		tokenQuery := ctx.Query("token")

		if authHeader != "" {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else if tokenQuery != "" {
			token = tokenQuery
		} else {
			ctx.Error(errors.Unauthorized("Authorization is not found!", nil))
			ctx.Abort()
			return
		}

		identity, err := auth.VerifyToken(m.JWTSecret, token)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		ctx.Set(CtxIdentity, identity)
		ctx.Next()
	}
}

// RequireRole restricts a route to the given roles. Must run after
// AuthMiddleware.
func (m *Auth) RequireRole(roles ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identity := IdentityFrom(ctx)
		if identity == nil {
			ctx.Error(errors.Unauthorized("Authorization is not found!", nil))
			ctx.Abort()
			return
		}
		for _, role := range roles {
			if identity.Role == role {
				ctx.Next()
				return
			}
		}
		ctx.Error(errors.Forbidden("Insufficient role", nil))
		ctx.Abort()
	}
}

// InternalAuthMiddleware guards routes called by trusted collaborators
// (project management, file storage) with a shared secret.
func (m *Auth) InternalAuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := strings.TrimPrefix(
			ctx.GetHeader("Authorization"),
			"Bearer ",
		)

		if token != m.InternalSecret {
			ctx.Error(errors.Unauthorized("Unauthorized internal call!", nil))
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

// IdentityFrom returns the verified identity set by AuthMiddleware, nil when
// the route ran unauthenticated.
func IdentityFrom(ctx *gin.Context) *auth.Identity {
	value, ok := ctx.Get(CtxIdentity)
	if !ok {
		return nil
	}
	identity, ok := value.(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}
