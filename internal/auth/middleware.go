package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusattend/attendance/internal/apperr"
	"github.com/campusattend/attendance/internal/model"
	"github.com/campusattend/attendance/internal/policy"
)

const actorKey = "actor"

// UserLookup resolves the subject of a token. *user.Service satisfies it.
type UserLookup interface {
	Lookup(ctx context.Context, id string) (model.User, error)
}

// Authenticate enforces bearer JWT access tokens signed with HS256 and
// attaches the caller as a policy.Actor. The role comes from the directory,
// not the token, so role changes apply on the next request.
func Authenticate(signingKey, issuer string, users UserLookup, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
			unauthorized(c, "missing bearer token")
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil || claims.Kind != KindAccess {
			unauthorized(c, "invalid token")
			return
		}

		u, err := users.Lookup(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, apperr.ErrUserNotFound) {
				unauthorized(c, "unknown subject")
				return
			}
			log.Error("resolve token subject failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
			return
		}

		c.Set(actorKey, policy.Actor{ID: u.ID, Role: u.Role})
		c.Next()
	}
}

// ActorFrom returns the caller attached by Authenticate, or the zero Actor,
// which the policy always denies.
func ActorFrom(c *gin.Context) policy.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return policy.Actor{}
	}
	a, _ := v.(policy.Actor)
	return a
}

// WithActor attaches a caller directly. Used by tests and internal routes.
func WithActor(c *gin.Context, a policy.Actor) {
	c.Set(actorKey, a)
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": "unauthorized"})
}
