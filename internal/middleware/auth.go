package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/clinic-api/internal/authz"
	"github.com/BruksfildServices01/clinic-api/internal/cache"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
)

const (
	ContextPrincipal = "principal"
	ContextTokenExp  = "tokenExp"
)

// TokenParser validates a bearer token.
type TokenParser interface {
	Parse(token string) (authz.Principal, time.Time, error)
}

// AuthMiddleware authenticates the bearer token and stores the principal
// in the gin context and in the request context.
func AuthMiddleware(tokens TokenParser, revoked cache.Store, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httperr.Unauthorized(c, "missing_authorization_header", "Authentication required.")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httperr.Unauthorized(c, "invalid_authorization_header", "Authentication required.")
			return
		}

		pr, exp, err := tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			httperr.Unauthorized(c, "invalid_token", "Invalid or expired token.")
			return
		}

		if pr.TokenID != "" && revoked != nil {
			_, found, err := revoked.Get(c.Request.Context(), cache.PrefixRevokedToken+pr.TokenID)
			if err != nil {
				log.Error().Err(err).Msg("revocation lookup failed")
				httperr.Internal(c, "internal_error", "Unexpected error, try again later.")
				return
			}
			if found {
				httperr.Unauthorized(c, "token_revoked", "Token has been revoked.")
				return
			}
		}

		c.Set(ContextPrincipal, pr)
		c.Set(ContextTokenExp, exp)
		c.Request = c.Request.WithContext(authz.WithPrincipal(c.Request.Context(), pr))

		c.Next()
	}
}

// Principal returns the authenticated caller. Only valid behind
// AuthMiddleware.
func Principal(c *gin.Context) authz.Principal {
	return c.MustGet(ContextPrincipal).(authz.Principal)
}

// TokenExpiry returns the expiry of the current bearer token.
func TokenExpiry(c *gin.Context) time.Time {
	exp, _ := c.Get(ContextTokenExp)
	t, _ := exp.(time.Time)
	return t
}
