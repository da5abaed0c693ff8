package middleware

import (
	"strings"

	"github.com/dimitrije/agency-api/internal/logging"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
)

type AccessTokenValidator interface {
	ValidateAccessToken(tokenString string) (*services.Claims, error)
}

// Auth requires a bearer access token and stores the caller's id and
// normalized email on the context.
func Auth(tokens AccessTokenValidator) drift.HandlerFunc {
	return func(c *drift.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Unauthorized("missing authorization header")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			c.Unauthorized("invalid authorization header format")
			return
		}

		claims, err := tokens.ValidateAccessToken(strings.TrimSpace(token))
		if err != nil {
			c.Unauthorized("invalid or expired token")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, services.NormalizeEmail(claims.Email))

		ctx := c.Request.Context()
		logger := logging.FromContext(ctx).With("user_id", claims.UserID.String())
		c.Request = c.Request.WithContext(logging.WithContext(ctx, logger))

		c.Next()
	}
}

func GetUserID(c *drift.Context) uuid.UUID {
	if id, ok := c.Get(UserIDKey); ok {
		if uid, ok := id.(uuid.UUID); ok {
			return uid
		}
	}
	return uuid.Nil
}

func GetUserEmail(c *drift.Context) string {
	if email, ok := c.Get(UserEmailKey); ok {
		if e, ok := email.(string); ok {
			return e
		}
	}
	return ""
}
