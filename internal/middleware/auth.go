package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/foodorder/internal/config"
	"github.com/example/foodorder/internal/utils"
)

const (
	userContextKey = "currentUserID"
	roleContextKey = "currentRole"
)

// AuthMiddleware validates JWT tokens and loads the authenticated user ID into context.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		claims, err := parseHeader(cfg.JWTSecret, authHeader)
		if err != nil {
			return err
		}

		setClaims(c, claims)
		return c.Next()
	}
}

// OptionalAuth loads the user when a valid bearer token is present and lets anonymous
// requests through. A malformed or expired token is still rejected.
func OptionalAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Next()
		}

		claims, err := parseHeader(cfg.JWTSecret, authHeader)
		if err != nil {
			return err
		}

		setClaims(c, claims)
		return c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals(roleContextKey).(string); role != utils.RoleAdmin {
			return fiber.NewError(fiber.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}

func parseHeader(secret, authHeader string) (utils.TokenClaims, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return utils.TokenClaims{}, fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
	}

	claims, err := utils.ParseToken(secret, parts[1])
	if err != nil {
		return utils.TokenClaims{}, fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}
	return claims, nil
}

func setClaims(c *fiber.Ctx, claims utils.TokenClaims) {
	c.Locals(userContextKey, claims.UserID)
	c.Locals(roleContextKey, claims.Role)
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}

// IsAdmin reports whether the request carries an admin token.
func IsAdmin(c *fiber.Ctx) bool {
	role, _ := c.Locals(roleContextKey).(string)
	return role == utils.RoleAdmin
}
