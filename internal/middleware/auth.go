package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campusperks/realtime-service/internal/auth"
)

const ClaimsKey = "claims"

func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ParseBearerToken(c.Get("Authorization"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization"})
		}
		claims, err := auth.ParseAndValidateToken(secret, token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// Claims pulls the authenticated identity set by JWTAuth.
func Claims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(ClaimsKey).(*auth.Claims)
	return claims
}

// RequireRole gates a route to the given roles; must run after JWTAuth.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		claims := Claims(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization"})
		}
		if _, ok := allowed[claims.Role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
		}
		return c.Next()
	}
}
