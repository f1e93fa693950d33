package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// RequireAdmin ensures the caller administers the org chart.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.IsAdmin {
			return apperrors.NewForbidden("admin role required")
		}
		return c.Next()
	}
}

// RequireEmployee ensures caller is authenticated.
func RequireEmployee() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if p, ok := PrincipalFromContext(c); !ok || p.Employee == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
