package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hr-service/internal/domain"
	apperrors "github.com/spec-kit/hr-service/pkg/util/errorutil"
)

// RequireAuthenticated rejects anonymous callers with 401.
func RequireAuthenticated() fiber.Handler {
	return requireAccess(func(*domain.Account) bool { return true }, "")
}

// RequireAdmin allows admins only.
func RequireAdmin() fiber.Handler {
	return requireAccess(IsAdmin, "admin access required")
}

// RequireEmployeeOrAbove allows employees and admins.
func RequireEmployeeOrAbove() fiber.Handler {
	return requireAccess(IsEmployeeOrAbove, "employee access required")
}

func requireAccess(allowed func(*domain.Account) bool, denied string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		account := CurrentAccount(c)
		if !IsAuthenticated(account) {
			return apperrors.NewUnauthorized("Authentication credentials were not provided.")
		}
		if !allowed(account) {
			return apperrors.NewForbidden(denied)
		}
		return c.Next()
	}
}
