package auth

import (
	"github.com/spec-kit/hr-service/internal/domain"
	apperrors "github.com/spec-kit/hr-service/pkg/util/errorutil"
)

// IsAuthenticated reports whether a is a logged in, active account.
func IsAuthenticated(a *domain.Account) bool {
	return a != nil && a.IsActive
}

// IsAdmin reports whether a may use administrative endpoints.
func IsAdmin(a *domain.Account) bool {
	if !IsAuthenticated(a) {
		return false
	}
	return a.IsSuperuser || a.IsStaff || domain.ResolveRole(a).Is(domain.RoleAdmin)
}

// IsEmployeeOrAbove reports whether a may use employee endpoints.
func IsEmployeeOrAbove(a *domain.Account) bool {
	if IsAdmin(a) {
		return true
	}
	return IsAuthenticated(a) && domain.ResolveRole(a).Is(domain.RoleEmployee)
}

// CheckDelete guards account deletion: nobody deletes themselves and only
// superusers delete superusers.
func CheckDelete(actor, target *domain.Account) error {
	if !IsAdmin(actor) {
		return apperrors.NewForbidden("admin access required")
	}
	if target == nil {
		return apperrors.NewNotFound("user", nil)
	}
	if actor.ID == target.ID {
		return apperrors.NewValidationError("You cannot delete your own account.", nil)
	}
	if target.IsSuperuser && !actor.IsSuperuser {
		return apperrors.NewForbidden("Only a superuser can delete a superuser.")
	}
	return nil
}
