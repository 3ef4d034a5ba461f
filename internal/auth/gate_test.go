package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/hr-service/internal/domain"
	apperrors "github.com/spec-kit/hr-service/pkg/util/errorutil"
)

func TestAccessPredicates(t *testing.T) {
	tests := []struct {
		name       string
		account    *domain.Account
		admin      bool
		employeeUp bool
	}{
		{name: "anonymous", account: nil},
		{name: "inactive admin", account: &domain.Account{Role: domain.RoleAdmin}},
		{name: "client", account: &domain.Account{IsActive: true, Role: domain.RoleClient}},
		{name: "employee", account: &domain.Account{IsActive: true, Role: domain.RoleEmployee}, employeeUp: true},
		{name: "admin role any case", account: &domain.Account{IsActive: true, Role: "admin"}, admin: true, employeeUp: true},
		{name: "staff with client role", account: &domain.Account{IsActive: true, IsStaff: true, Role: domain.RoleClient}, admin: true, employeeUp: true},
		{name: "superuser", account: &domain.Account{IsActive: true, IsSuperuser: true}, admin: true, employeeUp: true},
		{name: "legacy employee group", account: &domain.Account{IsActive: true, Groups: []string{"Employee"}}, employeeUp: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.admin, IsAdmin(tt.account))
			assert.Equal(t, tt.employeeUp, IsEmployeeOrAbove(tt.account))
		})
	}
}

func TestCheckDelete(t *testing.T) {
	admin := &domain.Account{ID: 1, IsActive: true, Role: domain.RoleAdmin}
	root := &domain.Account{ID: 2, IsActive: true, IsSuperuser: true}
	employee := &domain.Account{ID: 3, IsActive: true, Role: domain.RoleEmployee}

	assert.NoError(t, CheckDelete(admin, employee))
	assert.NoError(t, CheckDelete(root, &domain.Account{ID: 9, IsSuperuser: true}))

	err := CheckDelete(admin, admin)
	assert.Equal(t, http.StatusBadRequest, apperrors.ToDomainError(err).HTTPStatus)

	err = CheckDelete(root, root)
	assert.Equal(t, http.StatusBadRequest, apperrors.ToDomainError(err).HTTPStatus)

	err = CheckDelete(admin, root)
	assert.Equal(t, http.StatusForbidden, apperrors.ToDomainError(err).HTTPStatus)

	err = CheckDelete(employee, admin)
	assert.Equal(t, http.StatusForbidden, apperrors.ToDomainError(err).HTTPStatus)
}
