package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/hr-service/internal/domain"
	apperrors "github.com/spec-kit/hr-service/pkg/util/errorutil"
)

func TestListStaff_FiltersByResolvedRoleNewestFirst(t *testing.T) {
	h := newHarness(t)
	it := h.db.AddDepartment("IT")
	h.addUser(t, domain.Account{Username: "client", IsActive: true, Role: domain.RoleClient}, "")
	staff := h.addUser(t, domain.Account{Username: "staff", IsActive: true, IsStaff: true}, "")
	h.addUser(t, domain.Account{Username: "legacy", IsActive: true, Groups: []string{"employee"}}, "")
	emp := h.addUser(t, domain.Account{Username: "emp", IsActive: true, Role: domain.RoleEmployee}, "")
	h.addUser(t, domain.Account{Username: "nobody", IsActive: true}, "")
	h.db.PutProfile(domain.EmployeeProfile{AccountID: emp.ID, DepartmentID: &it.ID})

	views, err := h.accounts.ListStaff(context.Background())
	require.NoError(t, err)

	var names []string
	for _, v := range views {
		names = append(names, v.Account.Username)
	}
	assert.Equal(t, []string{"emp", "legacy", "staff"}, names)
	assert.Equal(t, "IT", views[0].Department.Name)
	assert.Nil(t, views[2].Profile)
	assert.Equal(t, staff.ID, views[2].Account.ID)
}

func TestGet(t *testing.T) {
	h := newHarness(t)
	emp := h.addUser(t, domain.Account{Username: "emp", IsActive: true}, "")

	view, err := h.accounts.Get(context.Background(), emp.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Profile)

	_, err = h.accounts.Get(context.Background(), 999)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestDelete_Guards(t *testing.T) {
	h := newHarness(t)
	admin := h.addUser(t, domain.Account{Username: "admin", IsActive: true, Role: domain.RoleAdmin}, "")
	root := h.addUser(t, domain.Account{Username: "root", IsActive: true, IsSuperuser: true}, "")
	emp := h.addUser(t, domain.Account{Username: "emp", IsActive: true, Role: domain.RoleEmployee, Avatar: ptr("avatars/emp.png")}, "")
	h.db.PutProfile(domain.EmployeeProfile{AccountID: emp.ID, Position: ptr("Dev")})
	ctx := context.Background()

	err := h.accounts.Delete(ctx, admin, admin.ID)
	assert.Equal(t, http.StatusBadRequest, apperrors.ToDomainError(err).HTTPStatus)

	err = h.accounts.Delete(ctx, admin, root.ID)
	assert.Equal(t, http.StatusForbidden, apperrors.ToDomainError(err).HTTPStatus)

	err = h.accounts.Delete(ctx, admin, 999)
	assert.Equal(t, http.StatusNotFound, apperrors.ToDomainError(err).HTTPStatus)

	require.NoError(t, h.accounts.Delete(ctx, admin, emp.ID))
	_, exists := h.db.Account(emp.ID)
	assert.False(t, exists)
	_, hasProfile := h.db.Profile(emp.ID)
	assert.False(t, hasProfile, "profile is deleted with the account")
	assert.Contains(t, h.avatars.Removed, "avatars/emp.png")

	require.NoError(t, h.accounts.Delete(ctx, root, admin.ID))
}

func TestBulkDelete(t *testing.T) {
	h := newHarness(t)
	admin := h.addUser(t, domain.Account{Username: "admin", IsActive: true, Role: domain.RoleAdmin}, "")
	root := h.addUser(t, domain.Account{Username: "root", IsActive: true, IsSuperuser: true}, "")
	a := h.addUser(t, domain.Account{Username: "a", IsActive: true}, "")
	b := h.addUser(t, domain.Account{Username: "b", IsActive: true}, "")

	res, err := h.accounts.BulkDelete(context.Background(), admin, []int64{a.ID, b.ID, b.ID, admin.ID, root.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Deleted)
	assert.ElementsMatch(t, []int64{admin.ID, root.ID}, res.Skipped)

	_, exists := h.db.Account(root.ID)
	assert.True(t, exists)

	client := h.addUser(t, domain.Account{Username: "c", IsActive: true, Role: domain.RoleClient}, "")
	_, err = h.accounts.BulkDelete(context.Background(), client, []int64{root.ID})
	requireCode(t, err, apperrors.CodeForbidden)
}
