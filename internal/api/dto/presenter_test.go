package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/hr-service/internal/domain"
)

var media = MediaURLs{BaseURL: "http://hr.local:8000", Prefix: "/media/"}

func render(t *testing.T, resp AccountResponse) map[string]any {
	t.Helper()
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestPresentAccount_WithoutProfile(t *testing.T) {
	account := &domain.Account{ID: 3, Username: "jdoe", IsStaff: true, DateJoined: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}

	out := render(t, PresentAccount(account, nil, nil, media))

	assert.Equal(t, "Admin", out["role"], "role comes from the resolver")
	assert.Equal(t, "", out["avatar_url"])
	for _, key := range []string{"id_number", "date_of_birth", "gender", "phone", "physical_address",
		"payroll_number", "department", "department_name", "position", "hire_date", "updated_on"} {
		assert.Contains(t, out, key)
		assert.Nil(t, out[key], key)
	}
	nested := out["profile"].(map[string]any)
	assert.Nil(t, nested["position"])
}

func TestPresentAccount_FlatAndNestedAgree(t *testing.T) {
	deptID := int64(4)
	hire := time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)
	account := &domain.Account{ID: 3, Username: "jdoe", Role: domain.RoleEmployee, Avatar: ptr("avatars/j.png")}
	profile := &domain.EmployeeProfile{AccountID: 3, DepartmentID: &deptID, Position: ptr("Analyst"), HireDate: &hire, Gender: ptr("")}
	dept := &domain.Department{ID: 4, Name: "Finance"}

	out := render(t, PresentAccount(account, profile, dept, media))
	nested := out["profile"].(map[string]any)

	assert.Equal(t, "http://hr.local:8000/media/avatars/j.png", out["avatar_url"])
	assert.Equal(t, "2021-03-15", out["hire_date"])
	assert.Equal(t, "Finance", out["department_name"])
	assert.Equal(t, float64(4), out["department"])
	assert.Equal(t, "", out["gender"])
	for _, key := range []string{"hire_date", "department_name", "department", "position", "gender", "phone"} {
		assert.Equal(t, out[key], nested[key], key)
	}
}

func TestMediaURLs(t *testing.T) {
	assert.Equal(t, "", media.URL(""))
	assert.Equal(t, "https://cdn/x.png", media.URL("https://cdn/x.png"))
	assert.Equal(t, "http://h/a.png", MediaURLs{BaseURL: "http://h/"}.URL("/a.png"))
}

func TestLoginIdentifier(t *testing.T) {
	assert.Equal(t, "a@b.c", LoginRequest{Email: "a@b.c"}.Identifier())
	assert.Equal(t, "jdoe", LoginRequest{Username: "jdoe", Email: "a@b.c"}.Identifier())
	assert.Equal(t, "x", LoginRequest{Username: " ", UsernameOrEmail: "x"}.Identifier())
}

func ptr[T any](v T) *T { return &v }
