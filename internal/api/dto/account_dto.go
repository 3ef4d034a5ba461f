package dto

import (
	"encoding/json"
	"time"
)

// Date renders as YYYY-MM-DD.
type Date time.Time

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d).Format("2006-01-02"))
}

func dateOrNil(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	d := Date(*t)
	return &d
}

// ProfileFields is the employee profile part of an account response. The same
// value is rendered flattened into the account and nested under "profile".
type ProfileFields struct {
	IDNumber        *string    `json:"id_number"`
	DateOfBirth     *Date      `json:"date_of_birth"`
	Gender          *string    `json:"gender"`
	Phone           *string    `json:"phone"`
	PhysicalAddress *string    `json:"physical_address"`
	PayrollNumber   *string    `json:"payroll_number"`
	Department      *int64     `json:"department"`
	DepartmentName  *string    `json:"department_name"`
	Position        *string    `json:"position"`
	HireDate        *Date      `json:"hire_date"`
	UpdatedOn       *time.Time `json:"updated_on"`
}

// AccountResponse is the admin and self-service representation of an account.
type AccountResponse struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	DateJoined  time.Time `json:"date_joined"`
	AvatarURL   string    `json:"avatar_url"`
	Role        string    `json:"role"`
	IsStaff     bool      `json:"is_staff"`
	IsSuperuser bool      `json:"is_superuser"`
	IsActive    bool      `json:"is_active"`
	ProfileFields
	Profile ProfileFields `json:"profile"`
}

// BulkDeleteRequest lists accounts to delete. IDs is kept raw so a non-list can be rejected.
type BulkDeleteRequest struct {
	IDs json.RawMessage `json:"ids"`
}

// BulkDeleteResponse summarises a bulk delete.
type BulkDeleteResponse struct {
	Deleted int64   `json:"deleted"`
	Skipped []int64 `json:"skipped"`
}

// DashboardResponse is the employee landing payload.
type DashboardResponse struct {
	Greeting   string         `json:"greeting"`
	Role       string         `json:"role"`
	Department *string        `json:"department"`
	Position   *string        `json:"position"`
	Stats      map[string]int `json:"stats"`
}
