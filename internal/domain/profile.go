package domain

import "time"

// EmployeeProfile holds employment and personal attributes of an account.
// Every attribute is optional; a profile with only nil fields is unassigned.
type EmployeeProfile struct {
	ID              int64
	AccountID       int64
	DepartmentID    *int64
	Position        *string
	HireDate        *time.Time
	IDNumber        *string
	DateOfBirth     *time.Time
	Gender          *string
	Phone           *string
	PhysicalAddress *string
	PayrollNumber   *string
	UpdatedOn       *time.Time
}

// Gender values accepted on profiles.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// DepartmentRef returns the department id or nil when there is no profile.
func (p *EmployeeProfile) DepartmentRef() *int64 {
	if p == nil {
		return nil
	}
	return p.DepartmentID
}

// PositionOrEmpty returns the position, or "" when unset.
func (p *EmployeeProfile) PositionOrEmpty() string {
	if p == nil || p.Position == nil {
		return ""
	}
	return *p.Position
}
