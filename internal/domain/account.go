package domain

import (
	"strings"
	"time"
)

// Account is the persisted identity of a person using the system.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	// Role is empty for records that predate the role column.
	Role        Role
	Avatar      *string
	IsStaff     bool
	IsSuperuser bool
	IsActive    bool
	// Groups holds legacy group memberships used for role resolution.
	Groups     []string
	DateJoined time.Time
	LastLogin  *time.Time
}

// FullName joins first and last name.
func (a *Account) FullName() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// InGroup reports membership of a legacy group, ignoring case.
func (a *Account) InGroup(name string) bool {
	if a == nil {
		return false
	}
	for _, g := range a.Groups {
		if strings.EqualFold(g, name) {
			return true
		}
	}
	return false
}

// AvatarPath returns the stored avatar path or an empty string.
func (a *Account) AvatarPath() string {
	if a == nil || a.Avatar == nil {
		return ""
	}
	return *a.Avatar
}
