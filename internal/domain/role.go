package domain

import "strings"

// Role is the coarse permission class of an account.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleEmployee Role = "Employee"
	RoleClient   Role = "Client"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleClient:
		return true
	}
	return false
}

// Is compares roles ignoring case.
func (r Role) Is(other Role) bool {
	return strings.EqualFold(string(r), string(other))
}

// ResolveRole derives the effective role label of an account.
//
// An explicit role wins and is returned as stored. Otherwise staff and superuser
// flags mean Admin, then legacy "Employee" and "Admin" group membership is
// consulted in that order. Everything else is a Client.
func ResolveRole(a *Account) Role {
	if a == nil {
		return RoleClient
	}
	if strings.TrimSpace(string(a.Role)) != "" {
		return a.Role
	}
	if a.IsSuperuser || a.IsStaff {
		return RoleAdmin
	}
	if a.InGroup(string(RoleEmployee)) {
		return RoleEmployee
	}
	if a.InGroup(string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleClient
}
