package dto

import (
	"strings"

	"github.com/spec-kit/hr-service/internal/domain"
)

// MediaURLs turns stored media paths into absolute URLs for one request.
type MediaURLs struct {
	BaseURL string
	Prefix  string
}

// URL returns the absolute URL of a stored path, or "" when there is none.
// Values that are already absolute are returned unchanged.
func (m MediaURLs) URL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	prefix := "/" + strings.Trim(m.Prefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	return strings.TrimRight(m.BaseURL, "/") + prefix + "/" + strings.TrimLeft(path, "/")
}

// PresentAccount maps an account and its optional profile and department.
// Without a profile every profile field is null.
func PresentAccount(account *domain.Account, profile *domain.EmployeeProfile, dept *domain.Department, media MediaURLs) AccountResponse {
	fields := presentProfile(profile, dept)
	return AccountResponse{
		ID:            account.ID,
		Username:      account.Username,
		FirstName:     account.FirstName,
		LastName:      account.LastName,
		Email:         account.Email,
		DateJoined:    account.DateJoined,
		AvatarURL:     media.URL(account.AvatarPath()),
		Role:          string(domain.ResolveRole(account)),
		IsStaff:       account.IsStaff,
		IsSuperuser:   account.IsSuperuser,
		IsActive:      account.IsActive,
		ProfileFields: fields,
		Profile:       fields,
	}
}

func presentProfile(p *domain.EmployeeProfile, dept *domain.Department) ProfileFields {
	if p == nil {
		return ProfileFields{}
	}
	fields := ProfileFields{
		IDNumber:        p.IDNumber,
		DateOfBirth:     dateOrNil(p.DateOfBirth),
		Gender:          p.Gender,
		Phone:           p.Phone,
		PhysicalAddress: p.PhysicalAddress,
		PayrollNumber:   p.PayrollNumber,
		Department:      p.DepartmentID,
		Position:        p.Position,
		HireDate:        dateOrNil(p.HireDate),
		UpdatedOn:       p.UpdatedOn,
	}
	if dept != nil && p.DepartmentID != nil && dept.ID == *p.DepartmentID {
		name := dept.Name
		fields.DepartmentName = &name
	}
	return fields
}
