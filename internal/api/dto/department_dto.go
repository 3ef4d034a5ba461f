package dto

import "github.com/spec-kit/hr-service/internal/domain"

// DepartmentRequest creates or patches a department.
type DepartmentRequest struct {
	Name        *string `json:"name" form:"name"`
	Description *string `json:"description" form:"description"`
}

// DepartmentResponse is the public shape of a department.
type DepartmentResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewDepartmentResponse maps a department.
func NewDepartmentResponse(d domain.Department) DepartmentResponse {
	return DepartmentResponse{ID: d.ID, Name: d.Name, Description: d.Description}
}

// NewDepartmentList maps a slice, never returning nil.
func NewDepartmentList(depts []domain.Department) []DepartmentResponse {
	out := make([]DepartmentResponse, 0, len(depts))
	for _, d := range depts {
		out = append(out, NewDepartmentResponse(d))
	}
	return out
}
