package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hr-service/internal/api/dto"
	"github.com/spec-kit/hr-service/internal/auth"
	"github.com/spec-kit/hr-service/internal/service"
)

// DepartmentsHandler exposes department CRUD.
type DepartmentsHandler struct {
	departments *service.DepartmentService
}

// NewDepartmentsHandler constructs handler.
func NewDepartmentsHandler(departments *service.DepartmentService) *DepartmentsHandler {
	return &DepartmentsHandler{departments: departments}
}

// List handles GET /api/departments/.
func (h *DepartmentsHandler) List(c *fiber.Ctx) error {
	depts, err := h.departments.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewDepartmentList(depts))
}

// Create handles POST /api/departments/.
func (h *DepartmentsHandler) Create(c *fiber.Ctx) error {
	var req dto.DepartmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	dept, err := h.departments.Create(c.UserContext(), service.DepartmentInput{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewDepartmentResponse(*dept))
}

// Update handles PATCH /api/departments/:id/.
func (h *DepartmentsHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "department")
	if err != nil {
		return err
	}
	var req dto.DepartmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	dept, err := h.departments.Update(c.UserContext(), id, service.DepartmentInput{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewDepartmentResponse(*dept))
}

// Delete handles DELETE /api/departments/:id/.
func (h *DepartmentsHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "department")
	if err != nil {
		return err
	}
	if err := h.departments.Delete(c.UserContext(), auth.CurrentAccount(c), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
