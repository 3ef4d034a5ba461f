package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hr-service/internal/api/dto"
	"github.com/spec-kit/hr-service/internal/auth"
	"github.com/spec-kit/hr-service/internal/domain"
	"github.com/spec-kit/hr-service/internal/service"
)

// EmployeeHandler serves the self-service profile and dashboard.
type EmployeeHandler struct {
	accounts    *service.AccountService
	reconciler  *service.Reconciler
	mediaPrefix string
}

// NewEmployeeHandler constructs handler.
func NewEmployeeHandler(accounts *service.AccountService, reconciler *service.Reconciler, mediaPrefix string) *EmployeeHandler {
	return &EmployeeHandler{accounts: accounts, reconciler: reconciler, mediaPrefix: mediaPrefix}
}

// Profile handles GET /api/employee/profile/.
func (h *EmployeeHandler) Profile(c *fiber.Ctx) error {
	view, err := h.accounts.Get(c.UserContext(), auth.CurrentAccount(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(presentView(view, mediaFor(c, h.mediaPrefix)))
}

// UpdateProfile handles PATCH /api/employee/profile/. Employees cannot change
// their own role or active flag.
func (h *EmployeeHandler) UpdateProfile(c *fiber.Ctx) error {
	payload, release, err := readPayload(c)
	if err != nil {
		return err
	}
	defer release()

	self := auth.CurrentAccount(c)
	view, err := h.reconciler.Apply(c.UserContext(), self, self.ID, service.SelfKeySet, payload)
	if err != nil {
		return err
	}
	return c.JSON(presentView(view, mediaFor(c, h.mediaPrefix)))
}

// Dashboard handles GET /api/dashboard/employee/.
func (h *EmployeeHandler) Dashboard(c *fiber.Ctx) error {
	view, err := h.accounts.Get(c.UserContext(), auth.CurrentAccount(c).ID)
	if err != nil {
		return err
	}

	name := view.Account.FullName()
	if name == "" {
		name = view.Account.Username
	}
	resp := dto.DashboardResponse{
		Greeting: "Hello " + name,
		Role:     string(domain.ResolveRole(view.Account)),
		Stats:    map[string]int{"notifications": 0, "tasks": 0},
	}
	if view.Profile != nil {
		resp.Position = view.Profile.Position
	}
	if view.Department != nil {
		dept := view.Department.Name
		resp.Department = &dept
	}
	return c.JSON(resp)
}
