package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hr-service/internal/api/dto"
	"github.com/spec-kit/hr-service/internal/auth"
	"github.com/spec-kit/hr-service/internal/service"
	apperrors "github.com/spec-kit/hr-service/pkg/util/errorutil"
)

// AdminUsersHandler exposes account management for admins.
type AdminUsersHandler struct {
	accounts    *service.AccountService
	reconciler  *service.Reconciler
	mediaPrefix string
}

// NewAdminUsersHandler constructs handler.
func NewAdminUsersHandler(accounts *service.AccountService, reconciler *service.Reconciler, mediaPrefix string) *AdminUsersHandler {
	return &AdminUsersHandler{accounts: accounts, reconciler: reconciler, mediaPrefix: mediaPrefix}
}

// List handles GET /api/admin/users/.
func (h *AdminUsersHandler) List(c *fiber.Ctx) error {
	views, err := h.accounts.ListStaff(c.UserContext())
	if err != nil {
		return err
	}
	media := mediaFor(c, h.mediaPrefix)
	out := make([]dto.AccountResponse, 0, len(views))
	for i := range views {
		out = append(out, presentView(&views[i], media))
	}
	return c.JSON(out)
}

// Get handles GET /api/admin/users/:id/.
func (h *AdminUsersHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "user")
	if err != nil {
		return err
	}
	view, err := h.accounts.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(presentView(view, mediaFor(c, h.mediaPrefix)))
}

// Update handles PATCH /api/admin/users/:id/.
func (h *AdminUsersHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "user")
	if err != nil {
		return err
	}
	payload, release, err := readPayload(c)
	if err != nil {
		return err
	}
	defer release()

	view, err := h.reconciler.Apply(c.UserContext(), auth.CurrentAccount(c), id, service.AdminKeySet, payload)
	if err != nil {
		return err
	}
	return c.JSON(presentView(view, mediaFor(c, h.mediaPrefix)))
}

// Delete handles DELETE /api/admin/users/:id/ and its /delete/ alias.
func (h *AdminUsersHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "user")
	if err != nil {
		return err
	}
	if err := h.accounts.Delete(c.UserContext(), auth.CurrentAccount(c), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// BulkDelete handles POST /api/admin/users/bulk-delete/. A missing ids key deletes nothing.
func (h *AdminUsersHandler) BulkDelete(c *fiber.Ctx) error {
	var req dto.BulkDeleteRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperrors.NewValidationError("ids must be a list", nil)
	}
	ids := []int64{}
	if len(req.IDs) > 0 {
		if err := json.Unmarshal(req.IDs, &ids); err != nil || ids == nil {
			return apperrors.NewValidationError("ids must be a list", nil)
		}
	}

	result, err := h.accounts.BulkDelete(c.UserContext(), auth.CurrentAccount(c), ids)
	if err != nil {
		return err
	}
	skipped := result.Skipped
	if skipped == nil {
		skipped = []int64{}
	}
	return c.JSON(dto.BulkDeleteResponse{Deleted: result.Deleted, Skipped: skipped})
}
