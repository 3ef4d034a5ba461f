package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/hr-service/internal/domain"
	"github.com/spec-kit/hr-service/internal/events"
	"github.com/spec-kit/hr-service/internal/repository"
	apperrors "github.com/spec-kit/hr-service/pkg/util/errorutil"
)

// DepartmentService manages departments.
type DepartmentService struct {
	departments repository.DepartmentRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// NewDepartmentService constructs the service.
func NewDepartmentService(departments repository.DepartmentRepository, dispatcher events.Dispatcher, logger *zap.Logger) *DepartmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{departments: departments, dispatcher: dispatcher, logger: logger}
}

// DepartmentInput is the create form; on update nil fields are left unchanged.
type DepartmentInput struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description"`
}

// List returns all departments ordered by name.
func (s *DepartmentService) List(ctx context.Context) ([]domain.Department, error) {
	return s.departments.List(ctx)
}

// Create adds a department. Name is required and unique.
func (s *DepartmentService) Create(ctx context.Context, in DepartmentInput) (*domain.Department, error) {
	dept := &domain.Department{}
	if err := applyDepartment(dept, in, true); err != nil {
		return nil, err
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, duplicateAsValidation(err)
	}
	return dept, nil
}

// Update changes name and/or description.
func (s *DepartmentService) Update(ctx context.Context, id int64, in DepartmentInput) (*domain.Department, error) {
	dept, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyDepartment(dept, in, false); err != nil {
		return nil, err
	}
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, duplicateAsValidation(err)
	}
	return dept, nil
}

// Delete removes a department; profiles that referenced it become unassigned.
func (s *DepartmentService) Delete(ctx context.Context, actor *domain.Account, id int64) error {
	dept, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.departments.Delete(ctx, id); err != nil {
		return err
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventDepartmentDeleted,
		SubjectID: id,
		Actor:     actorOf(actor),
		Payload:   map[string]string{"name": dept.Name},
	})
	return nil
}

func (s *DepartmentService) get(ctx context.Context, id int64) (*domain.Department, error) {
	dept, err := s.departments.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("department", map[string]any{"id": id})
	}
	return dept, err
}

func applyDepartment(dept *domain.Department, in DepartmentInput, creating bool) error {
	errs := fieldErrors(validate.Struct(in))
	if errs == nil {
		errs = apperrors.FieldErrors{}
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			errs["name"] = msgNotBlank
		}
		dept.Name = name
	} else if creating {
		errs["name"] = msgRequired
	}
	if in.Description != nil {
		dept.Description = *in.Description
	}
	if len(errs) > 0 {
		return apperrors.NewFieldValidation(errs)
	}
	return nil
}
