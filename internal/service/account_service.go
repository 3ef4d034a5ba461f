package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/hr-service/internal/auth"
	"github.com/spec-kit/hr-service/internal/domain"
	"github.com/spec-kit/hr-service/internal/events"
	"github.com/spec-kit/hr-service/internal/repository"
	"github.com/spec-kit/hr-service/internal/storage"
	apperrors "github.com/spec-kit/hr-service/pkg/util/errorutil"
)

// AccountService serves the admin user directory and account deletion.
type AccountService struct {
	accounts    repository.AccountRepository
	profiles    repository.ProfileRepository
	departments repository.DepartmentRepository
	avatars     storage.AvatarStore
	tx          TransactionManager
	views       viewLoader
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// AccountDependencies encapsulates collaborators of the account service.
type AccountDependencies struct {
	AccountRepo    repository.AccountRepository
	ProfileRepo    repository.ProfileRepository
	DepartmentRepo repository.DepartmentRepository
	Avatars        storage.AvatarStore
	Tx             TransactionManager
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewAccountService constructs the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		accounts:    deps.AccountRepo,
		profiles:    deps.ProfileRepo,
		departments: deps.DepartmentRepo,
		avatars:     deps.Avatars,
		tx:          txOrNoop(deps.Tx),
		views:       viewLoader{profiles: deps.ProfileRepo, departments: deps.DepartmentRepo},
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// ListStaff returns accounts whose resolved role is Admin or Employee, newest first.
func (s *AccountService) ListStaff(ctx context.Context) ([]AccountView, error) {
	ctx, span := tracer.Start(ctx, "AccountService.ListStaff")
	defer span.End()

	var out []AccountView
	err := s.tx.WithinReadOnly(ctx, func(ctx context.Context) error {
		accounts, err := s.accounts.List(ctx)
		if err != nil {
			return err
		}

		staff := make([]domain.Account, 0, len(accounts))
		ids := make([]int64, 0, len(accounts))
		for _, a := range accounts {
			role := domain.ResolveRole(&a)
			if role.Is(domain.RoleAdmin) || role.Is(domain.RoleEmployee) {
				staff = append(staff, a)
				ids = append(ids, a.ID)
			}
		}

		profiles, err := s.profiles.ListByAccountIDs(ctx, ids)
		if err != nil {
			return err
		}
		departments, err := s.departments.List(ctx)
		if err != nil {
			return err
		}
		byID := make(map[int64]*domain.Department, len(departments))
		for i := range departments {
			byID[departments[i].ID] = &departments[i]
		}

		out = make([]AccountView, 0, len(staff))
		for i := range staff {
			view := AccountView{Account: &staff[i], Profile: profiles[staff[i].ID]}
			if ref := view.Profile.DepartmentRef(); ref != nil {
				view.Department = byID[*ref]
			}
			out = append(out, view)
		}
		return nil
	})
	return out, err
}

// Get returns one account with its profile.
func (s *AccountService) Get(ctx context.Context, id int64) (*AccountView, error) {
	var view *AccountView
	err := s.tx.WithinReadOnly(ctx, func(ctx context.Context) error {
		account, err := s.accounts.GetByID(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		if err != nil {
			return err
		}
		view, err = s.views.load(ctx, account)
		return err
	})
	return view, err
}

// Delete removes an account after the self and superuser guards pass.
func (s *AccountService) Delete(ctx context.Context, actor *domain.Account, id int64) error {
	ctx, span := tracer.Start(ctx, "AccountService.Delete")
	defer span.End()

	target, err := s.accounts.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	if err != nil {
		return err
	}
	if err := auth.CheckDelete(actor, target); err != nil {
		return err
	}

	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}
	removeAvatarQuietly(ctx, s.avatars, s.logger, target.AvatarPath())

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventAccountDeleted,
		SubjectID: id,
		Actor:     actorOf(actor),
		Payload:   events.AccountDeletedPayload{Username: target.Username},
	})
	return nil
}

// BulkDeleteResult reports how many accounts were removed and which ids the guards skipped.
type BulkDeleteResult struct {
	Deleted int64   `json:"deleted"`
	Skipped []int64 `json:"skipped"`
}

// BulkDelete removes every listed account the actor may delete. The actor's own
// account and, for non-superusers, superuser accounts are skipped. Unknown ids are ignored.
func (s *AccountService) BulkDelete(ctx context.Context, actor *domain.Account, ids []int64) (*BulkDeleteResult, error) {
	ctx, span := tracer.Start(ctx, "AccountService.BulkDelete")
	defer span.End()

	if !auth.IsAdmin(actor) {
		return nil, apperrors.NewForbidden("admin access required")
	}

	result := &BulkDeleteResult{Skipped: []int64{}}
	var removed []*domain.Account
	err := s.tx.WithinReadWrite(ctx, func(ctx context.Context) error {
		seen := make(map[int64]struct{}, len(ids))
		allowed := make([]int64, 0, len(ids))
		removed = removed[:0]
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			target, err := s.accounts.GetByID(ctx, id)
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			if err != nil {
				return err
			}
			if auth.CheckDelete(actor, target) != nil {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			allowed = append(allowed, id)
			removed = append(removed, target)
		}

		deleted, err := s.accounts.DeleteMany(ctx, allowed)
		result.Deleted = deleted
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, target := range removed {
		removeAvatarQuietly(ctx, s.avatars, s.logger, target.AvatarPath())
		publish(ctx, s.dispatcher, s.logger, events.Event{
			Type:      events.EventAccountDeleted,
			SubjectID: target.ID,
			Actor:     actorOf(actor),
			Payload:   events.AccountDeletedPayload{Username: target.Username, Bulk: true},
		})
	}
	return result, nil
}
