package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/spec-kit/hr-service/internal/domain"
	"github.com/spec-kit/hr-service/internal/events"
	"github.com/spec-kit/hr-service/internal/repository"
	"github.com/spec-kit/hr-service/internal/storage"
)

var tracer = otel.Tracer("github.com/spec-kit/hr-service/internal/service")

// TransactionManager runs a callback inside a database transaction.
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func txOrNoop(tx TransactionManager) TransactionManager {
	if tx == nil {
		return noopTransactionManager{}
	}
	return tx
}

// AccountView is an account with its optional profile and department, ready for presentation.
type AccountView struct {
	Account    *domain.Account
	Profile    *domain.EmployeeProfile
	Department *domain.Department
}

// viewLoader assembles AccountViews from the stores.
type viewLoader struct {
	profiles    repository.ProfileRepository
	departments repository.DepartmentRepository
}

func (l viewLoader) load(ctx context.Context, account *domain.Account) (*AccountView, error) {
	view := &AccountView{Account: account}
	profile, err := l.profiles.GetByAccountID(ctx, account.ID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return view, nil
	case err != nil:
		return nil, err
	}
	view.Profile = profile
	view.Department, err = l.department(ctx, profile.DepartmentRef())
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (l viewLoader) department(ctx context.Context, id *int64) (*domain.Department, error) {
	if id == nil {
		return nil, nil
	}
	dept, err := l.departments.GetByID(ctx, *id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return dept, err
}

func actorOf(a *domain.Account) events.Actor {
	if a == nil {
		return events.Actor{}
	}
	id := a.ID
	return events.Actor{AccountID: &id, Username: a.Username}
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func removeAvatarQuietly(ctx context.Context, avatars storage.AvatarStore, logger *zap.Logger, path string) {
	if avatars == nil || path == "" {
		return
	}
	if err := avatars.Remove(ctx, path); err != nil {
		logger.Warn("avatar cleanup failed", zap.String("path", path), zap.Error(err))
	}
}
