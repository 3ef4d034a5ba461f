package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/hr-service/internal/auth"
	"github.com/spec-kit/hr-service/internal/config"
	"github.com/spec-kit/hr-service/internal/domain"
	"github.com/spec-kit/hr-service/internal/events"
	"github.com/spec-kit/hr-service/internal/testutil"
	apperrors "github.com/spec-kit/hr-service/pkg/util/errorutil"
)

type harness struct {
	db         *testutil.DB
	avatars    *testutil.Avatars
	sessions   *testutil.Sessions
	limiter    *testutil.Limiter
	dispatcher events.Dispatcher
	reconciler *Reconciler
	accounts   *AccountService
	auth       *AuthService
	depts      *DepartmentService

	mu        sync.Mutex
	published []events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		db:         testutil.NewDB(),
		avatars:    testutil.NewAvatars(),
		sessions:   testutil.NewSessions(),
		limiter:    &testutil.Limiter{},
		dispatcher: events.NewInMemoryDispatcher(),
	}
	for _, eventType := range events.AllEventTypes {
		h.dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.published = append(h.published, e)
			return nil
		})
	}

	h.reconciler = NewReconciler(ReconcilerDependencies{
		AccountRepo:    h.db.Accounts(),
		ProfileRepo:    h.db.Profiles(),
		DepartmentRepo: h.db.Departments(),
		Avatars:        h.avatars,
		Tx:             h.db,
		Dispatcher:     h.dispatcher,
	})
	h.accounts = NewAccountService(AccountDependencies{
		AccountRepo:    h.db.Accounts(),
		ProfileRepo:    h.db.Profiles(),
		DepartmentRepo: h.db.Departments(),
		Avatars:        h.avatars,
		Tx:             h.db,
		Dispatcher:     h.dispatcher,
	})
	cfg := config.Config{Auth: config.AuthConfig{BcryptCost: bcrypt.MinCost}}
	h.auth = NewAuthService(cfg, AuthDependencies{
		AccountRepo: h.db.Accounts(),
		Sessions:    h.sessions,
		Tokens:      auth.NewTokenManager("secret"),
		Limiter:     h.limiter,
		Avatars:     h.avatars,
		Dispatcher:  h.dispatcher,
	})
	h.depts = NewDepartmentService(h.db.Departments(), h.dispatcher, nil)
	return h
}

func (h *harness) events() []events.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]events.EventType, 0, len(h.published))
	for _, e := range h.published {
		out = append(out, e.Type)
	}
	return out
}

func (h *harness) addUser(t *testing.T, a domain.Account, password string) *domain.Account {
	t.Helper()
	if password != "" {
		hash, err := auth.HashPassword(password, bcrypt.MinCost)
		require.NoError(t, err)
		a.PasswordHash = hash
	}
	return h.db.AddAccount(a)
}

func ptr[T any](v T) *T { return &v }

// requireCode asserts err is a DomainError with the given code and returns it.
func requireCode(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, code, domainErr.Code, "error: %v", err)
	return domainErr
}

func fields(kv ...any) Payload {
	p := Payload{Fields: map[string]Value{}}
	for i := 0; i+1 < len(kv); i += 2 {
		key := kv[i].(string)
		switch v := kv[i+1].(type) {
		case nil:
			p.Fields[key] = Null
		case string:
			p.Fields[key] = Str(v)
		case Value:
			p.Fields[key] = v
		}
	}
	return p
}
