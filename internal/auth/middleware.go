package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hr-service/internal/domain"
	"github.com/spec-kit/hr-service/internal/repository"
	apperrors "github.com/spec-kit/hr-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

var errNotAuthenticated = errors.New("not authenticated")

// Principal represents the authenticated caller.
type Principal struct {
	Account *domain.Account
	Session *domain.Session
}

// AuthMiddleware resolves the session token from the session cookie or a bearer header.
type AuthMiddleware struct {
	tokens     *TokenManager
	sessions   SessionStore
	accounts   repository.AccountRepository
	cookieName string
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, sessions SessionStore, accounts repository.AccountRepository, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, sessions: sessions, accounts: accounts, cookieName: cookieName}
}

// Authenticate loads the principal when credentials are present. Requests without
// credentials, or with a stale cookie, continue anonymously; route guards decide access.
func (m *AuthMiddleware) Authenticate(c *fiber.Ctx) error {
	raw, fromHeader := bearerToken(c)
	if !fromHeader {
		raw = c.Cookies(m.cookieName)
	}
	if raw == "" {
		return c.Next()
	}

	principal, err := m.resolve(c.UserContext(), raw)
	switch {
	case errors.Is(err, errNotAuthenticated):
		if fromHeader {
			return apperrors.NewUnauthorized("invalid token")
		}
		c.ClearCookie(m.cookieName)
		return c.Next()
	case err != nil:
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

func (m *AuthMiddleware) resolve(ctx context.Context, raw string) (*Principal, error) {
	claims, err := m.tokens.ParseToken(raw)
	if err != nil {
		return nil, errNotAuthenticated
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return nil, errNotAuthenticated
	}

	session, err := m.sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, errNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	if session.AccountID != accountID {
		return nil, errNotAuthenticated
	}

	account, err := m.accounts.GetByID(ctx, accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, errNotAuthenticated
	}
	return &Principal{Account: account, Session: session}, nil
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	principal, ok := c.Locals(principalKey).(*Principal)
	return principal, ok && principal != nil
}

// CurrentAccount returns the authenticated account or nil for anonymous callers.
func CurrentAccount(c *fiber.Ctx) *domain.Account {
	if principal, ok := PrincipalFromContext(c); ok {
		return principal.Account
	}
	return nil
}

// WithPrincipal stores p on the request, used by tests and internal callers.
func WithPrincipal(c *fiber.Ctx, p *Principal) {
	c.Locals(principalKey, p)
}
