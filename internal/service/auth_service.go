package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spec-kit/hr-service/internal/auth"
	"github.com/spec-kit/hr-service/internal/config"
	"github.com/spec-kit/hr-service/internal/domain"
	"github.com/spec-kit/hr-service/internal/events"
	"github.com/spec-kit/hr-service/internal/observability"
	"github.com/spec-kit/hr-service/internal/repository"
	"github.com/spec-kit/hr-service/internal/storage"
	apperrors "github.com/spec-kit/hr-service/pkg/util/errorutil"
)

// AuthService coordinates registration, login and session flows.
type AuthService struct {
	accounts         repository.AccountRepository
	sessions         auth.SessionStore
	tokens           *auth.TokenManager
	limiter          auth.LoginLimiter
	avatars          storage.AvatarStore
	dispatcher       events.Dispatcher
	metrics          *observability.Metrics
	logger           *zap.Logger
	bcryptCost       int
	allowAdminSignup bool
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	Sessions    auth.SessionStore
	Tokens      *auth.TokenManager
	Limiter     auth.LoginLimiter
	Avatars     storage.AvatarStore
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		accounts:         deps.AccountRepo,
		sessions:         deps.Sessions,
		tokens:           deps.Tokens,
		limiter:          deps.Limiter,
		avatars:          deps.Avatars,
		dispatcher:       deps.Dispatcher,
		metrics:          deps.Metrics,
		logger:           logger,
		bcryptCost:       cfg.Auth.BcryptCost,
		allowAdminSignup: cfg.Auth.AllowAdminSignup,
	}
}

// SignupInput is the self registration form.
type SignupInput struct {
	Username        string `json:"username" validate:"required,max=150,username"`
	Email           string `json:"email" validate:"required,max=254,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	Role            string `json:"role" validate:"required,oneof=Admin Employee Client"`
}

// Register creates an account from the signup form. The avatar is optional.
func (s *AuthService) Register(ctx context.Context, in SignupInput, avatar *storage.AvatarUpload) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	errs := fieldErrors(validate.Struct(in))
	if errs == nil {
		errs = apperrors.FieldErrors{}
	}
	if in.Password != in.ConfirmPassword {
		errs["password"] = "Passwords do not match."
	}
	if domain.Role(in.Role).Is(domain.RoleAdmin) && !s.allowAdminSignup {
		errs["role"] = "Admin accounts cannot be self-registered."
	}
	if _, ok := errs["email"]; !ok {
		taken, err := s.accounts.EmailTaken(ctx, in.Email, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			errs["email"] = msgEmailTaken
		}
	}
	if _, ok := errs["username"]; !ok {
		taken, err := s.accounts.UsernameTaken(ctx, in.Username, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			errs["username"] = msgUsernameUsed
		}
	}
	if len(errs) > 0 {
		return nil, apperrors.NewFieldValidation(errs)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.Role(in.Role),
		IsActive:     true,
	}

	if avatar != nil {
		path, err := saveAvatar(ctx, s.avatars, *avatar)
		if err != nil {
			return nil, err
		}
		account.Avatar = &path
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		removeAvatarQuietly(ctx, s.avatars, s.logger, account.AvatarPath())
		return nil, duplicateAsValidation(err)
	}

	span.SetAttributes(attribute.Int64("account.id", account.ID))
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventAccountRegistered,
		SubjectID: account.ID,
		Actor:     actorOf(account),
		Payload:   events.AccountRegisteredPayload{Username: account.Username, Role: string(account.Role)},
	})
	return account, nil
}

// LoginInput carries credentials. Identifier is a username or an email address.
// Role, when given, must match the account's stored role.
type LoginInput struct {
	Identifier string
	Password   string
	Role       string
	ClientKey  string
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	Account *domain.Account
	Session domain.Session
	Token   string
}

// Login verifies credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	identifier := strings.TrimSpace(in.Identifier)
	if identifier == "" || in.Password == "" {
		return nil, apperrors.NewValidationError("Username and password are required", nil)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, in.ClientKey)
		if err != nil {
			s.logger.Warn("login limiter unavailable", zap.Error(err))
		} else if !allowed {
			s.metrics.RecordLogin("throttled")
			return nil, apperrors.NewTooManyRequests("Too many login attempts. Try again later.")
		}
	}

	account, err := s.lookup(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if account == nil || !account.IsActive || !auth.CheckPassword(account.PasswordHash, in.Password) {
		s.metrics.RecordLogin("invalid")
		return nil, apperrors.NewUnauthorized("Invalid credentials")
	}

	requested := strings.TrimSpace(in.Role)
	if requested != "" && strings.TrimSpace(string(account.Role)) != "" && !account.Role.Is(domain.Role(requested)) {
		s.metrics.RecordLogin("role_mismatch")
		return nil, apperrors.NewForbidden("Role mismatch: expected " + string(account.Role))
	}

	session, err := s.sessions.Create(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.GenerateToken(session)
	if err != nil {
		_ = s.sessions.Delete(ctx, session.ID)
		return nil, err
	}
	if err := s.accounts.TouchLastLogin(ctx, account.ID); err != nil {
		s.logger.Warn("update last login failed", zap.Int64("account_id", account.ID), zap.Error(err))
	}

	s.metrics.RecordLogin("success")
	return &LoginResult{Account: account, Session: session, Token: token}, nil
}

// lookup resolves an email first, then a username. A miss returns nil without error.
func (s *AuthService) lookup(ctx context.Context, identifier string) (*domain.Account, error) {
	if strings.Contains(identifier, "@") {
		account, err := s.accounts.GetByEmail(ctx, identifier)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}
	account, err := s.accounts.GetByUsername(ctx, identifier)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return account, err
}

// Logout revokes the session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

// ChangePassword verifies the current password before storing the new one.
func (s *AuthService) ChangePassword(ctx context.Context, account *domain.Account, currentPassword, newPassword string) error {
	if account == nil {
		return apperrors.NewUnauthorized("Authentication credentials were not provided.")
	}
	stored, err := s.accounts.GetByID(ctx, account.ID)
	if err != nil {
		return err
	}

	errs := apperrors.FieldErrors{}
	if !auth.CheckPassword(stored.PasswordHash, currentPassword) {
		errs["current_password"] = "Current password is incorrect."
	}
	if len(newPassword) < auth.MinPasswordLength {
		errs["new_password"] = "Ensure this field has at least 8 characters."
	}
	if len(errs) > 0 {
		return apperrors.NewFieldValidation(errs)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return err
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventPasswordChanged,
		SubjectID: account.ID,
		Actor:     actorOf(account),
	})
	return nil
}

func saveAvatar(ctx context.Context, avatars storage.AvatarStore, upload storage.AvatarUpload) (string, error) {
	if avatars == nil {
		return "", apperrors.NewFieldValidation(apperrors.FieldErrors{"avatar": "Avatar uploads are disabled."})
	}
	path, err := avatars.Save(ctx, upload)
	switch {
	case errors.Is(err, storage.ErrNotAnImage):
		return "", apperrors.NewFieldValidation(apperrors.FieldErrors{"avatar": "Upload a valid image. The file you uploaded was either not an image or a corrupted image."})
	case errors.Is(err, storage.ErrTooLarge):
		return "", apperrors.NewFieldValidation(apperrors.FieldErrors{"avatar": "The uploaded file is too large."})
	}
	return path, err
}

// duplicateAsValidation turns a unique violation into a field error.
func duplicateAsValidation(err error) error {
	var dup *repository.DuplicateError
	if !errors.As(err, &dup) {
		return err
	}
	msg := "This value is already in use."
	switch dup.Field {
	case "email":
		msg = msgEmailTaken
	case "username":
		msg = msgUsernameUsed
	case "name":
		msg = "A department with that name already exists."
	}
	return apperrors.NewFieldValidation(apperrors.FieldErrors{dup.Field: msg})
}
