package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hr-service/internal/api/dto"
	"github.com/spec-kit/hr-service/internal/auth"
	"github.com/spec-kit/hr-service/internal/config"
	"github.com/spec-kit/hr-service/internal/domain"
	"github.com/spec-kit/hr-service/internal/service"
)

// AuthHandler exposes signup, login and session endpoints.
type AuthHandler struct {
	auth        *service.AuthService
	session     config.SessionConfig
	mediaPrefix string
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, session config.SessionConfig, mediaPrefix string) *AuthHandler {
	return &AuthHandler{auth: authService, session: session, mediaPrefix: mediaPrefix}
}

// CSRF handles GET /api/auth/csrf/. The csrf middleware sets the cookie on safe requests.
func (h *AuthHandler) CSRF(c *fiber.Ctx) error {
	return c.JSON(dto.DetailResponse{Detail: "CSRF cookie set"})
}

// Register handles POST /api/auth/register/.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	avatar, release, err := formAvatar(c)
	if err != nil {
		return err
	}
	defer release()

	account, err := h.auth.Register(c.UserContext(), service.SignupInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            req.Role,
	}, avatar)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(h.authResponse(c, "Signup successful", account, ""))
}

// Login handles POST /api/auth/login/.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), service.LoginInput{
		Identifier: req.Identifier(),
		Password:   req.Password,
		Role:       req.Role,
		ClientKey:  c.IP(),
	})
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.session.CookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.Session.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.session.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(h.authResponse(c, "Login successful", result.Account, result.Token))
}

// Logout handles POST /api/auth/logout/.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.Session != nil {
		if err := h.auth.Logout(c.UserContext(), principal.Session.ID); err != nil {
			return err
		}
	}
	c.ClearCookie(h.session.CookieName)
	return c.SendStatus(http.StatusNoContent)
}

// WhoAmI handles GET /api/auth/whoami/. Anonymous callers get a null username.
func (h *AuthHandler) WhoAmI(c *fiber.Ctx) error {
	account := auth.CurrentAccount(c)
	if account == nil {
		return c.JSON(fiber.Map{"username": nil})
	}
	return c.JSON(dto.WhoAmIResponse{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
		Role:     string(domain.ResolveRole(account)),
		Avatar:   mediaFor(c, h.mediaPrefix).URL(account.AvatarPath()),
		IsStaff:  account.IsStaff,
	})
}

// ChangePassword handles POST /api/auth/password/change/.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.PasswordChangeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), auth.CurrentAccount(c), req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(dto.DetailResponse{Detail: "Password updated"})
}

func (h *AuthHandler) authResponse(c *fiber.Ctx, message string, account *domain.Account, token string) dto.AuthResponse {
	return dto.AuthResponse{
		Message:  message,
		Username: account.Username,
		Role:     string(domain.ResolveRole(account)),
		Token:    token,
		Avatar:   mediaFor(c, h.mediaPrefix).URL(account.AvatarPath()),
	}
}
