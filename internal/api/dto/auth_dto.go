package dto

import "strings"

// SignupRequest payload for self registration (JSON or multipart form).
type SignupRequest struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
	Role            string `json:"role" form:"role"`
}

// LoginRequest payload for login. The identifier may arrive under any of three keys.
type LoginRequest struct {
	Username        string `json:"username" form:"username"`
	UsernameOrEmail string `json:"username_or_email" form:"username_or_email"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	Role            string `json:"role" form:"role"`
}

// Identifier returns the first non-blank of username, username_or_email and email.
func (r LoginRequest) Identifier() string {
	for _, candidate := range []string{r.Username, r.UsernameOrEmail, r.Email} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Token    string `json:"token,omitempty"`
	Avatar   string `json:"avatar"`
}

// WhoAmIResponse describes the authenticated caller.
type WhoAmIResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar"`
	IsStaff  bool   `json:"is_staff"`
}

// DetailResponse carries a human readable status line.
type DetailResponse struct {
	Detail string `json:"detail"`
}
