package api

import "github.com/hetaoshu/hetaoshu-web/internal/domain"

// Request DTOs

type LoginRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

type SendCodeRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

type SetPasswordRequest struct {
	StudentID       string `json:"student_id" validate:"required"`
	Code            string `json:"code" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// Response DTOs

// AuthResponse is returned by login and set-password.
type AuthResponse struct {
	Message string      `json:"message,omitempty"`
	Token   string      `json:"token" validate:"required"`
	User    domain.User `json:"user" validate:"required"`
}

type TokenResponse struct {
	Message string `json:"message,omitempty"`
	Token   string `json:"token" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type PublicKeyResponse struct {
	PublicKey string `json:"publicKey" validate:"required"`
}
