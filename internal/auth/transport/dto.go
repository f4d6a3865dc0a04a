package transport

import (
	"time"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,passwordmix"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,passwordmix"`
}

// CreateUserRequest is used by administrators; the role is mandatory.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,role"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password"`
	Role     *string `json:"role" validate:"omitempty,role"`
	IsActive *bool   `json:"isActive"`
}

// UserResponse is the public shape of an account.
type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

// UserDetailResponse adds account state for the management screens.
type UserDetailResponse struct {
	UserResponse
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type AuthResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

type MeResponse struct {
	User UserResponse `json:"user"`
}

type UsersResponse struct {
	Users []UserResponse `json:"users"`
}

type UserDetailsResponse struct {
	Users []UserDetailResponse `json:"users"`
}

type UserEnvelope struct {
	Message string             `json:"message"`
	User    UserDetailResponse `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
