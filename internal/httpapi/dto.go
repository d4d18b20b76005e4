// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package httpapi

import (
	"encoding/json"
	"time"

	"github.com/empauth/empauth/internal/auth"
)

// Acknowledgment returned by forgot_password whether or not the address
// belongs to an account.
const (
	forgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."
	forgotPasswordDetail  = "Check your email for the reset link."
)

type signupRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	EmployeeNumber string `json:"emp_number" validate:"required"`
}

// UnmarshalJSON accepts empNumber as an alias of emp_number.
func (r *signupRequest) UnmarshalJSON(data []byte) error {
	type plain signupRequest
	var wire struct {
		plain
		EmpNumberAlias string `json:"empNumber"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err //nolint:wrapcheck // decode errors are reported verbatim
	}
	*r = signupRequest(wire.plain)
	if r.EmployeeNumber == "" {
		r.EmployeeNumber = wire.EmpNumberAlias
	}
	return nil
}

type loginRequest struct {
	EmployeeNumber string `json:"emp_number" validate:"required"`
	Password       string `json:"password" validate:"required"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type userResponse struct {
	UserID         string    `json:"user_id"`
	EmployeeNumber string    `json:"emp_number"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	CreatedAt      time.Time `json:"created_at"`
	IsDeleted      bool      `json:"is_deleted"`
}

func newUserResponse(u *auth.User) userResponse {
	return userResponse{
		UserID:         u.ID.String(),
		EmployeeNumber: u.EmployeeNumber,
		Email:          u.Email,
		Name:           u.Name,
		Phone:          u.Phone,
		CreatedAt:      u.CreatedAt,
		IsDeleted:      u.IsDeleted,
	}
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type messageResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
