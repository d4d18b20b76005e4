// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User is an employee account.
type User struct {
	ID             ulid.ULID
	Email          string
	EmployeeNumber string
	PasswordHash   string
	Name           string
	Phone          string
	IsDeleted      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser creates a User with a fresh ID. email, employeeNumber and
// passwordHash are required.
func NewUser(email, employeeNumber, passwordHash, name, phone string, now time.Time) (*User, error) {
	if email == "" {
		return nil, oops.Code("USER_INVALID").Errorf("email cannot be empty")
	}
	if employeeNumber == "" {
		return nil, oops.Code("USER_INVALID").Errorf("employee number cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID").Errorf("password hash cannot be empty")
	}

	now = now.UTC()
	return &User{
		ID:             ulid.Make(),
		Email:          email,
		EmployeeNumber: employeeNumber,
		PasswordHash:   passwordHash,
		Name:           name,
		Phone:          phone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Active reports whether the account may log in and reset its password.
func (u *User) Active() bool {
	return u != nil && !u.IsDeleted
}

// UserRepository manages user persistence. Lookups of absent users return
// an error matching ErrNotFound.
type UserRepository interface {
	// Create stores a new user. Returns an error matching ErrConflict when
	// the email or employee number is already taken, deleted users included.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by exact email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByEmployeeNumber retrieves a user by employee number.
	GetByEmployeeNumber(ctx context.Context, employeeNumber string) (*User, error)

	// UpdatePassword replaces the password hash of a user.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string, at time.Time) error

	// MarkDeleted sets the soft-delete flag of a user.
	MarkDeleted(ctx context.Context, id ulid.ULID, at time.Time) error

	// Lock holds a row lock on the user until the surrounding transaction
	// ends. Reset token changes for one user are serialized on it.
	Lock(ctx context.Context, id ulid.ULID) error
}
