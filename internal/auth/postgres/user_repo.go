// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/empauth/empauth/internal/auth"
)

const userColumns = `user_id, email, employee_number, password_hash, name, phone, is_deleted, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		user.ID.String(),
		user.Email,
		user.EmployeeNumber,
		user.PasswordHash,
		user.Name,
		user.Phone,
		user.IsDeleted,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if constraint, ok := uniqueViolation(err); ok {
		return oops.Code("USER_CONFLICT").
			With("constraint", constraint).
			Wrap(auth.ErrConflict)
	}
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	return r.getOne(ctx, "user_id", id.String())
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getOne(ctx, "email", email)
}

// GetByEmployeeNumber retrieves a user by employee number.
func (r *UserRepository) GetByEmployeeNumber(ctx context.Context, employeeNumber string) (*auth.User, error) {
	return r.getOne(ctx, "employee_number", employeeNumber)
}

// getOne looks a user up by a unique column. column is never user input.
func (r *UserRepository) getOne(ctx context.Context, column, value string) (*auth.User, error) {
	row := conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With(column, value).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by "+column).
			Wrap(err)
	}
	return user, nil
}

// UpdatePassword replaces the password hash of a user.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string, at time.Time) error {
	result, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE user_id = $1
	`, id.String(), passwordHash, at)
	if err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("user_id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("user_id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// MarkDeleted sets the soft-delete flag of a user.
func (r *UserRepository) MarkDeleted(ctx context.Context, id ulid.ULID, at time.Time) error {
	result, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE users SET is_deleted = TRUE, updated_at = $2
		WHERE user_id = $1
	`, id.String(), at)
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").
			With("operation", "mark user deleted").
			With("user_id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("user_id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Lock takes a FOR UPDATE lock on the user row. Outside a transaction the
// lock is released as soon as the statement finishes.
func (r *UserRepository) Lock(ctx context.Context, id ulid.ULID) error {
	var one int
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT 1 FROM users WHERE user_id = $1 FOR UPDATE`, id.String()).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.Code("USER_NOT_FOUND").
			With("user_id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.Code("USER_LOCK_FAILED").
			With("operation", "lock user").
			With("user_id", id.String()).
			Wrap(err)
	}
	return nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr string
		user  auth.User
	)
	err := row.Scan(
		&idStr,
		&user.Email,
		&user.EmployeeNumber,
		&user.PasswordHash,
		&user.Name,
		&user.Phone,
		&user.IsDeleted,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with lookup context
	}

	user.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("user_id", idStr).
			Wrap(err)
	}
	return &user, nil
}

var _ auth.UserRepository = (*UserRepository)(nil)
