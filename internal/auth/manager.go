// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/empauth/empauth/pkg/errutil"
)

// dummyPasswordHash is verified against when the employee number is unknown
// so that login time does not reveal whether an account exists. It matches
// no password.
//
//nolint:gosec // G101: not a credential
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

const (
	invalidCredentialsMessage = "Incorrect employee number or password"
	credentialsMessage        = "Could not validate credentials"
)

// SignupRequest holds the fields of a new account.
type SignupRequest struct {
	Email          string
	Password       string
	Name           string
	Phone          string
	EmployeeNumber string
}

// PasswordChange holds the fields of a password change.
type PasswordChange struct {
	Current string
	New     string
	Confirm string
}

// Manager orchestrates the account lifecycle: signup, login, password change,
// deactivation and password reset.
type Manager struct {
	users      UserRepository
	hasher     PasswordHasher
	tokens     *TokenIssuer
	resets     *ResetTokenStore
	tx         Transactor
	policy     PasswordPolicy
	sessionTTL time.Duration
	now        Clock
	logger     *slog.Logger
	metrics    *Metrics
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithPasswordPolicy sets the policy applied to changed passwords.
func WithPasswordPolicy(policy PasswordPolicy) ManagerOption {
	return func(m *Manager) { m.policy = policy }
}

// WithSessionTTL sets the lifetime of session tokens issued at login.
func WithSessionTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) { m.sessionTTL = ttl }
}

// WithClock replaces the wall clock.
func WithClock(now Clock) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics enables operation metrics.
func WithMetrics(metrics *Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager creates a Manager.
func NewManager(
	users UserRepository,
	hasher PasswordHasher,
	tokens *TokenIssuer,
	resets *ResetTokenStore,
	tx Transactor,
	opts ...ManagerOption,
) (*Manager, error) {
	switch {
	case users == nil:
		return nil, oops.Code("MANAGER_INVALID").Errorf("user repository is required")
	case hasher == nil:
		return nil, oops.Code("MANAGER_INVALID").Errorf("password hasher is required")
	case tokens == nil:
		return nil, oops.Code("MANAGER_INVALID").Errorf("token issuer is required")
	case resets == nil:
		return nil, oops.Code("MANAGER_INVALID").Errorf("reset token store is required")
	case tx == nil:
		return nil, oops.Code("MANAGER_INVALID").Errorf("transactor is required")
	}

	m := &Manager{
		users:      users,
		hasher:     hasher,
		tokens:     tokens,
		resets:     resets,
		tx:         tx,
		policy:     DefaultPasswordPolicy(),
		sessionTTL: DefaultSessionTTL,
		now:        utcNow,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) observe(operation string, start time.Time, err *error) {
	m.metrics.observe(operation, start, *err)
}

// Signup registers a new account. An email or employee number already in
// use, by an active or a deactivated account, is a Conflict.
func (m *Manager) Signup(ctx context.Context, req SignupRequest) (_ *User, err error) {
	defer m.observe(OpSignup, time.Now(), &err)

	if req.Password == "" {
		return nil, fail("AUTH_PASSWORD_EMPTY", ErrBadRequest, "Password cannot be empty")
	}

	if _, err := m.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, fail("AUTH_EMAIL_TAKEN", ErrConflict, "Email already registered")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").With("operation", "get user by email").Wrap(err)
	}

	if _, err := m.users.GetByEmployeeNumber(ctx, req.EmployeeNumber); err == nil {
		return nil, fail("AUTH_EMPLOYEE_NUMBER_TAKEN", ErrConflict, "Employee number already registered")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").With("operation", "get user by employee number").Wrap(err)
	}

	hash, err := m.hasher.Hash(req.Password)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").With("operation", "hash password").Wrap(err)
	}

	user, err := NewUser(req.Email, req.EmployeeNumber, hash, req.Name, req.Phone, m.now())
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_INVALID").Wrap(newFailure(ErrBadRequest, err.Error()))
	}

	if err := m.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fail("AUTH_ACCOUNT_TAKEN", ErrConflict, "Email or employee number already registered")
		}
		return nil, oops.Code("AUTH_SIGNUP_FAILED").With("operation", "create user").Wrap(err)
	}

	m.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, nil
}

// Login checks an employee number and password and issues a session token
// whose subject is the employee number. Unknown employee numbers and wrong
// passwords fail identically. A deactivated account is Forbidden even with
// the correct password.
func (m *Manager) Login(ctx context.Context, employeeNumber, password string) (_ *SessionToken, err error) {
	defer m.observe(OpLogin, time.Now(), &err)

	user, lookupErr := m.users.GetByEmployeeNumber(ctx, employeeNumber)
	targetHash := dummyPasswordHash
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by employee number").
			Wrap(lookupErr)
	}

	// Verify even for unknown users to keep response time uniform.
	valid := m.hasher.Verify(password, targetHash)
	if lookupErr != nil || !valid {
		return nil, fail("AUTH_INVALID_CREDENTIALS", ErrUnauthorized, invalidCredentialsMessage)
	}

	if user.IsDeleted {
		return nil, fail("AUTH_ACCOUNT_DEACTIVATED", ErrForbidden, "Account is deactivated or deleted")
	}

	if m.hasher.NeedsUpgrade(user.PasswordHash) {
		m.upgradeHash(ctx, user, password)
	}

	token, err := m.tokens.Issue(user.EmployeeNumber, m.sessionTTL)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "issue session token").Wrap(err)
	}
	return token, nil
}

// upgradeHash rehashes a legacy password hash. Login succeeds regardless.
func (m *Manager) upgradeHash(ctx context.Context, user *User, password string) {
	hash, err := m.hasher.Hash(password)
	if err == nil {
		err = m.users.UpdatePassword(ctx, user.ID, hash, m.now())
	}
	if err != nil {
		m.logger.WarnContext(ctx, "password hash upgrade failed",
			"user_id", user.ID.String(), "error", err)
		return
	}
	user.PasswordHash = hash
}

// Authenticate resolves a session token to its active user. Tokens of
// unknown or deactivated users are Unauthorized.
func (m *Manager) Authenticate(ctx context.Context, token string) (_ *User, err error) {
	defer m.observe(OpAuthenticate, time.Now(), &err)

	subject, err := m.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := m.users.GetByEmployeeNumber(ctx, subject)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_AUTHENTICATE_FAILED").
			With("operation", "get user by employee number").
			Wrap(err)
	}
	if !user.Active() {
		return nil, fail("AUTH_USER_INVALID", ErrUnauthorized, credentialsMessage)
	}
	return user, nil
}

// ChangePassword replaces the password of user after checking the current
// password, the confirmation and the password policy. Existing session tokens
// stay valid.
func (m *Manager) ChangePassword(ctx context.Context, user *User, change PasswordChange) (_ *User, err error) {
	defer m.observe(OpChangePassword, time.Now(), &err)

	if !m.hasher.Verify(change.Current, user.PasswordHash) {
		return nil, fail("AUTH_CURRENT_PASSWORD_MISMATCH", ErrUnauthorized, "Current password is incorrect")
	}
	if change.New != change.Confirm {
		return nil, fail("AUTH_PASSWORD_CONFIRM_MISMATCH", ErrBadRequest, "New password and confirmation do not match")
	}
	if change.New == change.Current {
		return nil, fail("AUTH_PASSWORD_UNCHANGED", ErrBadRequest, "New password must differ from the current password")
	}
	if err := m.policy.Validate(change.New); err != nil {
		return nil, err
	}

	updated, err := m.setPassword(ctx, user, change.New)
	if err != nil {
		return nil, oops.Code("AUTH_CHANGE_PASSWORD_FAILED").With("user_id", user.ID.String()).Wrap(err)
	}

	m.logger.InfoContext(ctx, "password changed", "user_id", user.ID.String())
	return updated, nil
}

// setPassword hashes password, stores it and returns an updated copy of user.
func (m *Manager) setPassword(ctx context.Context, user *User, password string) (*User, error) {
	hash, err := m.hasher.Hash(password)
	if err != nil {
		return nil, oops.With("operation", "hash password").Wrap(err)
	}

	now := m.now().UTC()
	if err := m.users.UpdatePassword(ctx, user.ID, hash, now); err != nil {
		return nil, oops.With("operation", "update password").Wrap(err)
	}

	updated := *user
	updated.PasswordHash = hash
	updated.UpdatedAt = now
	return &updated, nil
}

// Deactivate soft-deletes user after checking password.
func (m *Manager) Deactivate(ctx context.Context, user *User, password string) (err error) {
	defer m.observe(OpDeactivate, time.Now(), &err)

	if !m.hasher.Verify(password, user.PasswordHash) {
		return fail("AUTH_PASSWORD_MISMATCH", ErrUnauthorized, "Incorrect password")
	}
	if user.IsDeleted {
		return fail("AUTH_ALREADY_DEACTIVATED", ErrBadRequest, "Account is already deactivated")
	}

	now := m.now().UTC()
	if err := m.users.MarkDeleted(ctx, user.ID, now); err != nil {
		return oops.Code("AUTH_DEACTIVATE_FAILED").With("user_id", user.ID.String()).Wrap(err)
	}
	user.IsDeleted = true
	user.UpdatedAt = now

	m.logger.InfoContext(ctx, "user deactivated", "user_id", user.ID.String())
	return nil
}

// RequestPasswordReset mails a reset link to the account registered under
// email. An unknown email succeeds without issuing anything; a deactivated
// account is a BadRequest.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) (err error) {
	defer m.observe(OpRequestReset, time.Now(), &err)

	user, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_RESET_REQUEST_FAILED").With("operation", "get user by email").Wrap(err)
	}
	if user.IsDeleted {
		return fail("AUTH_RESET_DEACTIVATED", ErrBadRequest, "Cannot reset password for a deactivated account.")
	}

	if _, err := m.resets.Issue(ctx, user); err != nil {
		return err
	}
	return nil
}

// ConfirmPasswordReset sets a new password for the owner of a reset token and
// consumes the token. The token is checked again under the owner's row lock,
// and the reset only commits if this call is the one that deleted it.
func (m *Manager) ConfirmPasswordReset(ctx context.Context, token, newPassword string) (_ *User, err error) {
	defer m.observe(OpConfirmReset, time.Now(), &err)

	user, err := m.resets.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if newPassword == "" {
		return nil, fail("AUTH_PASSWORD_EMPTY", ErrBadRequest, "Password cannot be empty")
	}

	var updated *User
	err = m.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := m.users.Lock(ctx, user.ID); err != nil {
			return oops.With("operation", "lock user").Wrap(err)
		}
		owner, err := m.resets.Verify(ctx, token)
		if err != nil {
			return err
		}
		n, err := m.resets.Consume(ctx, owner.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fail("RESET_TOKEN_NOT_FOUND", ErrBadRequest, invalidResetTokenMessage)
		}
		updated, err = m.setPassword(ctx, owner, newPassword)
		return err
	})
	if err != nil {
		return nil, oops.Code("AUTH_RESET_CONFIRM_FAILED").With("user_id", user.ID.String()).Wrap(err)
	}

	m.logger.InfoContext(ctx, "password reset", "user_id", user.ID.String())
	return updated, nil
}

// VerifyPassword re-checks the password of an authenticated user before a
// sensitive operation.
func (m *Manager) VerifyPassword(ctx context.Context, user *User, password string) (err error) {
	defer m.observe(OpVerifyPassword, time.Now(), &err)

	if password == "" {
		return fail("AUTH_PASSWORD_MISSING", ErrBadRequest, "Password is required")
	}
	if !m.hasher.Verify(password, user.PasswordHash) {
		return fail("AUTH_PASSWORD_MISMATCH", ErrUnauthorized, "Password does not match")
	}
	return nil
}

// PurgeExpiredResetTokens removes expired reset tokens.
func (m *Manager) PurgeExpiredResetTokens(ctx context.Context) (int64, error) {
	n, err := m.resets.PurgeExpired(ctx)
	if err != nil {
		errutil.LogErrorContext(ctx, m.logger, "purge expired reset tokens failed", err)
		return 0, err
	}
	return n, nil
}
