// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package authtest

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/empauth/empauth/internal/auth"
)

// Store is an in-memory user and reset token store. Its Transactor restores
// both tables when the transaction function fails.
type Store struct {
	mu     sync.Mutex
	users  map[ulid.ULID]auth.User
	resets map[ulid.ULID]auth.ResetToken
	fail   map[string]error
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		users:  make(map[ulid.ULID]auth.User),
		resets: make(map[ulid.ULID]auth.ResetToken),
		fail:   make(map[string]error),
	}
}

// FailOn makes every later call of the named repository method return err,
// e.g. FailOn("Users.UpdatePassword", err). A nil err clears the failure.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, method)
		return
	}
	s.fail[method] = err
}

func (s *Store) injected(method string) error {
	return s.fail[method]
}

// Users returns the store's auth.UserRepository.
func (s *Store) Users() *Users { return (*Users)(s) }

// Resets returns the store's auth.ResetTokenRepository.
func (s *Store) Resets() *Resets { return (*Resets)(s) }

// InTransaction runs fn and rolls back both tables if it fails.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	users := maps.Clone(s.users)
	resets := maps.Clone(s.resets)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.users = users
		s.resets = resets
		s.mu.Unlock()
		return err
	}
	return nil
}

// ResetTokens returns a copy of every stored reset token.
func (s *Store) ResetTokens() []auth.ResetToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ResetToken, 0, len(s.resets))
	for _, rt := range s.resets {
		out = append(out, rt)
	}
	return out
}

// Users implements auth.UserRepository over a Store.
type Users Store

var _ auth.UserRepository = (*Users)(nil)

// Put stores user as-is, bypassing uniqueness checks.
func (u *Users) Put(user *auth.User) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users[user.ID] = *user
}

// Create stores a new user.
func (u *Users) Create(_ context.Context, user *auth.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := (*Store)(u).injected("Users.Create"); err != nil {
		return err
	}
	for _, existing := range u.users {
		if existing.Email == user.Email || existing.EmployeeNumber == user.EmployeeNumber {
			return oops.Code("USER_CONFLICT").Wrap(auth.ErrConflict)
		}
	}
	u.users[user.ID] = *user
	return nil
}

// GetByID retrieves a user by ID.
func (u *Users) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	return u.find("Users.GetByID", func(user auth.User) bool { return user.ID == id })
}

// GetByEmail retrieves a user by email.
func (u *Users) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	return u.find("Users.GetByEmail", func(user auth.User) bool { return user.Email == email })
}

// GetByEmployeeNumber retrieves a user by employee number.
func (u *Users) GetByEmployeeNumber(_ context.Context, employeeNumber string) (*auth.User, error) {
	return u.find("Users.GetByEmployeeNumber", func(user auth.User) bool {
		return user.EmployeeNumber == employeeNumber
	})
}

func (u *Users) find(method string, match func(auth.User) bool) (*auth.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := (*Store)(u).injected(method); err != nil {
		return nil, err
	}
	for _, user := range u.users {
		if match(user) {
			found := user
			return &found, nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// UpdatePassword replaces the password hash of a user.
func (u *Users) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string, at time.Time) error {
	return u.update("Users.UpdatePassword", id, func(user *auth.User) {
		user.PasswordHash = passwordHash
		user.UpdatedAt = at
	})
}

// MarkDeleted sets the soft-delete flag of a user.
func (u *Users) MarkDeleted(_ context.Context, id ulid.ULID, at time.Time) error {
	return u.update("Users.MarkDeleted", id, func(user *auth.User) {
		user.IsDeleted = true
		user.UpdatedAt = at
	})
}

// Lock reports whether the user exists. The in-memory store runs
// transactions one call at a time, so there is nothing to hold.
func (u *Users) Lock(_ context.Context, id ulid.ULID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := (*Store)(u).injected("Users.Lock"); err != nil {
		return err
	}
	if _, ok := u.users[id]; !ok {
		return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

func (u *Users) update(method string, id ulid.ULID, apply func(*auth.User)) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := (*Store)(u).injected(method); err != nil {
		return err
	}
	user, ok := u.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	apply(&user)
	u.users[id] = user
	return nil
}

// Resets implements auth.ResetTokenRepository over a Store.
type Resets Store

var _ auth.ResetTokenRepository = (*Resets)(nil)

// Create stores a reset token.
func (r *Resets) Create(_ context.Context, token *auth.ResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := (*Store)(r).injected("Resets.Create"); err != nil {
		return err
	}
	for _, existing := range r.resets {
		if existing.TokenHash == token.TokenHash {
			return oops.Code("RESET_CONFLICT").Wrap(auth.ErrConflict)
		}
	}
	r.resets[token.ID] = *token
	return nil
}

// GetByTokenHash retrieves a reset token by digest.
func (r *Resets) GetByTokenHash(_ context.Context, tokenHash string) (*auth.ResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := (*Store)(r).injected("Resets.GetByTokenHash"); err != nil {
		return nil, err
	}
	for _, rt := range r.resets {
		if rt.TokenHash == tokenHash {
			found := rt
			return &found, nil
		}
	}
	return nil, oops.Code("RESET_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// Delete removes a reset token.
func (r *Resets) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := (*Store)(r).injected("Resets.Delete"); err != nil {
		return err
	}
	delete(r.resets, id)
	return nil
}

// DeleteByUser removes every reset token of a user.
func (r *Resets) DeleteByUser(_ context.Context, userID ulid.ULID) (int64, error) {
	return r.deleteWhere("Resets.DeleteByUser", func(rt auth.ResetToken) bool { return rt.UserID == userID })
}

// DeleteExpired removes reset tokens that expired before the given time.
func (r *Resets) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	return r.deleteWhere("Resets.DeleteExpired", func(rt auth.ResetToken) bool { return rt.ExpiresAt.Before(before) })
}

func (r *Resets) deleteWhere(method string, match func(auth.ResetToken) bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := (*Store)(r).injected(method); err != nil {
		return 0, err
	}
	var n int64
	for id, rt := range r.resets {
		if match(rt) {
			delete(r.resets, id)
			n++
		}
	}
	return n, nil
}
