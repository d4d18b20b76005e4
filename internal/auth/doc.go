// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

// Package auth implements the employee account lifecycle.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates a User with a fresh ID and required fields checked
//   - NewResetToken - creates a ResetToken bound to a user with a valid expiry
//
// Repository implementations receive pre-validated types from these constructors.
//
// # Components
//
//   - PasswordHasher (Argon2idHasher) - argon2id hashing, legacy bcrypt verification
//   - TokenIssuer - signed session tokens whose subject is the employee number
//   - ResetTokenStore - single-use, time-limited password reset tokens
//   - Manager - signup, login, password change, deactivation and reset
//
// # Errors
//
// Every failure the Manager reports either matches one of ErrConflict,
// ErrUnauthorized, ErrForbidden, ErrBadRequest or ErrNotFound, or is internal.
// KindOf classifies an error and PublicMessage returns the text a client may see.
package auth
