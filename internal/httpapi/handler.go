// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

// Package httpapi exposes the account lifecycle over JSON HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/empauth/empauth/internal/auth"
	"github.com/empauth/empauth/internal/observability"
)

// Accounts is the account lifecycle consumed by the handlers.
// *auth.Manager implements it.
type Accounts interface {
	Signup(ctx context.Context, req auth.SignupRequest) (*auth.User, error)
	Login(ctx context.Context, employeeNumber, password string) (*auth.SessionToken, error)
	Authenticate(ctx context.Context, token string) (*auth.User, error)
	ChangePassword(ctx context.Context, user *auth.User, change auth.PasswordChange) (*auth.User, error)
	Deactivate(ctx context.Context, user *auth.User, password string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) (*auth.User, error)
	VerifyPassword(ctx context.Context, user *auth.User, password string) error
}

var _ Accounts = (*auth.Manager)(nil)

// Handler serves the /auth routes.
type Handler struct {
	accounts Accounts
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithMetrics enables request metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(h *Handler) { h.metrics = metrics }
}

// NewHandler creates a Handler.
func NewHandler(accounts Accounts, opts ...Option) *Handler {
	h := &Handler{
		accounts: accounts,
		validate: newValidator(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.signup)
		r.Post("/login", h.login)
		r.Post("/forgot_password", h.forgotPassword)
		r.Post("/reset_password", h.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(h.requireUser)
			r.Get("/mypage", h.myPage)
			r.Post("/logout", h.logout)
			r.Delete("/withdrawal", h.withdraw)
			r.Put("/change-password", h.changePassword)
			r.Post("/verify-password", h.verifyPassword)
		})
	})
	return r
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.accounts.Signup(r.Context(), auth.SignupRequest{
		Email:          req.Email,
		Password:       req.Password,
		Name:           req.Name,
		Phone:          req.Phone,
		EmployeeNumber: req.EmployeeNumber,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, err := h.accounts.Login(r.Context(), req.EmployeeNumber, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token.Value,
		TokenType:   "bearer",
		ExpiresAt:   token.ExpiresAt,
	})
}

func (h *Handler) myPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newUserResponse(userFrom(r.Context())))
}

// logout acknowledges the request. Session tokens are stateless and stay
// valid until they expire.
func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.accounts.Deactivate(r.Context(), userFrom(r.Context()), req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: forgotPasswordMessage,
		Detail:  forgotPasswordDetail,
	})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.accounts.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.accounts.ChangePassword(r.Context(), userFrom(r.Context()), auth.PasswordChange{
		Current: req.CurrentPassword,
		New:     req.NewPassword,
		Confirm: req.ConfirmPassword,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *Handler) verifyPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.accounts.VerifyPassword(r.Context(), userFrom(r.Context()), req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password verified"})
}
