// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	"github.com/empauth/empauth/internal/auth"
	"github.com/empauth/empauth/pkg/errutil"
)

const maxBodyBytes = 1 << 20

// bodyError reports a request body that fails decoding or validation.
type bodyError struct {
	detail string
}

func (e *bodyError) Error() string { return e.detail }

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return oops.Code("HTTP_BODY_MALFORMED").Wrap(&bodyError{detail: "Malformed JSON body: " + err.Error()})
	}
	if err := h.validate.Struct(dst); err != nil {
		return oops.Code("HTTP_BODY_INVALID").Wrap(&bodyError{detail: describeValidation(err)})
	}
	return nil
}

func describeValidation(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "email":
			parts = append(parts, fe.Field()+" must be a valid email address")
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // client may disconnect
}

// statusOf maps an error to its HTTP status.
func statusOf(err error) int {
	var be *bodyError
	if errors.As(err, &be) {
		return http.StatusUnprocessableEntity
	}
	switch auth.KindOf(err) {
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindUnauthorized:
		return http.StatusUnauthorized
	case auth.KindForbidden:
		return http.StatusForbidden
	case auth.KindBadRequest:
		return http.StatusBadRequest
	case auth.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"detail": ...}. Internal failures are logged
// and reported with their public message only.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)

	detail := auth.PublicMessage(err)
	var be *bodyError
	if errors.As(err, &be) {
		detail = be.detail
	}

	switch status {
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", "Bearer")
	case http.StatusInternalServerError:
		errutil.LogErrorContext(r.Context(), h.logger.With("method", r.Method, "path", r.URL.Path), "request failed", err)
	}

	writeJSON(w, status, errorResponse{Detail: detail})
}
