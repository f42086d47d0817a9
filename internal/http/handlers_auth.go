// Package httpx provides HTTP handlers and utilities for the auth service API.
package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/target/auth-svc/internal/domain/auth"
	apperrors "github.com/target/auth-svc/internal/errors"
	"github.com/target/auth-svc/internal/service"
)

// IdentityServiceInterface defines the identity operations used by the HTTP layer.
type IdentityServiceInterface interface {
	TokenValidator
	Login(ctx context.Context, identifier, password string) (service.IssuedToken, error)
}

// AuthHandlers provides HTTP handlers for login and principal introspection.
type AuthHandlers struct {
	Svc    IdentityServiceInterface
	Logger *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// MeResponse describes the calling principal.
type MeResponse struct {
	Email string            `json:"email"`
	Roles []domainauth.Role `json:"roles"`
}

// AdminPingResponse is returned to admins by /admin/ping.
type AdminPingResponse struct {
	OK    bool   `json:"ok"`
	Scope string `json:"scope"`
}

// Login exchanges form-encoded username and password for an access token.
// POST /login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.logger().DebugContext(r.Context(), "login form unreadable", slog.Any("error", err))
		writeInvalidCredentials(w)
		return
	}

	// The identifier is matched exactly; no trimming or case folding.
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeInvalidCredentials(w)
		return
	}

	issued, err := h.Svc.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, domainauth.ErrInvalidCredentials) {
			writeInvalidCredentials(w)
			return
		}
		h.logger().ErrorContext(r.Context(), "login failed",
			slog.Any("error", err),
			slog.String("error_code", string(apperrors.GetCode(err))),
			slog.Bool("timeout", apperrors.IsTimeout(err)))
		writeInternal(w)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, LoginResponse{AccessToken: issued.AccessToken, TokenType: issued.TokenType})
}

// Me returns the identifier and roles of the calling principal.
// GET /me.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}
	WriteJSON(w, http.StatusOK, MeResponse{Email: principal.Identifier, Roles: principal.Roles})
}

// AdminPing confirms admin access.
// GET /admin/ping.
func (h *AuthHandlers) AdminPing(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, AdminPingResponse{OK: true, Scope: string(domainauth.RoleAdmin)})
}

func writeInvalidCredentials(w http.ResponseWriter) {
	WriteError(w, ErrorParams{
		Code:    http.StatusBadRequest,
		ErrCode: ErrCodeInvalidCredentials,
		Detail:  DetailInvalidCredentials,
	})
}
