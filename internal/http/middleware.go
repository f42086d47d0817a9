package httpx

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	domainauth "github.com/target/auth-svc/internal/domain/auth"
)

// TokenValidator turns a bearer token into a principal.
type TokenValidator interface {
	ValidateToken(token string) (domainauth.Principal, error)
}

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					writeInternal(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequireBearer returns a middleware that validates the Authorization bearer token.
// Missing or invalid tokens get a 401 with a Bearer challenge; the failure kind is logged only.
func RequireBearer(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logger.DebugContext(r.Context(), "missing bearer token", slog.String("path", r.URL.Path))
				writeUnauthenticated(w)
				return
			}

			principal, err := validator.ValidateToken(token)
			if err != nil {
				kind, _ := domainauth.TokenFailure(err)
				logger.InfoContext(r.Context(), "token rejected",
					slog.String("path", r.URL.Path),
					slog.String("reason", string(kind)))
				writeUnauthenticated(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(SetPrincipalInContext(r.Context(), principal)))
		})
	}
}

// RequireAnyRole returns a middleware that admits principals holding at least one of roles.
// It must run after RequireBearer.
func RequireAnyRole(logger *slog.Logger, roles ...domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeUnauthenticated(w)
				return
			}

			if _, err := domainauth.RequireAnyRole(principal, roles...); err != nil {
				logger.InfoContext(r.Context(), "role check failed",
					slog.String("identifier", principal.Identifier),
					slog.String("path", r.URL.Path))
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: ErrCodeForbidden,
					Detail:  DetailInsufficientRole,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
