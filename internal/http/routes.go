package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/target/auth-svc/internal/domain/auth"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Identity IdentityServiceInterface
	Logger   *slog.Logger
}

// NewRouter creates and configures the HTTP router.
// Recovery and request logging are applied by the caller.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("GET /health", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /health", http.HandlerFunc(healthHandler))
	registerAuthRoutes(mux, &AuthHandlers{Svc: services.Identity, Logger: logger})

	return mux
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	bearer := RequireBearer(h.Svc, h.logger())
	adminOnly := RequireAnyRole(h.logger(), domainauth.RoleAdmin)

	mux.Handle("POST /login", http.HandlerFunc(h.Login))
	mux.Handle("GET /me", bearer(http.HandlerFunc(h.Me)))
	mux.Handle("GET /admin/ping", bearer(adminOnly(http.HandlerFunc(h.AdminPing))))
}
