package config

import (
	"strconv"
	"time"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Port is the listening port, used when Addr is empty.
	Port int `env:"PORT" envDefault:"8101"`

	// Addr overrides Port with a full bind address (e.g. "127.0.0.1:9000").
	Addr string `env:"HTTP_ADDR" envDefault:""`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.Port <= 0 || h.Port > 65535 {
		h.Port = 8101
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}

// ListenAddr returns the address the HTTP server binds to.
func (h HTTPConfig) ListenAddr() string {
	if h.Addr != "" {
		return h.Addr
	}
	return ":" + strconv.Itoa(h.Port)
}
