// Package testutil provides testing utilities and helpers for the auth service.
package testutil

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// TestingTB is an interface that covers both *testing.T and *testing.B.
type TestingTB interface {
	Helper()
	Cleanup(func())
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
}

// SetupMiniRedis starts an in-process Redis server and returns it with a connected client.
// Both are closed when the test finishes.
func SetupMiniRedis(t TestingTB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})

	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("warning: failed to close redis client: %v", cerr)
		}
		srv.Close()
	})
	return srv, client
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// FixedTimeFunc returns a function that always returns the given time.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time {
		return t
	}
}

// TestTime returns a fixed time for consistent testing.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// TestTimeProvider provides a simple time provider for testing.
type TestTimeProvider struct {
	mu          sync.Mutex
	currentTime time.Time
}

// NewTestTimeProvider creates a new test time provider.
func NewTestTimeProvider(startTime time.Time) *TestTimeProvider {
	return &TestTimeProvider{currentTime: startTime}
}

// Now returns the current time.
func (p *TestTimeProvider) Now() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentTime
}

// SetTime sets the current time.
func (p *TestTimeProvider) SetTime(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentTime = t
}

// AddTime advances the current time by the given duration.
func (p *TestTimeProvider) AddTime(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentTime = p.currentTime.Add(d)
}
