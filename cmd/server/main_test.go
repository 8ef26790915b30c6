package main

import (
	"errors"
	"strings"
	"testing"

	"fittrack/server/internal/config"
)

func TestRunReturnsStartupErrors(t *testing.T) {
	t.Run("missing JWT secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		err := run()
		if !errors.Is(err, config.ErrMissingJWTSecret) {
			t.Fatalf("run() = %v, want ErrMissingJWTSecret", err)
		}
	})

	t.Run("bad Redis URL", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "main-test-secret")
		t.Setenv("DATABASE_DRIVER", config.DriverMemory)
		t.Setenv("RATELIMIT_ENABLED", "true")
		t.Setenv("RATELIMIT_REDIS_URL", "not-a-redis-url")
		t.Setenv("LOG_LEVEL", "error")
		err := run()
		if err == nil || !strings.Contains(err.Error(), "could not connect to Redis") {
			t.Fatalf("run() = %v, want a Redis connection error", err)
		}
	})
}
