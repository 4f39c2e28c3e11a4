package envconf

import (
	"errors"
	"testing"
	"time"
)

type nested struct {
	DSN  string `env:"TEST_DSN"`
	Pool int    `env:"TEST_POOL" default:"10"`
}

type conf struct {
	Port    uint16        `env:"TEST_PORT"`
	Timeout time.Duration `env:"TEST_TIMEOUT" default:"15s"`
	Nested  nested
}

func TestLoad_ReadsEnvAndDefaults(t *testing.T) {
	t.Setenv("TEST_PORT", "8080")
	t.Setenv("TEST_DSN", "postgres://localhost/db")

	c := new(conf)
	if err := Load(c); err != nil {
		t.Fatalf("load: %v", err)
	}

	if c.Port != 8080 {
		t.Errorf("port: want 8080, got %d", c.Port)
	}
	if c.Timeout != 15*time.Second {
		t.Errorf("timeout default: want 15s, got %v", c.Timeout)
	}
	if c.Nested.DSN != "postgres://localhost/db" {
		t.Errorf("nested dsn: got %q", c.Nested.DSN)
	}
	if c.Nested.Pool != 10 {
		t.Errorf("nested pool default: want 10, got %d", c.Nested.Pool)
	}
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("TEST_PORT", "1")
	t.Setenv("TEST_DSN", "x")
	t.Setenv("TEST_TIMEOUT", "2m")

	c := new(conf)
	if err := Load(c); err != nil {
		t.Fatalf("load: %v", err)
	}

	if c.Timeout != 2*time.Minute {
		t.Errorf("timeout: want 2m, got %v", c.Timeout)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("TEST_DSN", "x")
	// TEST_PORT intentionally unset and has no default

	c := new(conf)
	err := Load(c)
	if !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("want ErrMissingRequired, got %v", err)
	}
}
