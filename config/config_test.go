package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadEnv(t *testing.T) {
	// LoadEnv returns nil when no .env file exists
	err := LoadEnv()
	if err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestValidateEnvAllSet(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("DATABASE_URL", "test-db-url")
	defer os.Unsetenv("JWT_SECRET")
	defer os.Unsetenv("DATABASE_URL")

	err := ValidateEnv()
	if err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestValidateEnvMissingJWTSecret(t *testing.T) {
	os.Unsetenv("JWT_SECRET")
	os.Setenv("DATABASE_URL", "test-db-url")
	defer os.Unsetenv("DATABASE_URL")

	err := ValidateEnv()
	if err == nil {
		t.Error("expected error for missing JWT_SECRET")
	}
}

func TestValidateEnvMissingDatabaseURL(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Unsetenv("DATABASE_URL")
	defer os.Unsetenv("JWT_SECRET")

	err := ValidateEnv()
	if err == nil {
		t.Error("expected error for missing DATABASE_URL")
	}
}

func TestGetEnvExisting(t *testing.T) {
	os.Setenv("TEST_GET_ENV_KEY", "test-value")
	defer os.Unsetenv("TEST_GET_ENV_KEY")

	result := GetEnv("TEST_GET_ENV_KEY", "default")
	if result != "test-value" {
		t.Errorf("expected 'test-value', got '%s'", result)
	}
}

func TestGetEnvMissing(t *testing.T) {
	os.Unsetenv("TEST_GET_ENV_MISSING")
	result := GetEnv("TEST_GET_ENV_MISSING", "fallback")
	if result != "fallback" {
		t.Errorf("expected 'fallback', got '%s'", result)
	}
}

func TestGetEnvInt(t *testing.T) {
	os.Setenv("TEST_GET_ENV_INT", "42")
	defer os.Unsetenv("TEST_GET_ENV_INT")

	if got := GetEnvInt("TEST_GET_ENV_INT", 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestGetEnvIntInvalidFallsBack(t *testing.T) {
	os.Setenv("TEST_GET_ENV_INT_BAD", "forty-two")
	defer os.Unsetenv("TEST_GET_ENV_INT_BAD")

	if got := GetEnvInt("TEST_GET_ENV_INT_BAD", 7); got != 7 {
		t.Errorf("expected fallback 7, got %d", got)
	}
}

func TestGetEnvDuration(t *testing.T) {
	os.Setenv("TEST_GET_ENV_DURATION", "90s")
	defer os.Unsetenv("TEST_GET_ENV_DURATION")

	if got := GetEnvDuration("TEST_GET_ENV_DURATION", time.Minute); got != 90*time.Second {
		t.Errorf("expected 90s, got %s", got)
	}
}

func TestGetEnvDurationRejectsNonPositive(t *testing.T) {
	os.Setenv("TEST_GET_ENV_DURATION_NEG", "-5m")
	defer os.Unsetenv("TEST_GET_ENV_DURATION_NEG")

	if got := GetEnvDuration("TEST_GET_ENV_DURATION_NEG", time.Minute); got != time.Minute {
		t.Errorf("expected fallback 1m, got %s", got)
	}
}
