package config

import (
	"os"
	"testing"
)

type envBackup map[string]string

func backupAndClearEnvVars(keys []string) envBackup {
	backup := make(envBackup)
	for _, key := range keys {
		backup[key] = os.Getenv(key)
		os.Unsetenv(key)
	}
	return backup
}

func (b envBackup) restore() {
	for key, value := range b {
		if value == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, value)
		}
	}
}

var dubengineEnvVars = []string{
	"DUBENGINE_HOST", "DUBENGINE_PORT", "DUBENGINE_UPLOAD_DIR", "DUBENGINE_OUTPUT_DIR",
	"DUBENGINE_MAX_UPLOAD_BYTES", "DUBENGINE_MAX_CONCURRENT_JOBS",
	"DUBENGINE_RATE_LIMIT_PER_MINUTE", "DUBENGINE_AUTH_ENABLED", "DUBENGINE_API_KEYS",
	"DUBENGINE_CORS_ORIGINS", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
}

func TestDefaultConfig(t *testing.T) {
	backup := backupAndClearEnvVars(dubengineEnvVars)
	defer backup.restore()

	cfg := DefaultConfig()
	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.MaxConcurrentJobs != 2 {
		t.Errorf("expected default max concurrent jobs 2, got %d", cfg.MaxConcurrentJobs)
	}
	if cfg.RateLimitPerMinute != 10 {
		t.Errorf("expected default rate limit 10, got %d", cfg.RateLimitPerMinute)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	backup := backupAndClearEnvVars(dubengineEnvVars)
	defer backup.restore()

	os.Setenv("DUBENGINE_PORT", "9090")
	os.Setenv("DUBENGINE_AUTH_ENABLED", "true")
	os.Setenv("DUBENGINE_API_KEYS", "abc, def ,")
	os.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := DefaultConfig()
	loadEnvOverrides(cfg)

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if !cfg.AuthEnabled {
		t.Errorf("expected auth enabled")
	}
	if len(cfg.APIKeys) != 2 || cfg.APIKeys[0] != "abc" || cfg.APIKeys[1] != "def" {
		t.Errorf("expected [abc def], got %v", cfg.APIKeys)
	}
	if !cfg.Credentials.HasOpenAI() {
		t.Errorf("expected OpenAI credential to be set")
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" a, b ,,c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
