package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORAGE_DRIVER", "GEMINI_TIMEOUT", "GEMINI_BASE_URL", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	t.Setenv("DB_PORT", "not-a-number")

	src, err := NewSource("")
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	cfg := src.Config()

	if cfg.Port != 4000 {
		t.Fatalf("expected default port 4000, got %d", cfg.Port)
	}
	if cfg.DBPort != 5432 {
		t.Fatalf("expected db port fallback 5432, got %d", cfg.DBPort)
	}
	if cfg.Storage != StoragePostgres {
		t.Fatalf("expected postgres storage, got %q", cfg.Storage)
	}
	if cfg.GeminiTimeout != 30*time.Second {
		t.Fatalf("unexpected gemini timeout %s", cfg.GeminiTimeout)
	}
	if cfg.GeminiBaseURL != DefaultGeminiBaseURL {
		t.Fatalf("unexpected base url %q", cfg.GeminiBaseURL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("STORAGE_DRIVER", "Mongo")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("GEMINI_TIMEOUT", "5s")
	t.Setenv("GEMINI_BASE_URL", "http://upstream.test/")

	src, err := NewSource("")
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	cfg := src.Config()

	if cfg.Port != 8081 {
		t.Fatalf("expected port 8081, got %d", cfg.Port)
	}
	if cfg.Storage != StorageMongo {
		t.Fatalf("expected mongo storage, got %q", cfg.Storage)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.GeminiTimeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.GeminiTimeout)
	}
	if cfg.GeminiBaseURL != "http://upstream.test" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.GeminiBaseURL)
	}
}

func TestModelReadFreshOnEveryCall(t *testing.T) {
	src, err := NewSource("")
	if err != nil {
		t.Fatalf("new source: %v", err)
	}

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_MODEL", "")
	if m := src.Model(); m.APIKey != "" || m.Model != "" {
		t.Fatalf("expected empty model settings, got %+v", m)
	}

	t.Setenv("GEMINI_API_KEY", "key-1")
	t.Setenv("GEMINI_MODEL", " models/gemini-a ")
	m := src.Model()
	if m.APIKey != "key-1" || m.Model != "models/gemini-a" {
		t.Fatalf("expected env values to be observed, got %+v", m)
	}

	t.Setenv("GEMINI_MODEL", "gemini-b")
	if got := src.Model().Model; got != "gemini-b" {
		t.Fatalf("expected updated model, got %q", got)
	}
}

func TestReloadPicksUpFileChanges(t *testing.T) {
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("PORT", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte("gemini_model: gemini-old\nport: 5000\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	src, err := NewSource(path)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if got := src.Model().Model; got != "gemini-old" {
		t.Fatalf("expected file model, got %q", got)
	}
	if src.Config().Port != 5000 {
		t.Fatalf("expected port from file")
	}

	if err := os.WriteFile(path, []byte("gemini_model: gemini-new\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := src.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := src.Model().Model; got != "gemini-new" {
		t.Fatalf("expected reloaded model, got %q", got)
	}
}

func TestReloadKeepsSnapshotOnError(t *testing.T) {
	t.Setenv("GEMINI_MODEL", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte("gemini_model: keep-me\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	src, err := NewSource(path)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove config: %v", err)
	}
	if err := src.Reload(); err == nil {
		t.Fatalf("expected reload of a missing file to fail")
	}
	if got := src.Model().Model; got != "keep-me" {
		t.Fatalf("expected previous snapshot, got %q", got)
	}
}

func TestConnString(t *testing.T) {
	cfg := &Config{DBHost: "h", DBPort: 1, DBUser: "u", DBPassword: "p", DBName: "n", DBSSLMode: "disable"}
	want := "host=h port=1 user=u password=p dbname=n sslmode=disable"
	if got := cfg.ConnString(); got != want {
		t.Fatalf("unexpected conn string %q", got)
	}
}
