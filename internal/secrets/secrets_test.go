package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProviderGetWithPrefix(t *testing.T) {
	os.Setenv("ANCESTRY_TEST_SECRET", "secret_value")
	defer os.Unsetenv("ANCESTRY_TEST_SECRET")

	p := NewEnvProvider("")
	val, err := p.Get(context.Background(), "test_secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "secret_value" {
		t.Fatalf("expected 'secret_value', got %s", val)
	}
}

func TestEnvProviderGetWithoutPrefix(t *testing.T) {
	os.Setenv("BARE_TEST_SECRET", "direct_value")
	defer os.Unsetenv("BARE_TEST_SECRET")

	p := NewEnvProvider("ANCESTRY_")
	val, err := p.Get(context.Background(), "bare_test_secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "direct_value" {
		t.Fatalf("expected 'direct_value', got %s", val)
	}
}

func TestEnvProviderGetNotFound(t *testing.T) {
	p := NewEnvProvider("ANCESTRY_")
	if _, err := p.Get(context.Background(), "nonexistent_secret_xyz"); err == nil {
		t.Fatal("expected error for missing secret")
	}
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(`{"embedding_api_key":"sk-test"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := NewFileProvider(&FileConfig{Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val, err := p.Get(context.Background(), "embedding_api_key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "sk-test" {
		t.Fatalf("expected 'sk-test', got %s", val)
	}

	if _, err := p.Get(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestFileProviderReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(`{"k":"v1"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := NewFileProvider(&FileConfig{Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"k":"v2"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := p.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	val, _ := p.Get(context.Background(), "k")
	if val != "v2" {
		t.Fatalf("expected 'v2' after reload, got %s", val)
	}
}

func TestFileProviderMissingPath(t *testing.T) {
	if _, err := NewFileProvider(&FileConfig{}); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := NewFileProvider(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestManagerFallbackToEnv(t *testing.T) {
	os.Setenv("ANCESTRY_NEO4J_PASSWORD", "graph_pw")
	defer os.Unsetenv("ANCESTRY_NEO4J_PASSWORD")

	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(&Config{Provider: "file", File: &FileConfig{Path: path}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val, err := m.Get(context.Background(), KeyNeo4jPassword)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "graph_pw" {
		t.Fatalf("expected 'graph_pw', got %s", val)
	}
}

func TestManagerGetOrDefault(t *testing.T) {
	m, err := NewManager(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val := m.GetOrDefault(context.Background(), Key("nonexistent_key_xyz"), "fallback")
	if val != "fallback" {
		t.Fatalf("expected 'fallback', got %s", val)
	}
}

func TestManagerCaches(t *testing.T) {
	os.Setenv("ANCESTRY_CACHE_TEST", "first")
	defer os.Unsetenv("ANCESTRY_CACHE_TEST")

	m, err := NewManager(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	if _, err := m.Get(ctx, Key("cache_test")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	os.Setenv("ANCESTRY_CACHE_TEST", "second")

	val, _ := m.Get(ctx, Key("cache_test"))
	if val != "first" {
		t.Fatalf("expected cached 'first', got %s", val)
	}
}

func TestManagerUnknownProvider(t *testing.T) {
	if _, err := NewManager(&Config{Provider: "vault"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestManagerFileWithoutConfig(t *testing.T) {
	if _, err := NewManager(&Config{Provider: "file"}); err == nil {
		t.Fatal("expected error for file provider without config")
	}
}
