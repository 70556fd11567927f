package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// ==================== EnvProvider Tests ====================

func TestEnvProvider_Name(t *testing.T) {
	if got := NewEnvProvider("").Name(); got != "env" {
		t.Fatalf("expected 'env', got %s", got)
	}
}

func TestEnvProvider_Get_WithPrefix(t *testing.T) {
	t.Setenv("DEPCHECK_PORTAL_TOKEN", "tok-1")

	val, err := NewEnvProvider("").Get(context.Background(), PortalToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "tok-1" {
		t.Fatalf("expected 'tok-1', got %s", val)
	}
}

func TestEnvProvider_Get_WithoutPrefix(t *testing.T) {
	t.Setenv("NEO4J_PASSWORD", "direct")

	val, err := NewEnvProvider("DEPCHECK_").Get(context.Background(), Neo4jPassword)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "direct" {
		t.Fatalf("expected 'direct', got %s", val)
	}
}

func TestEnvProvider_Get_NotFound(t *testing.T) {
	_, err := NewEnvProvider("").Get(context.Background(), "nonexistent_secret_xyz")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ==================== FileProvider Tests ====================

func writeSecrets(t *testing.T, body string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	if err := os.WriteFile(path, []byte(body), mode); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileProvider_Get(t *testing.T) {
	path := writeSecrets(t, "portal_password: hunter2\nstorage_secret_key: s3cr3t\n", 0o600)
	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "file" {
		t.Errorf("expected 'file', got %s", p.Name())
	}
	val, err := p.Get(context.Background(), PortalPassword)
	if err != nil || val != "hunter2" {
		t.Fatalf("got %q, %v", val, err)
	}
	if _, err := p.Get(context.Background(), Neo4jPassword); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileProvider_JSON(t *testing.T) {
	path := writeSecrets(t, `{"portal_token": "abc"}`, 0o600)
	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val, _ := p.Get(context.Background(), PortalToken); val != "abc" {
		t.Errorf("expected 'abc', got %q", val)
	}
}

func TestFileProvider_Reload(t *testing.T) {
	path := writeSecrets(t, "portal_token: one\n", 0o600)
	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("portal_token: two\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := p.Reload(); err != nil {
		t.Fatal(err)
	}
	if val, _ := p.Get(context.Background(), PortalToken); val != "two" {
		t.Errorf("expected 'two' after reload, got %q", val)
	}
}

func TestFileProvider_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"empty path", func(*testing.T) string { return "" }},
		{"missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{"world readable", func(t *testing.T) string { return writeSecrets(t, "a: b\n", 0o644) }},
		{"not a map", func(t *testing.T) string { return writeSecrets(t, "- a\n- b\n", 0o600) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFileProvider(tt.path(t)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// ==================== Manager Tests ====================

func TestManager_Default(t *testing.T) {
	m, err := NewManager(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "env" {
		t.Errorf("expected env provider, got %s", m.Name())
	}
}

func TestManager_UnknownProvider(t *testing.T) {
	if _, err := NewManager(Config{Provider: "vault"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestManager_FileWithEnvFallback(t *testing.T) {
	path := writeSecrets(t, "portal_password: from-file\n", 0o600)
	t.Setenv("DEPCHECK_NEO4J_PASSWORD", "from-env")

	m, err := NewManager(Config{Provider: "file", File: path})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if val, _ := m.Get(ctx, PortalPassword); val != "from-file" {
		t.Errorf("expected from-file, got %q", val)
	}
	if val, _ := m.Get(ctx, Neo4jPassword); val != "from-env" {
		t.Errorf("expected env fallback, got %q", val)
	}
	if _, err := m.Get(ctx, StorageAccessKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_Cache(t *testing.T) {
	t.Setenv("DEPCHECK_PORTAL_TOKEN", "first")
	m, _ := NewManager(Config{})
	ctx := context.Background()

	if val, _ := m.Get(ctx, PortalToken); val != "first" {
		t.Fatalf("expected first, got %q", val)
	}
	t.Setenv("DEPCHECK_PORTAL_TOKEN", "second")
	if val, _ := m.Get(ctx, PortalToken); val != "first" {
		t.Errorf("expected cached value, got %q", val)
	}
	m.ClearCache()
	if val, _ := m.Get(ctx, PortalToken); val != "second" {
		t.Errorf("expected fresh value after ClearCache, got %q", val)
	}
}

func TestManager_Fill(t *testing.T) {
	t.Setenv("DEPCHECK_STORAGE_SECRET_KEY", "env-secret")
	m, _ := NewManager(Config{})
	ctx := context.Background()

	empty := ""
	m.Fill(ctx, StorageSecretKey, &empty)
	if empty != "env-secret" {
		t.Errorf("expected fill from env, got %q", empty)
	}

	set := "configured"
	m.Fill(ctx, StorageSecretKey, &set)
	if set != "configured" {
		t.Errorf("configured value must win, got %q", set)
	}

	missing := ""
	m.Fill(ctx, "absent_key_xyz", &missing)
	if missing != "" {
		t.Errorf("expected empty, got %q", missing)
	}
}
