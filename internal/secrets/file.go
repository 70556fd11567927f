package secrets

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileProvider reads a flat YAML (or JSON) map of key to value. The file must
// not be readable by group or others.
type FileProvider struct {
	path string
	mu   sync.RWMutex
	data map[string]string
}

// NewFileProvider loads path.
func NewFileProvider(path string) (*FileProvider, error) {
	if path == "" {
		return nil, fmt.Errorf("secrets file path required")
	}
	p := &FileProvider{path: path}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) Get(_ context.Context, key Key) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.data[string(key)]
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", ErrNotFound, key, p.path)
	}
	return val, nil
}

// Reload re-reads the file.
func (p *FileProvider) Reload() error {
	info, err := os.Stat(p.path)
	if err != nil {
		return fmt.Errorf("stat secrets file: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return fmt.Errorf("secrets file %s has mode %v, want 0600", p.path, info.Mode().Perm())
	}
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read secrets file: %w", err)
	}
	data := make(map[string]string)
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse secrets file: %w", err)
	}

	p.mu.Lock()
	p.data = data
	p.mu.Unlock()
	return nil
}
