// Package secrets resolves credentials (portal token and password, graph
// store and object storage keys) from the environment or a local secrets
// file, so they need not live in the config file.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Key identifies a secret.
type Key string

const (
	PortalToken      Key = "portal_token"
	PortalPassword   Key = "portal_password"
	Neo4jPassword    Key = "neo4j_password"
	StorageAccessKey Key = "storage_access_key"
	StorageSecretKey Key = "storage_secret_key"
)

// Keys lists every secret the binaries look up.
var Keys = []Key{PortalToken, PortalPassword, Neo4jPassword, StorageAccessKey, StorageSecretKey}

// DefaultEnvPrefix is prepended to upper-cased keys by the env provider.
const DefaultEnvPrefix = "DEPCHECK_"

// ErrNotFound is returned when no provider holds a secret.
var ErrNotFound = errors.New("secret not found")

// Provider is a secret backend.
type Provider interface {
	Get(ctx context.Context, key Key) (string, error)
	Name() string
}

// Config selects the backend.
type Config struct {
	// Provider is "env" (default) or "file".
	Provider  string `mapstructure:"provider" validate:"omitempty,oneof=env file"`
	File      string `mapstructure:"file"`
	EnvPrefix string `mapstructure:"env_prefix"`
}

// Manager reads from the configured provider and falls back to the
// environment. Found values are cached.
type Manager struct {
	primary  Provider
	fallback Provider

	mu    sync.RWMutex
	cache map[Key]string
}

// NewManager builds a manager for cfg. A zero Config reads the environment.
func NewManager(cfg Config) (*Manager, error) {
	env := NewEnvProvider(cfg.EnvPrefix)
	m := &Manager{primary: env, cache: make(map[Key]string)}

	switch cfg.Provider {
	case "", "env":
	case "file":
		fp, err := NewFileProvider(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("create file provider: %w", err)
		}
		m.primary, m.fallback = fp, env
	default:
		return nil, fmt.Errorf("unknown secrets provider: %s", cfg.Provider)
	}
	return m, nil
}

// Get returns the secret for key, trying the primary provider first.
func (m *Manager) Get(ctx context.Context, key Key) (string, error) {
	m.mu.RLock()
	val, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return val, nil
	}

	for _, p := range []Provider{m.primary, m.fallback} {
		if p == nil {
			continue
		}
		if val, err := p.Get(ctx, key); err == nil && val != "" {
			m.mu.Lock()
			m.cache[key] = val
			m.mu.Unlock()
			return val, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Fill sets *dst to the secret for key when *dst is empty and the secret
// exists. Values already present in config win.
func (m *Manager) Fill(ctx context.Context, key Key, dst *string) {
	if *dst != "" {
		return
	}
	if val, err := m.Get(ctx, key); err == nil {
		*dst = val
	}
}

// Name reports the primary provider name.
func (m *Manager) Name() string { return m.primary.Name() }

// ClearCache forgets every cached value.
func (m *Manager) ClearCache() {
	m.mu.Lock()
	m.cache = make(map[Key]string)
	m.mu.Unlock()
}

// EnvProvider reads DEPCHECK_<KEY>, then <KEY>.
type EnvProvider struct {
	prefix string
}

func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(_ context.Context, key Key) (string, error) {
	name := strings.ToUpper(string(key))
	if val := os.Getenv(p.prefix + name); val != "" {
		return val, nil
	}
	if val := os.Getenv(name); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("%w: env %s%s", ErrNotFound, p.prefix, name)
}
