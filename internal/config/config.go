package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/secrets"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// DEPCHECK_PORTAL_URL or DEPCHECK_CATALOG_TIMEOUT.
const EnvPrefix = "DEPCHECK"

// Config holds all application configuration.
type Config struct {
	Portal   PortalConfig   `mapstructure:"portal"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Server   ServerConfig   `mapstructure:"server"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Secrets  secrets.Config `mapstructure:"secrets"`
}

// PortalConfig selects the catalog and how to authenticate against it. An
// empty URL means the portal is derived from the input, falling back to the
// public default.
type PortalConfig struct {
	URL               string `mapstructure:"url" validate:"omitempty,url"`
	Token             string `mapstructure:"token"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	TokenMode         string `mapstructure:"token_mode" validate:"omitempty,oneof=referer requestip"`
	Referer           string `mapstructure:"referer"`
	ExpirationMinutes int    `mapstructure:"expiration_minutes" validate:"gte=0"`
}

// Expiration returns the requested token lifetime.
func (p PortalConfig) Expiration() time.Duration {
	return time.Duration(p.ExpirationMinutes) * time.Minute
}

type CatalogConfig struct {
	Timeout           time.Duration `mapstructure:"timeout" validate:"gte=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int           `mapstructure:"burst" validate:"gte=0"`
	CacheSize         int           `mapstructure:"cache_size" validate:"gte=0"`
	UserAgent         string        `mapstructure:"user_agent"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json console"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr" validate:"required"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// Enabled reports whether a graph store is configured.
func (c Neo4jConfig) Enabled() bool { return c.URI != "" }

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket" validate:"required_with=Endpoint"`
	Prefix    string `mapstructure:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Enabled reports whether artifact upload is configured.
func (c StorageConfig) Enabled() bool { return c.Endpoint != "" }

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Output  string `mapstructure:"output"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("portal.token_mode", "referer")
	v.SetDefault("portal.expiration_minutes", 60)
	v.SetDefault("catalog.timeout", 30*time.Second)
	v.SetDefault("catalog.requests_per_second", 0)
	v.SetDefault("catalog.burst", 1)
	v.SetDefault("catalog.cache_size", 256)
	v.SetDefault("catalog.user_agent", "depcheck")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("tracing.service_name", "depcheck")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_grace", 10*time.Second)
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.prefix", "depcheck/")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("temporal.host", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "depcheck-resolve")
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.output", "stderr")
	v.SetDefault("secrets.provider", "env")
}

// envKeys are bound explicitly so that environment overrides work for keys
// absent from the config file.
var envKeys = []string{
	"portal.url", "portal.token", "portal.username", "portal.password", "portal.token_mode",
	"portal.referer", "portal.expiration_minutes",
	"catalog.timeout", "catalog.requests_per_second", "catalog.burst", "catalog.cache_size", "catalog.user_agent",
	"log.level", "log.format",
	"tracing.endpoint", "tracing.service_name", "tracing.environment", "tracing.sample_rate",
	"server.addr", "server.allowed_origins", "server.shutdown_grace",
	"neo4j.uri", "neo4j.username", "neo4j.password", "neo4j.database",
	"storage.endpoint", "storage.region", "storage.access_key", "storage.secret_key", "storage.bucket", "storage.prefix", "storage.use_ssl",
	"temporal.host", "temporal.namespace", "temporal.task_queue",
	"audit.enabled", "audit.output",
	"secrets.provider", "secrets.file", "secrets.env_prefix",
}

var validate = validator.New()

// Validate checks configuration for issues and returns warnings. Hard errors
// are reported by Load.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Portal.Token != "" && c.Portal.Username != "" {
		warnings = append(warnings, "both portal.token and portal.username are set; the static token is used")
	}
	if c.Portal.Username != "" && c.Portal.Password == "" {
		warnings = append(warnings, fmt.Sprintf("portal.username '%s' is set but portal.password is empty", c.Portal.Username))
	}
	if c.Portal.TokenMode == "referer" && c.Portal.Username != "" && c.Portal.Referer == "" {
		warnings = append(warnings, "portal.token_mode is referer but portal.referer is empty; the portal URL is used as referer")
	}
	if c.Catalog.RequestsPerSecond > 10 {
		warnings = append(warnings, fmt.Sprintf("catalog.requests_per_second %.1f may trip portal throttling", c.Catalog.RequestsPerSecond))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing.sample_rate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}
	if c.Neo4j.Enabled() && c.Neo4j.Password == "" {
		warnings = append(warnings, "neo4j.uri is set but neo4j.password is empty")
	}
	if c.Storage.Enabled() && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		warnings = append(warnings, "storage.endpoint is set but credentials are incomplete")
	}

	return warnings
}

// Check runs the struct-tag validation.
func (c *Config) Check() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s %s", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads configuration from an optional file and the environment. An
// empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("binding %s: %w", k, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}

	for _, warning := range cfg.Validate() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}

	return &cfg, nil
}

// ApplySecrets fills credentials left empty in config from m.
func (c *Config) ApplySecrets(ctx context.Context, m *secrets.Manager) {
	m.Fill(ctx, secrets.PortalToken, &c.Portal.Token)
	m.Fill(ctx, secrets.PortalPassword, &c.Portal.Password)
	m.Fill(ctx, secrets.Neo4jPassword, &c.Neo4j.Password)
	m.Fill(ctx, secrets.StorageAccessKey, &c.Storage.AccessKey)
	m.Fill(ctx, secrets.StorageSecretKey, &c.Storage.SecretKey)
}
