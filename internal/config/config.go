package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-yaml/yaml"

	"github.com/totegamma/curatorgate"
	"github.com/totegamma/curatorgate/internal/domain"
)

const EnvPrefix = "CURATORGATE_"

type Config struct {
	Server Server `yaml:"server"`
	Access Access `yaml:"access"`
}

type Server struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	PostgresDsn     string        `yaml:"postgresDsn" env:"POSTGRES_DSN"`
	RedisAddr       string        `yaml:"redisAddr" env:"REDIS_ADDR"`
	RedisPassword   string        `yaml:"redisPassword" env:"REDIS_PASSWORD"`
	RedisDB         int           `yaml:"redisDB" env:"REDIS_DB"`
	MemcachedAddr   string        `yaml:"memcachedAddr" env:"MEMCACHED_ADDR"`
	EnableTrace     bool          `yaml:"enableTrace" env:"ENABLE_TRACE"`
	TraceEndpoint   string        `yaml:"traceEndpoint" env:"TRACE_ENDPOINT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT"`
	CORSOrigins     []string      `yaml:"corsOrigins" env:"CORS_ORIGINS" envSeparator:","`
}

type Access struct {
	FQDN           string        `yaml:"fqdn" env:"FQDN"`
	SessionSecret  string        `yaml:"sessionSecret" env:"SESSION_SECRET"`
	AdminToken     string        `yaml:"adminToken" env:"ADMIN_TOKEN"`
	ScopeMode      string        `yaml:"scopeMode" env:"SCOPE_MODE"` // curator, global
	MinLatency     time.Duration `yaml:"minLatency" env:"MIN_LATENCY"`
	StorageTimeout time.Duration `yaml:"storageTimeout" env:"STORAGE_TIMEOUT"`
	RateLimit      int           `yaml:"rateLimit" env:"RATE_LIMIT"`
	RateWindow     time.Duration `yaml:"rateWindow" env:"RATE_WINDOW"`
	DefaultMaxUses *int          `yaml:"defaultMaxUses" env:"DEFAULT_MAX_USES"`
	DefaultCodeTTL time.Duration `yaml:"defaultCodeTTL" env:"DEFAULT_CODE_TTL"`
	SessionTTL     time.Duration `yaml:"sessionTTL" env:"SESSION_TTL"`
	GrantCacheTTL  time.Duration `yaml:"grantCacheTTL" env:"GRANT_CACHE_TTL"`
	CodeLength     int           `yaml:"codeLength" env:"CODE_LENGTH"`
}

// Load reads the yaml file at path (skipped when empty) and then applies
// CURATORGATE_* environment variables on top.
func Load(path string) (Config, error) {
	return load(path, nil)
}

func load(path string, environ map[string]string) (Config, error) {
	var config Config

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, err
		}
		defer file.Close()

		err = yaml.NewDecoder(file).Decode(&config)
		if err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&config, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Access.FQDN == "" {
		c.Access.FQDN = "localhost"
	}
	if c.Access.ScopeMode == "" {
		c.Access.ScopeMode = string(domain.ScopeModeCurator)
	}
	if c.Access.MinLatency == 0 {
		c.Access.MinLatency = 150 * time.Millisecond
	}
	if c.Access.StorageTimeout == 0 {
		c.Access.StorageTimeout = 3 * time.Second
	}
	if c.Access.RateLimit == 0 {
		c.Access.RateLimit = 10
	}
	if c.Access.RateWindow == 0 {
		c.Access.RateWindow = time.Minute
	}
	if c.Access.DefaultMaxUses == nil {
		one := 1
		c.Access.DefaultMaxUses = &one
	}
	if c.Access.SessionTTL == 0 {
		c.Access.SessionTTL = 30 * 24 * time.Hour
	}
	if c.Access.GrantCacheTTL == 0 {
		c.Access.GrantCacheTTL = 5 * time.Minute
	}
}

func (c *Config) validate() error {
	if c.Server.PostgresDsn == "" {
		return fmt.Errorf("server.postgresDsn is required")
	}
	if c.Access.SessionSecret == "" {
		return fmt.Errorf("access.sessionSecret is required")
	}
	if _, ok := domain.ParseScopeMode(c.Access.ScopeMode); !ok {
		return fmt.Errorf("access.scopeMode must be curator or global, got %q", c.Access.ScopeMode)
	}
	if c.Access.RateLimit < 0 {
		return fmt.Errorf("access.rateLimit must not be negative")
	}
	if c.Access.CodeLength < 0 || c.Access.CodeLength > curatorgate.MaxCodeLength {
		return fmt.Errorf("access.codeLength must be between 0 and %d", curatorgate.MaxCodeLength)
	}
	if *c.Access.DefaultMaxUses < 0 {
		return fmt.Errorf("access.defaultMaxUses must not be negative")
	}
	if c.Access.MinLatency < 0 || c.Access.StorageTimeout < 0 || c.Access.DefaultCodeTTL < 0 {
		return fmt.Errorf("access durations must not be negative")
	}
	return nil
}

// Domain returns the policy view handed to usecases and handlers.
func (c Config) Domain() domain.Config {
	mode, _ := domain.ParseScopeMode(c.Access.ScopeMode)
	maxUses := 1
	if c.Access.DefaultMaxUses != nil {
		maxUses = *c.Access.DefaultMaxUses
	}
	return domain.Config{
		FQDN:           c.Access.FQDN,
		SessionSecret:  c.Access.SessionSecret,
		AdminToken:     c.Access.AdminToken,
		ScopeMode:      mode,
		MinLatency:     c.Access.MinLatency,
		StorageTimeout: c.Access.StorageTimeout,
		SessionTTL:     c.Access.SessionTTL,
		DefaultMaxUses: maxUses,
		DefaultCodeTTL: c.Access.DefaultCodeTTL,

		GeneratedLength: c.Access.CodeLength,
	}
}
