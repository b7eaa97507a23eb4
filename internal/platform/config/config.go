// Package config assembles runtime configuration from an optional YAML file
// and PORTICO_* environment variables. Environment values win over file
// values so deployments can override a baked-in config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"gopkg.in/yaml.v3"

	strutil "portico/pkg/platform/strings"
)

// Duration wraps time.Duration so YAML values like "30s" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration for the gateway process.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Token     TokenConfig     `yaml:"token"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Audit     AuditConfig     `yaml:"audit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr   string `yaml:"addr"`
	Issuer string `yaml:"issuer"`
	Realm  string `yaml:"realm"`
	// Scopes advertised in the discovery document.
	Scopes []string `yaml:"scopes"`
	// DevSignIn enables the development token route. Never enable this
	// in production.
	DevSignIn bool `yaml:"dev_sign_in"`
	// DevClientID and DevClientSecretHash gate the development token
	// route. When the hash is empty an ephemeral secret is generated at
	// startup and logged once.
	DevClientID         string `yaml:"dev_client_id"`
	DevClientSecretHash string `yaml:"dev_client_secret_hash"`
}

// TokenConfig controls access token validation and minting.
type TokenConfig struct {
	SigningKey string   `yaml:"signing_key"`
	Audience   string   `yaml:"audience"`
	TTL        Duration `yaml:"ttl"`
}

// RateLimitConfig controls the per-client request throttle.
type RateLimitConfig struct {
	Limit  int      `yaml:"limit"`
	Window Duration `yaml:"window"`
}

// RedisConfig carries connection settings for the shared Redis client.
// An empty URL means Redis is not configured and memory stores are used.
type RedisConfig struct {
	URL          string   `yaml:"url"`
	PoolSize     int      `yaml:"pool_size"`
	MinIdleConns int      `yaml:"min_idle_conns"`
	DialTimeout  Duration `yaml:"dial_timeout"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// PostgresConfig carries the database connection string. Empty means
// PostgreSQL-backed stores are not used.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// KafkaConfig carries the audit topic settings. No brokers means the Kafka
// sink and consumer are not started.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	AuditTopic    string   `yaml:"audit_topic"`
	ConsumerGroup string   `yaml:"consumer_group"`
}

// AuditConfig controls the audit trail pipeline.
type AuditConfig struct {
	// Backend selects where the worker persists events:
	// memory, postgres or kafka.
	Backend string `yaml:"backend"`
	Buffer  int    `yaml:"buffer"`
	// SampleRate thins operations-category events; security events are
	// never sampled. 1.0 keeps everything.
	SampleRate float64 `yaml:"sample_rate"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:   ":8080",
			Issuer: "http://localhost:8080",
			Realm:  "portico",
			Scopes: []string{"openid", "profile"},
		},
		Token: TokenConfig{
			// Override in production.
			SigningKey: "dev-secret-key-change-in-production",
			Audience:   "portico",
			TTL:        Duration(time.Hour),
		},
		RateLimit: RateLimitConfig{
			Limit:  100,
			Window: Duration(time.Minute),
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  Duration(5 * time.Second),
			ReadTimeout:  Duration(3 * time.Second),
			WriteTimeout: Duration(3 * time.Second),
		},
		Kafka: KafkaConfig{
			AuditTopic:    "portico.audit.events",
			ConsumerGroup: "portico-audit",
		},
		Audit: AuditConfig{
			Backend:    "memory",
			Buffer:     1024,
			SampleRate: 1.0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path when
// given, then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	// Scopes arrive from the file, the environment or both; collapse
	// duplicates so the discovery document never advertises a scope twice.
	cfg.Server.Scopes = strutil.DedupeAndTrim(cfg.Server.Scopes)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv builds the configuration without an explicit file path, honoring
// PORTICO_CONFIG when set.
func FromEnv() (*Config, error) {
	return Load(os.Getenv("PORTICO_CONFIG"))
}

func applyEnv(cfg *Config) {
	setString := func(key string, target *string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
	setBool := func(key string, target *bool) {
		if v := os.Getenv(key); v != "" {
			*target = v == "true"
		}
	}
	setInt := func(key string, target *int) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				*target = parsed
			}
		}
	}
	setFloat := func(key string, target *float64) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				*target = parsed
			}
		}
	}
	setDuration := func(key string, target *Duration) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := time.ParseDuration(v); err == nil {
				*target = Duration(parsed)
			}
		}
	}
	setList := func(key string, target *[]string) {
		if v := os.Getenv(key); v != "" {
			parts := strings.Split(v, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			*target = parts
		}
	}

	setString("PORTICO_ADDR", &cfg.Server.Addr)
	setString("PORTICO_ISSUER", &cfg.Server.Issuer)
	setString("PORTICO_REALM", &cfg.Server.Realm)
	setList("PORTICO_SCOPES", &cfg.Server.Scopes)
	setBool("PORTICO_DEV_SIGN_IN", &cfg.Server.DevSignIn)
	setString("PORTICO_DEV_CLIENT_ID", &cfg.Server.DevClientID)
	setString("PORTICO_DEV_CLIENT_SECRET_HASH", &cfg.Server.DevClientSecretHash)

	setString("PORTICO_TOKEN_SIGNING_KEY", &cfg.Token.SigningKey)
	setString("PORTICO_TOKEN_AUDIENCE", &cfg.Token.Audience)
	setDuration("PORTICO_TOKEN_TTL", &cfg.Token.TTL)

	setInt("PORTICO_RATE_LIMIT", &cfg.RateLimit.Limit)
	setDuration("PORTICO_RATE_WINDOW", &cfg.RateLimit.Window)

	setString("PORTICO_REDIS_URL", &cfg.Redis.URL)
	setInt("PORTICO_REDIS_POOL_SIZE", &cfg.Redis.PoolSize)

	setString("PORTICO_POSTGRES_DSN", &cfg.Postgres.DSN)

	setList("PORTICO_KAFKA_BROKERS", &cfg.Kafka.Brokers)
	setString("PORTICO_KAFKA_AUDIT_TOPIC", &cfg.Kafka.AuditTopic)
	setString("PORTICO_KAFKA_CONSUMER_GROUP", &cfg.Kafka.ConsumerGroup)

	setString("PORTICO_AUDIT_BACKEND", &cfg.Audit.Backend)
	setInt("PORTICO_AUDIT_BUFFER", &cfg.Audit.Buffer)
	setFloat("PORTICO_AUDIT_SAMPLE_RATE", &cfg.Audit.SampleRate)

	setString("PORTICO_LOG_LEVEL", &cfg.Log.Level)
	setString("PORTICO_LOG_FORMAT", &cfg.Log.Format)
}

// Validate rejects configurations the process cannot safely start with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server addr is required")
	}
	if !govalidator.IsRequestURL(c.Server.Issuer) {
		return fmt.Errorf("config: issuer %q is not a valid URL", c.Server.Issuer)
	}
	if c.Token.SigningKey == "" {
		return fmt.Errorf("config: token signing key is required")
	}
	if c.Token.TTL.Std() <= 0 {
		return fmt.Errorf("config: token ttl must be positive")
	}
	if c.RateLimit.Limit <= 0 {
		return fmt.Errorf("config: rate limit must be positive")
	}
	if c.RateLimit.Window.Std() <= 0 {
		return fmt.Errorf("config: rate window must be positive")
	}

	switch c.Audit.Backend {
	case "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: audit backend postgres requires a postgres dsn")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: audit backend kafka requires brokers")
		}
	default:
		return fmt.Errorf("config: unknown audit backend %q", c.Audit.Backend)
	}

	if c.Audit.SampleRate < 0 || c.Audit.SampleRate > 1 {
		return fmt.Errorf("config: audit sample rate must be within [0, 1]")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}

	return nil
}
