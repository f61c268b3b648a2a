// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreArangoDB = "arangodb"
	StoreMemory   = "memory"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Port is the HTTP listen port.
	Port string `mapstructure:"PORT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// StoreDriver selects the persistence backend: arangodb or memory.
	StoreDriver string `mapstructure:"STORE_DRIVER"`

	ArangoURL      string `mapstructure:"ARANGO_URL"`
	ArangoHost     string `mapstructure:"ARANGO_HOST"`
	ArangoPort     string `mapstructure:"ARANGO_PORT"`
	ArangoUser     string `mapstructure:"ARANGO_USER"`
	ArangoPass     string `mapstructure:"ARANGO_PASS"`
	ArangoDatabase string `mapstructure:"ARANGO_DATABASE"`

	// JWTSecret is the HS256 signing key. Required.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim set on and required from session tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTTTL is the session token lifetime (e.g. "24h").
	JWTTTL string `mapstructure:"JWT_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31).
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// RequestTimeout bounds every request context (e.g. "30s").
	RequestTimeout string `mapstructure:"REQUEST_TIMEOUT"`
	// CORSOrigins is a comma-separated list of allowed origins.
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
	// AllowOwnerRemoval lets owners and admins remove the organization owner from its member list.
	AllowOwnerRemoval bool `mapstructure:"ALLOW_OWNER_REMOVAL"`

	// KafkaBrokers is a comma-separated list of broker addresses; empty disables membership events.
	KafkaBrokers   string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic     string `mapstructure:"KAFKA_TOPIC"`
	KafkaGroupID   string `mapstructure:"KAFKA_GROUP_ID"`
	KafkaAPIKey    string `mapstructure:"KAFKA_API_KEY"`
	KafkaAPISecret string `mapstructure:"KAFKA_API_SECRET"`

	// SeedFile is an optional YAML file of users and organizations applied at startup.
	SeedFile string `mapstructure:"SEED_FILE"`

	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogEncoding string `mapstructure:"LOG_ENCODING"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore missing .env

	v.AutomaticEnv()

	v.SetDefault("PORT", "3899")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("STORE_DRIVER", StoreArangoDB)
	v.SetDefault("ARANGO_URL", "")
	v.SetDefault("ARANGO_HOST", "localhost")
	v.SetDefault("ARANGO_PORT", "8529")
	v.SetDefault("ARANGO_USER", "root")
	v.SetDefault("ARANGO_PASS", "")
	v.SetDefault("ARANGO_DATABASE", "tenancy")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "tenancy-backend")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("ALLOW_OWNER_REMOVAL", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "membership-events")
	v.SetDefault("KAFKA_GROUP_ID", "tenancy-backend-worker")
	v.SetDefault("KAFKA_API_KEY", "")
	v.SetDefault("KAFKA_API_SECRET", "")
	v.SetDefault("SEED_FILE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "console")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Port == "" {
		return nil, errors.New("config: PORT must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET must be set")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 10
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if cfg.StoreDriver != StoreArangoDB && cfg.StoreDriver != StoreMemory {
		return nil, errors.New("config: STORE_DRIVER must be arangodb or memory")
	}
	if d, err := time.ParseDuration(cfg.JWTTTL); err != nil || d <= 0 {
		return nil, errors.New("config: JWT_TTL must be a positive duration")
	}

	return &cfg, nil
}

// TokenTTL parses JWTTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// Timeout parses RequestTimeout. Returns 30s if unset or invalid.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ArangoEndpoint returns ARANGO_URL, or one built from ARANGO_HOST and ARANGO_PORT.
func (c *Config) ArangoEndpoint() string {
	if c.ArangoURL != "" {
		return c.ArangoURL
	}
	return "http://" + c.ArangoHost + ":" + c.ArangoPort
}

// KafkaBrokersList returns broker addresses from the comma-separated config.
func (c *Config) KafkaBrokersList() []string {
	return splitList(c.KafkaBrokers)
}

// CORSOriginsList returns the allowed origins joined the way the CORS middleware expects them.
func (c *Config) CORSOriginsList() string {
	origins := splitList(c.CORSOrigins)
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
