package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Circle    CircleConfig    `mapstructure:"circle"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Security  SecurityConfig  `mapstructure:"security"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	PoolSize       int           `mapstructure:"pool_size"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CircleConfig configures the user-controlled wallets API client.
type CircleConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	BaseURL            string        `mapstructure:"base_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	DefaultBlockchain  string        `mapstructure:"default_blockchain"`
	FeeLevel           string        `mapstructure:"fee_level"`
	StatusPollAttempts int           `mapstructure:"status_poll_attempts"`
	StatusPollInterval time.Duration `mapstructure:"status_poll_interval"`
	// TokenAddresses maps asset -> blockchain -> token contract address.
	// Viper lower-cases the keys.
	TokenAddresses map[string]map[string]string `mapstructure:"token_addresses"`
}

// PipelineConfig tunes the command pipeline stages.
type PipelineConfig struct {
	ExecutorMode    string             `mapstructure:"executor_mode"`    // custodian, simulated
	PortfolioSource string             `mapstructure:"portfolio_source"` // static, custodian
	DefaultUserID   string             `mapstructure:"default_user_id"`
	Prices          map[string]float64 `mapstructure:"prices"`
	Risk            RiskConfig         `mapstructure:"risk"`
	Security        ValidationConfig   `mapstructure:"security"`
	ParserRetry     RetryConfig        `mapstructure:"parser_retry"`
}

type RiskConfig struct {
	MaxPercent        float64 `mapstructure:"max_percent"`
	PortfolioCapRatio float64 `mapstructure:"portfolio_cap_ratio"`
	TransferLimitUSD  float64 `mapstructure:"transfer_limit_usd"`
}

type ValidationConfig struct {
	RequireKnownAction bool `mapstructure:"require_known_action"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

// SecurityConfig holds key material. Empty keys are derived from MasterKey.
type SecurityConfig struct {
	MasterKey     string `mapstructure:"master_key"`
	AESKey        string `mapstructure:"aes_key"` // 32-byte hex-encoded key for AES-256
	SigningSecret string `mapstructure:"signing_secret"`
}

type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: VVG_.
// Nested keys use underscore: VVG_CIRCLE_API_KEY, VVG_PIPELINE_RISK_TRANSFER_LIMIT_USD, etc.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("VVG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_body_bytes", 64*1024)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "voicevault")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.idempotency_ttl", "24h")

	v.SetDefault("circle.api_key", "")
	v.SetDefault("circle.base_url", "https://api.circle.com/v1/w3s")
	v.SetDefault("circle.timeout", "15s")
	v.SetDefault("circle.default_blockchain", "ETH-SEPOLIA")
	v.SetDefault("circle.fee_level", "MEDIUM")
	v.SetDefault("circle.status_poll_attempts", 5)
	v.SetDefault("circle.status_poll_interval", "2s")
	v.SetDefault("circle.token_addresses", map[string]interface{}{
		"usdc": map[string]interface{}{
			"eth":         "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			"eth-sepolia": "",
		},
	})

	v.SetDefault("pipeline.executor_mode", "custodian")
	v.SetDefault("pipeline.portfolio_source", "static")
	v.SetDefault("pipeline.default_user_id", "")
	v.SetDefault("pipeline.prices", map[string]interface{}{
		"usdc": 1.0,
		"eth":  1537.53,
		"btc":  34594.38,
	})
	v.SetDefault("pipeline.risk.max_percent", 50)
	v.SetDefault("pipeline.risk.portfolio_cap_ratio", 0.30)
	v.SetDefault("pipeline.risk.transfer_limit_usd", 5000)
	v.SetDefault("pipeline.security.require_known_action", false)
	v.SetDefault("pipeline.parser_retry.max_attempts", 3)
	v.SetDefault("pipeline.parser_retry.base_delay", "200ms")

	v.SetDefault("security.master_key", "")
	v.SetDefault("security.aes_key", "")
	v.SetDefault("security.signing_secret", "")

	v.SetDefault("ratelimit.limit", 60)
	v.SetDefault("ratelimit.window", "1m")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "voicevault-gateway")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

func (c *Config) validate() error {
	switch c.Pipeline.ExecutorMode {
	case "custodian", "simulated":
	default:
		return fmt.Errorf("pipeline.executor_mode must be custodian or simulated, got %q", c.Pipeline.ExecutorMode)
	}
	switch c.Pipeline.PortfolioSource {
	case "static", "custodian":
	default:
		return fmt.Errorf("pipeline.portfolio_source must be static or custodian, got %q", c.Pipeline.PortfolioSource)
	}
	if c.Pipeline.ParserRetry.MaxAttempts < 1 {
		return fmt.Errorf("pipeline.parser_retry.max_attempts must be >= 1")
	}
	return nil
}
