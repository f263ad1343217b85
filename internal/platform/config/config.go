package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server captures process level configuration.
type Server struct {
	Addr            string        `env:"SWIFTREMIT_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	JWTSigningKey string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"swiftremit"`
	JWTTTL        time.Duration `env:"JWT_TTL" envDefault:"1h"`

	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	Database DatabaseConfig
	Ledger   LedgerConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// DatabaseConfig selects postgres storage when URL is set; otherwise the
// ledger runs in memory.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
}

type LedgerConfig struct {
	Namespace      string `env:"LEDGER_NAMESPACE" envDefault:"default"`
	CustodyAccount string `env:"LEDGER_CUSTODY_ACCOUNT" envDefault:"GSWIFTREMITCUSTODY"`
	// Admin, Asset and FeeBps bootstrap initialization at start-up when Admin
	// is set.
	Admin         string `env:"LEDGER_ADMIN"`
	Asset         string `env:"LEDGER_ASSET" envDefault:"USDC"`
	AssetDecimals int32  `env:"LEDGER_ASSET_DECIMALS" envDefault:"7"`
	FeeBps        uint32 `env:"LEDGER_FEE_BPS" envDefault:"250"`
	DevFaucet     bool   `env:"LEDGER_DEV_FAUCET" envDefault:"false"`
	FaucetToken   string `env:"LEDGER_DEV_FAUCET_TOKEN"`
}

// RedisConfig enables the shared idempotency store when URL is set.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	KeyPrefix    string        `env:"REDIS_KEY_PREFIX" envDefault:"swiftremit:idem:"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig enables the event topic when Brokers is set.
type KafkaConfig struct {
	Brokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic       string   `env:"KAFKA_TOPIC" envDefault:"swiftremit.ledger-events"`
	ClientID    string   `env:"KAFKA_CLIENT_ID" envDefault:"swiftremit"`
	QueueBuffer int      `env:"KAFKA_QUEUE_BUFFER" envDefault:"1024"`
}

// FromEnv parses the environment and validates cross-field constraints.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c Server) Validate() error {
	var errs []error
	if c.Ledger.CustodyAccount == "" {
		errs = append(errs, errors.New("LEDGER_CUSTODY_ACCOUNT must not be empty"))
	}
	if c.Ledger.FeeBps > 10_000 {
		errs = append(errs, fmt.Errorf("LEDGER_FEE_BPS must be at most 10000, got %d", c.Ledger.FeeBps))
	}
	if c.Ledger.AssetDecimals < 0 || c.Ledger.AssetDecimals > 18 {
		errs = append(errs, fmt.Errorf("LEDGER_ASSET_DECIMALS must be between 0 and 18, got %d", c.Ledger.AssetDecimals))
	}
	if c.Ledger.DevFaucet && c.Ledger.FaucetToken == "" {
		errs = append(errs, errors.New("LEDGER_DEV_FAUCET_TOKEN is required when LEDGER_DEV_FAUCET is enabled"))
	}
	if len(c.JWTSigningKey) < 16 {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be at least 16 bytes"))
	}
	return errors.Join(errs...)
}
