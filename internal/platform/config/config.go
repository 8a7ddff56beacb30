package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	minChunkSize = 1
	maxChunkSize = 1000
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	EnableDBCheck  bool
	LogLevel       string
	LogFormat      string
	MigrationsPath string

	// Redis backs the distributed job lock. Empty RedisAddr disables locking.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	JobLockTTL    time.Duration

	ReconcileChunkSize int
	ReconcileEpsilon   decimal.Decimal
	LedgerMaxRetries   int

	ScheduleCashCheck   string
	ScheduleClientCheck string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JOB_LOCK_TTL", "10m")
	v.SetDefault("RECONCILE_CHUNK_SIZE", 200)
	v.SetDefault("RECONCILE_EPSILON", "0.01")
	v.SetDefault("LEDGER_MAX_RETRIES", 3)
	v.SetDefault("SCHEDULE_CASH_CHECK", "0 0 2 * * *")
	v.SetDefault("SCHEDULE_CLIENT_CHECK", "0 30 2 * * *")
	v.AutomaticEnv()

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.DatabaseURL = v.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	cfg.EnableDBCheck = v.GetBool("ENABLE_DB_CHECK")
	cfg.LogLevel = v.GetString("LOG_LEVEL")
	cfg.LogFormat = v.GetString("LOG_FORMAT")
	cfg.MigrationsPath = v.GetString("MIGRATIONS_PATH")

	cfg.RedisAddr = v.GetString("REDIS_ADDR")
	cfg.RedisPassword = v.GetString("REDIS_PASSWORD")
	cfg.RedisDB = v.GetInt("REDIS_DB")

	ttlStr := v.GetString("JOB_LOCK_TTL")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil || ttl <= 0 {
		ttl = 10 * time.Minute
		log.Printf("Warning: Invalid value for JOB_LOCK_TTL ('%s'). Defaulting to %s.\n", ttlStr, ttl)
	}
	cfg.JobLockTTL = ttl

	chunk := v.GetInt("RECONCILE_CHUNK_SIZE")
	switch {
	case chunk < minChunkSize:
		log.Printf("Warning: RECONCILE_CHUNK_SIZE %d below %d, clamping.\n", chunk, minChunkSize)
		chunk = minChunkSize
	case chunk > maxChunkSize:
		log.Printf("Warning: RECONCILE_CHUNK_SIZE %d above %d, clamping.\n", chunk, maxChunkSize)
		chunk = maxChunkSize
	}
	cfg.ReconcileChunkSize = chunk

	epsStr := v.GetString("RECONCILE_EPSILON")
	eps, err := decimal.NewFromString(epsStr)
	if err != nil || eps.IsNegative() {
		eps = decimal.RequireFromString("0.01")
		log.Printf("Warning: Invalid value for RECONCILE_EPSILON ('%s'). Defaulting to %s.\n", epsStr, eps)
	}
	cfg.ReconcileEpsilon = eps

	cfg.LedgerMaxRetries = v.GetInt("LEDGER_MAX_RETRIES")
	if cfg.LedgerMaxRetries < 0 {
		cfg.LedgerMaxRetries = 0
	}

	cfg.ScheduleCashCheck = v.GetString("SCHEDULE_CASH_CHECK")
	cfg.ScheduleClientCheck = v.GetString("SCHEDULE_CLIENT_CHECK")
	return cfg
}
