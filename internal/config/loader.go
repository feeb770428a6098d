package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TRADEBRAIN_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TRADEBRAIN_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// Server
	setInt(&cfg.Server.Port, "TRADEBRAIN_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "TRADEBRAIN_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "TRADEBRAIN_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "TRADEBRAIN_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "TRADEBRAIN_SERVER_RATE_WINDOW")

	// Supabase
	setBool(&cfg.Supabase.Enabled, "TRADEBRAIN_SUPABASE_ENABLED")
	setStr(&cfg.Supabase.DSN, "TRADEBRAIN_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "TRADEBRAIN_SUPABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "TRADEBRAIN_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "TRADEBRAIN_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "TRADEBRAIN_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "TRADEBRAIN_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "TRADEBRAIN_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "TRADEBRAIN_SUPABASE_SSLMODE")
	setInt(&cfg.Supabase.PoolMaxConns, "TRADEBRAIN_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "TRADEBRAIN_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "TRADEBRAIN_SUPABASE_RUN_MIGRATIONS")
	setDuration(&cfg.Supabase.WriteTimeout, "TRADEBRAIN_SUPABASE_WRITE_TIMEOUT")
	setInt(&cfg.Supabase.BacklogCap, "TRADEBRAIN_SUPABASE_BACKLOG_CAP")
	setDuration(&cfg.Supabase.FlushInterval, "TRADEBRAIN_SUPABASE_FLUSH_INTERVAL")
	setInt(&cfg.Supabase.WarmTrades, "TRADEBRAIN_SUPABASE_WARM_TRADES")

	// Redis
	setBool(&cfg.Redis.Enabled, "TRADEBRAIN_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "TRADEBRAIN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TRADEBRAIN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TRADEBRAIN_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TRADEBRAIN_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TRADEBRAIN_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TRADEBRAIN_REDIS_TLS_ENABLED")

	// S3
	setBool(&cfg.S3.Enabled, "TRADEBRAIN_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "TRADEBRAIN_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TRADEBRAIN_S3_REGION")
	setStr(&cfg.S3.Bucket, "TRADEBRAIN_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TRADEBRAIN_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TRADEBRAIN_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TRADEBRAIN_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TRADEBRAIN_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "TRADEBRAIN_S3_RETENTION_DAYS")
	setDuration(&cfg.S3.Interval, "TRADEBRAIN_S3_INTERVAL")

	// Engine
	setInt(&cfg.Engine.EventCap, "TRADEBRAIN_ENGINE_EVENT_CAP")
	setInt(&cfg.Engine.TradeCap, "TRADEBRAIN_ENGINE_TRADE_CAP")
	setInt(&cfg.Engine.AuditCap, "TRADEBRAIN_ENGINE_AUDIT_CAP")
	setDuration(&cfg.Engine.InitialGrace, "TRADEBRAIN_ENGINE_INITIAL_GRACE")
	setDuration(&cfg.Engine.Interval, "TRADEBRAIN_ENGINE_INTERVAL")
	setInt(&cfg.Engine.SnapshotLimit, "TRADEBRAIN_ENGINE_SNAPSHOT_LIMIT")

	// Miner
	setInt(&cfg.Miner.MinSnapshot, "TRADEBRAIN_MINER_MIN_SNAPSHOT")
	setInt(&cfg.Miner.MinBandSample, "TRADEBRAIN_MINER_MIN_BAND_SAMPLE")
	setFloat64(&cfg.Miner.MinDelta, "TRADEBRAIN_MINER_MIN_DELTA")
	setFloat64(&cfg.Miner.BoostMultiplier, "TRADEBRAIN_MINER_BOOST_MULTIPLIER")

	// Top-level
	setStr(&cfg.LogLevel, "TRADEBRAIN_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
