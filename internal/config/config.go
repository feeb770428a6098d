// Package config defines the top-level configuration for the engine and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by TRADEBRAIN_* environment
// variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Supabase SupabaseConfig `toml:"supabase"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Engine   EngineConfig   `toml:"engine"`
	Miner    MinerConfig    `toml:"miner"`
	LogLevel string         `toml:"log_level"`
}

// duration wraps time.Duration so the TOML decoder can parse strings like
// "5m" or "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// SupabaseConfig holds the durable mirror connection parameters. The mirror
// is optional: with Enabled false (or an unreachable database) the engine
// runs memory-only.
type SupabaseConfig struct {
	Enabled       bool     `toml:"enabled"`
	DSN           string   `toml:"dsn"`
	Host          string   `toml:"host"`
	Port          int      `toml:"port"`
	Database      string   `toml:"database"`
	User          string   `toml:"user"`
	Password      string   `toml:"password"`
	SSLMode       string   `toml:"ssl_mode"`
	PoolMaxConns  int      `toml:"pool_max_conns"`
	PoolMinConns  int      `toml:"pool_min_conns"`
	RunMigrations bool     `toml:"run_migrations"`
	WriteTimeout  duration `toml:"write_timeout"`
	BacklogCap    int      `toml:"backlog_cap"`
	FlushInterval duration `toml:"flush_interval"`
	WarmTrades    int      `toml:"warm_trades"`
}

// RedisConfig holds signal bus parameters. Optional like the mirror.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds cold-storage export parameters.
type S3Config struct {
	Enabled        bool     `toml:"enabled"`
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	UseSSL         bool     `toml:"use_ssl"`
	ForcePathStyle bool     `toml:"force_path_style"`
	RetentionDays  int      `toml:"retention_days"`
	Interval       duration `toml:"interval"`
}

// EngineConfig holds the in-memory log capacities and the analysis loop
// timing.
type EngineConfig struct {
	EventCap      int      `toml:"event_cap"`
	TradeCap      int      `toml:"trade_cap"`
	AuditCap      int      `toml:"audit_cap"`
	InitialGrace  duration `toml:"initial_grace"`
	Interval      duration `toml:"interval"`
	SnapshotLimit int      `toml:"snapshot_limit"`
}

// MinerConfig exposes the scalar mining thresholds. Band edges and hour
// buckets are fixed in code; these knobs cover everything operators have
// actually needed to tune.
type MinerConfig struct {
	MinSnapshot   int     `toml:"min_snapshot"`
	MinBandSample int     `toml:"min_band_sample"`
	MinDelta      float64 `toml:"min_delta"`

	StrengthBlockWR  float64 `toml:"strength_block_wr"`
	StrengthBlockPnL float64 `toml:"strength_block_pnl"`
	StrengthBoostWR  float64 `toml:"strength_boost_wr"`
	StrengthBoostPnL float64 `toml:"strength_boost_pnl"`
	BoostMultiplier  float64 `toml:"boost_multiplier"`

	SeedBlockWR  float64 `toml:"seed_block_wr"`
	SeedBlockPnL float64 `toml:"seed_block_pnl"`

	RegimeBlockWR         float64 `toml:"regime_block_wr"`
	RegimeBoostWR         float64 `toml:"regime_boost_wr"`
	RegimeBoostMultiplier float64 `toml:"regime_boost_multiplier"`

	ModeMinSample int     `toml:"mode_min_sample"`
	ModeBlockWR   float64 `toml:"mode_block_wr"`
	ModeBlockPnL  float64 `toml:"mode_block_pnl"`

	HourBlockWR  float64 `toml:"hour_block_wr"`
	HourBlockPnL float64 `toml:"hour_block_pnl"`

	StreakLength    int     `toml:"streak_length"`
	StreakMinSample int     `toml:"streak_min_sample"`
	StreakBlockWR   float64 `toml:"streak_block_wr"`

	ComboMinSample int     `toml:"combo_min_sample"`
	ComboBlockWR   float64 `toml:"combo_block_wr"`
	ComboBlockPnL  float64 `toml:"combo_block_pnl"`
}

// Defaults returns a Config populated with the values in config.example.toml.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{},
			RateLimit:   50,
			RateWindow:  duration{time.Second},
		},
		Supabase: SupabaseConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
			WriteTimeout:  duration{5 * time.Second},
			BacklogCap:    500,
			FlushInterval: duration{time.Minute},
			WarmTrades:    2000,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "tradebrain-archive",
			ForcePathStyle: true,
			RetentionDays:  30,
			Interval:       duration{24 * time.Hour},
		},
		Engine: EngineConfig{
			EventCap:      5000,
			TradeCap:      5000,
			AuditCap:      200,
			InitialGrace:  duration{30 * time.Second},
			Interval:      duration{5 * time.Minute},
			SnapshotLimit: 10000,
		},
		Miner: MinerConfig{
			MinSnapshot:   25,
			MinBandSample: 20,
			MinDelta:      0.10,

			StrengthBlockWR:  0.38,
			StrengthBlockPnL: -10,
			StrengthBoostWR:  0.68,
			StrengthBoostPnL: 10,
			BoostMultiplier:  1.20,

			SeedBlockWR:  0.38,
			SeedBlockPnL: -8,

			RegimeBlockWR:         0.35,
			RegimeBoostWR:         0.70,
			RegimeBoostMultiplier: 1.25,

			ModeMinSample: 15,
			ModeBlockWR:   0.35,
			ModeBlockPnL:  -5,

			HourBlockWR:  0.35,
			HourBlockPnL: -10,

			StreakLength:    3,
			StreakMinSample: 8,
			StreakBlockWR:   0.40,

			ComboMinSample: 15,
			ComboBlockWR:   0.33,
			ComboBlockPnL:  -8,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server: rate_limit must be >= 0")
	}

	if c.Supabase.Enabled {
		if strings.TrimSpace(c.Supabase.DSN) == "" {
			if c.Supabase.Host == "" {
				errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
			}
			if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
				errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
			}
			if c.Supabase.Database == "" {
				errs = append(errs, "supabase: database must not be empty")
			}
		}
		if c.Supabase.PoolMaxConns < 1 {
			errs = append(errs, "supabase: pool_max_conns must be >= 1")
		}
		if c.Supabase.PoolMinConns < 0 {
			errs = append(errs, "supabase: pool_min_conns must be >= 0")
		}
		if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
			errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
		}
		if c.Supabase.BacklogCap < 0 {
			errs = append(errs, "supabase: backlog_cap must be >= 0")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.RetentionDays < 1 {
			errs = append(errs, "s3: retention_days must be >= 1")
		}
	}

	if c.Engine.EventCap < 1 {
		errs = append(errs, "engine: event_cap must be >= 1")
	}
	if c.Engine.TradeCap < 1 {
		errs = append(errs, "engine: trade_cap must be >= 1")
	}
	if c.Engine.AuditCap < 1 {
		errs = append(errs, "engine: audit_cap must be >= 1")
	}
	if c.Engine.Interval.Duration <= 0 {
		errs = append(errs, "engine: interval must be > 0")
	}

	if c.Miner.MinSnapshot < 1 {
		errs = append(errs, "miner: min_snapshot must be >= 1")
	}
	if c.Miner.MinBandSample < 1 {
		errs = append(errs, "miner: min_band_sample must be >= 1")
	}
	if c.Miner.BoostMultiplier <= 1 {
		errs = append(errs, "miner: boost_multiplier must be > 1")
	}
	if c.Miner.RegimeBoostMultiplier <= 1 {
		errs = append(errs, "miner: regime_boost_multiplier must be > 1")
	}
	if c.Miner.StreakLength < 1 {
		errs = append(errs, "miner: streak_length must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
