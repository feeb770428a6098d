package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/overtop/tradebrain/internal/blob/s3"
	"github.com/overtop/tradebrain/internal/cache/redis"
	"github.com/overtop/tradebrain/internal/config"
	"github.com/overtop/tradebrain/internal/domain"
	"github.com/overtop/tradebrain/internal/engine"
	"github.com/overtop/tradebrain/internal/server"
	"github.com/overtop/tradebrain/internal/server/handler"
	"github.com/overtop/tradebrain/internal/server/ws"
	"github.com/overtop/tradebrain/internal/service"
	"github.com/overtop/tradebrain/internal/store/postgres"
)

// Dependencies bundles everything the run loop needs. It is constructed by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	EventLog  *engine.EventLog
	AuditLog  *engine.AuditLog
	Repo      *engine.Repository
	Scheduler *engine.Scheduler

	Mirror   *service.Mirror
	Ingest   *service.IngestService
	Rules    *service.RuleService
	Params   *service.ParamsService
	Report   *service.ReportService
	Archiver *service.Archiver

	Hub    *ws.Hub
	Server *server.Server

	MirrorFlush time.Duration
}

// minerConfig overlays the configured thresholds on the code defaults. Band
// edges and hour buckets stay as defined in the engine package.
func minerConfig(mc config.MinerConfig) engine.MinerConfig {
	cfg := engine.DefaultMinerConfig()

	cfg.MinSnapshot = mc.MinSnapshot
	cfg.MinBandSample = mc.MinBandSample
	cfg.MinDelta = mc.MinDelta

	cfg.StrengthBlockWR = mc.StrengthBlockWR
	cfg.StrengthBlockPnL = mc.StrengthBlockPnL
	cfg.StrengthBoostWR = mc.StrengthBoostWR
	cfg.StrengthBoostPnL = mc.StrengthBoostPnL
	cfg.BoostMultiplier = mc.BoostMultiplier

	cfg.SeedBlockWR = mc.SeedBlockWR
	cfg.SeedBlockPnL = mc.SeedBlockPnL

	cfg.RegimeBlockWR = mc.RegimeBlockWR
	cfg.RegimeBoostWR = mc.RegimeBoostWR
	cfg.RegimeBoostMultiplier = mc.RegimeBoostMultiplier

	cfg.ModeMinSample = mc.ModeMinSample
	cfg.ModeBlockWR = mc.ModeBlockWR
	cfg.ModeBlockPnL = mc.ModeBlockPnL

	cfg.HourBlockWR = mc.HourBlockWR
	cfg.HourBlockPnL = mc.HourBlockPnL

	cfg.StreakLength = mc.StreakLength
	cfg.StreakMinSample = mc.StreakMinSample
	cfg.StreakBlockWR = mc.StreakBlockWR

	cfg.ComboMinSample = mc.ComboMinSample
	cfg.ComboBlockWR = mc.ComboBlockWR
	cfg.ComboBlockPnL = mc.ComboBlockPnL

	return cfg
}

// Wire constructs the full dependency graph. Postgres, Redis, and S3 are
// optional attachments: a disabled or unreachable backend downgrades the
// engine to memory-only operation instead of failing startup.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		MirrorFlush: cfg.Supabase.FlushInterval.Duration,
	}

	// --- Engine core, always in-memory ---
	deps.EventLog = engine.NewEventLog(cfg.Engine.EventCap, cfg.Engine.TradeCap)
	deps.AuditLog = engine.NewAuditLog(cfg.Engine.AuditCap)
	deps.Repo = engine.NewRepository()
	miner := engine.NewMiner(minerConfig(cfg.Miner))

	// --- PostgreSQL mirror (optional, best-effort) ---
	var pgPool *postgres.Client
	if cfg.Supabase.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Supabase.DSN,
			Host:     cfg.Supabase.Host,
			Port:     cfg.Supabase.Port,
			Database: cfg.Supabase.Database,
			User:     cfg.Supabase.User,
			Password: cfg.Supabase.Password,
			SSLMode:  cfg.Supabase.SSLMode,
			MaxConns: cfg.Supabase.PoolMaxConns,
			MinConns: cfg.Supabase.PoolMinConns,
		})
		if err != nil {
			logger.WarnContext(ctx, "postgres unavailable, running memory-only",
				slog.String("error", err.Error()),
			)
		} else {
			closers = append(closers, pgClient.Close)
			if cfg.Supabase.RunMigrations {
				if migErr := pgClient.RunMigrations(ctx); migErr != nil {
					cleanup()
					return nil, nil, fmt.Errorf("wire: postgres migrations: %w", migErr)
				}
			}
			pgPool = pgClient
		}
	}
	if pgPool != nil {
		pool := pgPool.Pool()
		deps.Mirror = service.NewMirror(
			postgres.NewTradeStore(pool),
			postgres.NewRuleStore(pool),
			postgres.NewAuditStore(pool),
			cfg.Supabase.WriteTimeout.Duration,
			cfg.Supabase.BacklogCap,
			logger,
		)
	}

	// --- Redis (optional) ---
	var (
		bus       domain.SignalBus
		limiter   domain.RateLimiter
		ruleCache *redis.RuleCache
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			logger.WarnContext(ctx, "redis unavailable, running without signal bus",
				slog.String("error", err.Error()),
			)
		} else {
			closers = append(closers, func() { _ = redisClient.Close() })
			bus = redis.NewSignalBus(redisClient)
			limiter = redis.NewRateLimiter(redisClient)
			ruleCache = redis.NewRuleCache(redisClient)
			deps.Hub = ws.NewHub(bus, logger)
		}
	}

	// --- Services ---
	deps.Params = service.NewParamsService()
	fanout := service.NewRuleFanout(deps.Mirror, bus, logger)

	var cache service.ConfigCache
	if ruleCache != nil {
		cache = ruleCache
	}
	deps.Rules = service.NewRuleService(deps.Repo, deps.Params, deps.Mirror, fanout, cache, logger)
	deps.Report = service.NewReportService(deps.EventLog, minerConfig(cfg.Miner))

	deps.Scheduler = engine.NewScheduler(
		deps.EventLog, deps.Repo, miner, deps.AuditLog, deps.Rules,
		engine.SchedulerConfig{
			InitialGrace:  cfg.Engine.InitialGrace.Duration,
			Interval:      cfg.Engine.Interval.Duration,
			SnapshotLimit: cfg.Engine.SnapshotLimit,
		},
		logger,
	)
	deps.Ingest = service.NewIngestService(deps.EventLog, deps.Repo, deps.Scheduler, deps.AuditLog, deps.Mirror, bus, logger)

	// --- Warm start from the mirror ---
	if deps.Mirror.Enabled() {
		if rules, err := deps.Mirror.LoadRules(ctx); err != nil {
			logger.WarnContext(ctx, "warm start: rule load failed", slog.String("error", err.Error()))
		} else if len(rules) > 0 {
			deps.Repo.Load(rules)
			logger.InfoContext(ctx, "warm start: rules loaded", slog.Int("count", len(rules)))
		}
		if trades, err := deps.Mirror.LoadTrades(ctx, cfg.Supabase.WarmTrades); err != nil {
			logger.WarnContext(ctx, "warm start: trade load failed", slog.String("error", err.Error()))
		} else if len(trades) > 0 {
			deps.EventLog.LoadTrades(trades)
			deps.Ingest.SeedStatus(trades, deps.Mirror.CountTrades(ctx))
			logger.InfoContext(ctx, "warm start: trades loaded", slog.Int("count", len(trades)))
		}
	}

	// --- S3 cold-storage export (optional, needs the mirror) ---
	if cfg.S3.Enabled && pgPool != nil {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			logger.WarnContext(ctx, "s3 unavailable, running without cold-storage export",
				slog.String("error", err.Error()),
			)
		} else {
			closers = append(closers, func() { _ = s3Client.Close() })
			pool := pgPool.Pool()
			impl := s3blob.NewArchiver(
				s3blob.NewWriter(s3Client),
				postgres.NewTradeStore(pool),
				postgres.NewAuditStore(pool),
			)
			deps.Archiver = service.NewArchiver(
				impl,
				time.Duration(cfg.S3.RetentionDays)*24*time.Hour,
				cfg.S3.Interval.Duration,
				logger,
			)
		}
	}

	// --- HTTP server ---
	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(logger, deps.Mirror.Enabled),
		Ingest:   handler.NewIngestHandler(deps.Ingest, logger),
		Rules:    handler.NewRuleHandler(deps.Rules, logger),
		Config:   handler.NewConfigHandler(deps.Rules, deps.Params, logger),
		Status:   handler.NewStatusHandler(deps.Ingest),
		Analysis: handler.NewAnalysisHandler(deps.Scheduler, deps.Report),
	}
	deps.Server = server.NewServer(server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		APIKey:      cfg.Server.APIKey,
		RateLimit:   cfg.Server.RateLimit,
		RateWindow:  cfg.Server.RateWindow.Duration,
	}, handlers, deps.Hub, limiter, logger)

	return deps, cleanup, nil
}
