package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"placecurator/internal/adapters/claude"
	"placecurator/internal/adapters/kakao"
	"placecurator/internal/adapters/observability"
	redisad "placecurator/internal/adapters/redis"
	"placecurator/internal/app"
	"placecurator/internal/shared"
	mysqlrepo "placecurator/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	runCollect, runCurate := false, false
	switch cfg.Mode {
	case "collect":
		runCollect = true
	case "curate":
		runCurate = true
	case "all":
		runCollect, runCurate = true, true
	default:
		log.Fatal().Str("mode", cfg.Mode).Msg("CURATOR_MODE must be collect, curate or all")
	}

	log.Info().
		Str("mode", cfg.Mode).
		Int("queries", len(cfg.Collection.Queries())).
		Int("curate_limit", cfg.CurateLimit).
		Msg("curator starting")

	observability.Serve(cfg.MetricsAddr)

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unreachable; cache invalidation will be skipped")
	}

	if runCollect {
		search, err := kakao.New(cfg.KakaoBase, cfg.KakaoKey, cfg.KakaoRPS, cfg.KakaoTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize search client")
		}
		svc := app.NewCollectionService(app.NewCollector(search, cfg.Collection), repo, cache, cfg.Collection)
		out := svc.Run(ctx)
		log.Info().
			Str("run_id", out.RunID).
			Int("collected", out.Collected).
			Int("skipped", out.Skipped).
			Int("failed_queries", out.FailedQueries).
			Msg(out.Message)
	}

	if runCurate && ctx.Err() == nil {
		retry := claude.DefaultRetryPolicy()
		retry.MaxRetries = cfg.Curation.MaxRetries
		retry.BaseDelay = cfg.Curation.RetryBase
		gen, err := claude.New(claude.Options{
			BaseURL:   cfg.ClaudeBase,
			APIKey:    cfg.ClaudeKey,
			Model:     cfg.ClaudeModel,
			Version:   cfg.ClaudeVersion,
			MaxTokens: cfg.Curation.MaxTokens,
			Timeout:   cfg.ClaudeTimeout,
			RPS:       cfg.ClaudeRPS,
			Retry:     retry,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize analysis client")
		}
		svc := app.NewBatchCurationService(app.NewCurationEngine(gen), repo, cache)
		out, err := svc.RunAll(ctx, cfg.CurateLimit)
		if err != nil {
			log.Fatal().Err(err).Str("run_id", out.RunID).Msg("batch curation failed")
		}
		log.Info().
			Str("run_id", out.RunID).
			Int("succeeded", out.Succeeded).
			Int("failed", out.Failed).
			Msg(out.Message)
	}

	log.Info().Msg("curator finished")
}
