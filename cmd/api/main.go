package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"placecurator/internal/adapters/claude"
	server "placecurator/internal/adapters/http_server"
	"placecurator/internal/adapters/kakao"
	"placecurator/internal/adapters/observability"
	redisad "placecurator/internal/adapters/redis"
	"placecurator/internal/app"
	"placecurator/internal/shared"
	mysqlrepo "placecurator/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// upstream clients
	search, err := kakao.New(cfg.KakaoBase, cfg.KakaoKey, cfg.KakaoRPS, cfg.KakaoTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize search client")
	}
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

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	engine := app.NewCurationEngine(gen)
	h := &server.Handlers{
		Q:       app.NewQueryService(repo, cache, cfg.CacheTTL),
		Collect: app.NewCollectionService(app.NewCollector(search, cfg.Collection), repo, cache, cfg.Collection),
		Batch:   app.NewBatchCurationService(engine, repo, cache),
		Engine:  engine,
	}

	// http
	srv := server.New(cfg.ReadTimeout)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
