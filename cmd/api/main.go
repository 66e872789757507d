package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"villa_market/internal/adapters/accommodation"
	server "villa_market/internal/adapters/http_server"
	"villa_market/internal/adapters/observability"
	redisad "villa_market/internal/adapters/redis"
	"villa_market/internal/app"
	"villa_market/internal/domain"
	"villa_market/internal/shared"
	mysqlrepo "villa_market/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// deps
	var cache domain.Cache
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := rc.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, running without shared cache")
	} else {
		cache = rc
		defer rc.Close()
	}

	var store domain.CatalogStore
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Warn().Err(err).Msg("db.Ping failed, catalog snapshot disabled")
		} else {
			log.Info().Msg("database connection ok")
			store = mysqlrepo.New(db)
		}
	}

	client, err := accommodation.New(cfg.APIBase, cfg.APIKey, cfg.UpstreamRPS, cfg.InsecureTLS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize accommodation client")
	}

	catalog := app.NewLocationService(client, cache, store, cfg.CatalogTTL)
	index := app.NewSuggestionIndex(catalog, client, cfg.CatalogWorkers)
	go func() {
		if err := index.Load(ctx); err != nil {
			log.Error().Err(err).Msg("suggestion index not loaded")
		}
	}()

	// http
	srv := server.New(cfg.CORSOrigins)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Catalog: catalog,
		Index:   index,
		Search:  app.NewSearchService(client, catalog),
		Details: app.NewDetailsService(client, cache, cfg.CacheTTL),
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
