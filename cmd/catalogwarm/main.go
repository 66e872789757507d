package main

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"villa_market/internal/adapters/accommodation"
	"villa_market/internal/adapters/observability"
	redisad "villa_market/internal/adapters/redis"
	"villa_market/internal/app"
	"villa_market/internal/domain"
	"villa_market/internal/shared"
	mysqlrepo "villa_market/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("base", cfg.APIBase).
		Int("workers", cfg.CatalogWorkers).
		Msg("catalog warm starting")

	if cfg.MySQLDSN == "" {
		log.Fatal().Msg("MYSQL_DSN is required to write the catalog snapshot")
	}
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	client, err := accommodation.New(cfg.APIBase, cfg.APIKey, cfg.UpstreamRPS, cfg.InsecureTLS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize accommodation client")
	}

	var cache domain.Cache
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := rc.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, cached catalog entries will expire on their own")
	} else {
		cache = rc
		defer rc.Close()
	}

	warm := app.NewCatalogWarmer(client, mysqlrepo.New(db), cache)
	countries, err := warm.WarmCountries(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("warm countries failed")
	}

	workers := cfg.CatalogWorkers
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var areas, failed atomic.Int64

	for _, c := range countries {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(c domain.Country) {
			defer wg.Done()
			defer sem.Release(1)

			n, err := warm.WarmAreas(ctx, c.ID)
			if err != nil {
				failed.Add(1)
				log.Warn().Int64("country_id", c.ID).Str("country", c.Code).Err(err).Msg("warm areas failed")
				return
			}
			areas.Add(int64(n))
			log.Debug().Int64("country_id", c.ID).Int("areas", n).Msg("areas saved")
		}(c)
	}

	wg.Wait()
	log.Info().
		Int("countries", len(countries)).
		Int64("areas", areas.Load()).
		Int64("failed", failed.Load()).
		Msg("catalog warm completed")
}
