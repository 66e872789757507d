package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	RedisAddr string
	RedisDB   int
	RedisPass string

	APIBase        string
	APIKey         string
	UpstreamRPS    int
	InsecureTLS    bool
	MySQLDSN       string // empty disables the catalog snapshot store
	CatalogWorkers int

	CacheTTL    time.Duration
	CatalogTTL  time.Duration
	CORSOrigins []string
}

// Load reads the environment. Variables from envFiles (default ".env") fill
// in what the process environment does not set; a missing file is not an error.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("file", f).Msg("could not load env file")
		}
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ":9100"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		APIBase:        env("ACCOMMODATION_API_BASE", "https://localhost:7214"),
		APIKey:         env("ACCOMMODATION_API_KEY", ""),
		UpstreamRPS:    atoi("UPSTREAM_RPS", 10),
		InsecureTLS:    envBool("UPSTREAM_INSECURE_TLS", false),
		MySQLDSN:       env("MYSQL_DSN", ""),
		CatalogWorkers: atoi("CATALOG_WORKERS", 8),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		CatalogTTL:     time.Duration(atoi("CATALOG_TTL_SECONDS", 86400)) * time.Second,
		CORSOrigins:    list(env("CORS_ORIGINS", "")),
	}
	if c.InsecureTLS && c.AppEnv == "prod" {
		log.Warn().Msg("UPSTREAM_INSECURE_TLS is set in prod")
	}
	if c.MySQLDSN == "" {
		log.Info().Msg("MYSQL_DSN is empty, catalog snapshot store disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func list(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
