package shared_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"villa_market/internal/shared"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "HTTP_ADDR", "MYSQL_DSN", "CACHE_TTL_SECONDS", "CORS_ORIGINS", "UPSTREAM_INSECURE_TLS"} {
		t.Setenv(k, "")
	}
	c := shared.Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "prod", c.AppEnv)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Empty(t, c.MySQLDSN)
	assert.Equal(t, 5*time.Minute, c.CacheTTL)
	assert.Nil(t, c.CORSOrigins)
	assert.False(t, c.InsecureTLS)
}

func TestLoad_EnvAndFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	err := os.WriteFile(file, []byte("HTTP_ADDR=:9999\nACCOMMODATION_API_KEY=from-file\n"), 0o600)
	assert.NoError(t, err)

	t.Setenv("HTTP_ADDR", ":7000") // process env wins over the file
	t.Setenv("ACCOMMODATION_API_KEY", "")
	os.Unsetenv("ACCOMMODATION_API_KEY") // t.Setenv restores it afterwards
	t.Setenv("CACHE_TTL_SECONDS", "60")
	t.Setenv("CATALOG_WORKERS", "nope")
	t.Setenv("CORS_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("UPSTREAM_INSECURE_TLS", "true")

	c := shared.Load(file)
	assert.Equal(t, ":7000", c.HTTPAddr)
	assert.Equal(t, "from-file", c.APIKey)
	assert.Equal(t, time.Minute, c.CacheTTL)
	assert.Equal(t, 8, c.CatalogWorkers)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.CORSOrigins)
	assert.True(t, c.InsecureTLS)
}
