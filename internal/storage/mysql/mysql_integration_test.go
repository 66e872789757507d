//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"villa_market/internal/domain"
	mysqlrepo "villa_market/internal/storage/mysql"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = filepath.Join("..", "..", "..", "migrations")
	}
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Skipf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	return dir
}

func applyMigrations(t *testing.T, db *sql.DB, dir string) {
	t.Helper()
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=villas",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/villas?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRepo_MySQL_CatalogSnapshot(t *testing.T) {
	dir := migrationsDir(t)
	db := startMySQL(t)
	applyMigrations(t, db, dir)

	repo := mysqlrepo.New(db)
	ctx := context.Background()

	countries := []domain.Country{
		{ID: 5, Code: "PT", Name: "Portugal"},
		{ID: 1, Code: "ES", Name: "Spain", DisplayName: "España"},
		{ID: 3, Code: "IT", Name: "Italy"},
	}
	if err := repo.SaveCountries(ctx, countries); err != nil {
		t.Fatalf("SaveCountries: %v", err)
	}
	// saving again must upsert, not duplicate
	countries[2].DisplayName = "Italia"
	if err := repo.SaveCountries(ctx, countries); err != nil {
		t.Fatalf("SaveCountries again: %v", err)
	}

	got, err := repo.LoadCountries(ctx)
	if err != nil {
		t.Fatalf("LoadCountries: %v", err)
	}
	if len(got) != 3 || got[0].Code != "PT" || got[1].DisplayName != "España" || got[2].Label() != "Italia" {
		t.Fatalf("unexpected countries: %+v", got)
	}

	if err := repo.SaveAreas(ctx, 3, []domain.Area{
		{ID: 30, Name: "Tuscany"},
		{ID: 31, Name: "Umbria"},
	}); err != nil {
		t.Fatalf("SaveAreas: %v", err)
	}
	if err := repo.SaveAreas(ctx, 3, []domain.Area{{ID: 31, Name: "Umbria"}}); err != nil {
		t.Fatalf("SaveAreas replace: %v", err)
	}
	areas, err := repo.LoadAreas(ctx, 3)
	if err != nil {
		t.Fatalf("LoadAreas: %v", err)
	}
	if len(areas) != 1 || areas[0].ID != 31 || areas[0].CountryID != 3 {
		t.Fatalf("expected the snapshot to be replaced, got %+v", areas)
	}

	none, err := repo.LoadAreas(ctx, 99)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no areas for unknown country, got %+v (%v)", none, err)
	}
}
