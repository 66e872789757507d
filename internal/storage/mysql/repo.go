package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"villa_market/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func strVal(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// Repo is the catalog snapshot store. Rows keep the upstream order in a
// position column so reads come back the way they were written.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *Repo) SaveCountries(ctx context.Context, cs []domain.Country) error {
	if len(cs) == 0 {
		return nil
	}
	values := make([]string, 0, len(cs))
	args := make([]any, 0, len(cs)*5)
	for i, c := range cs {
		values = append(values, "(?,?,?,?,?)")
		args = append(args, c.ID, valStr(c.Code), c.Name, valStr(c.DisplayName), i)
	}
	sqlStr := upsertCountryPrefix + strings.Join(values, ",") + upsertCountryOnDup
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("save countries: %w", err)
	}
	return nil
}

// SaveAreas replaces the snapshot of one country's areas.
func (r *Repo) SaveAreas(ctx context.Context, countryID int64, as []domain.Area) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteAreasSQL, countryID); err != nil {
		return fmt.Errorf("clear areas of %d: %w", countryID, err)
	}
	if len(as) > 0 {
		values := make([]string, 0, len(as))
		args := make([]any, 0, len(as)*6)
		for i, a := range as {
			values = append(values, "(?,?,?,?,?,?)")
			args = append(args, a.ID, countryID, valStr(a.Code), a.Name, valStr(a.DisplayName), i)
		}
		if _, err = tx.ExecContext(ctx, insertAreasPrefix+strings.Join(values, ","), args...); err != nil {
			return fmt.Errorf("insert areas of %d: %w", countryID, err)
		}
	}
	return tx.Commit()
}

func (r *Repo) LoadCountries(ctx context.Context) ([]domain.Country, error) {
	rows, err := r.db.QueryContext(ctx, listCountriesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Country
	for rows.Next() {
		var c domain.Country
		var code, display sql.NullString
		if err := rows.Scan(&c.ID, &code, &c.Name, &display); err != nil {
			return nil, err
		}
		c.Code = strVal(code)
		c.DisplayName = strVal(display)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) LoadAreas(ctx context.Context, countryID int64) ([]domain.Area, error) {
	rows, err := r.db.QueryContext(ctx, listAreasSQL, countryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Area
	for rows.Next() {
		var a domain.Area
		var code, display sql.NullString
		if err := rows.Scan(&a.ID, &a.CountryID, &code, &a.Name, &display); err != nil {
			return nil, err
		}
		a.Code = strVal(code)
		a.DisplayName = strVal(display)
		out = append(out, a)
	}
	return out, rows.Err()
}
