package app

import (
	"context"
	"errors"
	"fmt"

	"villa_market/internal/domain"
)

// CatalogWarmer copies the upstream catalog into the snapshot store and
// evicts the shared cache entries it replaces.
type CatalogWarmer struct {
	api   domain.CatalogAPI
	store domain.CatalogStore
	cache domain.Cache // optional
}

func NewCatalogWarmer(api domain.CatalogAPI, store domain.CatalogStore, cache domain.Cache) *CatalogWarmer {
	return &CatalogWarmer{api: api, store: store, cache: cache}
}

// WarmCountries saves the country list and returns it so callers can fan
// out over the areas.
func (w *CatalogWarmer) WarmCountries(ctx context.Context) ([]domain.Country, error) {
	cs, err := w.api.Countries(ctx)
	if err != nil {
		return nil, &domain.CatalogError{Op: "countries", Err: err}
	}
	if len(cs) == 0 {
		// never replace a good snapshot with nothing
		return nil, fmt.Errorf("warm countries: %w", domain.ErrNoMatch)
	}
	if err := w.store.SaveCountries(ctx, cs); err != nil {
		return nil, err
	}
	if w.cache != nil {
		_ = w.cache.Del(ctx, keyCountries)
	}
	return cs, nil
}

// WarmAreas replaces the snapshot of one country's areas. A country the
// upstream no longer knows keeps its previous snapshot.
func (w *CatalogWarmer) WarmAreas(ctx context.Context, countryID int64) (int, error) {
	as, err := w.api.Areas(ctx, countryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, &domain.CatalogError{Op: "areas", Err: err}
	}
	if err := w.store.SaveAreas(ctx, countryID, as); err != nil {
		return 0, fmt.Errorf("save areas of %d: %w", countryID, err)
	}
	if w.cache != nil {
		_ = w.cache.Del(ctx, keyAreas(countryID))
		_ = w.cache.Del(ctx, keyAllAreas)
	}
	return len(as), nil
}
