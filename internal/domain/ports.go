package domain

import "context"

// CatalogAPI is the upstream side of the location catalog.
type CatalogAPI interface {
	Countries(ctx context.Context) ([]Country, error)
	Areas(ctx context.Context, countryID int64) ([]Area, error)
	// AllAreas returns every area of the catalog, ordered by country id.
	AllAreas(ctx context.Context) ([]Area, error)
	// Locations lists locations; zero ids mean "not scoped".
	Locations(ctx context.Context, countryID, areaID int64) ([]Location, error)
	// SearchLocations is the server-side search; item shapes vary.
	SearchLocations(ctx context.Context, query string) ([]map[string]any, error)
}

// AccommodationAPI is the upstream side of the listing and detail pages.
type AccommodationAPI interface {
	ListAccommodations(ctx context.Context, query string) ([]Accommodation, error)
	RandomAccommodations(ctx context.Context) ([]Accommodation, error)
	AccommodationDetails(ctx context.Context, code string) (map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// CatalogStore keeps the last catalog snapshot written by the warmer.
type CatalogStore interface {
	SaveCountries(ctx context.Context, cs []Country) error
	SaveAreas(ctx context.Context, countryID int64, as []Area) error
	LoadCountries(ctx context.Context) ([]Country, error)
	LoadAreas(ctx context.Context, countryID int64) ([]Area, error)
}
