package app_test

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"villa_market/internal/domain"
)

// ---- fakes ----

type fakeCatalogAPI struct {
	mu sync.Mutex

	countries    []domain.Country
	countriesErr error
	areas        map[int64][]domain.Area
	areasErr     map[int64]error
	allAreasErr  error
	locations    []domain.Location
	locationsErr error
	search       []map[string]any
	searchErr    error

	gate      chan struct{} // Countries blocks until closed, when set
	areasGate chan struct{} // Areas blocks until closed, when set
	calls map[string]int
}

func (f *fakeCatalogAPI) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeCatalogAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeCatalogAPI) Countries(ctx context.Context) ([]domain.Country, error) {
	f.hit("countries")
	if f.gate != nil {
		<-f.gate
	}
	if f.countriesErr != nil {
		return nil, f.countriesErr
	}
	return f.countries, nil
}

func (f *fakeCatalogAPI) Areas(ctx context.Context, countryID int64) ([]domain.Area, error) {
	f.hit("areas")
	if f.areasGate != nil {
		<-f.areasGate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.areasErr[countryID]; err != nil {
		return nil, err
	}
	return f.areas[countryID], nil
}

func (f *fakeCatalogAPI) AllAreas(ctx context.Context) ([]domain.Area, error) {
	f.hit("all-areas")
	if f.allAreasErr != nil {
		return nil, f.allAreasErr
	}
	ids := make([]int64, 0, len(f.areas))
	for id := range f.areas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []domain.Area
	for _, id := range ids {
		out = append(out, f.areas[id]...)
	}
	return out, nil
}

func (f *fakeCatalogAPI) Locations(ctx context.Context, countryID, areaID int64) ([]domain.Location, error) {
	f.hit("locations")
	if f.locationsErr != nil {
		return nil, f.locationsErr
	}
	var out []domain.Location
	for _, l := range f.locations {
		if (countryID == 0 || l.CountryID == countryID) && (areaID == 0 || l.AreaID == areaID) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeCatalogAPI) SearchLocations(ctx context.Context, query string) ([]map[string]any, error) {
	f.hit("search")
	return f.search, f.searchErr
}

type fakeAccommodationAPI struct {
	mu      sync.Mutex
	list    []domain.Accommodation
	random  []domain.Accommodation
	details map[string]any
	err     error
	queries []string

	onDetails func() // runs before AccommodationDetails returns
}

func (f *fakeAccommodationAPI) ListAccommodations(ctx context.Context, query string) ([]domain.Accommodation, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	return f.list, f.err
}

func (f *fakeAccommodationAPI) RandomAccommodations(ctx context.Context) ([]domain.Accommodation, error) {
	return f.random, f.err
}

func (f *fakeAccommodationAPI) AccommodationDetails(ctx context.Context, code string) (map[string]any, error) {
	if f.onDetails != nil {
		f.onDetails()
	}
	return f.details, f.err
}

// fakeCache round-trips through JSON like the redis adapter does.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok
}

type fakeStore struct {
	countries []domain.Country
	areas     map[int64][]domain.Area
}

func (s *fakeStore) SaveCountries(ctx context.Context, cs []domain.Country) error {
	s.countries = cs
	return nil
}

func (s *fakeStore) SaveAreas(ctx context.Context, countryID int64, as []domain.Area) error {
	if s.areas == nil {
		s.areas = map[int64][]domain.Area{}
	}
	s.areas[countryID] = as
	return nil
}

func (s *fakeStore) LoadCountries(ctx context.Context) ([]domain.Country, error) {
	return s.countries, nil
}

func (s *fakeStore) LoadAreas(ctx context.Context, countryID int64) ([]domain.Area, error) {
	return s.areas[countryID], nil
}

// ---- fixtures ----

func sampleCatalog() *fakeCatalogAPI {
	return &fakeCatalogAPI{
		countries: []domain.Country{
			{ID: 1, Code: "ES", Name: "Spain"},
			{ID: 2, Code: "FR", Name: "France"},
			{ID: 3, Code: "IT", Name: "Italy", DisplayName: "Italia"},
			{ID: 4, Code: "DE", Name: "Germany"},
			{ID: 5, Code: "PT", Name: "Portugal"},
			{ID: 6, Code: "GB", Name: "United Kingdom"},
		},
		areas: map[int64][]domain.Area{
			1: {{ID: 10, CountryID: 1, Code: "CDS", Name: "Costa del Sol"}, {ID: 11, CountryID: 1, Code: "MAL", Name: "Mallorca"}},
			2: {
				{ID: 20, CountryID: 2, Code: "AHP", Name: "Alpes-de-Haute-Provence"},
				{ID: 21, CountryID: 2, Code: "PRO", Name: "Provence"},
				{ID: 22, CountryID: 2, Code: "PAC", Name: "Provence-Alpes-Côte d'Azur"},
			},
			3: {{ID: 30, CountryID: 3, Code: "TUS", Name: "Tuscany"}},
			4: {{ID: 40, CountryID: 4, Code: "BAV", Name: "Bavaria"}},
			5: {{ID: 50, CountryID: 5, Code: "ALG", Name: "Algarve"}},
		},
		locations: []domain.Location{
			{ID: 100, CountryID: 3, AreaID: 30, Code: "FLR", Name: "Florence"},
			{ID: 101, CountryID: 2, AreaID: 21, Code: "AVI", Name: "Avignon"},
		},
	}
}
