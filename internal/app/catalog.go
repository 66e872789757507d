package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"villa_market/internal/adapters/observability"
	"villa_market/internal/domain"
)

const (
	keyCountries = "catalog:countries"
	keyAllAreas  = "catalog:areas:all"

	catalogFetchTimeout = 30 * time.Second
)

func keyAreas(countryID int64) string { return fmt.Sprintf("catalog:areas:%d", countryID) }

// LocationService is the catalog cache. Countries are fetched once and
// indexed; areas and locations are fetched on demand and kept in memory.
// Construct one per process and pass it to its consumers.
type LocationService struct {
	api   domain.CatalogAPI
	cache domain.Cache        // optional
	store domain.CatalogStore // optional
	ttl   time.Duration

	sf singleflight.Group

	mu        sync.RWMutex
	state     domain.CatalogState
	countries []domain.Country
	byName    map[string]domain.Country
	byID      map[int64]domain.Country
	areas     map[int64][]domain.Area
	allAreas  []domain.Area
	hasAll    bool
	locations map[string][]domain.Location
}

func NewLocationService(api domain.CatalogAPI, cache domain.Cache, store domain.CatalogStore, ttl time.Duration) *LocationService {
	s := &LocationService{api: api, cache: cache, store: store, ttl: ttl}
	s.Reset()
	return s
}

// Reset drops everything cached in memory and returns to uninitialized.
func (s *LocationService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countries = nil
	s.byName = map[string]domain.Country{}
	s.byID = map[int64]domain.Country{}
	s.areas = map[int64][]domain.Area{}
	s.allAreas = nil
	s.hasAll = false
	s.locations = map[string][]domain.Location{}
	s.setStateLocked(domain.CatalogUninitialized)
}

func (s *LocationService) State() domain.CatalogState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *LocationService) setStateLocked(st domain.CatalogState) {
	s.state = st
	observability.ObserveCatalogState(string(st))
}

// Initialize loads the countries once. Concurrent callers share one fetch.
// On failure the service is degraded (no countries known) and the next call
// tries again; the returned error is a *domain.CatalogError.
func (s *LocationService) Initialize(ctx context.Context) error {
	if s.State() == domain.CatalogReady {
		return nil
	}
	_, err, _ := s.sf.Do("countries", func() (any, error) {
		if s.State() == domain.CatalogReady {
			return nil, nil
		}
		s.mu.Lock()
		s.setStateLocked(domain.CatalogInitializing)
		s.mu.Unlock()

		// detached so one caller's cancellation does not fail everyone sharing the fetch
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), catalogFetchTimeout)
		defer cancel()

		cs, source, err := s.loadCountries(fctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.countries = nil
			s.byName = map[string]domain.Country{}
			s.byID = map[int64]domain.Country{}
			s.setStateLocked(domain.CatalogDegraded)
			log.Error().Err(err).Msg("catalog initialization failed, continuing without countries")
			return nil, &domain.CatalogError{Op: "countries", Err: err}
		}
		s.indexCountriesLocked(cs)
		s.setStateLocked(domain.CatalogReady)
		log.Info().Int("countries", len(cs)).Str("source", source).Msg("catalog initialized")
		return nil, nil
	})
	return err
}

func (s *LocationService) loadCountries(ctx context.Context) ([]domain.Country, string, error) {
	var cs []domain.Country
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, keyCountries, &cs); ok {
			return cs, "cache", nil
		}
	}
	cs, err := s.api.Countries(ctx)
	if err == nil {
		if s.cache != nil {
			_ = s.cache.Set(ctx, keyCountries, cs, int(s.ttl.Seconds()))
		}
		return cs, "upstream", nil
	}
	if s.store != nil {
		if snap, serr := s.store.LoadCountries(ctx); serr == nil && len(snap) > 0 {
			log.Warn().Err(err).Int("countries", len(snap)).Msg("upstream countries unavailable, using snapshot")
			return snap, "snapshot", nil
		}
	}
	return nil, "", err
}

func (s *LocationService) indexCountriesLocked(cs []domain.Country) {
	s.countries = cs
	s.byName = make(map[string]domain.Country, len(cs)*3)
	s.byID = make(map[int64]domain.Country, len(cs))
	for _, c := range cs {
		s.byID[c.ID] = c
		for _, k := range []string{c.DisplayName, c.Name, c.Code} {
			k = fold(k)
			if k == "" {
				continue
			}
			if _, dup := s.byName[k]; !dup { // first in catalog order wins
				s.byName[k] = c
			}
		}
	}
}

// Countries returns the known countries in catalog order.
func (s *LocationService) Countries(ctx context.Context) ([]domain.Country, error) {
	err := s.Initialize(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Country(nil), s.countries...), err
}

func (s *LocationService) countryByID(id int64) *domain.Country {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.byID[id]; ok {
		return &c
	}
	return nil
}

// FindCountry matches term against the country index, then falls back to a
// substring scan in either direction ("uk" vs "united kingdom (uk)").
func (s *LocationService) FindCountry(ctx context.Context, term string) (domain.Country, error) {
	if err := s.Initialize(ctx); err != nil {
		return domain.Country{}, err
	}
	t := fold(term)
	if t == "" {
		return domain.Country{}, domain.ErrNoMatch
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.byName[t]; ok {
		return c, nil
	}
	for _, c := range s.countries {
		name := fold(c.Label())
		if name == "" {
			continue
		}
		if strings.Contains(name, t) || strings.Contains(t, name) {
			return c, nil
		}
	}
	return domain.Country{}, domain.ErrNoMatch
}

// Areas returns the areas of one country, from memory, the shared cache, the
// upstream or the snapshot store, in that order.
func (s *LocationService) Areas(ctx context.Context, countryID int64) ([]domain.Area, error) {
	s.mu.RLock()
	as, ok := s.areas[countryID]
	s.mu.RUnlock()
	if ok {
		return as, nil
	}

	v, err := s.shared(ctx, keyAreas(countryID), func(ctx context.Context) (any, error) {
		key := keyAreas(countryID)
		var as []domain.Area
		if s.cache != nil {
			if ok, _ := s.cache.Get(ctx, key, &as); ok {
				return as, nil
			}
		}
		as, err := s.api.Areas(ctx, countryID)
		if err != nil {
			if s.store != nil {
				if snap, serr := s.store.LoadAreas(ctx, countryID); serr == nil && len(snap) > 0 {
					return snap, nil
				}
			}
			return nil, &domain.CatalogError{Op: "areas", Err: err}
		}
		if s.cache != nil {
			_ = s.cache.Set(ctx, key, as, int(s.ttl.Seconds()))
		}
		return as, nil
	})
	if err != nil {
		return nil, err
	}
	as = v.([]domain.Area)
	s.mu.Lock()
	s.areas[countryID] = as
	s.mu.Unlock()
	return as, nil
}

// shared runs fn once for every caller asking for key. fn gets a context
// detached from the caller's cancellation; a caller that gives up stops
// waiting without failing the others.
func (s *LocationService) shared(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	ch := s.sf.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), catalogFetchTimeout)
		defer cancel()
		return fn(fctx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *LocationService) everyArea(ctx context.Context) ([]domain.Area, error) {
	s.mu.RLock()
	as, ok := s.allAreas, s.hasAll
	s.mu.RUnlock()
	if ok {
		return as, nil
	}

	v, err := s.shared(ctx, keyAllAreas, func(ctx context.Context) (any, error) {
		var as []domain.Area
		if s.cache != nil {
			if ok, _ := s.cache.Get(ctx, keyAllAreas, &as); ok {
				return as, nil
			}
		}
		as, err := s.api.AllAreas(ctx)
		if err != nil {
			return nil, &domain.CatalogError{Op: "all-areas", Err: err}
		}
		if s.cache != nil {
			_ = s.cache.Set(ctx, keyAllAreas, as, int(s.ttl.Seconds()))
		}
		return as, nil
	})
	if err != nil {
		return nil, err
	}
	as = v.([]domain.Area)
	s.mu.Lock()
	s.allAreas, s.hasAll = as, true
	s.mu.Unlock()
	return as, nil
}

// FindArea looks in one country when countryID > 0, else across the catalog.
// An exact match wins; otherwise the first substring match in catalog order.
func (s *LocationService) FindArea(ctx context.Context, term string, countryID int64) (domain.Area, error) {
	_ = s.Initialize(ctx) // area lookups do not need the country index

	var (
		as  []domain.Area
		err error
	)
	if countryID > 0 {
		as, err = s.Areas(ctx, countryID)
	} else {
		as, err = s.everyArea(ctx)
	}
	if err != nil {
		log.Warn().Err(err).Int64("country_id", countryID).Msg("find area: catalog unavailable")
		return domain.Area{}, err
	}
	if a, ok := matchByLabel(as, term, domain.Area.Label); ok {
		return a, nil
	}
	return domain.Area{}, domain.ErrNoMatch
}

// FindLocation looks up a city or place, optionally scoped by country/area.
func (s *LocationService) FindLocation(ctx context.Context, term string, countryID, areaID int64) (domain.Location, error) {
	_ = s.Initialize(ctx)

	key := fmt.Sprintf("%d:%d", countryID, areaID)
	s.mu.RLock()
	ls, ok := s.locations[key]
	s.mu.RUnlock()
	if !ok {
		v, err := s.shared(ctx, "locations:"+key, func(ctx context.Context) (any, error) {
			ls, err := s.api.Locations(ctx, countryID, areaID)
			if err != nil {
				return nil, &domain.CatalogError{Op: "locations", Err: err}
			}
			return ls, nil
		})
		if err != nil {
			log.Warn().Err(err).Str("scope", key).Msg("find location: catalog unavailable")
			return domain.Location{}, err
		}
		ls = v.([]domain.Location)
		s.mu.Lock()
		s.locations[key] = ls
		s.mu.Unlock()
	}
	if l, ok := matchByLabel(ls, term, domain.Location.Label); ok {
		return l, nil
	}
	return domain.Location{}, domain.ErrNoMatch
}

// ParseLocation resolves free text as a country, else an area, else a
// location. The first hit wins, so a name shared by a country and an area is
// a country. Nothing found yields Type unknown; the error then carries any
// catalog failures met on the way (nil if everything simply did not match).
func (s *LocationService) ParseLocation(ctx context.Context, term string) (domain.ParsedLocation, error) {
	unknown := domain.ParsedLocation{Type: domain.LocationTypeUnknown}
	if strings.TrimSpace(term) == "" {
		return unknown, nil
	}

	var errs []error
	keep := func(err error) {
		if err != nil && !errors.Is(err, domain.ErrNoMatch) {
			errs = append(errs, err)
		}
	}

	c, err := s.FindCountry(ctx, term)
	if err == nil {
		return domain.ParsedLocation{Type: domain.LocationTypeCountry, Country: &c}, nil
	}
	keep(err)

	a, err := s.FindArea(ctx, term, 0)
	if err == nil {
		return domain.ParsedLocation{Type: domain.LocationTypeArea, Area: &a, Country: s.countryByID(a.CountryID)}, nil
	}
	keep(err)

	l, err := s.FindLocation(ctx, term, 0, 0)
	if err == nil {
		return domain.ParsedLocation{
			Type:     domain.LocationTypeLocation,
			Location: &l,
			Country:  s.countryByID(l.CountryID),
			Area:     s.cachedArea(l.CountryID, l.AreaID),
		}, nil
	}
	keep(err)

	return unknown, errors.Join(errs...)
}

// cachedArea only consults what is already in memory.
func (s *LocationService) cachedArea(countryID, areaID int64) *domain.Area {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range [][]domain.Area{s.areas[countryID], s.allAreas} {
		for _, a := range list {
			if a.ID == areaID {
				return &a
			}
		}
	}
	return nil
}

func matchByLabel[T any](items []T, term string, label func(T) string) (T, bool) {
	var zero T
	t := fold(term)
	if t == "" {
		return zero, false
	}
	for _, it := range items {
		if fold(label(it)) == t {
			return it, true
		}
	}
	for _, it := range items {
		name := fold(label(it))
		if name == "" {
			continue
		}
		if strings.Contains(name, t) || strings.Contains(t, name) {
			return it, true
		}
	}
	return zero, false
}

// fold lower-cases s for caseless comparison (ß, Σ and friends included).
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
