package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"villa_market/internal/domain"
)

const (
	DefaultPopularLimit = 8
	DefaultSearchLimit  = 10
	apiSuggestionLimit  = 10
	minQueryLength      = 2

	indexLoadTimeout = 30 * time.Second
)

var (
	popularCountryCodes = []string{"ES", "FR", "IT", "PT", "GR"}
	popularAreaNames    = []string{"Provence", "Tuscany", "Algarve", "Costa del Sol", "Mallorca"}
)

// ErrIndexNotLoaded is returned by Load callers that race with a failed load.
var ErrIndexNotLoaded = errors.New("suggestions: index not loaded")

// CatalogSource is what the index needs from the catalog cache.
type CatalogSource interface {
	Countries(ctx context.Context) ([]domain.Country, error)
	Areas(ctx context.Context, countryID int64) ([]domain.Area, error)
}

type IndexState string

const (
	IndexLoading IndexState = "loading"
	IndexLoaded  IndexState = "loaded"
	IndexError   IndexState = "error"
)

// SuggestionIndex serves autocomplete over countries and areas held in memory.
type SuggestionIndex struct {
	src     CatalogSource
	api     domain.CatalogAPI // server-side search; optional
	workers int

	sf singleflight.Group

	mu        sync.RWMutex
	state     IndexState
	err       error
	countries []domain.Country
	areas     []domain.Area
	names     map[int64]string // country id -> raw country name
}

func NewSuggestionIndex(src CatalogSource, api domain.CatalogAPI, workers int) *SuggestionIndex {
	if workers <= 0 {
		workers = 8
	}
	return &SuggestionIndex{src: src, api: api, workers: workers, state: IndexLoading}
}

func (x *SuggestionIndex) State() (IndexState, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.state, x.err
}

// Load fetches the countries, then the areas of every country concurrently.
// A country whose areas cannot be fetched contributes no areas; only a
// failure to list countries fails the load. Concurrent loads are shared.
func (x *SuggestionIndex) Load(ctx context.Context) error {
	return x.sharedLoad(ctx)
}

// EnsureLoaded loads the index unless it is already loaded, so an index
// whose startup load failed recovers once the catalog is reachable again.
func (x *SuggestionIndex) EnsureLoaded(ctx context.Context) error {
	if st, _ := x.State(); st == IndexLoaded {
		return nil
	}
	return x.sharedLoad(ctx)
}

// sharedLoad runs one load for all callers, detached from any single
// caller's cancellation; a caller that gives up stops waiting.
func (x *SuggestionIndex) sharedLoad(ctx context.Context) error {
	ch := x.sf.DoChan("load", func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), indexLoadTimeout)
		defer cancel()
		return nil, x.load(lctx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (x *SuggestionIndex) load(ctx context.Context) error {
	x.mu.Lock()
	x.state, x.err = IndexLoading, nil
	x.mu.Unlock()

	countries, err := x.src.Countries(ctx)
	if err == nil && len(countries) == 0 {
		err = fmt.Errorf("%w: no countries", ErrIndexNotLoaded)
	}
	if err != nil {
		log.Error().Err(err).Msg("suggestion index load failed")
		x.mu.Lock()
		x.state, x.err = IndexError, err
		x.mu.Unlock()
		return err
	}

	perCountry := make([][]domain.Area, len(countries))
	var g errgroup.Group
	g.SetLimit(x.workers)
	for i, c := range countries {
		if c.ID == 0 {
			continue
		}
		g.Go(func() error {
			as, err := x.src.Areas(ctx, c.ID)
			if err != nil {
				log.Warn().Err(err).Int64("country_id", c.ID).Msg("areas unavailable for country")
				return nil
			}
			perCountry[i] = as
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	var areas []domain.Area
	for _, as := range perCountry {
		areas = append(areas, as...)
	}
	names := make(map[int64]string, len(countries))
	for _, c := range countries {
		names[c.ID] = c.Name
	}

	x.mu.Lock()
	x.countries, x.areas, x.names = countries, areas, names
	x.state, x.err = IndexLoaded, nil
	x.mu.Unlock()

	log.Info().Int("countries", len(countries)).Int("areas", len(areas)).Msg("suggestion index loaded")
	return nil
}

func (x *SuggestionIndex) snapshot() ([]domain.Country, []domain.Area, map[int64]string) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.countries, x.areas, x.names
}

// PopularSuggestions returns up to three popular countries followed by
// popular areas. Empty until the index is loaded.
func (x *SuggestionIndex) PopularSuggestions(limit int) []domain.LocationSuggestion {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	countries, areas, names := x.snapshot()
	out := []domain.LocationSuggestion{}
	if len(countries) == 0 {
		return out
	}

	for _, c := range countries {
		if len(out) == 3 {
			break
		}
		if c.ID != 0 && c.Label() != "" && containsString(popularCountryCodes, c.Code) {
			out = append(out, countrySuggestion(c, false))
		}
	}

	for _, a := range areas {
		if len(out) >= limit {
			break
		}
		if a.ID == 0 || a.Label() == "" {
			continue
		}
		label := fold(a.Label())
		for _, p := range popularAreaNames {
			if strings.Contains(label, fold(p)) {
				out = append(out, areaSuggestion(a, names[a.CountryID], false))
				break
			}
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SearchLocations is the in-memory search: countries whose name contains the
// query (or whose code equals it), then areas whose name contains it, ranked
// exact match, then prefix match, then alphabetically.
func (x *SuggestionIndex) SearchLocations(query string, limit int) []domain.LocationSuggestion {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	countries, areas, names := x.snapshot()
	if len(countries) == 0 {
		return []domain.LocationSuggestion{}
	}
	q := fold(query)
	if utf8.RuneCountInString(q) < minQueryLength {
		return x.PopularSuggestions(limit)
	}

	out := []domain.LocationSuggestion{}
	for _, c := range countries {
		if c.ID == 0 || c.Label() == "" {
			continue
		}
		if strings.Contains(fold(c.Label()), q) || fold(c.Code) == q {
			out = append(out, countrySuggestion(c, true))
		}
	}
	for _, a := range areas {
		if a.ID == 0 || a.Label() == "" {
			continue
		}
		if strings.Contains(fold(a.Label()), q) {
			out = append(out, areaSuggestion(a, names[a.CountryID], true))
		}
	}

	RankSuggestions(out, query)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RankSuggestions sorts in place: exact name match, then prefix match, then
// alphabetical. The sort is stable so equal names keep catalog order.
func RankSuggestions(s []domain.LocationSuggestion, query string) {
	q := fold(query)
	col := collate.New(language.English)
	tier := func(name string) int {
		switch {
		case name == q:
			return 0
		case strings.HasPrefix(name, q):
			return 1
		}
		return 2
	}
	sort.SliceStable(s, func(i, j int) bool {
		a, b := fold(s[i].DisplayName), fold(s[j].DisplayName)
		if ta, tb := tier(a), tier(b); ta != tb {
			return ta < tb
		}
		return col.CompareString(a, b) < 0
	})
}

// SearchLocationsFromAPI asks the upstream search endpoint and falls back to
// the in-memory search when it fails.
func (x *SuggestionIndex) SearchLocationsFromAPI(ctx context.Context, query string) []domain.LocationSuggestion {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryLength {
		return x.PopularSuggestions(DefaultPopularLimit)
	}
	if x.api == nil {
		return x.SearchLocations(query, DefaultSearchLimit)
	}
	items, err := x.api.SearchLocations(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("location search upstream failed, using local index")
		return x.SearchLocations(query, DefaultSearchLimit)
	}

	_, _, names := x.snapshot()
	out := []domain.LocationSuggestion{}
	for _, it := range items {
		if it == nil {
			continue
		}
		if s, ok := classifySuggestion(it, names); ok {
			out = append(out, s)
		}
		if len(out) == apiSuggestionLimit {
			break
		}
	}
	return out
}

// classifySuggestion guesses the kind of an upstream search item from its
// shape: countries carry a code and no parent, areas a country parent only,
// everything else is a location.
func classifySuggestion(it map[string]any, names map[int64]string) (domain.LocationSuggestion, bool) {
	name := lookupStr(it, "displayName")
	if name == "" {
		name = lookupStr(it, "name")
	}
	if name == "" {
		return domain.LocationSuggestion{}, false
	}
	id := int64Or(firstInt64Flexible(it, "id"))
	countryID := int64Or(firstInt64Flexible(it, "countryId"))
	areaID := int64Or(firstInt64Flexible(it, "areaId"))
	_, hasCountries := it["countries"]
	_, hasAreas := it["areas"]

	switch {
	case hasCountries || (lookupStr(it, "code") != "" && countryID == 0):
		return countrySuggestion(domain.Country{ID: id, DisplayName: name}, true), true
	case hasAreas || (countryID != 0 && areaID == 0):
		return areaSuggestion(domain.Area{ID: id, CountryID: countryID, DisplayName: name}, names[countryID], true), true
	}
	s := domain.LocationSuggestion{
		ID:          fmt.Sprintf("location-%d", id),
		DisplayName: name,
		Type:        domain.LocationTypeLocation,
		FullName:    name,
	}
	if countryID != 0 {
		s.CountryID = &countryID
	}
	if areaID != 0 {
		s.AreaID = &areaID
	}
	return s, true
}

func countrySuggestion(c domain.Country, withIDs bool) domain.LocationSuggestion {
	s := domain.LocationSuggestion{
		ID:          fmt.Sprintf("country-%d", c.ID),
		DisplayName: c.Label(),
		Type:        domain.LocationTypeCountry,
		FullName:    c.Label(),
	}
	if withIDs {
		id := c.ID
		s.CountryID = &id
	}
	return s
}

func areaSuggestion(a domain.Area, countryName string, withIDs bool) domain.LocationSuggestion {
	full := a.Label()
	if countryName != "" {
		full = a.Label() + ", " + countryName
	}
	s := domain.LocationSuggestion{
		ID:          fmt.Sprintf("area-%d", a.ID),
		DisplayName: a.Label(),
		Type:        domain.LocationTypeArea,
		FullName:    full,
	}
	if withIDs {
		cid, aid := a.CountryID, a.ID
		s.CountryID, s.AreaID = &cid, &aid
	}
	return s
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func int64Or(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
