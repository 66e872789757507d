package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"villa_market/internal/app"
	"villa_market/internal/domain"
)

func loadedIndex(t *testing.T, api *fakeCatalogAPI) *app.SuggestionIndex {
	t.Helper()
	idx := app.NewSuggestionIndex(app.NewLocationService(api, nil, nil, time.Hour), api, 4)
	require.NoError(t, idx.Load(context.Background()))
	return idx
}

func names(s []domain.LocationSuggestion) []string {
	out := make([]string, 0, len(s))
	for _, x := range s {
		out = append(out, x.DisplayName)
	}
	return out
}

func TestSuggestionIndex_Load(t *testing.T) {
	api := sampleCatalog()
	api.areasErr = map[int64]error{4: errors.New("timeout")}
	idx := loadedIndex(t, api)

	st, err := idx.State()
	assert.Equal(t, app.IndexLoaded, st)
	assert.NoError(t, err)

	// Germany's areas failed; everything else is searchable.
	assert.Empty(t, idx.SearchLocations("Bavaria", 10))
	assert.Equal(t, []string{"Algarve"}, names(idx.SearchLocations("Algarve", 10)))
}

func TestSuggestionIndex_LoadFailure(t *testing.T) {
	api := sampleCatalog()
	api.countriesErr = errors.New("down")
	idx := app.NewSuggestionIndex(app.NewLocationService(api, nil, nil, time.Hour), api, 4)

	err := idx.Load(context.Background())
	require.Error(t, err)
	st, stErr := idx.State()
	assert.Equal(t, app.IndexError, st)
	assert.ErrorIs(t, stErr, domain.ErrCatalogUnavailable)
	assert.Empty(t, idx.PopularSuggestions(8))
	assert.Empty(t, idx.SearchLocations("France", 10))
}

func TestSuggestionIndex_RecoversAfterFailedLoad(t *testing.T) {
	api := sampleCatalog()
	api.countriesErr = errors.New("down")
	idx := app.NewSuggestionIndex(app.NewLocationService(api, nil, nil, time.Hour), api, 4)
	require.Error(t, idx.Load(context.Background()))
	require.Error(t, idx.EnsureLoaded(context.Background()), "still down")

	api.countriesErr = nil
	require.NoError(t, idx.EnsureLoaded(context.Background()))
	st, err := idx.State()
	assert.Equal(t, app.IndexLoaded, st)
	assert.NoError(t, err)
	assert.Equal(t, []string{"France"}, names(idx.SearchLocations("France", 10)))

	// a loaded index is not fetched again
	calls := api.count("countries")
	require.NoError(t, idx.EnsureLoaded(context.Background()))
	assert.Equal(t, calls, api.count("countries"))
}

func TestSuggestionIndex_EnsureLoadedSharesOneLoad(t *testing.T) {
	api := sampleCatalog()
	api.gate = make(chan struct{})
	idx := app.NewSuggestionIndex(app.NewLocationService(api, nil, nil, time.Hour), api, 4)

	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() { errs <- idx.EnsureLoaded(context.Background()) }()
	}
	require.Eventually(t, func() bool { return api.count("countries") == 1 }, time.Second, 5*time.Millisecond)
	close(api.gate)
	for i := 0; i < 5; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, 1, api.count("countries"))
}

func TestSuggestionIndex_EnsureLoadedCallerGivesUp(t *testing.T) {
	api := sampleCatalog()
	api.gate = make(chan struct{})
	idx := app.NewSuggestionIndex(app.NewLocationService(api, nil, nil, time.Hour), api, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, idx.EnsureLoaded(ctx), context.Canceled)

	// the shared load keeps going for everyone else
	close(api.gate)
	require.NoError(t, idx.EnsureLoaded(context.Background()))
	st, _ := idx.State()
	assert.Equal(t, app.IndexLoaded, st)
}

func TestSearchLocations_BlankQueryIsPopular(t *testing.T) {
	idx := loadedIndex(t, sampleCatalog())
	popular := idx.PopularSuggestions(10)
	assert.Equal(t, popular, idx.SearchLocations("  ", 10))
	assert.Equal(t, popular, idx.SearchLocations(" p ", 10))
}

func TestPopularSuggestions(t *testing.T) {
	idx := loadedIndex(t, sampleCatalog())

	got := idx.PopularSuggestions(8)
	assert.Equal(t, []string{
		"Spain", "France", "Italia",
		"Costa del Sol", "Mallorca", "Alpes-de-Haute-Provence", "Provence", "Provence-Alpes-Côte d'Azur",
	}, names(got))
	assert.Equal(t, "country-1", got[0].ID)
	assert.Equal(t, domain.LocationTypeCountry, got[0].Type)
	assert.Equal(t, "area-10", got[3].ID)
	assert.Equal(t, "Costa del Sol, Spain", got[3].FullName)

	assert.Len(t, idx.PopularSuggestions(2), 2)
}

func TestSearchLocations_Ranking(t *testing.T) {
	idx := loadedIndex(t, sampleCatalog())

	assert.Equal(t, []string{
		"Provence", "Provence-Alpes-Côte d'Azur", "Alpes-de-Haute-Provence",
	}, names(idx.SearchLocations("Prov", 10)))

	got := idx.SearchLocations("Provence", 10)
	require.NotEmpty(t, got)
	assert.Equal(t, "Provence", got[0].DisplayName)
	assert.Equal(t, "Provence, France", got[0].FullName)
	require.NotNil(t, got[0].CountryID)
	require.NotNil(t, got[0].AreaID)
	assert.Equal(t, int64(2), *got[0].CountryID)
	assert.Equal(t, int64(21), *got[0].AreaID)

	assert.Len(t, idx.SearchLocations("Prov", 2), 2)
}

func TestSearchLocations_CountryByCode(t *testing.T) {
	idx := loadedIndex(t, sampleCatalog())

	got := idx.SearchLocations("pt", 10)
	require.Len(t, got, 1)
	assert.Equal(t, "Portugal", got[0].DisplayName)
	assert.Equal(t, "country-5", got[0].ID)
}

func TestSearchLocations_ShortQueryIsPopular(t *testing.T) {
	idx := loadedIndex(t, sampleCatalog())
	assert.Equal(t, idx.PopularSuggestions(5), idx.SearchLocations("F", 5))
}

func TestSearchLocations_Deterministic(t *testing.T) {
	idx := loadedIndex(t, sampleCatalog())
	first := idx.SearchLocations("al", 10)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, idx.SearchLocations("al", 10))
	}
}

func TestSearchLocationsFromAPI(t *testing.T) {
	api := sampleCatalog()
	api.search = []map[string]any{
		{"id": float64(2), "code": "FR", "name": "France"},
		{"id": float64(21), "countryId": float64(2), "name": "Provence"},
		{"id": float64(101), "countryId": float64(2), "areaId": float64(21), "code": "AVI", "name": "Avignon"},
		nil,
		{"id": float64(5)},
	}
	idx := loadedIndex(t, api)

	got := idx.SearchLocationsFromAPI(context.Background(), "fr")
	require.Len(t, got, 3)
	assert.Equal(t, domain.LocationTypeCountry, got[0].Type)
	assert.Equal(t, "country-2", got[0].ID)
	assert.Equal(t, domain.LocationTypeArea, got[1].Type)
	assert.Equal(t, "Provence, France", got[1].FullName)
	assert.Equal(t, domain.LocationTypeLocation, got[2].Type)
	assert.Equal(t, "location-101", got[2].ID)
}

func TestSearchLocationsFromAPI_FallsBackToLocal(t *testing.T) {
	api := sampleCatalog()
	api.searchErr = errors.New("500")
	idx := loadedIndex(t, api)

	assert.Equal(t, idx.SearchLocations("Tusc", 10), idx.SearchLocationsFromAPI(context.Background(), "Tusc"))
	assert.Equal(t, 1, api.count("search"))
}

func TestRankSuggestions_ExactThenPrefixThenAlpha(t *testing.T) {
	s := []domain.LocationSuggestion{
		{DisplayName: "Upper Provence"},
		{DisplayName: "Provence Coast"},
		{DisplayName: "provence"},
		{DisplayName: "Alpes Provence"},
	}
	app.RankSuggestions(s, "Provence")
	assert.Equal(t, []string{"provence", "Provence Coast", "Alpes Provence", "Upper Provence"}, names(s))
}
