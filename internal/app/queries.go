package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"villa_market/internal/domain"
)

// SearchResult is one listing page together with the upstream query it ran.
type SearchResult struct {
	Query string         `json:"query"`
	Items []domain.Villa `json:"items"`
}

type SearchService struct {
	api    domain.AccommodationAPI
	parser LocationParser
}

func NewSearchService(api domain.AccommodationAPI, parser LocationParser) *SearchService {
	return &SearchService{api: api, parser: parser}
}

// Search normalizes p into the upstream query and lists matching villas.
// An empty query lists everything. Villas are built fresh from every
// upstream answer and never cached.
func (s *SearchService) Search(ctx context.Context, p domain.SearchParams) (SearchResult, error) {
	q := BuildQueryString(BuildAPIQueryParams(ctx, s.parser, p))
	as, err := s.api.ListAccommodations(ctx, q)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search %q: %w", q, err)
	}
	return SearchResult{Query: q, Items: TransformAccommodations(as)}, nil
}

// Random returns the upstream's random selection; it is never cached.
func (s *SearchService) Random(ctx context.Context) ([]domain.Villa, error) {
	as, err := s.api.RandomAccommodations(ctx)
	if err != nil {
		return nil, fmt.Errorf("random listing: %w", err)
	}
	return TransformAccommodations(as), nil
}

// DetailsResult carries the villa and, when the fallback villa is shown, a
// message for the user.
type DetailsResult struct {
	Villa domain.VillaDetails `json:"villa"`
	Error string              `json:"error,omitempty"`
}

type DetailsService struct {
	api      domain.AccommodationAPI
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewDetailsService(api domain.AccommodationAPI, c domain.Cache, ttl time.Duration) *DetailsService {
	return &DetailsService{api: api, cache: c, cacheTTL: ttl}
}

// Get loads one villa. Upstream failures are not errors: the fallback villa
// is returned with DetailsUnavailableMessage. The only error is ctx's, when
// the caller went away before the fetch completed; the result is then
// discarded without being cached.
func (s *DetailsService) Get(ctx context.Context, code string) (DetailsResult, error) {
	fallbackCode := code
	if fallbackCode == "" {
		fallbackCode = FallbackVillaCode
	}
	fallback := FallbackVilla(fallbackCode, code)
	key := "villa:" + fallbackCode

	var out domain.VillaDetails
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return DetailsResult{Villa: out}, nil
		}
	}

	raw, err := s.api.AccommodationDetails(ctx, fallbackCode)
	if cerr := ctx.Err(); cerr != nil {
		return DetailsResult{}, cerr
	}
	if err != nil {
		log.Error().Err(err).Str("code", fallbackCode).Msg("villa details unavailable, serving fallback")
		return DetailsResult{Villa: fallback, Error: DetailsUnavailableMessage}, nil
	}

	out = NormalizeVillaDetails(raw, fallback, fallbackCode, code)
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return DetailsResult{Villa: out}, nil
}
