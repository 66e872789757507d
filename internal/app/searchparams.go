package app

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"villa_market/internal/adapters/observability"
	"villa_market/internal/domain"
)

// LocationParser resolves free text against the catalog.
type LocationParser interface {
	ParseLocation(ctx context.Context, term string) (domain.ParsedLocation, error)
}

// BuildAPIQueryParams maps the search form onto the upstream query. At most
// one of country, area and location is ever set: an explicit country wins over
// an explicit area, which wins over free text. Dates are not forwarded.
func BuildAPIQueryParams(ctx context.Context, parser LocationParser, p domain.SearchParams) domain.APIQueryParams {
	var q domain.APIQueryParams

	switch {
	case p.Country != "":
		q.Country = p.Country
	case p.Area != "":
		q.Area = p.Area
	case strings.TrimSpace(p.Location) != "":
		q = resolveLocation(ctx, parser, strings.TrimSpace(p.Location))
	}
	q = singleDimension(q)

	if p.Guests > 0 {
		q.Sleeps = p.Guests
	}
	return q
}

func resolveLocation(ctx context.Context, parser LocationParser, text string) domain.APIQueryParams {
	if parser == nil {
		return domain.APIQueryParams{Location: text}
	}
	parsed, err := parser.ParseLocation(ctx, text)
	if err != nil {
		log.Warn().Err(err).Str("location", text).Msg("location parse failed, using text as location")
		return domain.APIQueryParams{Location: text}
	}

	switch parsed.Type {
	case domain.LocationTypeCountry:
		if parsed.Country != nil {
			return domain.APIQueryParams{Country: orText(parsed.Country.Label(), text)}
		}
	case domain.LocationTypeArea:
		if parsed.Area != nil {
			return domain.APIQueryParams{Area: orText(parsed.Area.Label(), text)}
		}
	case domain.LocationTypeLocation:
		if parsed.Location != nil {
			return domain.APIQueryParams{Location: orText(parsed.Location.Label(), text)}
		}
	}
	return domain.APIQueryParams{Location: text}
}

// singleDimension is the last guard before a query leaves: with more than
// one of country, area and location set, only the most specific is kept.
func singleDimension(q domain.APIQueryParams) domain.APIQueryParams {
	if q.LocationDimensions() <= 1 {
		return q
	}
	log.Error().
		Str("country", q.Country).Str("area", q.Area).Str("location", q.Location).
		Msg("query has more than one location dimension, keeping the most specific")
	observability.ObserveQueryCorrection()
	return mostSpecific(q)
}

// mostSpecific keeps location over area over country.
func mostSpecific(q domain.APIQueryParams) domain.APIQueryParams {
	switch {
	case q.Location != "":
		q.Country, q.Area = "", ""
	case q.Area != "":
		q.Country = ""
	}
	return q
}

func orText(label, text string) string {
	if label != "" {
		return label
	}
	return text
}

// BuildQueryString form-encodes q in the fixed order country, area, location,
// sleeps. Empty values and non-positive sleeps are omitted.
func BuildQueryString(q domain.APIQueryParams) string {
	if q.LocationDimensions() > 1 {
		log.Warn().
			Str("country", q.Country).Str("area", q.Area).Str("location", q.Location).
			Msg("query string carries more than one location dimension")
	}

	var b strings.Builder
	add := func(k, v string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	if q.Country != "" {
		add("country", q.Country)
	}
	if q.Area != "" {
		add("area", q.Area)
	}
	if q.Location != "" {
		add("location", q.Location)
	}
	if q.Sleeps > 0 {
		add("sleeps", strconv.Itoa(q.Sleeps))
	}
	return b.String()
}
