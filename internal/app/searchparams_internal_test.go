package app

import (
	"testing"

	dto "github.com/prometheus/client_model/go"

	"villa_market/internal/adapters/observability"
	"villa_market/internal/domain"
)

func correctionCount(t *testing.T) float64 {
	t.Helper()
	var m dto.Metric
	if err := observability.QueryCorrections.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestSingleDimension_KeepsMostSpecific(t *testing.T) {
	cases := []struct {
		in      domain.APIQueryParams
		want    domain.APIQueryParams
		correct bool
	}{
		{domain.APIQueryParams{}, domain.APIQueryParams{}, false},
		{domain.APIQueryParams{Country: "France", Sleeps: 2}, domain.APIQueryParams{Country: "France", Sleeps: 2}, false},
		{domain.APIQueryParams{Country: "France", Area: "Provence"}, domain.APIQueryParams{Area: "Provence"}, true},
		{domain.APIQueryParams{Country: "France", Location: "Avignon"}, domain.APIQueryParams{Location: "Avignon"}, true},
		{domain.APIQueryParams{Area: "Provence", Location: "Avignon", Sleeps: 4}, domain.APIQueryParams{Location: "Avignon", Sleeps: 4}, true},
		{domain.APIQueryParams{Country: "France", Area: "Provence", Location: "Avignon"}, domain.APIQueryParams{Location: "Avignon"}, true},
	}
	for _, tc := range cases {
		before := correctionCount(t)
		got := singleDimension(tc.in)
		if got != tc.want {
			t.Fatalf("%+v: want %+v, got %+v", tc.in, tc.want, got)
		}
		if got.LocationDimensions() > 1 {
			t.Fatalf("%+v: still has %d dimensions", tc.in, got.LocationDimensions())
		}
		counted := correctionCount(t) - before
		if tc.correct && counted != 1 {
			t.Fatalf("%+v: expected one counted correction, got %v", tc.in, counted)
		}
		if !tc.correct && counted != 0 {
			t.Fatalf("%+v: unexpected correction counted", tc.in)
		}
	}
}
