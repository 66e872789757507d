// internal/adapters/accommodation/client.go
package accommodation

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"villa_market/internal/adapters/observability"
	"villa_market/internal/domain"
)

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

// New builds a client for the Accommodation API. insecureTLS skips certificate
// checks and is meant for a local upstream with a self-signed certificate.
func New(base, key string, rps int, insecureTLS bool) (*Client, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return nil, fmt.Errorf("accommodation API base URL is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid accommodation API base URL: %w", err)
	}
	if rps <= 0 {
		rps = 5
	}
	hc := &http.Client{Timeout: 20 * time.Second}
	if insecureTLS {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // local dev upstream only
		hc.Transport = tr
	}
	return &Client{
		base: base,
		hc:   hc,
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Catalog ----

func (c *Client) Countries(ctx context.Context) ([]domain.Country, error) {
	var out []*domain.Country
	if err := c.get(ctx, "countries", c.base+"/api/locations/countries", &out); err != nil {
		return nil, err
	}
	return compact(out), nil
}

func (c *Client) Areas(ctx context.Context, countryID int64) ([]domain.Area, error) {
	var out []*domain.Area
	u := fmt.Sprintf("%s/api/locations/areas/%d", c.base, countryID)
	if err := c.get(ctx, "areas", u, &out); err != nil {
		return nil, err
	}
	return compact(out), nil
}

// AllAreas reads the by-country index. The upstream answers either with a
// flat area list or with {"<countryId>": {"country": ..., "areas": [...]}}.
func (c *Client) AllAreas(ctx context.Context) ([]domain.Area, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "areas_by_country", c.base+"/api/locations/by-country", &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var flat []*domain.Area
		if err := json.Unmarshal(raw, &flat); err != nil {
			return nil, fmt.Errorf("decode areas list: %w", err)
		}
		return compact(flat), nil
	}

	var byCountry map[string]struct {
		Areas []*domain.Area `json:"areas"`
	}
	if err := json.Unmarshal(raw, &byCountry); err != nil {
		return nil, fmt.Errorf("decode areas by country: %w", err)
	}
	// integer keys ascending, the rest lexically after them
	keys := make([]string, 0, len(byCountry))
	for k := range byCountry {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aerr := strconv.ParseInt(keys[i], 10, 64)
		b, berr := strconv.ParseInt(keys[j], 10, 64)
		switch {
		case aerr == nil && berr == nil:
			return a < b
		case aerr == nil:
			return true
		case berr == nil:
			return false
		}
		return keys[i] < keys[j]
	})
	var out []domain.Area
	for _, k := range keys {
		out = append(out, compact(byCountry[k].Areas)...)
	}
	return out, nil
}

func (c *Client) Locations(ctx context.Context, countryID, areaID int64) ([]domain.Location, error) {
	q := url.Values{}
	if countryID > 0 {
		q.Set("countryId", strconv.FormatInt(countryID, 10))
	}
	if areaID > 0 {
		q.Set("areaId", strconv.FormatInt(areaID, 10))
	}
	var out []*domain.Location
	if err := c.get(ctx, "locations", withQuery(c.base+"/api/locations", q.Encode()), &out); err != nil {
		return nil, err
	}
	return compact(out), nil
}

func (c *Client) SearchLocations(ctx context.Context, query string) ([]map[string]any, error) {
	u := c.base + "/api/locations?search=" + url.QueryEscape(query)
	var out []map[string]any
	if err := c.get(ctx, "locations_search", u, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- Accommodations (tries current routes first, falls back to legacy ones) ----

func (c *Client) ListAccommodations(ctx context.Context, query string) ([]domain.Accommodation, error) {
	candidates := []string{
		withQuery(c.base+"/api/accommodation-list", query), // preferred
		withQuery(c.base+"/api/AccommodationList", query),  // legacy
	}
	var raw []json.RawMessage
	if err := c.getFirst(ctx, "accommodation_list", candidates, &raw); err != nil {
		return nil, err
	}
	return decodeAccommodations(raw), nil
}

func (c *Client) RandomAccommodations(ctx context.Context) ([]domain.Accommodation, error) {
	candidates := []string{
		c.base + "/api/accommodation-list/random",
		c.base + "/api/AccommodationList/random",
	}
	var raw []json.RawMessage
	if err := c.getFirst(ctx, "accommodation_random", candidates, &raw); err != nil {
		return nil, err
	}
	return decodeAccommodations(raw), nil
}

func (c *Client) AccommodationDetails(ctx context.Context, code string) (map[string]any, error) {
	esc := url.PathEscape(code)
	candidates := []string{
		c.base + "/api/accommodation/" + esc,
		c.base + "/api/AccommodationDetails/" + esc,
	}
	var out map[string]any
	return out, c.getFirst(ctx, "accommodation_details", candidates, &out)
}

// decodeAccommodations never drops an element: a record that is not even a
// JSON object becomes an empty Accommodation.
func decodeAccommodations(raw []json.RawMessage) []domain.Accommodation {
	out := make([]domain.Accommodation, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal(r, &out[i]); err != nil {
			log.Warn().Err(err).Int("index", i).Msg("accommodation record is not an object")
			out[i] = domain.Accommodation{}
		}
	}
	return out
}

func compact[T any](in []*T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func withQuery(u, q string) string {
	if q == "" {
		return u
	}
	return u + "?" + q
}

// ---- Internals ----

var (
	ErrNotFound     = fmt.Errorf("accommodation api: %w", domain.ErrNotFound)
	ErrUnauthorized = errors.New("accommodation api: unauthorized")
	ErrForbidden    = errors.New("accommodation api: forbidden")
)

func (c *Client) getFirst(ctx context.Context, endpoint string, urls []string, out any) error {
	var last error
	for _, u := range urls {
		if err := c.get(ctx, endpoint, u, out); err != nil {
			if errors.Is(err, ErrNotFound) {
				last = err
				continue // try next pattern
			}
			return err // non-404: stop early
		}
		return nil // success
	}
	if last != nil {
		return last
	}
	return errors.New("no candidate URL succeeded")
}

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, endpoint, u string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		if c.key != "" {
			req.Header.Set("X-API-Key", c.key)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "villa-market/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("accommodation", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("accommodation", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s: %w", endpoint, err)
			}
			return nil

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns 200ms, 400ms, 800ms... plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
