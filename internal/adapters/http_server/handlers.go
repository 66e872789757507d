package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"villa_market/internal/app"
	"villa_market/internal/domain"
)

type Handlers struct {
	Catalog *app.LocationService
	Index   *app.SuggestionIndex
	Search  *app.SearchService
	Details *app.DetailsService

	validate *validator.Validate
}

type problem struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	if h.validate == nil {
		h.validate = newValidator()
	}
	s.mux.Get("/healthz", h.healthz)
	s.mux.Route("/v1/locations", func(r chi.Router) {
		r.Get("/suggestions", h.suggestions)
		r.Get("/popular", h.popular)
		r.Get("/parse", h.parse)
	})
	s.mux.Route("/v1/villas", func(r chi.Router) {
		r.Get("/", h.searchVillas)
		r.Get("/random", h.randomVillas)
		r.Get("/{code}", h.getVilla)
	})
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemFields(w, status, title, detail, nil)
}

func writeProblemFields(w http.ResponseWriter, status int, title, detail string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	p := problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Fields: fields}
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON answers 304 when the client already holds this representation.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "response encoding failed")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("route", routeOf(r)).Msg("failed to write body")
	}
}

// intParam reads an optional integer query parameter within [lo, hi].
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", name, lo, hi)
	}
	return n, nil
}

func (h *Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handlers) suggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, err := intParam(r, "limit", app.DefaultSearchLimit, 1, 50)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", err.Error())
		return
	}
	h.ensureIndex(r)
	var out []domain.LocationSuggestion
	if r.URL.Query().Get("source") == "api" {
		out = h.Index.SearchLocationsFromAPI(r.Context(), q)
	} else {
		out = h.Index.SearchLocations(q, limit)
	}
	writeJSON(w, r, out)
}

func (h *Handlers) popular(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", app.DefaultPopularLimit, 1, 50)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", err.Error())
		return
	}
	h.ensureIndex(r)
	writeJSON(w, r, h.Index.PopularSuggestions(limit))
}

// ensureIndex retries a failed index load; on failure the index answers
// with empty suggestions.
func (h *Handlers) ensureIndex(r *http.Request) {
	if err := h.Index.EnsureLoaded(r.Context()); err != nil {
		log.Debug().Err(err).Msg("suggestion index still unavailable")
	}
}

func (h *Handlers) parse(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeProblem(w, http.StatusBadRequest, "Missing query", "q is required")
		return
	}
	p, err := h.Catalog.ParseLocation(r.Context(), q)
	if err != nil && errors.Is(err, domain.ErrCatalogUnavailable) {
		writeProblem(w, http.StatusServiceUnavailable, "Catalog Unavailable", "location catalog could not be reached")
		return
	}
	writeJSON(w, r, p)
}

func (h *Handlers) searchVillas(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	guests, err := intParam(r, "guests", 0, 0, 100)
	if err != nil {
		writeProblemFields(w, http.StatusBadRequest, "Invalid search", "validation failed",
			map[string]string{"guests": "must be an integer between 0 and 100"})
		return
	}
	p := domain.SearchParams{
		Location: qs.Get("location"),
		Country:  qs.Get("country"),
		Area:     qs.Get("area"),
		Guests:   guests,
		CheckIn:  qs.Get("checkIn"),
		CheckOut: qs.Get("checkOut"),
	}
	if err := h.validate.Struct(p); err != nil {
		writeProblemFields(w, http.StatusBadRequest, "Invalid search", "validation failed", fieldErrors(err))
		return
	}

	res, err := h.Search.Search(r.Context(), p)
	if err != nil {
		log.Error().Err(err).Msg("villa search failed")
		writeProblem(w, http.StatusBadGateway, "Bad Gateway", "accommodation service unavailable")
		return
	}
	writeJSON(w, r, res)
}

func (h *Handlers) randomVillas(w http.ResponseWriter, r *http.Request) {
	vs, err := h.Search.Random(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("random villas failed")
		writeProblem(w, http.StatusBadGateway, "Bad Gateway", "accommodation service unavailable")
		return
	}
	writeJSON(w, r, vs)
}

func (h *Handlers) getVilla(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	res, err := h.Details.Get(r.Context(), code)
	if err != nil {
		// only happens when the client went away
		log.Debug().Err(err).Str("code", code).Msg("villa details discarded")
		return
	}
	writeJSON(w, r, res)
}

func fieldErrors(err error) map[string]string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return nil
	}
	out := make(map[string]string, len(ves))
	for _, e := range ves {
		switch e.Tag() {
		case "max":
			out[e.Field()] = "must not exceed " + e.Param() + " characters"
		case "datetime":
			out[e.Field()] = "must be a date (YYYY-MM-DD)"
		case "gte", "lte":
			out[e.Field()] = "is out of range"
		default:
			out[e.Field()] = "is invalid"
		}
	}
	return out
}
