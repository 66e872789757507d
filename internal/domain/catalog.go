package domain

// Country is a top-level catalog entry.
type Country struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
}

// Label is the name shown to users: displayName when set, else name.
func (c Country) Label() string { return label(c.DisplayName, c.Name) }

// Area is a region inside a country.
type Area struct {
	ID          int64  `json:"id"`
	CountryID   int64  `json:"countryId"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
}

func (a Area) Label() string { return label(a.DisplayName, a.Name) }

// Location is a city or place inside an area.
type Location struct {
	ID          int64  `json:"id"`
	CountryID   int64  `json:"countryId"`
	AreaID      int64  `json:"areaId"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
}

func (l Location) Label() string { return label(l.DisplayName, l.Name) }

func label(display, name string) string {
	if display != "" {
		return display
	}
	return name
}

type LocationType string

const (
	LocationTypeCountry  LocationType = "country"
	LocationTypeArea     LocationType = "area"
	LocationTypeLocation LocationType = "location"
	LocationTypeUnknown  LocationType = "unknown"
)

// ParsedLocation is the result of resolving free text against the catalog.
// Type tells which dimension matched; Country/Area are context for the match
// and are not additional query dimensions.
type ParsedLocation struct {
	Type     LocationType `json:"type"`
	Country  *Country     `json:"country,omitempty"`
	Area     *Area        `json:"area,omitempty"`
	Location *Location    `json:"location,omitempty"`
}

// LocationSuggestion is a derived autocomplete entry.
type LocationSuggestion struct {
	ID          string       `json:"id"` // country-<id> | area-<id> | location-<id>
	DisplayName string       `json:"displayName"`
	Type        LocationType `json:"type"`
	FullName    string       `json:"fullName"`
	CountryID   *int64       `json:"countryId,omitempty"`
	AreaID      *int64       `json:"areaId,omitempty"`
}

// CatalogState describes the catalog cache lifecycle.
type CatalogState string

const (
	CatalogUninitialized CatalogState = "uninitialized"
	CatalogInitializing  CatalogState = "initializing"
	CatalogReady         CatalogState = "ready"
	CatalogDegraded      CatalogState = "degraded"
)
