package domain

// SearchParams is what the caller asked for. Country and Area, when present,
// win over the free-text Location.
type SearchParams struct {
	Location string `json:"location,omitempty" validate:"max=200"`
	Country  string `json:"country,omitempty" validate:"max=200"`
	Area     string `json:"area,omitempty" validate:"max=200"`
	Guests   int    `json:"guests" validate:"gte=0,lte=100"`
	CheckIn  string `json:"checkIn,omitempty" validate:"omitempty,datetime=2006-01-02"`
	CheckOut string `json:"checkOut,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// APIQueryParams is the upstream request shape. At most one of Country, Area
// and Location may be non-empty; Sleeps is sent only when positive.
type APIQueryParams struct {
	Country  string `json:"country,omitempty"`
	Area     string `json:"area,omitempty"`
	Location string `json:"location,omitempty"`
	Sleeps   int    `json:"sleeps,omitempty"`
}

// LocationDimensions counts the non-empty location fields.
func (p APIQueryParams) LocationDimensions() int {
	n := 0
	for _, v := range []string{p.Country, p.Area, p.Location} {
		if v != "" {
			n++
		}
	}
	return n
}
