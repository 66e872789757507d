package domain

// Villa is the display model derived from one Accommodation.
type Villa struct {
	ID            string   `json:"id"`
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Location      string   `json:"location"`
	Place         string   `json:"place"`
	Area          string   `json:"area"`
	Country       string   `json:"country"`
	Image         string   `json:"image"`
	Sleeps        int      `json:"sleeps"`
	Bedrooms      int      `json:"bedrooms"`
	Bathrooms     int      `json:"bathrooms"`
	Price         int      `json:"price"` // placeholder, see app.EstimatePrice
	OriginalPrice *int     `json:"originalPrice,omitempty"`
	Rating        float64  `json:"rating"`
	Reviews       int      `json:"reviews"`
	Features      []string `json:"features"`
	LeftInStock   *int     `json:"leftInStock,omitempty"`
	Discount      *int     `json:"discount,omitempty"`
}

type Amenity struct {
	Name     string `json:"name"`
	Included bool   `json:"included"`
}

type VillaRule struct {
	Text    string `json:"text"`
	Allowed bool   `json:"allowed"`
}

// VillaDetails is the detail-page model.
type VillaDetails struct {
	ID            string      `json:"id"`
	Code          string      `json:"code"`
	Name          string      `json:"name"`
	Location      string      `json:"location"`
	Coordinates   string      `json:"coordinates,omitempty"`
	Lat           *float64    `json:"lat,omitempty"`
	Lon           *float64    `json:"lon,omitempty"`
	Images        []string    `json:"images"`
	Sleeps        int         `json:"sleeps"`
	Bedrooms      int         `json:"bedrooms"`
	Bathrooms     int         `json:"bathrooms"`
	Price         float64     `json:"price"`
	OriginalPrice float64     `json:"originalPrice"`
	Rating        float64     `json:"rating"`
	Reviews       int         `json:"reviews"`
	Discount      float64     `json:"discount"`
	LeftInStock   int         `json:"leftInStock"`
	Description   string      `json:"description"`
	Amenities     []Amenity   `json:"amenities"`
	Rules         []VillaRule `json:"rules"`
}
