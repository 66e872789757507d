package app

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"villa_market/internal/domain"
)

const FallbackVillaCode = "FI1250.1304.1"

const DetailsUnavailableMessage = "Could not load the latest villa details. Showing fallback information instead."

// FallbackVilla is shown when the detail record cannot be fetched. code and
// id replace the demo identifiers when non-empty.
func FallbackVilla(code, id string) domain.VillaDetails {
	v := domain.VillaDetails{
		ID:          "1",
		Code:        FallbackVillaCode,
		Name:        "Villa Sunset Paradise",
		Location:    "Costa del Sol, Spain",
		Coordinates: "36.7213 N, 4.4214 W",
		Images: []string{
			"https://images.unsplash.com/photo-1758192838598-a1de4da5dcaf?crop=entropy&cs=tinysrgb&fit=max&fm=jpg&q=80&w=1080",
			"https://images.unsplash.com/photo-1757262798623-a215e869d708?crop=entropy&cs=tinysrgb&fit=max&fm=jpg&q=80&w=1080",
			"https://images.unsplash.com/photo-1601221998768-c0cdf463a393?crop=entropy&cs=tinysrgb&fit=max&fm=jpg&q=80&w=1080",
			"https://images.unsplash.com/photo-1729605412044-81f6acce4370?crop=entropy&cs=tinysrgb&fit=max&fm=jpg&q=80&w=1080",
		},
		Sleeps:        8,
		Bedrooms:      4,
		Bathrooms:     3,
		Price:         285,
		OriginalPrice: 425,
		Rating:        4.9,
		Reviews:       127,
		Discount:      33,
		LeftInStock:   2,
		Description: "Stunning luxury villa perched on the hillside with breathtaking sea views. " +
			"This spacious property features a private infinity pool, modern interiors, and direct access " +
			"to a secluded beach. Perfect for families or groups seeking an unforgettable Mediterranean escape.",
		Amenities: []domain.Amenity{
			{Name: "High-speed WiFi", Included: true},
			{Name: "Private Pool", Included: true},
			{Name: "Air Conditioning", Included: true},
			{Name: "Free Parking", Included: true},
			{Name: "Sea View", Included: true},
			{Name: "BBQ Area", Included: true},
			{Name: "Outdoor Dining", Included: true},
			{Name: "Smart TV", Included: true},
			{Name: "Dishwasher", Included: true},
			{Name: "Washing Machine", Included: true},
			{Name: "Beach Towels", Included: true},
			{Name: "Hair Dryer", Included: true},
		},
		Rules: []domain.VillaRule{
			{Text: "Check-in: 4:00 PM - 10:00 PM", Allowed: true},
			{Text: "Check-out: 11:00 AM", Allowed: true},
			{Text: "No smoking inside", Allowed: false},
			{Text: "No pets allowed", Allowed: false},
			{Text: "No parties or events", Allowed: false},
		},
	}
	if lat, lon, ok := parseCoordinates(v.Coordinates); ok {
		v.Lat, v.Lon = &lat, &lon
	}
	if code != "" {
		v.Code = code
	}
	if id != "" {
		v.ID = id
	}
	return v
}

// NormalizeVillaDetails maps an upstream detail record onto the detail model.
// Every field the record does not supply is taken from fallback.
func NormalizeVillaDetails(raw map[string]any, fallback domain.VillaDetails, code, id string) domain.VillaDetails {
	if raw == nil {
		raw = map[string]any{}
	}
	v := fallback
	v.ID = firstStr(raw, "id")
	if v.ID == "" {
		v.ID = id
	}
	v.Code = firstStr(raw, "code", "accommodationCode")
	if v.Code == "" {
		v.Code = code
	}
	v.Name = orText(firstStr(raw, "name", "title"), fallback.Name)

	loc := joinNonEmpty(", ",
		localizedStr(raw, "place", "EN"),
		localizedStr(raw, "region", "EN"),
		localizedStr(raw, "country", "EN"),
	)
	if loc == "" {
		loc = firstStr(raw, "location")
	}
	if loc == "" {
		if s, ok := raw["address"].(string); ok {
			loc = strings.TrimSpace(s)
		}
	}
	v.Location = orText(loc, fallback.Location)

	v.Coordinates, v.Lat, v.Lon = detailCoordinates(raw, fallback)

	if imgs := firstSliceStrings(raw, "images"); len(imgs) > 0 {
		v.Images = imgs
	} else if imgs := mediaImages(raw); len(imgs) > 0 {
		v.Images = imgs
	}

	v.Sleeps = positiveInt(getFloatFlexible(raw,
		"sleeps", "maxOccupancy", "pax", "paxByValidity.item.0.value", "babiesByValidity.item.0.value"),
		fallback.Sleeps)
	v.Bedrooms = countOr(getFloatFlexible(raw,
		"bedRooms.number", "bedrooms", "bedroomCount", "rooms.number"), fallback.Bedrooms)
	v.Bathrooms = countOr(getFloatFlexible(raw,
		"bathRooms.number", "bathrooms", "bathroomCount", "toilets.number"), fallback.Bathrooms)

	v.Price = floatOr(getFloatFlexible(raw, "price", "nightlyRate"), fallback.Price)
	v.OriginalPrice = floatOr(getFloatFlexible(raw, "originalPrice", "original_rate", "price"), fallback.OriginalPrice)
	v.Discount = floatOr(getFloatFlexible(raw, "discount"), fallback.Discount)
	v.LeftInStock = int(floatOr(getFloatFlexible(raw, "leftInStock", "availability"), float64(fallback.LeftInStock)))

	if _, nested := raw["rating"].(map[string]any); nested {
		v.Rating = floatOr(getFloatFlexible(raw, "rating.overAllRating"), fallback.Rating)
		v.Reviews = int(floatOr(getFloatFlexible(raw, "rating.nbrOfReviews"), float64(fallback.Reviews)))
	} else {
		v.Rating = floatOr(getFloatFlexible(raw, "rating", "ratingDetails.overAllRating", "averageRating"), fallback.Rating)
		v.Reviews = int(floatOr(getFloatFlexible(raw, "ratingDetails.nbrOfReviews", "reviews", "reviewsCount"), float64(fallback.Reviews)))
	}

	v.Description = orText(detailDescription(raw), fallback.Description)
	if as := detailAmenities(raw); len(as) > 0 {
		v.Amenities = as
	}
	if rs := detailRules(raw); len(rs) > 0 {
		v.Rules = rs
	}
	return v
}

func detailCoordinates(raw map[string]any, fallback domain.VillaDetails) (string, *float64, *float64) {
	latS, lonS := lookupStr(raw, "address.latitude"), lookupStr(raw, "address.longitude")
	if latS != "" && lonS != "" {
		coords := latS + ", " + lonS
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(latS), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(lonS), 64)
		if errLat == nil && errLon == nil {
			return coords, &lat, &lon
		}
		if lat, lon, ok := parseCoordinates(coords); ok {
			return coords, &lat, &lon
		}
		return coords, fallback.Lat, fallback.Lon
	}
	coords := firstStr(raw, "geo", "coordinates")
	if coords == "" {
		return fallback.Coordinates, fallback.Lat, fallback.Lon
	}
	if lat, lon, ok := parseCoordinates(coords); ok {
		return coords, &lat, &lon
	}
	return coords, fallback.Lat, fallback.Lon
}

var coordRe = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*°?\s*([NSEWnsew])?`)

// parseCoordinates reads "36.7213 N, 4.4214 W" or "36.7, -4.4". A S or W
// hemisphere letter makes the value negative.
func parseCoordinates(s string) (lat, lon float64, ok bool) {
	m := coordRe.FindAllStringSubmatch(s, 2)
	if len(m) < 2 {
		return 0, 0, false
	}
	vals := [2]float64{}
	for i := range vals {
		f, err := strconv.ParseFloat(m[i][1], 64)
		if err != nil {
			return 0, 0, false
		}
		if h := strings.ToUpper(m[i][2]); h == "S" || h == "W" {
			if f > 0 {
				f = -f
			}
		}
		vals[i] = f
	}
	return vals[0], vals[1], true
}

// mediaImages: image media items ordered by sortOrder.
func mediaImages(raw map[string]any) []string {
	items, _ := lookupAny(raw, "media.mediaItem").([]any)
	type img struct {
		uri   string
		order float64
	}
	var imgs []img
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		uri := lookupStr(m, "uri")
		if !strings.EqualFold(lookupStr(m, "format"), "image") || uri == "" {
			continue
		}
		imgs = append(imgs, img{uri: uri, order: floatOr(getFloatFlexible(m, "sortOrder"), 0)})
	}
	sort.SliceStable(imgs, func(i, j int) bool { return imgs[i].order < imgs[j].order })
	out := make([]string, 0, len(imgs))
	for _, i := range imgs {
		out = append(out, i.uri)
	}
	return out
}

func detailDescription(raw map[string]any) string {
	items, _ := lookupAny(raw, "descriptions.description").([]any)
	first := ""
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		val := lookupStr(m, "value")
		if strings.EqualFold(lookupStr(m, "language"), "en") && val != "" {
			return val
		}
		if first == "" {
			first = val
		}
	}
	if first != "" {
		return first
	}
	return firstStr(raw, "description", "summary")
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// cleanName turns "washing_machine" into "Washing Machine".
func cleanName(s string) string {
	return strings.TrimSpace(titleCaser.String(strings.ReplaceAll(s, "_", " ")))
}

func detailAmenities(raw map[string]any) []domain.Amenity {
	var out []domain.Amenity
	if list, ok := raw["amenities"].([]any); ok {
		for _, it := range list {
			switch t := it.(type) {
			case string:
				if t != "" {
					out = append(out, domain.Amenity{Name: t, Included: true})
				}
			case map[string]any:
				name := lookupStr(t, "name")
				if name == "" {
					continue
				}
				inc, set := t["included"].(bool)
				out = append(out, domain.Amenity{Name: name, Included: inc || !set})
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	attrs, _ := lookupAny(raw, "attributes.attribute").([]any)
	for _, it := range attrs {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name := lookupStr(m, "name")
		if name == "" {
			name = "Amenity"
		}
		out = append(out, domain.Amenity{Name: cleanName(name), Included: true})
	}
	return out
}

func detailRules(raw map[string]any) []domain.VillaRule {
	list, _ := raw["rules"].([]any)
	var out []domain.VillaRule
	for _, it := range list {
		switch t := it.(type) {
		case string:
			if t != "" {
				out = append(out, domain.VillaRule{Text: t, Allowed: true})
			}
		case map[string]any:
			text := lookupStr(t, "text")
			if text == "" {
				continue
			}
			ok, set := t["allowed"].(bool)
			out = append(out, domain.VillaRule{Text: text, Allowed: ok || !set})
		}
	}
	return out
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func countOr(p *float64, def int) int {
	if p == nil || *p < 0 {
		return def
	}
	return int(*p)
}

// positiveInt treats zero as missing.
func positiveInt(p *float64, def int) int {
	if p == nil || *p <= 0 {
		return def
	}
	return int(*p)
}
