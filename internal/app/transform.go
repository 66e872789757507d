package app

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"villa_market/internal/domain"
)

const PlaceholderImage = "https://images.unsplash.com/photo-1758192838598-a1de4da5dcaf"

const maxFeatures = 4

// featureNames maps upstream attribute names to display labels.
var featureNames = map[string]string{
	"pool":           "Pool",
	"dishwasher":     "Dishwasher",
	"microwave":      "Microwave",
	"pets":           "Pet Friendly",
	"washingmachine": "Washing Machine",
	"fridge":         "Fridge",
	"internet":       "Internet",
	"wlan":           "WiFi",
	"tv":             "TV",
	"nonsmoking":     "Non-Smoking",
}

// TransformAccommodationToVilla builds the card model for one record. index
// is the record's position in its response and only feeds the synthetic
// identifiers used when the record carries neither id nor code.
func TransformAccommodationToVilla(a domain.Accommodation, index int) domain.Villa {
	id := strings.TrimSpace(a.ID.String())
	code := strings.TrimSpace(a.Code.String())

	villaID := id
	if villaID == "" {
		villaID = code
	}
	if villaID == "" {
		log.Warn().Int("index", index).Str("name", a.Name.String()).
			Msg("accommodation has neither id nor code")
		villaID = fmt.Sprintf("MISSING-ID-%d", index)
	}
	villaCode := code
	if villaCode == "" {
		villaCode = id
	}
	if villaCode == "" {
		villaCode = fmt.Sprintf("MISSING-CODE-%d", index)
	}

	place := a.Place.Best()
	country := a.Country.Best()
	area := a.Area.Best()
	if area == "" {
		area = a.Region.Best()
	}

	return domain.Villa{
		ID:        villaID,
		Code:      villaCode,
		Name:      a.Name.String(),
		Location:  villaLocation(a.Location.String(), place, country),
		Place:     place,
		Area:      area,
		Country:   country,
		Image:     villaImage(a),
		Sleeps:    nonNegative(a.Pax.Int()),
		Bedrooms:  nonNegative(a.BedRooms.N()),
		Bathrooms: nonNegative(a.BathRooms.N()),
		Price:     EstimatePrice(a),
		Rating:    villaRating(a.Rating),
		Reviews:   villaReviews(a.Rating),
		Features:  villaFeatures(a.Attributes),
	}
}

// TransformAccommodations keeps order and length; no record is dropped.
func TransformAccommodations(as []domain.Accommodation) []domain.Villa {
	out := make([]domain.Villa, 0, len(as))
	for i, a := range as {
		out = append(out, TransformAccommodationToVilla(a, i))
	}
	return out
}

// MaxEstimatedPrice caps EstimatePrice for absurd upstream sizes.
const MaxEstimatedPrice = math.MaxInt32

// EstimatePrice is a display placeholder until rates come from an
// availability endpoint: floor(bedrooms*80 + pax*15 + livingSpace) with
// 1, 2 and 50 standing in for missing, zero or non-finite inputs. The result
// is within [0, MaxEstimatedPrice].
func EstimatePrice(a domain.Accommodation) int {
	bedrooms := 1.0
	if a.BedRooms != nil {
		bedrooms = positiveOr(math.Trunc(a.BedRooms.Number.Value), a.BedRooms.Number.Valid, 1)
	}
	pax := positiveOr(a.Pax.Value, a.Pax.Valid, 2)
	space := positiveOr(a.LivingSpace.Value, a.LivingSpace.Valid, 50)

	p := math.Floor(bedrooms*80 + pax*15 + space)
	if math.IsNaN(p) || p > MaxEstimatedPrice {
		return MaxEstimatedPrice
	}
	return int(p)
}

func positiveOr(v float64, valid bool, def float64) float64 {
	if !valid || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return def
	}
	return v
}

func villaLocation(explicit, place, country string) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return s
	}
	switch {
	case place != "" && country != "":
		return place + ", " + country
	case place != "":
		return place
	}
	return country
}

// villaImage: mainImage, then the media item flagged main, then the first
// media item, then the placeholder.
func villaImage(a domain.Accommodation) string {
	if s := strings.TrimSpace(a.MainImage.String()); s != "" {
		return s
	}
	if a.Media == nil || len(a.Media.MediaItem) == 0 {
		return PlaceholderImage
	}
	pick := a.Media.MediaItem[0]
	for _, m := range a.Media.MediaItem {
		if m.Main {
			pick = m
			break
		}
	}
	if uri := strings.TrimSpace(pick.URI.String()); uri != "" {
		return uri
	}
	return PlaceholderImage
}

func villaFeatures(attrs *domain.Attributes) []string {
	out := []string{}
	if attrs == nil {
		return out
	}
	for _, at := range attrs.Attribute {
		label, ok := featureNames[strings.ToLower(strings.TrimSpace(at.Name.String()))]
		if !ok || containsString(out, label) {
			continue
		}
		out = append(out, label)
		if len(out) == maxFeatures {
			break
		}
	}
	return out
}

func villaRating(r *domain.Rating) float64 {
	if r == nil || !r.OverAllRating.Valid || r.OverAllRating.Value < 0 {
		return 0
	}
	return r.OverAllRating.Value
}

func villaReviews(r *domain.Rating) int {
	if r == nil {
		return 0
	}
	return nonNegative(r.NbrOfReviews.Int())
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
