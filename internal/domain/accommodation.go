package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Accommodation is one upstream record. The upstream schema changed several
// times, so every field is decoded on its own and a field that does not fit
// is left at its zero value instead of failing the record.
type Accommodation struct {
	ID          FlexString     `json:"id"`
	Code        FlexString     `json:"code"`
	Name        FlexString     `json:"name"`
	Location    FlexString     `json:"location"`
	Area        LocalizedField `json:"area"`
	CountryCode FlexString     `json:"countryCode"`
	Country     LocalizedField `json:"country"`
	RegionCode  FlexString     `json:"regionCode"`
	Region      LocalizedField `json:"region"`
	PlaceCode   FlexString     `json:"placeCode"`
	Place       LocalizedField `json:"place"`
	Type        FlexString     `json:"type"`
	DetailType  FlexString     `json:"detailType"`
	LivingSpace FlexFloat      `json:"livingSpace"`
	Rooms       *Count         `json:"rooms"`
	BedRooms    *Count         `json:"bedRooms"`
	BathRooms   *Count         `json:"bathRooms"`
	Toilets     *Count         `json:"toilets"`
	Pax         FlexFloat      `json:"pax"`
	Address     *Address       `json:"address"`
	Attributes  *Attributes    `json:"attributes"`
	Media       *Media         `json:"media"`
	MainImage   FlexString     `json:"mainImage"`
	Rating      *Rating        `json:"rating"`
	Brand       FlexString     `json:"brand"`
	Currency    FlexString     `json:"domesticCurrency"`
	Created     FlexString     `json:"creationDate"`
	Modified    FlexString     `json:"lastModified"`
}

func (a *Accommodation) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*a = Accommodation{}
	fields := map[string]any{
		"id":               &a.ID,
		"code":             &a.Code,
		"name":             &a.Name,
		"location":         &a.Location,
		"area":             &a.Area,
		"countryCode":      &a.CountryCode,
		"country":          &a.Country,
		"regionCode":       &a.RegionCode,
		"region":           &a.Region,
		"placeCode":        &a.PlaceCode,
		"place":            &a.Place,
		"type":             &a.Type,
		"detailType":       &a.DetailType,
		"livingSpace":      &a.LivingSpace,
		"rooms":            &a.Rooms,
		"bedRooms":         &a.BedRooms,
		"bathRooms":        &a.BathRooms,
		"toilets":          &a.Toilets,
		"pax":              &a.Pax,
		"address":          &a.Address,
		"attributes":       &a.Attributes,
		"media":            &a.Media,
		"mainImage":        &a.MainImage,
		"rating":           &a.Rating,
		"brand":            &a.Brand,
		"domesticCurrency": &a.Currency,
		"creationDate":     &a.Created,
		"lastModified":     &a.Modified,
	}
	for key, dst := range fields {
		if v, ok := raw[key]; ok {
			_ = json.Unmarshal(v, dst) // mismatched shape keeps the zero value
		}
	}
	return nil
}

type Count struct {
	Number FlexFloat `json:"number"`
}

// N returns the count, or 0 when the object or its number is absent.
func (c *Count) N() int {
	if c == nil {
		return 0
	}
	return c.Number.Int()
}

type Address struct {
	PostalCode FlexString `json:"postalCode"`
	Latitude   FlexString `json:"latitude"`
	Longitude  FlexString `json:"longitude"`
}

type Attribute struct {
	Type  FlexString `json:"type"`
	Name  FlexString `json:"name"`
	Value FlexString `json:"value"`
}

type Attributes struct {
	Attribute []Attribute `json:"attribute"`
}

type MediaItem struct {
	Main      bool       `json:"main"`
	URI       FlexString `json:"uri"`
	Format    FlexString `json:"format"`
	Type      FlexString `json:"type"`
	SortOrder FlexFloat  `json:"sortOrder"`
}

type Media struct {
	MediaItem []MediaItem `json:"mediaItem"`
}

type Rating struct {
	OverAllRating FlexFloat `json:"overAllRating"`
	NbrOfReviews  FlexFloat `json:"nbrOfReviews"`
}

/********** tolerant scalar types **********/

// FlexString accepts a JSON string or number; anything else decodes as "".
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0:
		*s = ""
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			*s = ""
			return nil
		}
		*s = FlexString(v)
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		*s = FlexString(string(b))
	default:
		*s = ""
	}
	return nil
}

func (s FlexString) String() string { return string(s) }

// FlexFloat accepts a JSON number or a numeric string ("8,5" included).
// Non-numeric values decode as absent.
type FlexFloat struct {
	Value float64
	Valid bool
}

func NewFlexFloat(v float64) FlexFloat { return FlexFloat{Value: v, Valid: true} }

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	*f = FlexFloat{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*f = FlexFloat{Value: v, Valid: true}
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Int truncates the value into the int32 range; absent values are 0.
func (f FlexFloat) Int() int {
	switch {
	case !f.Valid:
		return 0
	case f.Value > math.MaxInt32:
		return math.MaxInt32
	case f.Value < math.MinInt32:
		return math.MinInt32
	}
	return int(f.Value)
}

/********** localized content **********/

type LocalizedContent struct {
	Language string `json:"language"`
	Content  string `json:"content"`
}

type localizedKind uint8

const (
	localizedAbsent localizedKind = iota
	localizedPlain
	localizedEntries
)

// LocalizedField is either a plain string (current upstream shape) or a list
// of {language, content} entries (legacy shape).
type LocalizedField struct {
	kind    localizedKind
	plain   string
	entries []LocalizedContent
}

func PlainString(s string) LocalizedField {
	return LocalizedField{kind: localizedPlain, plain: s}
}

func Localized(entries ...LocalizedContent) LocalizedField {
	return LocalizedField{kind: localizedEntries, entries: entries}
}

func (f LocalizedField) IsPlain() bool     { return f.kind == localizedPlain }
func (f LocalizedField) IsLocalized() bool { return f.kind == localizedEntries }

// Best picks the EN entry, else the first entry; a plain string is returned
// as is and an absent field yields "".
func (f LocalizedField) Best() string { return f.Pick("EN") }

// Pick is Best with a caller-chosen language.
func (f LocalizedField) Pick(lang string) string {
	switch f.kind {
	case localizedPlain:
		return f.plain
	case localizedEntries:
		for _, e := range f.entries {
			if strings.EqualFold(e.Language, lang) && e.Content != "" {
				return e.Content
			}
		}
		if len(f.entries) > 0 {
			return f.entries[0].Content
		}
	}
	return ""
}

// LocalizedFromAny reads a value already decoded into any (detail payloads
// are kept as maps) with the same rules as UnmarshalJSON.
func LocalizedFromAny(v any) LocalizedField {
	var f LocalizedField
	if b, err := json.Marshal(v); err == nil {
		_ = f.UnmarshalJSON(b)
	}
	return f
}

func (f *LocalizedField) UnmarshalJSON(b []byte) error {
	*f = LocalizedField{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*f = PlainString(s)
		}
	case '[':
		var items []*LocalizedContent
		if err := json.Unmarshal(b, &items); err != nil {
			return nil
		}
		entries := make([]LocalizedContent, 0, len(items))
		for _, it := range items {
			if it != nil {
				entries = append(entries, *it)
			}
		}
		*f = Localized(entries...)
	}
	return nil
}

func (f LocalizedField) MarshalJSON() ([]byte, error) {
	switch f.kind {
	case localizedPlain:
		return json.Marshal(f.plain)
	case localizedEntries:
		return json.Marshal(f.entries)
	}
	return []byte("null"), nil
}
