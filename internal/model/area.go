package model

// BoundingBox is the rectangular extent of a drawn territory. Edges are
// inclusive for containment checks.
type BoundingBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Area is a sales territory: a bounding box plus the street names derived from
// the drawn region. Immutable after creation.
type Area struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	City    string      `json:"city,omitempty"`
	Bounds  BoundingBox `json:"bounds"`
	Streets []string    `json:"streets"`
}

// GeocodeCacheEntry is a persisted address→coordinate resolution. Rows are
// upserted on the composite key and never deleted by the pipeline.
type GeocodeCacheEntry struct {
	Street      string  `json:"street"`
	HouseNumber string  `json:"house_number"`
	PostalCode  string  `json:"postal_code"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}
