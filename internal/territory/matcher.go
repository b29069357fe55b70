// Package territory assigns leads to sales areas by coordinate containment,
// with a street-name fallback for ungeocodable leads.
package territory

import (
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// IsPointInBounds reports whether the point lies inside the box. Points
// exactly on an edge count as inside.
func IsPointInBounds(b model.BoundingBox, lat, lon float64) bool {
	bounds := geom.NewBounds(geom.XY)
	bounds.Set(b.West, b.South, b.East, b.North)
	return bounds.OverlapsPoint(geom.XY, geom.Coord{lon, lat})
}

// IsInArea reports whether the lead belongs to the area. A geocoded lead is
// tested purely by bounding-box containment; the street list is ignored. An
// ungeocoded lead must match the area's city (when the area specifies one)
// and its street line must start with one of the area's street names.
func IsInArea(lead model.Lead, area model.Area) bool {
	if lead.Coordinates != nil {
		return IsPointInBounds(area.Bounds, lead.Coordinates.Lat, lead.Coordinates.Lon)
	}

	if area.City != "" && !strings.EqualFold(strings.TrimSpace(area.City), strings.TrimSpace(lead.City)) {
		return false
	}

	street := strings.ToLower(lead.Street)
	for _, s := range area.Streets {
		if s != "" && strings.HasPrefix(street, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// Find returns the first area in the given order that contains the lead, or
// nil. First-match-in-order is the contract: when bounding boxes overlap, the
// earlier area wins and no ranking is applied.
func Find(lead model.Lead, areas []model.Area) *model.Area {
	for i := range areas {
		if IsInArea(lead, areas[i]) {
			return &areas[i]
		}
	}
	return nil
}
