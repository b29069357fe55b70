// Package pipeline orchestrates the acquisition flow: crawl streets, merge
// against the persisted lead set, geocode, and assign territories.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/dedup"
	"github.com/sells-group/lead-pipeline/internal/directory"
	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/store"
	"github.com/sells-group/lead-pipeline/internal/territory"
	"github.com/sells-group/lead-pipeline/pkg/geocode"
)

// Scanner runs city scans against the directory.
type Scanner struct {
	store       store.Store
	crawler     *directory.Crawler
	resolver    *geocode.Resolver
	streetPause time.Duration
}

// NewScanner wires the scan dependencies. streetPause is the politeness gap
// between streets; zero keeps a sensible default.
func NewScanner(s store.Store, c *directory.Crawler, r *geocode.Resolver, streetPause time.Duration) *Scanner {
	if streetPause <= 0 {
		streetPause = 1500 * time.Millisecond
	}
	return &Scanner{store: s, crawler: c, resolver: r, streetPause: streetPause}
}

// ScanResult summarizes a city scan.
type ScanResult struct {
	StreetsScanned int `json:"streets_scanned"`
	LeadsFound     int `json:"leads_found"`
	LeadsCreated   int `json:"leads_created"`
	Geocoded       int `json:"geocoded"`
	AreasAssigned  int `json:"areas_assigned"`
}

// ScanCity crawls each street in order, merges the results against the
// persisted lead set with the fuzzy strategy, persists what is new, then
// geocodes and territory-assigns the division's leads. Streets are paced;
// a street that fails is logged and the scan moves on. Cancellation stops
// between streets without losing persisted work.
func (s *Scanner) ScanCity(ctx context.Context, streets []string, city, division string) (*ScanResult, error) {
	log := zap.L().With(zap.String("city", city), zap.String("division", division))

	existing, err := s.store.ListLeads(ctx, store.LeadFilter{Division: division})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list existing leads")
	}

	result := &ScanResult{}
	for i, street := range streets {
		if ctx.Err() != nil {
			log.Info("city scan cancelled", zap.Int("streets_scanned", result.StreetsScanned))
			break
		}

		crawled := s.crawler.FetchStreetLeads(ctx, street, city, func(p directory.Progress) {
			if p.Fetched {
				log.Debug("street page done",
					zap.String("street", p.Street),
					zap.Int("page", p.Page),
					zap.Int("collected", p.Collected),
				)
			}
		})
		result.StreetsScanned++
		result.LeadsFound += len(crawled)

		for j := range crawled {
			crawled[j].Division = division
		}

		fresh := dedup.FilterNew(crawled, existing, dedup.Fuzzy{})
		if len(fresh) > 0 {
			if _, err := s.store.BulkCreateLeads(ctx, fresh); err != nil {
				// One street's persistence failure must not end the city.
				log.Warn("persisting street results failed",
					zap.String("street", street), zap.Error(err))
			} else {
				result.LeadsCreated += len(fresh)
				existing = append(existing, fresh...)
			}
		}

		log.Info("street scanned",
			zap.String("street", street),
			zap.Int("found", len(crawled)),
			zap.Int("new", len(fresh)),
		)

		if i < len(streets)-1 {
			timer := time.NewTimer(s.streetPause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, nil
			case <-timer.C:
			}
		}
	}

	geocoded, err := s.GeocodeLeads(ctx, division)
	if err != nil {
		return result, err
	}
	result.Geocoded = geocoded

	assigned, err := s.AssignAreas(ctx, division)
	if err != nil {
		return result, err
	}
	result.AreasAssigned = assigned

	return result, nil
}

// GeocodeLeads fills coordinates for the division's leads that lack them.
// Unresolvable addresses are left as they are; that is a shrug, not an error.
func (s *Scanner) GeocodeLeads(ctx context.Context, division string) (int, error) {
	leads, err := s.store.ListLeads(ctx, store.LeadFilter{Division: division})
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: list leads for geocoding")
	}

	resolved := 0
	for _, lead := range leads {
		if lead.Coordinates != nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		streetName, houseNumber := dedup.SplitStreet(lead.Street)
		coord, err := s.resolver.Resolve(ctx, geocode.Address{
			Street:      streetName,
			HouseNumber: houseNumber,
			PostalCode:  lead.PostalCode,
			City:        lead.City,
		})
		if err != nil {
			return resolved, err // only context cancellation surfaces here
		}
		if coord == nil {
			continue
		}

		patch := store.LeadPatch{Coordinates: &model.Coordinates{Lat: coord.Lat, Lon: coord.Lon}}
		if err := s.store.UpdateLead(ctx, lead.ID, patch); err != nil {
			zap.L().Warn("storing coordinates failed", zap.String("lead_id", lead.ID), zap.Error(err))
			continue
		}
		resolved++
	}
	return resolved, nil
}

// AssignAreas sets area_id on the division's unassigned leads using
// first-match-in-order area resolution.
func (s *Scanner) AssignAreas(ctx context.Context, division string) (int, error) {
	areas, err := s.store.ListAreas(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: list areas")
	}
	if len(areas) == 0 {
		return 0, nil
	}

	leads, err := s.store.ListLeads(ctx, store.LeadFilter{Division: division})
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: list leads for area matching")
	}

	assigned := 0
	for _, lead := range leads {
		if lead.AreaID != nil {
			continue
		}
		area := territory.Find(lead, areas)
		if area == nil {
			continue
		}
		if err := s.store.UpdateLead(ctx, lead.ID, store.LeadPatch{AreaID: &area.ID}); err != nil {
			zap.L().Warn("storing area assignment failed", zap.String("lead_id", lead.ID), zap.Error(err))
			continue
		}
		assigned++
	}
	return assigned, nil
}
