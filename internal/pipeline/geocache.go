package pipeline

import (
	"context"

	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/store"
	"github.com/sells-group/lead-pipeline/pkg/geocode"
)

// StoreCache adapts the persistence layer to the resolver's cache interface.
type StoreCache struct {
	store store.Store
}

// NewStoreCache returns a geocode cache backed by the given store.
func NewStoreCache(s store.Store) *StoreCache {
	return &StoreCache{store: s}
}

func (c *StoreCache) Get(ctx context.Context, street, houseNumber, city string) (*geocode.Coordinates, error) {
	entry, err := c.store.GetGeocodeEntry(ctx, street, houseNumber, city)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	return &geocode.Coordinates{Lat: entry.Lat, Lon: entry.Lon}, nil
}

func (c *StoreCache) Upsert(ctx context.Context, addr geocode.Address, coord geocode.Coordinates) error {
	return c.store.UpsertGeocodeEntry(ctx, model.GeocodeCacheEntry{
		Street:      addr.Street,
		HouseNumber: addr.HouseNumber,
		PostalCode:  addr.PostalCode,
		City:        addr.City,
		Lat:         coord.Lat,
		Lon:         coord.Lon,
	})
}
