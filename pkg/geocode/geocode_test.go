package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	entries map[string]Coordinates
	upserts int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]Coordinates{}}
}

func (c *memCache) key(street, houseNumber, city string) string {
	return street + "|" + houseNumber + "|" + city
}

func (c *memCache) Get(_ context.Context, street, houseNumber, city string) (*Coordinates, error) {
	if coord, ok := c.entries[c.key(street, houseNumber, city)]; ok {
		return &coord, nil
	}
	return nil, nil
}

func (c *memCache) Upsert(_ context.Context, addr Address, coord Coordinates) error {
	c.upserts++
	c.entries[c.key(addr.Street, addr.HouseNumber, addr.City)] = coord
	return nil
}

var berlinAddr = Address{Street: "Hauptstraße", HouseNumber: "12", PostalCode: "10115", City: "Berlin"}

func TestResolve_ProviderHitFillsCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("q"), "Hauptstraße 12")
		assert.Contains(t, r.URL.Query().Get("q"), "Deutschland")
		fmt.Fprint(w, `[{"lat": "52.5200", "lon": "13.4050"}]`)
	}))
	defer srv.Close()

	cache := newMemCache()
	r := NewResolver(cache, WithBaseURL(srv.URL), WithRateLimit(1000))

	coord, err := r.Resolve(context.Background(), berlinAddr)
	require.NoError(t, err)
	require.NotNil(t, coord)
	assert.InDelta(t, 52.52, coord.Lat, 0.001)
	assert.InDelta(t, 13.405, coord.Lon, 0.001)
	assert.Equal(t, 1, cache.upserts)

	// Second resolve is served from cache, no second provider call.
	coord2, err := r.Resolve(context.Background(), berlinAddr)
	require.NoError(t, err)
	require.NotNil(t, coord2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolve_NoMatchIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	cache := newMemCache()
	r := NewResolver(cache, WithBaseURL(srv.URL), WithRateLimit(1000))

	coord, err := r.Resolve(context.Background(), berlinAddr)
	require.NoError(t, err)
	assert.Nil(t, coord)
	assert.Equal(t, 0, cache.upserts)
}

func TestResolve_ProviderDownIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest) // non-transient, no retries
	}))
	defer srv.Close()

	cache := newMemCache()
	r := NewResolver(cache, WithBaseURL(srv.URL), WithRateLimit(1000))

	coord, err := r.Resolve(context.Background(), berlinAddr)
	require.NoError(t, err)
	assert.Nil(t, coord)
}

func TestResolve_CacheHitSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	cache := newMemCache()
	require.NoError(t, cache.Upsert(context.Background(), berlinAddr, Coordinates{Lat: 52.52, Lon: 13.405}))
	cache.upserts = 0

	r := NewResolver(cache, WithBaseURL(srv.URL), WithRateLimit(1000))
	coord, err := r.Resolve(context.Background(), berlinAddr)
	require.NoError(t, err)
	require.NotNil(t, coord)
	assert.InDelta(t, 52.52, coord.Lat, 0.001)
	assert.Equal(t, int32(0), calls.Load())
}

func TestResolve_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"lat": "52.5200", "lon": "13.4050"}]`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewResolver(newMemCache(), WithBaseURL(srv.URL), WithRateLimit(1000))
	_, err := r.Resolve(ctx, berlinAddr)
	assert.Error(t, err)
}

func TestComposeQuery(t *testing.T) {
	q := composeQuery(berlinAddr, "Deutschland")
	assert.Equal(t, "Hauptstraße 12, 10115 Berlin, Deutschland", q)

	q = composeQuery(Address{Street: "Hauptstraße", City: "Berlin"}, "")
	assert.Equal(t, "Hauptstraße, Berlin", q)
}
