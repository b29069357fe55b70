package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-pipeline/internal/directory"
	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/store"
	"github.com/sells-group/lead-pipeline/pkg/geocode"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func directoryPage(entities string) string {
	return fmt.Sprintf(`<html><body><script type="application/ld+json">[%s]</script></body></html>`, entities)
}

func newTestScanner(t *testing.T, st store.Store, directoryURL, geocodeURL string) *Scanner {
	t.Helper()
	crawler := directory.NewCrawler(
		directory.WithBaseURL(directoryURL),
		directory.WithPageDelay(time.Millisecond),
	)
	resolver := geocode.NewResolver(NewStoreCache(st),
		geocode.WithBaseURL(geocodeURL),
		geocode.WithRateLimit(1000),
	)
	return NewScanner(st, crawler, resolver, time.Millisecond)
}

func TestScanCity_EndToEnd(t *testing.T) {
	dirSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Teststrasse/Berlin.htm":
			fmt.Fprint(w, directoryPage(`
{"@type": "Bakery", "name": "Bäckerei Schmidt", "telephone": "030 1234567",
 "address": {"streetAddress": "Teststrasse 12", "addressLocality": "Berlin"}}`))
		case "/Ringweg/Berlin.htm":
			fmt.Fprint(w, directoryPage(`
{"@type": "AutoRepair", "name": "Autohaus Nord", "telephone": "030 7654321",
 "address": {"streetAddress": "Ringweg 5", "addressLocality": "Berlin"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer dirSrv.Close()

	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"lat": "52.5200", "lon": "13.4050"}]`)
	}))
	defer geoSrv.Close()

	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.CreateArea(ctx, model.Area{
		Name:   "Berlin Mitte",
		City:   "Berlin",
		Bounds: model.BoundingBox{North: 53, South: 52, East: 14, West: 13},
	})
	require.NoError(t, err)

	scanner := newTestScanner(t, st, dirSrv.URL, geoSrv.URL)
	result, err := scanner.ScanCity(ctx, []string{"Teststrasse", "Ringweg"}, "Berlin", "nord")
	require.NoError(t, err)

	assert.Equal(t, 2, result.StreetsScanned)
	assert.Equal(t, 2, result.LeadsFound)
	assert.Equal(t, 2, result.LeadsCreated)
	assert.Equal(t, 2, result.Geocoded)
	assert.Equal(t, 2, result.AreasAssigned)

	leads, err := st.ListLeads(ctx, store.LeadFilter{Division: "nord"})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	for _, l := range leads {
		assert.Equal(t, "nord", l.Division)
		require.NotNil(t, l.Coordinates)
		require.NotNil(t, l.AreaID)
	}
}

func TestScanCity_SkipsKnownLeads(t *testing.T) {
	dirSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, directoryPage(`
{"@type": "Bakery", "name": "Bäckerei Schmidt", "telephone": "030 1234567",
 "address": {"streetAddress": "Teststrasse 12", "addressLocality": "Berlin"}}`))
	}))
	defer dirSrv.Close()

	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer geoSrv.Close()

	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.CreateLead(ctx, model.Lead{
		Company:    "Bäckerei Schmidt",
		Street:     "Teststrasse 12",
		City:       "Berlin",
		Division:   "nord",
		Status:     model.LeadStatusNew,
		PoolStatus: model.PoolStatusInPool,
	})
	require.NoError(t, err)

	scanner := newTestScanner(t, st, dirSrv.URL, geoSrv.URL)
	result, err := scanner.ScanCity(ctx, []string{"Teststrasse"}, "Berlin", "nord")
	require.NoError(t, err)

	assert.Equal(t, 1, result.LeadsFound)
	assert.Zero(t, result.LeadsCreated)

	leads, err := st.ListLeads(ctx, store.LeadFilter{Division: "nord"})
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}

func TestScanCity_FailedStreetDoesNotEndScan(t *testing.T) {
	dirSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Ringweg/Berlin.htm" {
			fmt.Fprint(w, directoryPage(`
{"@type": "AutoRepair", "name": "Autohaus Nord", "telephone": "030 7654321",
 "address": {"streetAddress": "Ringweg 5", "addressLocality": "Berlin"}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer dirSrv.Close()

	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer geoSrv.Close()

	st := newTestStore(t)
	scanner := newTestScanner(t, st, dirSrv.URL, geoSrv.URL)
	result, err := scanner.ScanCity(context.Background(), []string{"Totestrasse", "Ringweg"}, "Berlin", "nord")
	require.NoError(t, err)

	assert.Equal(t, 2, result.StreetsScanned)
	assert.Equal(t, 1, result.LeadsCreated)
}

func TestGeocodeLeads_OnlyFillsMissing(t *testing.T) {
	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"lat": "52.5200", "lon": "13.4050"}]`)
	}))
	defer geoSrv.Close()

	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.CreateLead(ctx, model.Lead{
		Company: "A", Street: "Hauptstraße 1", City: "Berlin", Division: "nord",
		Status: model.LeadStatusNew, PoolStatus: model.PoolStatusInPool,
	})
	require.NoError(t, err)
	_, err = st.CreateLead(ctx, model.Lead{
		Company: "B", Street: "Hauptstraße 2", City: "Berlin", Division: "nord",
		Status: model.LeadStatusNew, PoolStatus: model.PoolStatusInPool,
		Coordinates: &model.Coordinates{Lat: 50, Lon: 10},
	})
	require.NoError(t, err)

	scanner := newTestScanner(t, st, "http://unused.invalid", geoSrv.URL)
	resolved, err := scanner.GeocodeLeads(ctx, "nord")
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
}

func TestStoreCache_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	cache := NewStoreCache(st)

	got, err := cache.Get(ctx, "Hauptstraße", "12", "Berlin")
	require.NoError(t, err)
	assert.Nil(t, got)

	addr := geocode.Address{Street: "Hauptstraße", HouseNumber: "12", PostalCode: "10115", City: "Berlin"}
	require.NoError(t, cache.Upsert(ctx, addr, geocode.Coordinates{Lat: 52.52, Lon: 13.405}))

	got, err = cache.Get(ctx, "Hauptstraße", "12", "Berlin")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 52.52, got.Lat, 0.0001)
	assert.InDelta(t, 13.405, got.Lon, 0.0001)
}
