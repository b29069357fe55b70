package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-pipeline/internal/resilience"
)

const pageWithTwoEntities = `<html><body>
<script type="application/ld+json">
[
  {"@type": ["LocalBusiness", "Bakery"], "name": "Bäckerei Schmidt",
   "telephone": "030 1234567",
   "address": {"streetAddress": "Teststrasse 12", "postalCode": "10115", "addressLocality": "Berlin"}},
  {"@type": "Person", "name": "Max Mustermann"}
]
</script>
<script type="application/ld+json">
{"@type": "AutoRepair", "name": "Autohaus Nord", "telephone": "030 7654321",
 "address": {"streetAddress": "Teststrasse 5", "addressLocality": "Berlin"}}
</script>
%s
</body></html>`

func testCrawler(baseURL string, opts ...Option) *Crawler {
	fast := resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
	all := append([]Option{
		WithBaseURL(baseURL),
		WithPageDelay(time.Millisecond),
		WithRetry(fast),
	}, opts...)
	return NewCrawler(all...)
}

func TestFetchPage_ParsesEntities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, pageWithTwoEntities, "")
	}))
	defer srv.Close()

	c := testCrawler(srv.URL)
	page, err := c.FetchPage(context.Background(), "Teststrasse", "Berlin", 1)
	require.NoError(t, err)
	require.Len(t, page.Leads, 2)
	assert.Equal(t, "Bäckerei Schmidt", page.Leads[0].Company)
	assert.Equal(t, "Teststrasse 12", page.Leads[0].Street)
	assert.Equal(t, "Autohaus Nord", page.Leads[1].Company)
	assert.False(t, page.HasNextPage)
}

func TestFetchPage_NextPageLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, pageWithTwoEntities, `<a href="/Teststrasse/Berlin-Seite-2.htm">2</a>`)
	}))
	defer srv.Close()

	c := testCrawler(srv.URL)
	page, err := c.FetchPage(context.Background(), "Teststrasse", "Berlin", 1)
	require.NoError(t, err)
	assert.True(t, page.HasNextPage)
}

func TestFetchPage_NotFoundEndsStreet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testCrawler(srv.URL)
	page, err := c.FetchPage(context.Background(), "Teststrasse", "Berlin", 1)
	require.NoError(t, err)
	assert.Empty(t, page.Leads)
	assert.False(t, page.HasNextPage)
}

func TestFetchPage_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testCrawler(srv.URL)
	_, err := c.FetchPage(context.Background(), "Teststrasse", "Berlin", 1)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestFetchPage_NoResultsMarker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>Leider keine Treffer gefunden.</body></html>`)
	}))
	defer srv.Close()

	c := testCrawler(srv.URL)
	page, err := c.FetchPage(context.Background(), "Teststrasse", "Berlin", 1)
	require.NoError(t, err)
	assert.Empty(t, page.Leads)
	assert.False(t, page.HasNextPage)
}

func TestFetchStreetLeads_Paginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Teststrasse/Berlin.htm":
			fmt.Fprintf(w, pageWithTwoEntities, `<a href="/Teststrasse/Berlin-Seite-2.htm">2</a>`)
		case "/Teststrasse/Berlin-Seite-2.htm":
			fmt.Fprint(w, `<html><body>
<script type="application/ld+json">
{"@type": "LocalBusiness", "name": "Florist Rosenrot", "telephone": "030 5555555",
 "address": {"streetAddress": "Teststrasse 7", "addressLocality": "Berlin"}}
</script>
</body></html>`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := testCrawler(srv.URL)

	var pages []int
	leads := c.FetchStreetLeads(context.Background(), "Teststrasse", "Berlin", func(p Progress) {
		if p.Fetched {
			pages = append(pages, p.Page)
		}
	})

	assert.Equal(t, []int{1, 2}, pages)
	require.Len(t, leads, 3)
	assert.Equal(t, "Florist Rosenrot", leads[2].Company)
}

func TestFetchStreetLeads_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, pageWithTwoEntities, "")
	}))
	defer srv.Close()

	c := testCrawler(srv.URL)
	leads := c.FetchStreetLeads(context.Background(), "Teststrasse", "Berlin", nil)
	assert.Len(t, leads, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchStreetLeads_PersistentFailureKeepsEarlierPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Teststrasse/Berlin.htm" {
			fmt.Fprintf(w, pageWithTwoEntities, `<a href="/Teststrasse/Berlin-Seite-2.htm">2</a>`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testCrawler(srv.URL)
	leads := c.FetchStreetLeads(context.Background(), "Teststrasse", "Berlin", nil)
	// Page 2 fails even after retries; page 1's leads survive.
	assert.Len(t, leads, 2)
}

func TestFetchPage_ViaRelay(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer target.Close()

	var relayHits atomic.Int32
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		relayHits.Add(1)
		assert.NotEmpty(t, r.URL.Query().Get("url"))
		fmt.Fprintf(w, pageWithTwoEntities, "")
	}))
	defer relay.Close()

	c := testCrawler(target.URL, WithRelays(relay.URL, ""))
	page, err := c.FetchPage(context.Background(), "Teststrasse", "Berlin", 1)
	require.NoError(t, err)
	assert.Len(t, page.Leads, 2)
	assert.Equal(t, int32(1), relayHits.Load())
}
