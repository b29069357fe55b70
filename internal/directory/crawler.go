// Package directory crawls a public business-directory site street by street
// and turns its embedded structured-data blocks into lead candidates.
package directory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/dedup"
	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/resilience"
)

const (
	// DefaultPageDelay is the politeness pause between successive pages of
	// one street.
	DefaultPageDelay = 800 * time.Millisecond

	// DefaultMaxPages bounds pagination per street.
	DefaultMaxPages = 50
)

// Page is the outcome of fetching one directory page.
type Page struct {
	Leads       []model.Lead
	HasNextPage bool
}

// Progress reports scan state; Fetched is false before a page request and
// true once the page has been processed.
type Progress struct {
	Street    string
	Page      int
	Collected int
	Fetched   bool
}

// PageError is a retryable failure fetching one directory page. End-of-data
// statuses (404, 410) are not errors and never produce one.
type PageError struct {
	URL        string
	StatusCode int
}

func (e *PageError) Error() string {
	return fmt.Sprintf("directory: page fetch %s: status %d", e.URL, e.StatusCode)
}

// Crawler fetches directory pages through an optional CORS relay.
type Crawler struct {
	client        *http.Client
	baseURL       string
	relay         string
	fallbackRelay string
	userAgent     string
	pageDelay     time.Duration
	maxPages      int
	retry         resilience.RetryConfig
}

// Option configures the Crawler.
type Option func(*Crawler)

// WithBaseURL overrides the directory root.
func WithBaseURL(u string) Option { return func(c *Crawler) { c.baseURL = u } }

// WithRelays sets the primary and fallback CORS relays. Empty strings mean
// direct fetches.
func WithRelays(primary, fallback string) Option {
	return func(c *Crawler) {
		c.relay = primary
		c.fallbackRelay = fallback
	}
}

// WithPageDelay overrides the inter-page pause.
func WithPageDelay(d time.Duration) Option { return func(c *Crawler) { c.pageDelay = d } }

// WithMaxPages overrides the per-street page cap.
func WithMaxPages(n int) Option { return func(c *Crawler) { c.maxPages = n } }

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Crawler) { c.client = hc } }

// WithRetry overrides the per-page retry policy.
func WithRetry(cfg resilience.RetryConfig) Option { return func(c *Crawler) { c.retry = cfg } }

// NewCrawler creates a Crawler with bounded timeouts and default pacing.
func NewCrawler(opts ...Option) *Crawler {
	c := &Crawler{
		client: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		baseURL:   DefaultBaseURL,
		userAgent: "Mozilla/5.0 (compatible; LeadPipelineBot/1.0)",
		pageDelay: DefaultPageDelay,
		maxPages:  DefaultMaxPages,
		retry:     resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage fetches one directory page for a street/city search. 404 and 410
// are the directory's end-of-results signal and yield an empty page; any
// other non-2xx status is a retryable PageError.
func (c *Crawler) FetchPage(ctx context.Context, street, city string, page int) (*Page, error) {
	pageURL := BuildStreetURL(c.baseURL, street, city, page)

	body, status, err := c.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound || status == http.StatusGone {
		return &Page{HasNextPage: false}, nil
	}
	if status < 200 || status > 299 {
		return nil, resilience.NewTransientError(&PageError{URL: pageURL, StatusCode: status}, status)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "directory: parse page")
	}

	if isNoResultsPage(doc) {
		return &Page{HasNextPage: false}, nil
	}

	var leads []model.Lead
	for _, e := range ExtractEntities(doc) {
		if lead := ClassifyEntity(e, street, city); lead != nil {
			leads = append(leads, *lead)
		}
	}

	return &Page{
		Leads:       leads,
		HasNextPage: hasNextPage(doc, page),
	}, nil
}

// fetch issues the GET through the primary relay, falling back to the
// secondary relay on transport failure.
func (c *Crawler) fetch(ctx context.Context, pageURL string) ([]byte, int, error) {
	body, status, err := c.get(ctx, WrapProxy(c.relay, pageURL))
	if err != nil && c.fallbackRelay != "" {
		zap.L().Debug("primary relay failed, trying fallback",
			zap.String("url", pageURL), zap.Error(err))
		body, status, err = c.get(ctx, WrapProxy(c.fallbackRelay, pageURL))
	}
	if err != nil {
		return nil, 0, eris.Wrap(err, "directory: fetch")
	}
	return body, status, nil
}

func (c *Crawler) get(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "directory: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, 0, eris.Wrap(err, "directory: read body")
	}
	return body, resp.StatusCode, nil
}

// noResultsMarkers are the directory's "nothing found" / error-page phrasings.
var noResultsMarkers = []string{
	"leider keine treffer",
	"keine treffer gefunden",
	"es wurden keine einträge gefunden",
	"fehler ist aufgetreten",
}

func isNoResultsPage(doc *goquery.Document) bool {
	text := strings.ToLower(doc.Text())
	for _, m := range noResultsMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// nextPageLabels are the known phrasings of the pagination control. The page
// format is not under our control, so every heuristic stays; no single one is
// reliable in isolation.
var nextPageLabels = []string{
	"nächste seite",
	"naechste seite",
	"weitere treffer",
	"weiter",
}

// hasNextPage ORs three heuristics: a link to page+1, a next-page label, and
// a rel=next marker.
func hasNextPage(doc *goquery.Document, page int) bool {
	nextSuffix := fmt.Sprintf("-Seite-%d", page+1)

	linkToNext := false
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if href, ok := sel.Attr("href"); ok && strings.Contains(href, nextSuffix) {
			linkToNext = true
			return false
		}
		return true
	})
	if linkToNext {
		return true
	}

	text := strings.ToLower(doc.Text())
	for _, label := range nextPageLabels {
		if strings.Contains(text, label) {
			return true
		}
	}

	return doc.Find(`a[rel="next"], link[rel="next"]`).Length() > 0
}

// FetchStreetLeads pages through one street's results: pages are fetched
// strictly in order with the politeness delay between them, failures after
// retries end the street rather than propagate, and cancellation between
// pages keeps what was already collected. The result is key-deduplicated.
func (c *Crawler) FetchStreetLeads(ctx context.Context, street, city string, onProgress func(Progress)) []model.Lead {
	log := zap.L().With(zap.String("street", street), zap.String("city", city))

	var collected []model.Lead
	for page := 1; page <= c.maxPages; page++ {
		if onProgress != nil {
			onProgress(Progress{Street: street, Page: page, Collected: len(collected)})
		}

		retry := c.retry
		if retry.OnRetry == nil {
			retry.OnRetry = resilience.RetryLogger("directory", "fetch_page")
		}
		result, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*Page, error) {
			return c.FetchPage(ctx, street, city, page)
		})
		if err != nil {
			// A dead page ends the street; the surrounding scan carries on.
			log.Warn("page fetch failed, ending street", zap.Int("page", page), zap.Error(err))
			break
		}

		collected = append(collected, result.Leads...)
		if onProgress != nil {
			onProgress(Progress{Street: street, Page: page, Collected: len(collected), Fetched: true})
		}

		if len(result.Leads) == 0 || !result.HasNextPage {
			break
		}

		timer := time.NewTimer(c.pageDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("street scan cancelled", zap.Int("pages_fetched", page), zap.Int("collected", len(collected)))
			return dedup.DedupeBatch(collected)
		case <-timer.C:
		}
	}

	return dedup.DedupeBatch(collected)
}
