// Package geocode resolves street addresses to coordinates through a
// Nominatim-style provider, consulting a persistent cache first.
package geocode

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-pipeline/internal/resilience"
)

// Address identifies one location to resolve.
type Address struct {
	Street      string
	HouseNumber string
	PostalCode  string
	City        string
}

// Coordinates is a resolved WGS84 point.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Cache is the persistent address→coordinate store. Lookups key on
// (street, house number, city); writes key on the full composite including
// postal code, last write wins. Entries are never deleted.
type Cache interface {
	Get(ctx context.Context, street, houseNumber, city string) (*Coordinates, error)
	Upsert(ctx context.Context, addr Address, coord Coordinates) error
}

// Resolver is a cache-first geocoding client.
type Resolver struct {
	client    *http.Client
	cache     Cache
	baseURL   string
	userAgent string
	country   string
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(u string) Option { return func(r *Resolver) { r.baseURL = u } }

// WithUserAgent sets the identifying client header the provider requires.
func WithUserAgent(ua string) Option { return func(r *Resolver) { r.userAgent = ua } }

// WithCountry sets the country appended to composed address queries.
func WithCountry(c string) Option { return func(r *Resolver) { r.country = c } }

// WithRateLimit sets the provider requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(r *Resolver) { r.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option { return func(r *Resolver) { r.client = hc } }

// NewResolver creates a Resolver backed by the given cache.
func NewResolver(cache Cache, opts ...Option) *Resolver {
	r := &Resolver{
		client:    &http.Client{Timeout: 15 * time.Second},
		cache:     cache,
		baseURL:   "https://nominatim.openstreetmap.org",
		userAgent: "lead-pipeline/1.0 (sales-crm geocoder)",
		country:   "Deutschland",
		limiter:   rate.NewLimiter(1, 1), // provider policy: 1 req/s
		retry:     resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns coordinates for the address, or nil when the provider has
// no match or is unreachable; the caller persists the lead without
// coordinates and moves on. A cache hit never touches the network.
func (r *Resolver) Resolve(ctx context.Context, addr Address) (*Coordinates, error) {
	if cached, err := r.cache.Get(ctx, addr.Street, addr.HouseNumber, addr.City); err != nil {
		zap.L().Warn("geocode cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	retry := r.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("geocode", "lookup")
	}
	coord, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*Coordinates, error) {
		return r.lookup(ctx, addr)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		zap.L().Warn("geocode lookup failed",
			zap.String("street", addr.Street),
			zap.String("city", addr.City),
			zap.Error(err),
		)
		return nil, nil
	}
	if coord == nil {
		return nil, nil
	}

	if err := r.cache.Upsert(ctx, addr, *coord); err != nil {
		zap.L().Warn("geocode cache write failed", zap.Error(err))
	}
	return coord, nil
}
