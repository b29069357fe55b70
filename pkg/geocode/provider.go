package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-pipeline/internal/resilience"
)

// searchHit is one candidate in the provider's response. Coordinates arrive
// as decimal strings.
type searchHit struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// lookup queries the provider with the composed free-text address and returns
// the first candidate, or nil when there is none.
func (r *Resolver) lookup(ctx context.Context, addr Address) (*Coordinates, error) {
	q := composeQuery(addr, r.country)

	endpoint := fmt.Sprintf("%s/search?format=json&limit=1&q=%s",
		strings.TrimSuffix(r.baseURL, "/"), url.QueryEscape(q))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: create request")
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var hits []searchHit
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, eris.Wrap(err, "geocode: decode response")
	}
	if len(hits) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: parse lat")
	}
	lon, err := strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: parse lon")
	}
	return &Coordinates{Lat: lat, Lon: lon}, nil
}

// composeQuery builds the single free-text address string sent to the
// provider: street, number, postal code, city, country.
func composeQuery(addr Address, country string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(addr.Street))
	if addr.HouseNumber != "" {
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(addr.HouseNumber))
	}
	if addr.PostalCode != "" || addr.City != "" {
		b.WriteString(", ")
		b.WriteString(strings.TrimSpace(strings.TrimSpace(addr.PostalCode) + " " + strings.TrimSpace(addr.City)))
	}
	if country != "" {
		b.WriteString(", ")
		b.WriteString(country)
	}
	return b.String()
}
