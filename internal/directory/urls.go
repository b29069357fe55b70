package directory

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultBaseURL is the directory root under which street pages live.
const DefaultBaseURL = "https://www.dasoertliche.de/Themen"

var whitespaceRe = regexp.MustCompile(`\s+`)

// encodeStreet converts a street name into the directory's path segment form:
// quotes stripped, slashes become hyphens, existing hyphens are doubled, and
// whitespace runs collapse to single hyphens.
func encodeStreet(street string) string {
	s := strings.NewReplacer(`"`, "", "'", "", "’", "").Replace(street)
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "-", "--")
	s = whitespaceRe.ReplaceAllString(strings.TrimSpace(s), "-")
	return s
}

// BuildStreetURL returns the directory page URL for a street/city search.
// Page numbers are 1-based; page 1 has no suffix, page n ≥ 2 appends
// "-Seite-n" before the extension.
func BuildStreetURL(baseURL, street, city string, page int) string {
	citySeg := whitespaceRe.ReplaceAllString(strings.TrimSpace(city), "-")
	base := fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(baseURL, "/"), encodeStreet(street), citySeg)
	if page >= 2 {
		return fmt.Sprintf("%s-Seite-%d.htm", base, page)
	}
	return base + ".htm"
}

// WrapProxy rewrites target through a CORS-bypass relay that takes the
// destination as a url query parameter. An empty relay returns target as is.
func WrapProxy(relay, target string) string {
	if relay == "" {
		return target
	}
	sep := "?"
	if strings.Contains(relay, "?") {
		sep = "&"
	}
	return relay + sep + "url=" + url.QueryEscape(target)
}
