package directory

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Entity is one schema.org structured-data record pulled from a directory
// page. Fields the page omits stay empty.
type Entity struct {
	Types       []string
	Name        string
	Telephone   string
	Email       string
	URL         string
	Description string
	Category    string
	Slogan      string
	Cuisine     string
	PriceRange  string
	Street      string
	PostalCode  string
	City        string
}

// ExtractEntities pulls every entity from the page's ld+json blocks. A block
// may hold a single object or a list; malformed blocks are skipped
// individually so one bad payload does not discard the rest of the page.
func ExtractEntities(doc *goquery.Document) []Entity {
	var entities []Entity
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}

		var payload any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			zap.L().Debug("skipping malformed ld+json block", zap.Error(err))
			return
		}

		switch v := payload.(type) {
		case map[string]any:
			entities = append(entities, entityFromMap(v))
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					entities = append(entities, entityFromMap(m))
				}
			}
		}
	})
	return entities
}

func entityFromMap(m map[string]any) Entity {
	e := Entity{
		Types:       stringList(m["@type"]),
		Name:        str(m["name"]),
		Telephone:   str(m["telephone"]),
		Email:       str(m["email"]),
		URL:         str(m["url"]),
		Description: str(m["description"]),
		Category:    str(m["category"]),
		Slogan:      str(m["slogan"]),
		Cuisine:     str(m["servesCuisine"]),
		PriceRange:  str(m["priceRange"]),
	}
	if addr, ok := m["address"].(map[string]any); ok {
		e.Street = str(addr["streetAddress"])
		e.PostalCode = str(addr["postalCode"])
		e.City = str(addr["addressLocality"])
	} else if s := str(m["address"]); s != "" {
		e.Street = s
	}
	return e
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
