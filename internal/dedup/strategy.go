// Package dedup implements the two lead deduplication strategies: an exact
// normalized-key match used within a freshly crawled batch, and a fuzzy
// cross-dataset match used when merging candidates against persisted leads.
package dedup

import (
	"strings"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// Strategy decides whether two leads refer to the same business.
type Strategy interface {
	Same(a, b model.Lead) bool
}

// ExactKey matches leads whose normalized address and phone collide. It is the
// in-batch strategy: cheap, order-preserving, first occurrence wins.
type ExactKey struct{}

// Key returns the dedup key normalizedAddress|normalizedPhone.
func (ExactKey) Key(l model.Lead) string {
	return NormalizeAddress(l.Street, l.City) + "|" + NormalizePhoneNumber(l.Phone)
}

func (e ExactKey) Same(a, b model.Lead) bool {
	return e.Key(a) == e.Key(b)
}

// DedupeBatch collapses a crawled batch by exact key in a single pass,
// preserving order. The first occurrence of each key wins.
func DedupeBatch(leads []model.Lead) []model.Lead {
	var key ExactKey
	seen := make(map[string]struct{}, len(leads))
	out := make([]model.Lead, 0, len(leads))
	for _, l := range leads {
		k := key.Key(l)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, l)
	}
	return out
}

// Fuzzy matches a candidate against persisted leads. Two leads are the same
// business if their emails match, or their normalized names and addresses
// match, or their addresses match and one normalized name contains the other.
type Fuzzy struct{}

func (Fuzzy) Same(a, b model.Lead) bool {
	// Rule 1: equal non-empty emails settle it regardless of name/address.
	ea := strings.ToLower(strings.TrimSpace(a.Email))
	eb := strings.ToLower(strings.TrimSpace(b.Email))
	if ea != "" && ea == eb {
		return true
	}

	// City gates rules 2 and 3 only when both sides provide one.
	ca := strings.ToLower(strings.TrimSpace(a.City))
	cb := strings.ToLower(strings.TrimSpace(b.City))
	if ca != "" && cb != "" && ca != cb {
		return false
	}

	if !sameStreetAddress(a.Street, b.Street) {
		return false
	}

	na := NormalizeCompanyName(a.Company)
	nb := NormalizeCompanyName(b.Company)

	// Rule 2: same normalized name at the same address.
	if na != "" && na == nb {
		return true
	}

	// Rule 3: same address and one name contains the other, both non-trivial.
	if len(na) > 3 && len(nb) > 3 &&
		(strings.Contains(na, nb) || strings.Contains(nb, na)) {
		return true
	}

	return false
}

// sameStreetAddress compares street name plus extracted house number,
// independent of city.
func sameStreetAddress(a, b string) bool {
	an, ah := SplitStreet(a)
	bn, bh := SplitStreet(b)
	return NormalizeStreetName(an) == NormalizeStreetName(bn) &&
		HouseNumberDigits(ah) == HouseNumberDigits(bh)
}

// FilterNew returns the candidates that match no existing lead under the given
// strategy, preserving candidate order.
func FilterNew(candidates, existing []model.Lead, s Strategy) []model.Lead {
	out := make([]model.Lead, 0, len(candidates))
	for _, c := range candidates {
		dup := false
		for _, e := range existing {
			if s.Same(c, e) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}
