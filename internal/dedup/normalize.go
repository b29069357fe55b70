package dedup

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonDigitRe      = regexp.MustCompile(`\D`)
	digitsRe        = regexp.MustCompile(`\d+`)
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	punctuationRe   = regexp.MustCompile(`[^a-z0-9& ]+`)
	spacesRe        = regexp.MustCompile(`\s+`)

	// Legal-form suffixes stripped from company names. Diacritics are folded
	// before this runs, hence "haftungsbeschrankt".
	legalFormRe = regexp.MustCompile(`\b(gmbh|kg|ug|e ?v|e ?k|inc|ltd|haftungsbeschrankt|haftungsbeschr)\b|& ?co\b`)

	streetFoldRe = regexp.MustCompile(`stra(ß|ss)e`)
)

// NormalizePhoneNumber strips formatting and rewrites a leading German
// country prefix to the domestic leading zero.
func NormalizePhoneNumber(phone string) string {
	d := nonDigitRe.ReplaceAllString(phone, "")
	switch {
	case strings.HasPrefix(d, "0049"):
		return "0" + d[4:]
	case strings.HasPrefix(d, "49") && len(d) > 4:
		return "0" + d[2:]
	}
	return d
}

// NormalizeStreetName lowercases a street name, folds straße/strasse to "str",
// and strips periods and surplus whitespace. The house number, if present,
// should be removed by the caller first.
func NormalizeStreetName(street string) string {
	s := strings.ToLower(strings.TrimSpace(street))
	s = streetFoldRe.ReplaceAllString(s, "str")
	s = strings.ReplaceAll(s, ".", "")
	return spacesRe.ReplaceAllString(s, " ")
}

// SplitStreet separates a street line into its name and house-number parts.
// The house number is everything from the first digit onward.
func SplitStreet(streetLine string) (name, houseNumber string) {
	loc := digitsRe.FindStringIndex(streetLine)
	if loc == nil {
		return strings.TrimSpace(streetLine), ""
	}
	return strings.TrimSpace(streetLine[:loc[0]]), strings.TrimSpace(streetLine[loc[0]:])
}

// HouseNumberDigits extracts the numeric part of a house number ("5a" → "5").
func HouseNumberDigits(houseNumber string) string {
	return digitsRe.FindString(houseNumber)
}

// NormalizeAddress builds the canonical address key
// normalizedStreet|houseDigits|normalizedCity from a street line and city.
func NormalizeAddress(streetLine, city string) string {
	name, num := SplitStreet(streetLine)
	return NormalizeStreetName(name) + "|" + HouseNumberDigits(num) + "|" + strings.ToLower(strings.TrimSpace(city))
}

var diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeCompanyName reduces a company name to a comparable core: diacritics
// folded, lowercased, parenthetical segments and legal-form suffixes removed,
// punctuation stripped, whitespace collapsed.
func NormalizeCompanyName(name string) string {
	s, _, err := transform.String(diacriticFold, name)
	if err != nil {
		s = name
	}
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "ß", "ss") // not a combining mark, NFD leaves it
	s = parentheticalRe.ReplaceAllString(s, " ")
	s = punctuationRe.ReplaceAllString(s, " ")
	s = legalFormRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&", " ")
	return strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
}
