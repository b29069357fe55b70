package directory

import (
	"regexp"
	"strings"

	"github.com/sells-group/lead-pipeline/internal/dedup"
	"github.com/sells-group/lead-pipeline/internal/model"
)

// businessTypeKeywords accepts an entity when any of its type tags contains
// one of these fragments, case-insensitive. The list mirrors the schema.org
// types the directory actually emits for commercial entries.
var businessTypeKeywords = []string{
	"business",
	"organization",
	"restaurant",
	"store",
	"shop",
	"clinic",
	"hospital",
	"physician",
	"dentist",
	"pharmacy",
	"bank",
	"school",
	"hotel",
	"bakery",
	"cafe",
	"barorpub",
	"foodestablishment",
	"hairsalon",
	"beautysalon",
	"electrician",
	"plumber",
	"roofingcontractor",
	"generalcontractor",
	"housepainter",
	"locksmith",
	"autorepair",
	"autodealer",
	"gasstation",
	"insuranceagency",
	"realestateagent",
	"travelagency",
	"attorney",
	"notary",
	"accountingservice",
	"veterinarycare",
	"sportsactivitylocation",
	"exercisegym",
	"dryclean",
	"florist",
	"furniture",
	"jewelry",
}

// directoryHosts are the directory itself and its sibling sites; websites
// pointing back at them are listing pages, not company sites.
var directoryHosts = []string{
	"dasoertliche.de",
	"dastelefonbuch.de",
	"gelbeseiten.de",
	"11880.com",
	"oertliche.de",
}

var (
	phoneCharsRe = regexp.MustCompile(`^[\d\s()+/.\-]+$`)
	phoneDigitRe = regexp.MustCompile(`\d`)
)

// ClassifyEntity turns one structured-data entity into a lead candidate, or
// nil when the entity is not a harvestable business. street and city are the
// search inputs; the street name combines with the entity's house number and
// the city validates the entity's declared locality.
func ClassifyEntity(e Entity, street, city string) *model.Lead {
	if e.Name == "" {
		return nil
	}

	// Never harvest private individuals.
	for _, t := range e.Types {
		if strings.Contains(strings.ToLower(t), "person") {
			return nil
		}
	}

	if !isBusinessType(e.Types) && e.Telephone == "" {
		return nil
	}

	// The directory sometimes returns near-matches from neighboring towns.
	if e.City != "" && !strings.EqualFold(strings.TrimSpace(e.City), strings.TrimSpace(city)) {
		return nil
	}

	lead := model.Lead{
		Company:    e.Name,
		Street:     leadStreet(street, e.Street),
		PostalCode: e.PostalCode,
		City:       city,
		Phone:      validPhone(e.Telephone),
		Email:      e.Email,
		Website:    companyWebsite(e.URL),
		Industry:   industry(e.Types),
		Notes:      description(e),
		Status:     model.LeadStatusNew,
		PoolStatus: model.PoolStatusInPool,
		Source:     "directory",
		Verified:   false,
	}
	return &lead
}

func isBusinessType(types []string) bool {
	for _, t := range types {
		lt := strings.ToLower(t)
		for _, kw := range businessTypeKeywords {
			if strings.Contains(lt, kw) {
				return true
			}
		}
	}
	return false
}

// validPhone returns the phone if it looks like one: only phone characters
// and at least 7 significant digits. Anything else becomes empty, never an
// invented value.
func validPhone(phone string) string {
	p := strings.TrimSpace(phone)
	if p == "" || !phoneCharsRe.MatchString(p) {
		return ""
	}
	if len(phoneDigitRe.FindAllString(p, -1)) < 7 {
		return ""
	}
	return p
}

// companyWebsite drops URLs that point back at the directory family.
func companyWebsite(rawURL string) string {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return ""
	}
	lower := strings.ToLower(u)
	for _, host := range directoryHosts {
		if strings.Contains(lower, host) {
			return ""
		}
	}
	return u
}

// leadStreet joins the searched street name with the first numeric token of
// the entity's address line.
func leadStreet(searchedStreet, entityAddress string) string {
	_, houseNumber := dedup.SplitStreet(entityAddress)
	num := dedup.HouseNumberDigits(houseNumber)
	if num == "" {
		return searchedStreet
	}
	return searchedStreet + " " + num
}

// description picks the best available text and appends a price-range note.
func description(e Entity) string {
	var d string
	for _, candidate := range []string{e.Description, e.Category, e.Slogan, e.Cuisine} {
		if candidate != "" {
			d = candidate
			break
		}
	}
	if e.PriceRange != "" {
		if d != "" {
			d += " · "
		}
		d += "Preisniveau: " + e.PriceRange
	}
	return d
}

// industry joins the entity's type tags, minus the generic LocalBusiness label.
func industry(types []string) string {
	var kept []string
	for _, t := range types {
		if strings.EqualFold(t, "LocalBusiness") {
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, ", ")
}
