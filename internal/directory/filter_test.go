package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-pipeline/internal/model"
)

func TestClassifyEntity_Business(t *testing.T) {
	e := Entity{
		Types:      []string{"LocalBusiness", "Bakery"},
		Name:       "Bäckerei Schmidt",
		Telephone:  "030 1234567",
		Email:      "info@schmidt.de",
		URL:        "https://www.baeckerei-schmidt.de",
		Street:     "Hauptstraße 12a",
		PostalCode: "10115",
		City:       "Berlin",
		PriceRange: "€€",
		Category:   "Bäckerei",
	}

	l := ClassifyEntity(e, "Hauptstraße", "Berlin")
	require.NotNil(t, l)
	assert.Equal(t, "Bäckerei Schmidt", l.Company)
	assert.Equal(t, "Hauptstraße 12", l.Street)
	assert.Equal(t, "10115", l.PostalCode)
	assert.Equal(t, "Berlin", l.City)
	assert.Equal(t, "030 1234567", l.Phone)
	assert.Equal(t, "https://www.baeckerei-schmidt.de", l.Website)
	assert.Equal(t, "Bakery", l.Industry)
	assert.Equal(t, "Bäckerei · Preisniveau: €€", l.Notes)
	assert.Equal(t, model.LeadStatusNew, l.Status)
	assert.Equal(t, model.PoolStatusInPool, l.PoolStatus)
	assert.Equal(t, "directory", l.Source)
	assert.False(t, l.Verified)
}

func TestClassifyEntity_RejectsPerson(t *testing.T) {
	e := Entity{Types: []string{"Person"}, Name: "Max Mustermann", Telephone: "030 1234567"}
	assert.Nil(t, ClassifyEntity(e, "Hauptstraße", "Berlin"))
}

func TestClassifyEntity_RejectsNameless(t *testing.T) {
	e := Entity{Types: []string{"LocalBusiness"}}
	assert.Nil(t, ClassifyEntity(e, "Hauptstraße", "Berlin"))
}

func TestClassifyEntity_RejectsCityMismatch(t *testing.T) {
	e := Entity{Types: []string{"LocalBusiness"}, Name: "Autohaus Nord", City: "Potsdam"}
	assert.Nil(t, ClassifyEntity(e, "Hauptstraße", "Berlin"))
}

func TestClassifyEntity_PhoneAloneQualifies(t *testing.T) {
	// No recognized business type, but a telephone still qualifies.
	e := Entity{Types: []string{"Thing"}, Name: "Kiosk Ecke", Telephone: "030 7654321"}
	l := ClassifyEntity(e, "Hauptstraße", "Berlin")
	require.NotNil(t, l)
	assert.Equal(t, "030 7654321", l.Phone)
}

func TestClassifyEntity_NoTypeNoPhoneRejected(t *testing.T) {
	e := Entity{Types: []string{"Thing"}, Name: "Irgendwas"}
	assert.Nil(t, ClassifyEntity(e, "Hauptstraße", "Berlin"))
}

func TestValidPhone(t *testing.T) {
	assert.Equal(t, "030 / 123 45 67", validPhone("030 / 123 45 67"))
	assert.Equal(t, "+49 (30) 1234567", validPhone("+49 (30) 1234567"))
	assert.Equal(t, "", validPhone("123456"))        // too few digits
	assert.Equal(t, "", validPhone("call 0301234567")) // letters
	assert.Equal(t, "", validPhone(""))
}

func TestCompanyWebsite_DropsDirectoryFamily(t *testing.T) {
	assert.Equal(t, "", companyWebsite("https://www.dasoertliche.de/gw/123"))
	assert.Equal(t, "", companyWebsite("https://www.gelbeseiten.de/firma"))
	assert.Equal(t, "https://schmidt.de", companyWebsite("https://schmidt.de"))
	assert.Equal(t, "", companyWebsite(""))
}

func TestLeadStreet(t *testing.T) {
	assert.Equal(t, "Hauptstraße 12", leadStreet("Hauptstraße", "Hauptstr. 12a"))
	assert.Equal(t, "Hauptstraße", leadStreet("Hauptstraße", "Hauptstraße"))
	assert.Equal(t, "Hauptstraße", leadStreet("Hauptstraße", ""))
}
