package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+49 (30) 1234567", "0301234567"},
		{"0049 30 1234567", "0301234567"},
		{"030 / 12 34 56 7", "0301234567"},
		{"0301234567", "0301234567"},
		{"", ""},
		{"no digits", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhoneNumber(tt.in), "input %q", tt.in)
	}
}

func TestNormalizePhoneNumber_VariantsCollapse(t *testing.T) {
	a := NormalizePhoneNumber("+49 (30) 1234567")
	b := NormalizePhoneNumber("0049 30 1234567")
	c := NormalizePhoneNumber("0301234567")
	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}

func TestNormalizeStreetName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hauptstraße", "hauptstr"},
		{"Hauptstrasse", "hauptstr"},
		{"Haupt Str.", "haupt str"},
		{"Bahnhofstraße 12", "bahnhofstr 12"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeStreetName(tt.in), "input %q", tt.in)
	}
}

func TestSplitStreet(t *testing.T) {
	tests := []struct {
		in         string
		wantName   string
		wantNumber string
	}{
		{"Hauptstraße 12", "Hauptstraße", "12"},
		{"Hauptstraße 12a", "Hauptstraße", "12a"},
		{"Hauptstraße 12-14", "Hauptstraße", "12-14"},
		{"Hauptstraße", "Hauptstraße", ""},
		{"Straße des 17. Juni 135", "Straße des", "17. Juni 135"},
	}
	for _, tt := range tests {
		name, number := SplitStreet(tt.in)
		assert.Equal(t, tt.wantName, name, "input %q", tt.in)
		assert.Equal(t, tt.wantNumber, number, "input %q", tt.in)
	}
}

func TestHouseNumberDigits(t *testing.T) {
	assert.Equal(t, "12", HouseNumberDigits("Hauptstraße 12a"))
	assert.Equal(t, "12", HouseNumberDigits("Hauptstraße 12-14"))
	assert.Equal(t, "", HouseNumberDigits("Hauptstraße"))
}

func TestNormalizeCompanyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Müller GmbH & Co. KG", "muller"},
		{"Bäckerei Schmidt e.V.", "backerei schmidt"},
		{"ACME Inc.", "acme"},
		{"Schreinerei Weiß (Inhaber M. Weiß)", "schreinerei weiss"},
		{"Autohaus  Nord   UG", "autohaus nord"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCompanyName(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeAddress(t *testing.T) {
	a := NormalizeAddress("Hauptstraße 12a", "Berlin")
	b := NormalizeAddress("Hauptstrasse 12a", "berlin")
	assert.Equal(t, a, b)

	c := NormalizeAddress("Hauptstraße 14", "Berlin")
	assert.NotEqual(t, a, c)
}
