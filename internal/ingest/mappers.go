package ingest

// mappers.go holds the small pure functions that turn raw export values into
// unit attributes. None of them fail: unknown input maps to a neutral value
// and the assembler or validator decides whether that is acceptable.

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/listings/internal/listing"
)

// AreaScaleCutoff is the decoded area above which a value is read as
// hundredths of a square meter.
// TODO: replace with a per-source unit once the export states its units.
const AreaScaleCutoff = 100

var (
	bedroomsRe  = regexp.MustCompile(`^(\d+)D`)
	bathroomsRe = regexp.MustCompile(`(\d+)B$`)

	hundred = decimal.NewFromInt(100)
)

// CanonicalTypology maps a source typology through t.Typologies.
// Unknown spellings are returned unchanged.
func (t Tables) CanonicalTypology(s string) listing.Typology {
	if c, ok := t.Typologies[s]; ok {
		return c
	}
	return listing.Typology(s)
}

// Bedrooms returns the leading digit count before "D". Studios have none;
// anything else unreadable counts as one.
func Bedrooms(typology string) int {
	if m := bedroomsRe.FindStringSubmatch(typology); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if strings.Contains(strings.ToLower(typology), "studio") {
		return 0
	}
	return 1
}

// Bathrooms returns the trailing digit count before "B", or 1.
func Bathrooms(typology string) int {
	if m := bathroomsRe.FindStringSubmatch(typology); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 1
}

// Orientation maps a compass abbreviation, ignoring case. Anything else,
// including the export's "P" placeholder, is absent.
func (t Tables) Orientation(s string) (listing.Orientation, bool) {
	o, ok := t.Orientations[strings.ToUpper(strings.TrimSpace(s))]
	return o, ok
}

// Available reports whether an Estado value means the unit can be rented.
func (t Tables) Available(estado string) bool {
	lower := strings.ToLower(estado)
	for _, phrase := range t.AvailablePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// PetFriendly reports whether an Acepta Mascotas? value is affirmative.
func (t Tables) PetFriendly(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, yes := range t.PetAffirmatives {
		if lower == yes {
			return true
		}
	}
	return false
}

// Present reports whether a field holds anything at all. Estac and Bod carry
// a space identifier when the unit includes one.
func Present(s string) bool {
	return strings.TrimSpace(s) != ""
}

// DecodeArea decodes a surface value in square meters, rounded to two
// decimals. Values above AreaScaleCutoff are divided by 100.
func DecodeArea(s string) (float64, bool) {
	d, ok := decodeNumber(s)
	if !ok {
		return 0, false
	}
	return scaleArea(d), true
}

func scaleArea(d decimal.Decimal) float64 {
	if d.GreaterThan(decimal.NewFromInt(AreaScaleCutoff)) {
		d = d.Div(hundred)
	}
	f, _ := d.Round(2).Float64()
	return f
}
