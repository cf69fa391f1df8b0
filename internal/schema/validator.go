package schema

// validator.go checks buildings and units against the marketplace schema.
//
// Validation mirrors what the public site requires before an entity can be
// stored: mandatory identity fields, canonical enums, and plausible ranges
// for money and surface values. Every violation is collected (not just the
// first) so an operator can fix a source row in one pass.

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/JonMunkholm/listings/internal/listing"
)

// Range limits for optional unit values.
const (
	MaxInteriorM2        = 200
	MaxExteriorM2        = 50
	MinGuaranteeInstalls = 1
	MaxGuaranteeInstalls = 12
	MaxGuaranteeMonths   = 2
)

// schemaTypologies is wider than the import's canonical set: the site also
// accepts the Spanish spelling of a studio.
var schemaTypologies = map[listing.Typology]bool{
	listing.TypologyStudio: true,
	"Estudio":              true,
	listing.Typology1D1B:   true,
	listing.Typology2D1B:   true,
	listing.Typology2D2B:   true,
	listing.Typology3D2B:   true,
}

// Validator validates and canonicalizes listing entities.
// The zero value is ready to use and safe for concurrent use.
type Validator struct{}

// NewValidator returns a schema validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateUnit returns the canonicalized unit, or Errors listing every violation.
func (v *Validator) ValidateUnit(u listing.Unit) (listing.Unit, error) {
	u = canonicalUnit(u)
	if errs := unitErrors(u); len(errs) > 0 {
		return listing.Unit{}, errs
	}
	return u, nil
}

// ValidateBuilding returns the canonicalized building, or Errors listing every
// violation. Units are validated as part of the building; their violations
// are reported under "units.<index>".
func (v *Validator) ValidateBuilding(b listing.Building) (listing.Building, error) {
	b = canonicalBuilding(b)

	var errs Errors
	errs = requireText(errs, "id", b.ID)
	errs = requireText(errs, "slug", b.Slug)
	errs = requireText(errs, "name", b.Name)
	errs = requireText(errs, "address", b.Address)

	if b.Comuna == "" {
		errs = append(errs, FieldError{Path: "comuna", Message: "is required", Value: b.Comuna})
	} else if strings.IndexFunc(b.Comuna, unicode.IsDigit) >= 0 {
		errs = append(errs, FieldError{Path: "comuna", Message: "must not contain digits", Value: b.Comuna})
	}

	for i, a := range b.Amenities {
		if a == "" {
			errs = append(errs, FieldError{Path: "amenities." + strconv.Itoa(i), Message: "must not be empty", Value: a})
		}
	}

	if len(b.Gallery) == 0 {
		errs = append(errs, FieldError{Path: "gallery", Message: "must contain at least 1 image", Value: b.Gallery})
	}
	for i, g := range b.Gallery {
		if g == "" {
			errs = append(errs, FieldError{Path: "gallery." + strconv.Itoa(i), Message: "must not be empty", Value: g})
		}
	}

	if len(b.Units) == 0 {
		errs = append(errs, FieldError{Path: "units", Message: "must contain at least 1 unit", Value: len(b.Units)})
	}
	for i, u := range b.Units {
		if ue := unitErrors(u); len(ue) > 0 {
			errs = append(errs, ue.Prefixed("units."+strconv.Itoa(i))...)
		}
	}

	if len(errs) > 0 {
		return listing.Building{}, errs
	}
	return b, nil
}

func unitErrors(u listing.Unit) Errors {
	var errs Errors
	errs = requireText(errs, "id", u.ID)

	if !schemaTypologies[u.Typology] {
		errs = append(errs, FieldError{
			Path:    "tipologia",
			Message: "must be one of Studio, Estudio, 1D1B, 2D1B, 2D2B, 3D2B",
			Value:   string(u.Typology),
		})
	}
	if u.Price <= 0 {
		errs = append(errs, FieldError{Path: "price", Message: "must be a positive integer", Value: u.Price})
	}
	if u.Bedrooms < 0 {
		errs = append(errs, FieldError{Path: "bedrooms", Message: "must not be negative", Value: u.Bedrooms})
	}
	if u.Bathrooms <= 0 {
		errs = append(errs, FieldError{Path: "bathrooms", Message: "must be positive", Value: u.Bathrooms})
	}
	if u.AreaM2 <= 0 {
		errs = append(errs, FieldError{Path: "m2", Message: "must be positive", Value: u.AreaM2})
	}
	if u.InteriorM2 != nil && (*u.InteriorM2 <= 0 || *u.InteriorM2 > MaxInteriorM2) {
		errs = append(errs, FieldError{
			Path:    "area_interior_m2",
			Message: fmt.Sprintf("must be between 0 and %d m²", MaxInteriorM2),
			Value:   *u.InteriorM2,
		})
	}
	if u.ExteriorM2 != nil && (*u.ExteriorM2 < 0 || *u.ExteriorM2 > MaxExteriorM2) {
		errs = append(errs, FieldError{
			Path:    "area_exterior_m2",
			Message: fmt.Sprintf("must be between 0 and %d m²", MaxExteriorM2),
			Value:   *u.ExteriorM2,
		})
	}
	if u.CommonExpenses != nil && *u.CommonExpenses < 0 {
		errs = append(errs, FieldError{Path: "gastosComunes", Message: "must not be negative", Value: *u.CommonExpenses})
	}
	if u.Orientation != nil && !validOrientation(*u.Orientation) {
		errs = append(errs, FieldError{Path: "orientacion", Message: "must be a compass abbreviation", Value: string(*u.Orientation)})
	}
	if n := u.GuaranteeInstallments; n != nil && (*n < MinGuaranteeInstalls || *n > MaxGuaranteeInstalls) {
		errs = append(errs, FieldError{
			Path:    "guarantee_installments",
			Message: fmt.Sprintf("must be between %d and %d", MinGuaranteeInstalls, MaxGuaranteeInstalls),
			Value:   *n,
		})
	}
	if n := u.GuaranteeMonths; n != nil && (*n < 0 || *n > MaxGuaranteeMonths) {
		errs = append(errs, FieldError{Path: "guarantee_months", Message: "must be 0, 1 or 2", Value: *n})
	}
	if u.IncomeMultiplier != nil && *u.IncomeMultiplier <= 0 {
		errs = append(errs, FieldError{Path: "rentas_necesarias", Message: "must be positive", Value: *u.IncomeMultiplier})
	}
	if u.MinimumIncome != nil && *u.MinimumIncome <= 0 {
		errs = append(errs, FieldError{Path: "renta_minima", Message: "must be positive", Value: *u.MinimumIncome})
	}
	if u.ListingURL != "" && !IsAbsoluteURL(u.ListingURL) {
		errs = append(errs, FieldError{Path: "link_listing", Message: "must be an absolute URL", Value: u.ListingURL})
	}
	switch u.Status {
	case "", listing.StatusAvailable, listing.StatusReserved, listing.StatusRented:
	default:
		errs = append(errs, FieldError{Path: "status", Message: "must be available, reserved or rented", Value: string(u.Status)})
	}
	return errs
}

// IsAbsoluteURL reports whether s parses as an http(s) URL with a host.
func IsAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func validOrientation(o listing.Orientation) bool {
	for _, v := range listing.Orientations {
		if o == v {
			return true
		}
	}
	return false
}

func requireText(errs Errors, path, value string) Errors {
	if value == "" {
		return append(errs, FieldError{Path: path, Message: "is required", Value: value})
	}
	return errs
}

func canonicalUnit(u listing.Unit) listing.Unit {
	u.ID = strings.TrimSpace(u.ID)
	u.BuildingID = strings.TrimSpace(u.BuildingID)
	u.Code = strings.TrimSpace(u.Code)
	u.Typology = listing.Typology(strings.TrimSpace(string(u.Typology)))
	u.ListingURL = strings.TrimSpace(u.ListingURL)
	return u
}

func canonicalBuilding(b listing.Building) listing.Building {
	b.ID = strings.TrimSpace(b.ID)
	b.Slug = strings.TrimSpace(b.Slug)
	b.Name = strings.TrimSpace(b.Name)
	b.Comuna = strings.TrimSpace(b.Comuna)
	b.Address = strings.TrimSpace(b.Address)
	if len(b.Units) > 0 {
		units := make([]listing.Unit, len(b.Units))
		for i, u := range b.Units {
			units[i] = canonicalUnit(u)
		}
		b.Units = units
	}
	return b
}
