package ingest

import (
	"fmt"
	"strconv"

	"github.com/JonMunkholm/listings/internal/listing"
	"github.com/JonMunkholm/listings/internal/schema"
)

// outcome is the partition of one candidate building.
type outcome struct {
	valid  *listing.Building
	errors []EntityError
}

// partition validates one candidate building and its units.
//
// The building is valid when it passes building-level validation and at
// least one of its units passes unit validation. A valid building keeps its
// passing units and each failing unit becomes its own EntityError. Otherwise
// the whole building, with every unit, becomes a single EntityError.
func partition(v Validator, b listing.Building) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{errors: []EntityError{buildingError(b, ReasonInternal, schema.Errors{{
				Message: fmt.Sprintf("%s: %v", ReasonInternal, r),
			}})}}
		}
	}()

	if len(b.Units) == 0 {
		return outcome{errors: []EntityError{buildingError(b, ReasonNoValidUnits, schema.Errors{{
			Path:    "units",
			Message: ReasonNoValidUnits,
		}})}}
	}

	stub := b
	stub.Units = []listing.Unit{placeholderUnit(b)}
	validated, buildingErr := v.ValidateBuilding(stub)

	var (
		passed     []listing.Unit
		unitErrors []EntityError
		nested     schema.Errors
	)
	for i, u := range b.Units {
		vu, err := v.ValidateUnit(u)
		if err != nil {
			fe := schema.AsErrors(err)
			nested = append(nested, fe.Prefixed("units."+strconv.Itoa(i))...)
			unitErrors = append(unitErrors, unitError(b.ID, u, fe))
			continue
		}
		vu.SourceLine = u.SourceLine
		passed = append(passed, vu)
	}

	if buildingErr != nil || len(passed) == 0 {
		fe := schema.AsErrors(buildingErr)
		fe = append(fe, nested...)
		reason := ReasonInvalid
		if len(passed) == 0 {
			reason = ReasonNoValidUnits
			fe = append(fe, schema.FieldError{Path: "units", Message: ReasonNoValidUnits})
		}
		return outcome{errors: []EntityError{buildingError(b, reason, fe)}}
	}

	validated.Units = passed
	return outcome{valid: &validated, errors: unitErrors}
}

// placeholderUnit stands in for the real units while the building-level
// rules are checked, so that a bad unit is not reported twice.
func placeholderUnit(b listing.Building) listing.Unit {
	return listing.Unit{
		ID:         b.ID + "_placeholder",
		BuildingID: b.ID,
		Typology:   listing.TypologyStudio,
		Bathrooms:  1,
		AreaM2:     1,
		Price:      1,
		Status:     listing.StatusAvailable,
	}
}

func buildingError(b listing.Building, reason string, fe schema.Errors) EntityError {
	candidate := b
	return EntityError{
		Kind:        KindBuilding,
		ID:          b.ID,
		Reason:      reason,
		FieldErrors: fe,
		Lines:       b.Lines(),
		Building:    &candidate,
	}
}

func unitError(buildingID string, u listing.Unit, fe schema.Errors) EntityError {
	candidate := u
	var lines []int
	if u.SourceLine > 0 {
		lines = []int{u.SourceLine}
	}
	return EntityError{
		Kind:        KindUnit,
		ID:          u.ID,
		BuildingID:  buildingID,
		Reason:      ReasonInvalid,
		FieldErrors: fe,
		Lines:       lines,
		Unit:        &candidate,
	}
}
