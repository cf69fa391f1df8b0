// Package listing defines the marketplace's rental entities: buildings and
// the units offered inside them.
//
// The same structs carry both candidate entities (assembled by the import
// pipeline, not yet validated) and validated entities (canonicalized by the
// schema validator and ready for persistence).
package listing

// Typology is the canonical bedroom/bathroom configuration of a unit.
type Typology string

const (
	TypologyStudio Typology = "Studio"
	Typology1D1B   Typology = "1D1B"
	Typology2D1B   Typology = "2D1B"
	Typology2D2B   Typology = "2D2B"
	Typology3D2B   Typology = "3D2B"
)

// Typologies lists the canonical codes accepted by the import pipeline.
var Typologies = []Typology{
	TypologyStudio, Typology1D1B, Typology2D1B, Typology2D2B, Typology3D2B,
}

// IsCanonical reports whether t is one of the five canonical codes.
func (t Typology) IsCanonical() bool {
	for _, c := range Typologies {
		if t == c {
			return true
		}
	}
	return false
}

// Orientation is a compass abbreviation in Spanish notation (O = oeste).
type Orientation string

const (
	OrientationN  Orientation = "N"
	OrientationNE Orientation = "NE"
	OrientationE  Orientation = "E"
	OrientationSE Orientation = "SE"
	OrientationS  Orientation = "S"
	OrientationSO Orientation = "SO"
	OrientationO  Orientation = "O"
	OrientationNO Orientation = "NO"
)

// Orientations lists every valid orientation.
var Orientations = []Orientation{
	OrientationN, OrientationNE, OrientationE, OrientationSE,
	OrientationS, OrientationSO, OrientationO, OrientationNO,
}

// UnitStatus is the legacy availability status exposed to the site.
type UnitStatus string

const (
	StatusAvailable UnitStatus = "available"
	StatusReserved  UnitStatus = "reserved"
	StatusRented    UnitStatus = "rented"
)

// Unit is a rentable apartment inside a building.
// Optional values are pointers; nil means the source did not provide them.
type Unit struct {
	ID         string   `json:"id"`
	BuildingID string   `json:"buildingId,omitempty"`
	Code       string   `json:"codigoUnidad,omitempty"`
	Typology   Typology `json:"tipologia"`
	Bedrooms   int      `json:"bedrooms"`
	Bathrooms  int      `json:"bathrooms"`

	AreaM2     float64  `json:"m2"`
	InteriorM2 *float64 `json:"area_interior_m2,omitempty"`
	ExteriorM2 *float64 `json:"area_exterior_m2,omitempty"`

	Price          int64  `json:"price"`
	CommonExpenses *int64 `json:"gastosComunes,omitempty"`

	Parking     bool         `json:"estacionamiento"`
	Storage     bool         `json:"bodega"`
	Orientation *Orientation `json:"orientacion,omitempty"`
	PetFriendly bool         `json:"petFriendly"`
	Available   bool         `json:"disponible"`
	Status      UnitStatus   `json:"status,omitempty"`

	GuaranteeMonths       *int64   `json:"guarantee_months,omitempty"`
	GuaranteeInstallments *int64   `json:"guarantee_installments,omitempty"`
	IncomeMultiplier      *float64 `json:"rentas_necesarias,omitempty"`
	MinimumIncome         *int64   `json:"renta_minima,omitempty"`
	ListingURL            string   `json:"link_listing,omitempty"`

	// SourceLine is the input line the unit was assembled from (0 when the
	// unit did not come from an import).
	SourceLine int `json:"-"`
}

// Building groups the units that share a physical address.
type Building struct {
	ID        string   `json:"id"`
	Slug      string   `json:"slug"`
	Name      string   `json:"name"`
	Comuna    string   `json:"comuna"`
	Address   string   `json:"address"`
	Amenities []string `json:"amenities"`
	Gallery   []string `json:"gallery"`
	Units     []Unit   `json:"units"`
}

// Lines returns the source lines of the building's units in unit order.
func (b Building) Lines() []int {
	lines := make([]int, 0, len(b.Units))
	for _, u := range b.Units {
		if u.SourceLine > 0 {
			lines = append(lines, u.SourceLine)
		}
	}
	return lines
}
