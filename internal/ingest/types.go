package ingest

import (
	"strings"

	"github.com/JonMunkholm/listings/internal/listing"
	"github.com/JonMunkholm/listings/internal/schema"
)

// Record is one data row with the columns the pipeline reads resolved by
// name. Values are trimmed; a column the row does not reach reads as "".
// Especial and Tipo edificio are required in the header but not read.
type Record struct {
	Line int

	OP               string
	Direccion        string
	Comuna           string
	Condominio       string
	Tipologia        string
	Estac            string
	Bod              string
	ArriendoTotal    string
	GCTotal          string
	GarantiasMeses   string
	CuotasGarantia   string
	RentasNecesarias string
	Orientacion      string
	M2Depto          string
	M2Terraza        string
	Estado           string
	AceptaMascotas   string
	LinkListing      string
	Unidad           string
}

// HeaderMap resolves export columns to positions. It is built once per file.
type HeaderMap struct {
	index   map[string]int
	missing []string
}

// NewHeaderMap indexes header case-insensitively. When a column appears
// twice the first occurrence wins.
func NewHeaderMap(header []string) HeaderMap {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	var missing []string
	for _, spec := range schema.AssetPlanFieldSpecs {
		if _, ok := index[strings.ToLower(spec.Name)]; spec.Required && !ok {
			missing = append(missing, spec.Name)
		}
	}
	return HeaderMap{index: index, missing: missing}
}

// Missing lists required columns absent from the header, in column order.
func (h HeaderMap) Missing() []string {
	return h.missing
}

// Record maps a tokenized row onto a Record.
func (h HeaderMap) Record(row Row) Record {
	get := func(col string) string {
		i, ok := h.index[strings.ToLower(col)]
		if !ok || i >= len(row.Fields) {
			return ""
		}
		return strings.TrimSpace(row.Fields[i])
	}

	return Record{
		Line:             row.Line,
		OP:               get(schema.ColOP),
		Direccion:        get(schema.ColDireccion),
		Comuna:           get(schema.ColComuna),
		Condominio:       get(schema.ColCondominio),
		Tipologia:        get(schema.ColTipologia),
		Estac:            get(schema.ColEstac),
		Bod:              get(schema.ColBod),
		ArriendoTotal:    get(schema.ColArriendoTotal),
		GCTotal:          get(schema.ColGCTotal),
		GarantiasMeses:   get(schema.ColGarantiasMeses),
		CuotasGarantia:   get(schema.ColCuotasGarantia),
		RentasNecesarias: get(schema.ColRentasNecesarias),
		Orientacion:      get(schema.ColOrientacion),
		M2Depto:          get(schema.ColM2Depto),
		M2Terraza:        get(schema.ColM2Terraza),
		Estado:           get(schema.ColEstado),
		AceptaMascotas:   get(schema.ColAceptaMascotas),
		LinkListing:      get(schema.ColLinkListing),
		Unidad:           get(schema.ColUnidad),
	}
}

// RowError is a data row that never became a unit.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// EntityKind tells whether an EntityError describes a unit or a building.
type EntityKind string

const (
	KindUnit     EntityKind = "unit"
	KindBuilding EntityKind = "building"
)

// Reasons attached to EntityError.
const (
	ReasonNoValidUnits = "no valid units"
	ReasonInvalid      = "schema validation failed"
	ReasonInternal     = "internal error"
)

// EntityError is an assembled unit or building that was rejected. Exactly
// one of Unit and Building is set, matching Kind. Lines lists the source
// rows the rejected entity was built from.
type EntityError struct {
	Kind        EntityKind          `json:"kind"`
	ID          string              `json:"id"`
	BuildingID  string              `json:"buildingId,omitempty"`
	Reason      string              `json:"reason"`
	FieldErrors []schema.FieldError `json:"fieldErrors"`
	Lines       []int               `json:"lines"`

	Unit     *listing.Unit     `json:"unit,omitempty"`
	Building *listing.Building `json:"building,omitempty"`
}

// Stats summarizes a Result.
type Stats struct {
	Rows             int `json:"rows"`
	ValidBuildings   int `json:"validBuildings"`
	ValidUnits       int `json:"validUnits"`
	InvalidBuildings int `json:"invalidBuildings"`
	InvalidUnits     int `json:"invalidUnits"`
	RowErrors        int `json:"rowErrors"`
}

// Result is the outcome of one import.
type Result struct {
	ValidBuildings  []listing.Building `json:"validBuildings"`
	InvalidEntities []EntityError      `json:"invalidEntities"`
	RowErrors       []RowError         `json:"rowErrors"`

	// MissingColumns lists required header columns the file lacks. Rows
	// are still processed; the missing values read as "".
	MissingColumns []string `json:"missingColumns,omitempty"`

	Stats Stats `json:"stats"`
}

// HasErrors reports whether any row or entity was rejected.
func (r Result) HasErrors() bool {
	return len(r.InvalidEntities) > 0 || len(r.RowErrors) > 0
}

// Validator is the schema-validation contract the pipeline consumes. On
// failure the error should be a schema.Errors so field paths survive.
type Validator interface {
	ValidateUnit(listing.Unit) (listing.Unit, error)
	ValidateBuilding(listing.Building) (listing.Building, error)
}
