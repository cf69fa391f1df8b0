package ingest

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/listings/internal/listing"
	"github.com/JonMunkholm/listings/internal/schema"
)

// buildingKey groups rows into buildings. Matching is exact: rows that spell
// the same building differently produce separate buildings.
type buildingKey struct {
	condominio string
	direccion  string
	comuna     string
}

// assembler accumulates candidate buildings in first-seen order.
type assembler struct {
	tables    Tables
	buildings []*listing.Building
	index     map[buildingKey]*listing.Building
	rowErrors []RowError
}

func newAssembler(tables Tables) *assembler {
	return &assembler{
		tables: tables,
		index:  make(map[buildingKey]*listing.Building),
	}
}

// add assembles one record. A panic is recorded as a RowError for the
// record's line.
func (a *assembler) add(rec Record) {
	defer func() {
		if r := recover(); r != nil {
			a.reject(rec.Line, fmt.Sprintf("%s: %v", ReasonInternal, r))
		}
	}()

	if rec.Condominio == "" && rec.Direccion == "" {
		a.reject(rec.Line, "missing building name or address")
		return
	}

	b := a.building(rec)
	u, msg := a.unit(rec, b.ID)
	if msg != "" {
		a.reject(rec.Line, msg)
		return
	}
	if slices.ContainsFunc(b.Units, func(prev listing.Unit) bool { return prev.ID == u.ID }) {
		a.reject(rec.Line, duplicateUnitMessage(rec))
		return
	}
	b.Units = append(b.Units, u)
}

// duplicateUnitMessage names the column the repeated unit id came from.
func duplicateUnitMessage(rec Record) string {
	if rec.OP != "" {
		return fmt.Sprintf("%s: unidad duplicada %q", schema.ColOP, rec.OP)
	}
	return fmt.Sprintf("%s: unidad duplicada %q", schema.ColUnidad, rec.Unidad)
}

func (a *assembler) reject(line int, msg string) {
	a.rowErrors = append(a.rowErrors, RowError{Line: line, Message: msg})
}

// building returns the candidate for rec's key, creating it on first sight.
func (a *assembler) building(rec Record) *listing.Building {
	key := buildingKey{condominio: rec.Condominio, direccion: rec.Direccion, comuna: rec.Comuna}
	if b, ok := a.index[key]; ok {
		return b
	}

	name := firstNonEmpty(rec.Condominio, rec.Direccion)
	id := DeriveIdentity(rec.LinkListing, name)
	b := &listing.Building{
		ID:        id.ID,
		Slug:      id.Slug,
		Name:      name,
		Comuna:    firstNonEmpty(rec.Comuna, a.tables.DefaultComuna),
		Address:   firstNonEmpty(rec.Direccion, rec.Condominio),
		Amenities: slices.Clone(a.tables.Amenities),
		Gallery:   slices.Clone(a.tables.Gallery),
	}
	a.index[key] = b
	a.buildings = append(a.buildings, b)
	return b
}

// unit decodes rec into a candidate unit. A non-empty message means the row
// was rejected and names the failing column.
func (a *assembler) unit(rec Record, buildingID string) (listing.Unit, string) {
	typology := a.tables.CanonicalTypology(rec.Tipologia)
	if !typology.IsCanonical() {
		return listing.Unit{}, fmt.Sprintf("%s: tipología inválida %q", schema.ColTipologia, rec.Tipologia)
	}

	price, ok := DecodeInt(rec.ArriendoTotal)
	if !ok || price <= 0 {
		return listing.Unit{}, fmt.Sprintf("%s: precio inválido o faltante %q", schema.ColArriendoTotal, rec.ArriendoTotal)
	}

	interior, hasInterior := DecodeArea(rec.M2Depto)
	area := a.tables.DefaultAreas[typology]
	if hasInterior {
		area = interior
	}
	if area <= 0 {
		return listing.Unit{}, fmt.Sprintf("%s: m2 inválido %q", schema.ColM2Depto, rec.M2Depto)
	}

	available := a.tables.Available(rec.Estado)
	u := listing.Unit{
		ID:          unitID(rec, buildingID),
		BuildingID:  buildingID,
		Code:        rec.Unidad,
		Typology:    typology,
		Bedrooms:    Bedrooms(string(typology)),
		Bathrooms:   Bathrooms(string(typology)),
		AreaM2:      area,
		Price:       price,
		Parking:     Present(rec.Estac),
		Storage:     Present(rec.Bod),
		PetFriendly: a.tables.PetFriendly(rec.AceptaMascotas),
		Available:   available,
		Status:      listing.StatusRented,
		SourceLine:  rec.Line,
	}
	if available {
		u.Status = listing.StatusAvailable
	}

	if hasInterior && interior <= schema.MaxInteriorM2 {
		u.InteriorM2 = &interior
	}
	if exterior, ok := DecodeArea(rec.M2Terraza); ok && exterior >= 0 && exterior <= schema.MaxExteriorM2 {
		u.ExteriorM2 = &exterior
	}
	if gc, ok := DecodeInt(rec.GCTotal); ok && gc >= 0 {
		u.CommonExpenses = &gc
	}
	if o, ok := a.tables.Orientation(rec.Orientacion); ok {
		u.Orientation = &o
	}
	u.GuaranteeMonths = nonZeroInt(rec.GarantiasMeses)
	u.GuaranteeInstallments = nonZeroInt(rec.CuotasGarantia)

	if mult, ok := decodeNumber(rec.RentasNecesarias); ok && !mult.IsZero() {
		f, _ := mult.Float64()
		u.IncomeMultiplier = &f
		if income, ok := roundInt(decimal.NewFromInt(price).Mul(mult)); ok {
			u.MinimumIncome = &income
		}
	}
	if schema.IsAbsoluteURL(rec.LinkListing) {
		u.ListingURL = rec.LinkListing
	}

	return u, ""
}

// unitID prefers the export's operation id, then the unit code, then the
// source line. Ids are unique within a building; add rejects repeats.
func unitID(rec Record, buildingID string) string {
	switch {
	case rec.OP != "":
		return rec.OP
	case rec.Unidad != "":
		return buildingID + "_" + rec.Unidad
	default:
		return buildingID + "_L" + strconv.Itoa(rec.Line)
	}
}

func nonZeroInt(s string) *int64 {
	n, ok := DecodeInt(s)
	if !ok || n == 0 {
		return nil
	}
	return &n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
