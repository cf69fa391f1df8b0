package ingest

import (
	"encoding/json"
	"maps"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/listings/internal/listing"
	"github.com/JonMunkholm/listings/internal/schema"
)

// ----------------------------------------------------------------------------
// Test Helpers
// ----------------------------------------------------------------------------

var testHeader = func() []string {
	cols := make([]string, len(schema.AssetPlanFieldSpecs))
	for i, spec := range schema.AssetPlanFieldSpecs {
		cols[i] = spec.Name
	}
	return cols
}()

// parqueSur returns a valid row for the Parque Sur building with overrides applied.
func parqueSur(overrides map[string]string) map[string]string {
	row := map[string]string{
		schema.ColCondominio:    "Parque Sur",
		schema.ColDireccion:     "Av. Siempre Viva 123",
		schema.ColComuna:        "Ñuñoa",
		schema.ColTipologia:     "1D1B",
		schema.ColArriendoTotal: "450.000",
		schema.ColM2Depto:       "45",
		schema.ColEstado:        "Lista para arrendar",
	}
	maps.Copy(row, overrides)
	return row
}

func buildCSV(rows ...map[string]string) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(testHeader, ";"))
	for _, row := range rows {
		fields := make([]string, len(testHeader))
		for i, col := range testHeader {
			fields[i] = row[col]
		}
		sb.WriteString("\n")
		sb.WriteString(strings.Join(fields, ";"))
	}
	sb.WriteString("\n")
	return sb.String()
}

// accountedLines counts how often each source line appears in the result.
func accountedLines(res Result) map[int]int {
	seen := make(map[int]int)
	for _, b := range res.ValidBuildings {
		for _, line := range b.Lines() {
			seen[line]++
		}
	}
	for _, e := range res.InvalidEntities {
		for _, line := range e.Lines {
			seen[line]++
		}
	}
	for _, re := range res.RowErrors {
		seen[re.Line]++
	}
	return seen
}

func assertComplete(t *testing.T, res Result, dataRows int) {
	t.Helper()
	seen := accountedLines(res)
	for line := 2; line <= dataRows+1; line++ {
		assert.Equal(t, 1, seen[line], "line %d should be accounted for exactly once", line)
	}
	assert.Len(t, seen, dataRows, "no outcome should reference a line that does not exist")
}

// ----------------------------------------------------------------------------
// End-to-end Scenarios
// ----------------------------------------------------------------------------

func TestImportFromText_ParqueSur(t *testing.T) {
	text := buildCSV(
		parqueSur(nil),
		parqueSur(map[string]string{
			schema.ColTipologia:     "Studio",
			schema.ColArriendoTotal: "380.000",
			schema.ColM2Depto:       "3200",
		}),
	)

	res := ImportFromText(text)

	require.Empty(t, res.RowErrors)
	require.Empty(t, res.InvalidEntities)
	require.Len(t, res.ValidBuildings, 1)

	b := res.ValidBuildings[0]
	assert.Equal(t, "ap_parque-sur", b.ID)
	assert.Equal(t, "parque-sur", b.Slug)
	assert.Equal(t, "Parque Sur", b.Name)
	assert.Equal(t, "Av. Siempre Viva 123", b.Address)
	assert.Equal(t, "Ñuñoa", b.Comuna)
	assert.Equal(t, []string{"Piscina", "Gimnasio"}, b.Amenities)
	assert.Len(t, b.Gallery, 3)

	require.Len(t, b.Units, 2)
	first, second := b.Units[0], b.Units[1]

	assert.Equal(t, listing.Typology1D1B, first.Typology)
	assert.Equal(t, int64(450000), first.Price)
	assert.Equal(t, 45.0, first.AreaM2)
	assert.Equal(t, 1, first.Bedrooms)
	assert.Equal(t, "ap_parque-sur_L2", first.ID)
	assert.Equal(t, "ap_parque-sur", first.BuildingID)
	assert.True(t, first.Available)
	assert.Equal(t, listing.StatusAvailable, first.Status)

	assert.Equal(t, listing.TypologyStudio, second.Typology)
	assert.Equal(t, int64(380000), second.Price)
	assert.Equal(t, 32.0, second.AreaM2)
	assert.Equal(t, 0, second.Bedrooms)
	require.NotNil(t, second.InteriorM2)
	assert.Equal(t, 32.0, *second.InteriorM2)

	assert.Equal(t, Stats{Rows: 2, ValidBuildings: 1, ValidUnits: 2}, res.Stats)
	assertComplete(t, res, 2)
}

func TestImportFromText_DerivedFields(t *testing.T) {
	text := buildCSV(parqueSur(map[string]string{
		schema.ColOP:               "OP-991",
		schema.ColTipologia:        "2D",
		schema.ColM2Depto:          "",
		schema.ColM2Terraza:        "650",
		schema.ColGCTotal:          "85.000",
		schema.ColGarantiasMeses:   "1",
		schema.ColCuotasGarantia:   "0",
		schema.ColRentasNecesarias: "2,5",
		schema.ColOrientacion:      "no",
		schema.ColEstac:            "E-12",
		schema.ColBod:              "",
		schema.ColAceptaMascotas:   "Sí",
		schema.ColEstado:           "Arrendado",
		schema.ColUnidad:           "501",
		schema.ColLinkListing:      "https://www.assetplan.cl/arriendo/departamento/santiago/nunoa/parque-sur-oficial",
	}))

	res := ImportFromText(text)
	require.Empty(t, res.RowErrors)
	require.Len(t, res.ValidBuildings, 1)

	b := res.ValidBuildings[0]
	assert.Equal(t, "ap_parque-sur-oficial", b.ID)

	require.Len(t, b.Units, 1)
	u := b.Units[0]
	assert.Equal(t, "OP-991", u.ID)
	assert.Equal(t, "501", u.Code)
	assert.Equal(t, listing.Typology2D1B, u.Typology)
	assert.Equal(t, 2, u.Bedrooms)
	assert.Equal(t, 1, u.Bathrooms)
	assert.Equal(t, 55.0, u.AreaM2, "default area for 2D1B")
	assert.Nil(t, u.InteriorM2)
	require.NotNil(t, u.ExteriorM2)
	assert.Equal(t, 6.5, *u.ExteriorM2)
	require.NotNil(t, u.CommonExpenses)
	assert.Equal(t, int64(85000), *u.CommonExpenses)
	require.NotNil(t, u.GuaranteeMonths)
	assert.Equal(t, int64(1), *u.GuaranteeMonths)
	assert.Nil(t, u.GuaranteeInstallments, "zero installments are absent")
	require.NotNil(t, u.IncomeMultiplier)
	assert.Equal(t, 2.5, *u.IncomeMultiplier)
	require.NotNil(t, u.MinimumIncome)
	assert.Equal(t, int64(1125000), *u.MinimumIncome)
	require.NotNil(t, u.Orientation)
	assert.Equal(t, listing.OrientationNO, *u.Orientation)
	assert.True(t, u.Parking)
	assert.False(t, u.Storage)
	assert.True(t, u.PetFriendly)
	assert.False(t, u.Available)
	assert.Equal(t, listing.StatusRented, u.Status)
	assert.Equal(t, "https://www.assetplan.cl/arriendo/departamento/santiago/nunoa/parque-sur-oficial", u.ListingURL)
}

func TestImportFromText_UnitIDFromCode(t *testing.T) {
	res := ImportFromText(buildCSV(parqueSur(map[string]string{schema.ColUnidad: "1204"})))
	require.Len(t, res.ValidBuildings, 1)
	assert.Equal(t, "ap_parque-sur_1204", res.ValidBuildings[0].Units[0].ID)
}

func TestImportFromText_DuplicateUnitID(t *testing.T) {
	tests := []struct {
		name        string
		first       map[string]string
		second      map[string]string
		wantMessage string
	}{
		{
			name:        "repeated operation id",
			first:       map[string]string{schema.ColOP: "A1", schema.ColUnidad: "101"},
			second:      map[string]string{schema.ColOP: "A1", schema.ColUnidad: "102"},
			wantMessage: `OP: unidad duplicada "A1"`,
		},
		{
			name:        "repeated unit code without operation id",
			first:       map[string]string{schema.ColUnidad: "101"},
			second:      map[string]string{schema.ColUnidad: "101", schema.ColTipologia: "2D2B"},
			wantMessage: `Unidad: unidad duplicada "101"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ImportFromText(buildCSV(parqueSur(tt.first), parqueSur(tt.second)))

			require.Len(t, res.ValidBuildings, 1)
			require.Len(t, res.ValidBuildings[0].Units, 1)
			assert.Equal(t, 2, res.ValidBuildings[0].Units[0].SourceLine)
			require.Len(t, res.RowErrors, 1)
			assert.Equal(t, 3, res.RowErrors[0].Line)
			assert.Equal(t, tt.wantMessage, res.RowErrors[0].Message)
			assertComplete(t, res, 2)
		})
	}
}

func TestImportFromText_SameOPInDifferentBuildings(t *testing.T) {
	res := ImportFromText(buildCSV(
		parqueSur(map[string]string{schema.ColOP: "A1"}),
		parqueSur(map[string]string{schema.ColOP: "A1", schema.ColCondominio: "Torre Norte"}),
	))
	assert.Len(t, res.ValidBuildings, 2)
	assert.Empty(t, res.RowErrors)
}

func TestImportFromText_StrayQuoteKeepsLaterRows(t *testing.T) {
	res := ImportFromText(buildCSV(
		parqueSur(map[string]string{schema.ColUnidad: `Depto 5" bis`}),
		parqueSur(map[string]string{schema.ColUnidad: "102"}),
		parqueSur(map[string]string{schema.ColUnidad: "103"}),
		parqueSur(map[string]string{schema.ColUnidad: "104"}),
	))

	assert.Equal(t, 4, res.Stats.Rows)
	require.Len(t, res.ValidBuildings, 1)
	units := res.ValidBuildings[0].Units
	require.Len(t, units, 4)
	assert.Equal(t, "Depto 5 bis", units[0].Code)
	assert.Equal(t, "104", units[3].Code)
	assertComplete(t, res, 4)
}

func TestImportFromText_InvalidLinkDropped(t *testing.T) {
	res := ImportFromText(buildCSV(parqueSur(map[string]string{schema.ColLinkListing: "ver ficha"})))
	require.Len(t, res.ValidBuildings, 1)
	assert.Empty(t, res.ValidBuildings[0].Units[0].ListingURL)
}

func TestImportFromText_DefaultComuna(t *testing.T) {
	res := ImportFromText(buildCSV(parqueSur(map[string]string{schema.ColComuna: ""})))
	require.Len(t, res.ValidBuildings, 1)
	assert.Equal(t, "Santiago", res.ValidBuildings[0].Comuna)
}

func TestImportFromText_NameAddressFallback(t *testing.T) {
	res := ImportFromText(buildCSV(
		parqueSur(map[string]string{schema.ColCondominio: ""}),
		parqueSur(map[string]string{schema.ColCondominio: "Torre Sol", schema.ColDireccion: ""}),
	))
	require.Len(t, res.ValidBuildings, 2)
	assert.Equal(t, "Av. Siempre Viva 123", res.ValidBuildings[0].Name)
	assert.Equal(t, "Av. Siempre Viva 123", res.ValidBuildings[0].Address)
	assert.Equal(t, "Torre Sol", res.ValidBuildings[1].Name)
	assert.Equal(t, "Torre Sol", res.ValidBuildings[1].Address)
}

// ----------------------------------------------------------------------------
// Rejection Scenarios
// ----------------------------------------------------------------------------

func TestImportFromText_UnknownTypology(t *testing.T) {
	res := ImportFromText(buildCSV(
		parqueSur(nil),
		parqueSur(map[string]string{schema.ColTipologia: "4D3B"}),
	))

	require.Len(t, res.RowErrors, 1)
	assert.Equal(t, 3, res.RowErrors[0].Line)
	assert.Contains(t, res.RowErrors[0].Message, "tipología inválida")
	assert.Contains(t, res.RowErrors[0].Message, "4D3B")

	require.Len(t, res.ValidBuildings, 1)
	assert.Len(t, res.ValidBuildings[0].Units, 1)
	assertComplete(t, res, 2)
}

func TestImportFromText_ZeroPrice(t *testing.T) {
	res := ImportFromText(buildCSV(
		parqueSur(map[string]string{schema.ColArriendoTotal: "0"}),
		parqueSur(nil),
	))

	require.Len(t, res.RowErrors, 1)
	assert.Equal(t, 2, res.RowErrors[0].Line)
	assert.Contains(t, res.RowErrors[0].Message, schema.ColArriendoTotal)
	assert.Contains(t, res.RowErrors[0].Message, "precio inválido")
	require.Len(t, res.ValidBuildings, 1)
	assert.Len(t, res.ValidBuildings[0].Units, 1)
}

func TestImportFromText_RowRejections(t *testing.T) {
	tests := []struct {
		name        string
		overrides   map[string]string
		wantMessage string
	}{
		{
			name:        "missing price",
			overrides:   map[string]string{schema.ColArriendoTotal: ""},
			wantMessage: "precio inválido o faltante",
		},
		{
			name:        "unreadable price",
			overrides:   map[string]string{schema.ColArriendoTotal: "consultar"},
			wantMessage: "precio inválido o faltante",
		},
		{
			name:        "negative price",
			overrides:   map[string]string{schema.ColArriendoTotal: "-1"},
			wantMessage: "precio inválido o faltante",
		},
		{
			name:        "zero area",
			overrides:   map[string]string{schema.ColM2Depto: "0"},
			wantMessage: "m2 inválido",
		},
		{
			name:        "blank typology",
			overrides:   map[string]string{schema.ColTipologia: ""},
			wantMessage: "tipología inválida",
		},
		{
			name:        "missing name and address",
			overrides:   map[string]string{schema.ColCondominio: "", schema.ColDireccion: ""},
			wantMessage: "missing building name or address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ImportFromText(buildCSV(parqueSur(tt.overrides)))
			require.Len(t, res.RowErrors, 1)
			assert.Equal(t, 2, res.RowErrors[0].Line)
			assert.Contains(t, res.RowErrors[0].Message, tt.wantMessage)
			assert.Empty(t, res.ValidBuildings)
			assertComplete(t, res, 1)
		})
	}
}

func TestImportFromText_AllRowsRejected(t *testing.T) {
	res := ImportFromText(buildCSV(
		parqueSur(map[string]string{schema.ColArriendoTotal: "0"}),
		parqueSur(map[string]string{schema.ColTipologia: "4D3B"}),
	))

	assert.Empty(t, res.ValidBuildings)
	assert.Len(t, res.RowErrors, 2)

	require.Len(t, res.InvalidEntities, 1)
	e := res.InvalidEntities[0]
	assert.Equal(t, KindBuilding, e.Kind)
	assert.Equal(t, "ap_parque-sur", e.ID)
	assert.Equal(t, ReasonNoValidUnits, e.Reason)
	require.Len(t, e.FieldErrors, 1)
	assert.Equal(t, "no valid units", e.FieldErrors[0].Message)
	require.NotNil(t, e.Building)
	assert.Empty(t, e.Lines)
	assertComplete(t, res, 2)
}

func TestImportFromText_UnitFailsSchema(t *testing.T) {
	res := ImportFromText(buildCSV(
		parqueSur(nil),
		parqueSur(map[string]string{schema.ColCuotasGarantia: "24"}),
	))

	require.Len(t, res.ValidBuildings, 1)
	assert.Len(t, res.ValidBuildings[0].Units, 1)

	require.Len(t, res.InvalidEntities, 1)
	e := res.InvalidEntities[0]
	assert.Equal(t, KindUnit, e.Kind)
	assert.Equal(t, "ap_parque-sur_L3", e.ID)
	assert.Equal(t, "ap_parque-sur", e.BuildingID)
	assert.Equal(t, []int{3}, e.Lines)
	require.NotNil(t, e.Unit)
	require.Len(t, e.FieldErrors, 1)
	assert.Equal(t, "guarantee_installments", e.FieldErrors[0].Path)
	assert.Equal(t, int64(24), e.FieldErrors[0].Value)

	assert.Equal(t, 1, res.Stats.InvalidUnits)
	assertComplete(t, res, 2)
}

func TestImportFromText_EveryUnitFailsSchema(t *testing.T) {
	res := ImportFromText(buildCSV(
		parqueSur(map[string]string{schema.ColCuotasGarantia: "24"}),
	))

	assert.Empty(t, res.ValidBuildings)
	require.Len(t, res.InvalidEntities, 1)

	e := res.InvalidEntities[0]
	assert.Equal(t, KindBuilding, e.Kind)
	assert.Equal(t, ReasonNoValidUnits, e.Reason)
	assert.Equal(t, []int{2}, e.Lines)

	paths := make([]string, len(e.FieldErrors))
	for i, fe := range e.FieldErrors {
		paths[i] = fe.Path
	}
	assert.Equal(t, []string{"units.0.guarantee_installments", "units"}, paths)
	assertComplete(t, res, 1)
}

func TestImportFromText_BuildingFailsSchema(t *testing.T) {
	res := ImportFromText(buildCSV(
		parqueSur(map[string]string{schema.ColComuna: "Santiago 2"}),
		parqueSur(map[string]string{schema.ColComuna: "Santiago 2", schema.ColCuotasGarantia: "24"}),
	))

	assert.Empty(t, res.ValidBuildings)
	require.Len(t, res.InvalidEntities, 1, "a rejected building absorbs its failing units")

	e := res.InvalidEntities[0]
	assert.Equal(t, KindBuilding, e.Kind)
	assert.Equal(t, ReasonInvalid, e.Reason)
	assert.Equal(t, []int{2, 3}, e.Lines)
	require.NotNil(t, e.Building)
	assert.Len(t, e.Building.Units, 2)

	paths := make([]string, len(e.FieldErrors))
	for i, fe := range e.FieldErrors {
		paths[i] = fe.Path
	}
	assert.Equal(t, []string{"comuna", "units.1.guarantee_installments"}, paths)
	assertComplete(t, res, 2)
}

// ----------------------------------------------------------------------------
// Pipeline Properties
// ----------------------------------------------------------------------------

func mixedInput() string {
	return buildCSV(
		parqueSur(nil),
		parqueSur(map[string]string{schema.ColTipologia: "4D3B"}),
		parqueSur(map[string]string{schema.ColCondominio: "Torre Sol", schema.ColArriendoTotal: "0"}),
		parqueSur(map[string]string{schema.ColCondominio: "", schema.ColDireccion: ""}),
		parqueSur(map[string]string{schema.ColCuotasGarantia: "13"}),
		parqueSur(map[string]string{schema.ColCondominio: "Mirador", schema.ColComuna: "La Florida 1"}),
		parqueSur(map[string]string{schema.ColCondominio: "Vista Alegre", schema.ColM2Depto: "3.859"}),
		parqueSur(map[string]string{schema.ColCondominio: "Parque sur"}),
	)
}

func TestImportFromText_PartitionCompleteness(t *testing.T) {
	res := ImportFromText(mixedInput())

	assertComplete(t, res, 8)
	assert.Equal(t, 8, res.Stats.Rows)
	assert.Len(t, res.RowErrors, 3)

	names := make([]string, len(res.ValidBuildings))
	for i, b := range res.ValidBuildings {
		names[i] = b.Name
	}
	assert.Equal(t, []string{"Parque Sur", "Vista Alegre", "Parque sur"}, names,
		"buildings keep first-seen order and keys match exactly")
}

func TestImportFromText_Idempotent(t *testing.T) {
	first, err := json.Marshal(ImportFromText(mixedInput()))
	require.NoError(t, err)
	second, err := json.Marshal(ImportFromText(mixedInput()))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestImportFromText_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "\n\n", strings.Join(testHeader, ";")} {
		res := ImportFromText(input)
		assert.Empty(t, res.ValidBuildings)
		assert.Empty(t, res.InvalidEntities)
		assert.Empty(t, res.RowErrors)
		assert.NotNil(t, res.ValidBuildings, "empty slices marshal as []")
		assert.False(t, res.HasErrors())
	}
}

func TestImportFromText_MissingColumns(t *testing.T) {
	text := "Condominio;Direccion;Comuna;Tipologia;Arriendo Total\nParque Sur;Av. 1;Ñuñoa;Studio;300.000\n"

	res := ImportFromText(text)

	assert.Len(t, res.MissingColumns, len(testHeader)-5)
	assert.Contains(t, res.MissingColumns, schema.ColM2Depto)
	require.Len(t, res.ValidBuildings, 1)
	assert.Equal(t, 30.0, res.ValidBuildings[0].Units[0].AreaM2)
}

func TestImportFromText_GarbageNeverPanics(t *testing.T) {
	inputs := []string{
		"\"",
		";;;;\n\"\"\"",
		"Condominio\n\"unterminated;quote\nrow",
		strings.Repeat(";", 1000),
		"\x00\xff\xfe",
	}
	for _, input := range inputs {
		assert.NotPanics(t, func() { ImportFromText(input) })
	}
}

// ----------------------------------------------------------------------------
// Injection
// ----------------------------------------------------------------------------

type panicValidator struct {
	*schema.Validator
}

func (panicValidator) ValidateBuilding(listing.Building) (listing.Building, error) {
	panic("validator exploded")
}

func TestImporter_ValidatorPanic(t *testing.T) {
	im := New(Options{Validator: panicValidator{schema.NewValidator()}})

	res := im.Import(buildCSV(parqueSur(nil), parqueSur(nil)))

	assert.Empty(t, res.ValidBuildings)
	require.Len(t, res.InvalidEntities, 1)
	e := res.InvalidEntities[0]
	assert.Equal(t, KindBuilding, e.Kind)
	assert.Equal(t, ReasonInternal, e.Reason)
	assert.Equal(t, []int{2, 3}, e.Lines)
	require.Len(t, e.FieldErrors, 1)
	assert.Contains(t, e.FieldErrors[0].Message, "validator exploded")
}

func TestImporter_CustomTables(t *testing.T) {
	tables := DefaultTables()
	tables.DefaultComuna = "Providencia"
	tables.Amenities = []string{"Quincho"}
	tables.Typologies["1 Dormitorio"] = listing.Typology1D1B

	im := New(Options{Tables: &tables})
	res := im.Import(buildCSV(parqueSur(map[string]string{
		schema.ColComuna:    "",
		schema.ColTipologia: "1 Dormitorio",
	})))

	require.Len(t, res.ValidBuildings, 1)
	b := res.ValidBuildings[0]
	assert.Equal(t, "Providencia", b.Comuna)
	assert.Equal(t, []string{"Quincho"}, b.Amenities)
	assert.Equal(t, listing.Typology1D1B, b.Units[0].Typology)

	assert.Equal(t, "Santiago", DefaultTables().DefaultComuna, "defaults are rebuilt per call")
}

func TestImporter_AmenitiesNotShared(t *testing.T) {
	res := ImportFromText(buildCSV(
		parqueSur(nil),
		parqueSur(map[string]string{schema.ColCondominio: "Torre Sol"}),
	))
	require.Len(t, res.ValidBuildings, 2)

	res.ValidBuildings[0].Amenities[0] = "changed"
	assert.Equal(t, "Piscina", res.ValidBuildings[1].Amenities[0])
}
