package schema

// Column names of the semicolon-delimited listings export.
const (
	ColEspecial         = "Especial"
	ColOP               = "OP"
	ColDireccion        = "Direccion"
	ColComuna           = "Comuna"
	ColCondominio       = "Condominio"
	ColTipoEdificio     = "Tipo edificio"
	ColTipologia        = "Tipologia"
	ColEstac            = "Estac"
	ColBod              = "Bod"
	ColArriendoTotal    = "Arriendo Total"
	ColGCTotal          = "GC Total"
	ColGarantiasMeses   = "Cant. Garantías (Meses)"
	ColCuotasGarantia   = "Cuotas Garantía"
	ColRentasNecesarias = "Rentas Necesarias"
	ColOrientacion      = "Orientacion"
	ColM2Depto          = "m2 Depto"
	ColM2Terraza        = "m2 Terraza"
	ColEstado           = "Estado"
	ColAceptaMascotas   = "Acepta Mascotas?"
	ColLinkListing      = "Link Listing"
	ColUnidad           = "Unidad"
)

// AssetPlanFieldSpecs defines the expected columns of the listings export.
// Extra columns in the file are ignored.
var AssetPlanFieldSpecs = []FieldSpec{
	{Name: ColEspecial, Required: true},
	{Name: ColOP, Required: true},
	{Name: ColDireccion, Required: true},
	{Name: ColComuna, Required: true},
	{Name: ColCondominio, Required: true},
	{Name: ColTipoEdificio, Required: true},
	{Name: ColTipologia, Required: true},
	{Name: ColEstac, Required: true},
	{Name: ColBod, Required: true},
	{Name: ColArriendoTotal, Required: true},
	{Name: ColGCTotal, Required: true},
	{Name: ColGarantiasMeses, Required: true},
	{Name: ColCuotasGarantia, Required: true},
	{Name: ColRentasNecesarias, Required: true},
	{Name: ColOrientacion, Required: true},
	{Name: ColM2Depto, Required: true},
	{Name: ColM2Terraza, Required: true},
	{Name: ColEstado, Required: true},
	{Name: ColAceptaMascotas, Required: true},
	{Name: ColLinkListing, Required: true},
	{Name: ColUnidad, Required: true},
}
