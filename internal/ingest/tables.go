package ingest

import "github.com/JonMunkholm/listings/internal/listing"

// Tables holds the lookup tables and defaults the pipeline maps source
// values through. An Importer never modifies its Tables.
type Tables struct {
	// Typologies maps source spellings to canonical codes. Spellings not
	// listed pass through unchanged.
	Typologies map[string]listing.Typology

	// Orientations is keyed by upper-case compass abbreviation.
	Orientations map[string]listing.Orientation

	// AvailablePhrases are lower-case substrings of Estado meaning the unit
	// can be rented now.
	AvailablePhrases []string

	// PetAffirmatives are lower-case Acepta Mascotas? values meaning yes.
	PetAffirmatives []string

	// DefaultAreas is the floor area used when m2 Depto is absent.
	DefaultAreas map[listing.Typology]float64

	DefaultComuna string
	Amenities     []string
	Gallery       []string
}

// DefaultTables returns the tables for the AssetPlan export. Each call
// builds fresh maps and slices.
func DefaultTables() Tables {
	return Tables{
		Typologies: map[string]listing.Typology{
			"Studio": listing.TypologyStudio,
			"1D1B":   listing.Typology1D1B,
			"1D":     listing.Typology1D1B,
			"2D1B":   listing.Typology2D1B,
			"2D":     listing.Typology2D1B,
			"2D2B":   listing.Typology2D2B,
			"3D2B":   listing.Typology3D2B,
			"3D":     listing.Typology3D2B,
		},
		Orientations: map[string]listing.Orientation{
			"N":  listing.OrientationN,
			"NE": listing.OrientationNE,
			"E":  listing.OrientationE,
			"SE": listing.OrientationSE,
			"S":  listing.OrientationS,
			"SO": listing.OrientationSO,
			"O":  listing.OrientationO,
			"NO": listing.OrientationNO,
		},
		AvailablePhrases: []string{"lista para arrendar", "disponible"},
		PetAffirmatives:  []string{"si", "sí", "si."},
		DefaultAreas: map[listing.Typology]float64{
			listing.TypologyStudio: 30,
			listing.Typology1D1B:   45,
			listing.Typology2D1B:   55,
			listing.Typology2D2B:   65,
			listing.Typology3D2B:   90,
		},
		DefaultComuna: "Santiago",
		Amenities:     []string{"Piscina", "Gimnasio"},
		Gallery: []string{
			"/images/lascondes-cover.jpg",
			"/images/lascondes-1.jpg",
			"/images/lascondes-2.jpg",
		},
	}
}
