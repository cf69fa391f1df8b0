// Package schema describes the shape of listing data: the columns expected
// in a listings export and the validation rules for buildings and units.
package schema

// FieldSpec describes a single export column.
type FieldSpec struct {
	Name     string // Column header name (matched case-insensitively)
	Required bool   // Column must exist in the header row
}
