package ingest

import (
	"fmt"

	"github.com/JonMunkholm/listings/internal/listing"
	"github.com/JonMunkholm/listings/internal/schema"
)

// DefaultDelimiter separates fields in the listings export.
const DefaultDelimiter = ';'

// Options configures an Importer. Zero fields take their defaults.
type Options struct {
	Tables    *Tables
	Validator Validator
	Delimiter rune
}

// Importer runs the pipeline with a fixed set of tables and a validator.
// It is safe for concurrent use when its Validator is.
type Importer struct {
	tables    Tables
	validator Validator
	delim     rune
}

// New creates an Importer.
func New(opts Options) *Importer {
	im := &Importer{
		tables:    DefaultTables(),
		validator: opts.Validator,
		delim:     opts.Delimiter,
	}
	if opts.Tables != nil {
		im.tables = *opts.Tables
	}
	if im.validator == nil {
		im.validator = schema.NewValidator()
	}
	if im.delim == 0 {
		im.delim = DefaultDelimiter
	}
	return im
}

// ImportFromText runs the pipeline over text with the default tables and
// the marketplace schema validator.
func ImportFromText(text string) Result {
	return New(Options{}).Import(text)
}

// Import runs the pipeline over text. It always returns a Result.
func (im *Importer) Import(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = newResult()
			res.RowErrors = append(res.RowErrors, RowError{Message: fmt.Sprintf("%s: %v", ReasonInternal, r)})
			res.Stats.RowErrors = 1
		}
	}()

	res = newResult()
	header, rows := Tokenize(text, im.delim)
	if header == nil {
		return res
	}

	hm := NewHeaderMap(header)
	res.MissingColumns = hm.Missing()

	asm := newAssembler(im.tables)
	for _, row := range rows {
		asm.add(hm.Record(row))
	}
	res.RowErrors = append(res.RowErrors, asm.rowErrors...)

	for _, b := range asm.buildings {
		out := partition(im.validator, *b)
		if out.valid != nil {
			res.ValidBuildings = append(res.ValidBuildings, *out.valid)
		}
		res.InvalidEntities = append(res.InvalidEntities, out.errors...)
	}

	res.Stats = computeStats(len(rows), res)
	return res
}

func newResult() Result {
	return Result{
		ValidBuildings:  []listing.Building{},
		InvalidEntities: []EntityError{},
		RowErrors:       []RowError{},
	}
}

func computeStats(rows int, res Result) Stats {
	s := Stats{
		Rows:           rows,
		ValidBuildings: len(res.ValidBuildings),
		RowErrors:      len(res.RowErrors),
	}
	for _, b := range res.ValidBuildings {
		s.ValidUnits += len(b.Units)
	}
	for _, e := range res.InvalidEntities {
		switch e.Kind {
		case KindBuilding:
			s.InvalidBuildings++
		case KindUnit:
			s.InvalidUnits++
		}
	}
	return s
}
