package ingest

import "strings"

// Row is one physical row of the export before header mapping.
type Row struct {
	Line   int
	Fields []string
}

// Tokenize splits text into a header and data rows.
//
// Rows end at every line break (LF or CRLF), quoted or not, so an unbalanced
// quote only affects its own line. Within a line a double quote toggles
// quoting, "" inside quotes is a literal quote and the delimiter separates
// fields only outside quotes. Lines that are blank after trimming are skipped
// and do not consume a line number; the header is line 1. Rows may carry
// fewer fields than the header.
func Tokenize(text string, delim rune) (header []string, rows []Row) {
	line := 0
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimSuffix(raw, "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		line++
		fields := splitFields(raw, delim)
		if line == 1 {
			header = fields
			continue
		}
		rows = append(rows, Row{Line: line, Fields: fields})
	}
	return header, rows
}

// splitFields tokenizes a single line. An unclosed quote runs to the end of
// the line.
func splitFields(line string, delim rune) []string {
	var (
		src      = []rune(line)
		field    strings.Builder
		fields   []string
		inQuotes bool
	)

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(src) && src[i+1] == '"' {
				field.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == delim && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(c)
		}
	}
	return append(fields, field.String())
}
