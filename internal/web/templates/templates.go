// Package templates renders the HTML fragments returned to HTMX requests.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/listings/internal/core"
	"github.com/JonMunkholm/listings/internal/ingest"
)

// maxListed caps how many errors of each kind the report lists inline.
const maxListed = 50

// ErrorAlert renders a user-facing error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="alert alert-error" role="alert"><p class="alert-message">%s</p><p class="alert-action">%s</p><p class="alert-code">Code: %s</p></div>`,
			templ.EscapeString(message), templ.EscapeString(action), templ.EscapeString(code))
		return err
	})
}

// ImportReport renders the outcome of a preview or import.
func ImportReport(report *core.ImportReport) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		res := report.Result
		st := res.Stats

		fmt.Fprintf(&b, `<section class="import-report" data-import-id="%s">`, report.ImportID)
		fmt.Fprintf(&b, `<h2>%s</h2>`, templ.EscapeString(report.FileName))
		fmt.Fprintf(&b, `<dl class="stats"><dt>Rows</dt><dd>%d</dd><dt>Buildings</dt><dd>%d</dd><dt>Units</dt><dd>%d</dd>`,
			st.Rows, st.ValidBuildings, st.ValidUnits)
		fmt.Fprintf(&b, `<dt>Invalid buildings</dt><dd>%d</dd><dt>Invalid units</dt><dd>%d</dd><dt>Row errors</dt><dd>%d</dd></dl>`,
			st.InvalidBuildings, st.InvalidUnits, st.RowErrors)

		if report.Save != nil {
			fmt.Fprintf(&b, `<p class="save-summary">Saved %d buildings, %d failed.</p>`,
				report.Save.Succeeded, report.Save.Failed)
		}
		if len(res.MissingColumns) > 0 {
			fmt.Fprintf(&b, `<p class="missing-columns">Missing columns: %s</p>`,
				templ.EscapeString(strings.Join(res.MissingColumns, ", ")))
		}

		writeRowErrors(&b, res.RowErrors)
		writeEntityErrors(&b, res.InvalidEntities)

		b.WriteString(`</section>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeRowErrors(b *strings.Builder, errs []ingest.RowError) {
	if len(errs) == 0 {
		return
	}
	b.WriteString(`<h3>Rejected rows</h3><ul class="row-errors">`)
	for i, e := range errs {
		if i == maxListed {
			fmt.Fprintf(b, `<li class="more">and %d more</li>`, len(errs)-maxListed)
			break
		}
		fmt.Fprintf(b, `<li>Line %d: %s</li>`, e.Line, templ.EscapeString(e.Message))
	}
	b.WriteString(`</ul>`)
}

func writeEntityErrors(b *strings.Builder, errs []ingest.EntityError) {
	if len(errs) == 0 {
		return
	}
	b.WriteString(`<h3>Invalid entities</h3><ul class="entity-errors">`)
	for i, e := range errs {
		if i == maxListed {
			fmt.Fprintf(b, `<li class="more">and %d more</li>`, len(errs)-maxListed)
			break
		}
		fields := make([]string, 0, len(e.FieldErrors))
		for _, fe := range e.FieldErrors {
			fields = append(fields, fe.Error())
		}
		fmt.Fprintf(b, `<li>%s %s (%s): %s</li>`,
			e.Kind, templ.EscapeString(e.ID), templ.EscapeString(e.Reason),
			templ.EscapeString(strings.Join(fields, "; ")))
	}
	b.WriteString(`</ul>`)
}
