// Package templates renders the HTML fragments returned to HTMX clients.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/bomquote/internal/bom"
)

// ErrorAlert renders a dismissible error box with the support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<div class="alert alert-error" role="alert" data-code="%s">`, templ.EscapeString(code))
		ew.printf(`<p class="alert-message">%s</p>`, templ.EscapeString(message))
		if action != "" {
			ew.printf(`<p class="alert-action">%s</p>`, templ.EscapeString(action))
		}
		ew.printf(`<p class="alert-code">Error code: %s</p></div>`, templ.EscapeString(code))
		return ew.err
	})
}

// UploadStats renders the tier summary of an upload session.
func UploadStats(sessionID string, s bom.Stats) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<div class="upload-stats" id="stats-%s">`, templ.EscapeString(sessionID))
		ew.printf(`<p class="stats-total">%d of %d rows read</p>`, s.Rows, s.TotalRows)
		ew.printf(`<ul class="stats-tiers">`)
		for _, t := range []struct {
			class string
			label string
			n     int
		}{
			{"tier-high", "High confidence", s.Tiers.High},
			{"tier-medium", "Medium confidence", s.Tiers.Medium},
			{"tier-low", "Low confidence", s.Tiers.Low},
			{"tier-none", "Unmatched", s.Tiers.None},
		} {
			ew.printf(`<li class="%s">%s: <span>%d</span></li>`, t.class, t.label, t.n)
		}
		ew.printf(`</ul>`)
		ew.printf(`<p class="stats-review">%d accepted, %d mapped manually, %d deleted</p>`,
			s.Accepted, s.ManuallyMapped, s.Deleted)
		if s.ParseErrors > 0 {
			ew.printf(`<p class="stats-errors">%d rows could not be read</p>`, s.ParseErrors)
		}
		ew.printf(`</div>`)
		return ew.err
	})
}

// errWriter keeps the first write error so fragments read top to bottom.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
