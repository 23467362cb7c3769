// Package diagfmt renders diagnostics for the CLI.
package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"keel/internal/diag"
)

// PrettyOpts configures diagnostic rendering.
type PrettyOpts struct {
	Color bool
}

var (
	errorLabel = color.New(color.FgRed, color.Bold)
	warnLabel  = color.New(color.FgYellow, color.Bold)
	infoLabel  = color.New(color.FgCyan)
	noteLabel  = color.New(color.Faint)
)

// Pretty writes every diagnostic of bag to w, one per line, notes
// indented under their parent. Callers sort the bag first.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) {
	if bag == nil {
		return
	}
	for _, d := range bag.Items() {
		label := d.Severity.String()
		if opts.Color {
			label = severityColor(d.Severity).Sprint(label)
		}
		loc := ""
		if d.Primary.Known() {
			loc = fmt.Sprintf(" [file %d, %d..%d]", d.Primary.File, d.Primary.Start, d.Primary.End)
		}
		fmt.Fprintf(w, "%s %s: %s%s\n", label, d.Code, d.Message, loc)
		for _, n := range d.Notes {
			msg := n.Msg
			if opts.Color {
				msg = noteLabel.Sprint(msg)
			}
			fmt.Fprintf(w, "  note: %s\n", msg)
		}
	}
}

func severityColor(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return errorLabel
	case diag.SevWarning:
		return warnLabel
	}
	return infoLabel
}
