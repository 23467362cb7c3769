package diag

import "keel/internal/source"

// Reporter is the minimal contract for emitting diagnostics from
// lowering phases, decoupled from storage and formatting.
type Reporter interface {
	Report(code Code, sev Severity, primary source.Span, msg string, notes []Note)
}

// BagReporter stores reported diagnostics in a Bag.
type BagReporter struct {
	Bag *Bag
}

// Report implements Reporter.
func (r *BagReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r == nil || r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  msg,
		Primary:  primary,
		Notes:    notes,
	})
}

// NopReporter drops everything.
type NopReporter struct{}

// Report implements Reporter.
func (NopReporter) Report(Code, Severity, source.Span, string, []Note) {}
