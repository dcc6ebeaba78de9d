package domain

// Reason classifies a non-fatal data problem found while loading or joining.
// No reason aborts processing; diagnostics travel alongside results so the
// caller decides what to surface.
type Reason string

const (
	ReasonMalformedField       Reason = "malformed-field"
	ReasonMissingRequiredField Reason = "missing-required-field"
	ReasonDuplicateIdentifier  Reason = "duplicate-identifier"
	ReasonUnjoinableRecord     Reason = "unjoinable-record"
)

// Diagnostic describes one data problem. Row is the 1-based data row index
// within the source (0 when the problem is not row-scoped, e.g. join-time).
type Diagnostic struct {
	Source string `json:"source"`
	Row    int    `json:"row,omitempty"`
	Field  string `json:"field,omitempty"`
	Reason Reason `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// CountByReason tallies diagnostics per reason, for logs and reports.
func CountByReason(diags []Diagnostic) map[Reason]int {
	counts := make(map[Reason]int, 4)
	for _, d := range diags {
		counts[d.Reason]++
	}
	return counts
}
