package workflow

import "fmt"

// Diagnostic represents a validation error or warning found in a
// configuration. The validator accumulates these instead of failing fast.
type Diagnostic struct {
	Code     string `json:"code"`              // e.g. "WF-004"
	Severity string `json:"severity"`          // "error" or "warning"
	Message  string `json:"message"`           // human-readable description
	Path     string `json:"path,omitempty"`    // JSON path to offending field
	NodeID   string `json:"node_id,omitempty"` // offending node id, if any
	EdgeID   string `json:"edge_id,omitempty"` // offending edge id, if any
}

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Diagnostic codes.
const (
	CodeDuplicateNodeID      = "WF-001"
	CodeNameDerivation       = "WF-002"
	CodeUnknownRole          = "WF-003"
	CodeDanglingReference    = "WF-004"
	CodeSentinelMisuse       = "WF-005"
	CodeConditionMismatch    = "WF-006"
	CodeInconsistentFunction = "WF-007"
	CodeUndefinedFunction    = "WF-008"
	CodeMissingEntry         = "WF-009"
	CodeMissingExit          = "WF-010"
	CodeUnknownEdgeType      = "WF-011"
	CodeUnresolvedMapping    = "WF-012"
	CodeDuplicateName        = "WF-013"
	CodeField                = "WF-014"

	CodeOrphanNode    = "WF-101"
	CodeMultipleEntry = "WF-102"
)

// String renders the diagnostic as a single line.
func (d Diagnostic) String() string {
	if d.Path != "" {
		return fmt.Sprintf("%s [%s]: %s (at %s)", d.Severity, d.Code, d.Message, d.Path)
	}
	return fmt.Sprintf("%s [%s]: %s", d.Severity, d.Code, d.Message)
}

// HasErrors returns true if any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics.
func Errors(diags []Diagnostic) []Diagnostic {
	var errs []Diagnostic
	for _, d := range diags {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		}
	}
	return errs
}

// Warnings returns only the warning-severity diagnostics.
func Warnings(diags []Diagnostic) []Diagnostic {
	var warns []Diagnostic
	for _, d := range diags {
		if d.Severity == SeverityWarning {
			warns = append(warns, d)
		}
	}
	return warns
}

// Messages returns the messages of the error-severity diagnostics. An empty
// result means the configuration is structurally sound.
func Messages(diags []Diagnostic) []string {
	msgs := make([]string, 0, len(diags))
	for _, d := range Errors(diags) {
		msgs = append(msgs, d.Message)
	}
	return msgs
}

// HasCode reports whether any diagnostic carries the given code.
func HasCode(diags []Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func errDiag(code, message, path string) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityError, Message: message, Path: path}
}
