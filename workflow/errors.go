package workflow

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNilConfiguration is returned when a nil configuration is compiled.
var ErrNilConfiguration = errors.New("configuration is nil")

// ConfigurationError reports a structural problem in a configuration. It
// carries the identifier of whatever failed so callers can point at it.
type ConfigurationError struct {
	NodeID    string // offending node id, if any
	EdgeID    string // offending edge id, if any
	Reference string // unresolved reference or predicate name, if any
	Reason    string // human-readable description
	Err       error  // underlying cause (may be nil)
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	switch {
	case e.EdgeID != "":
		b.WriteString(" at edge ")
		b.WriteString(strconv.Quote(e.EdgeID))
	case e.NodeID != "":
		b.WriteString(" at node ")
		b.WriteString(strconv.Quote(e.NodeID))
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NodeError builds a ConfigurationError for a node.
func NodeError(nodeID, reason string) *ConfigurationError {
	return &ConfigurationError{NodeID: nodeID, Reason: reason}
}

// EdgeError builds a ConfigurationError for an edge.
func EdgeError(edgeID, reason string) *ConfigurationError {
	return &ConfigurationError{EdgeID: edgeID, Reason: reason}
}

// AsConfigurationError unwraps err to a *ConfigurationError if it is one.
func AsConfigurationError(err error) (*ConfigurationError, bool) {
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr, true
	}
	return nil, false
}
