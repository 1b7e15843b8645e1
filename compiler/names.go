package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/petal-labs/tradingflow/engine"
	"github.com/petal-labs/tradingflow/registry"
	"github.com/petal-labs/tradingflow/workflow"
)

// NodeDisplayName returns the name a node is registered under in the
// compiled graph. An explicit name wins. Otherwise the name comes from the
// (type, role) table in the registry, and roles missing from the table fall
// back to a title-cased rendering of the role. A node that has neither a
// name nor a role fails, except the trader, which has only one archetype.
//
// The result depends only on the descriptor.
func NodeDisplayName(nd workflow.NodeDescriptor) (string, error) {
	if nd.Name != "" {
		return nd.Name, nil
	}
	return derivedName(registry.Global(), nd)
}

func derivedName(reg *registry.Registry, nd workflow.NodeDescriptor) (string, error) {
	if !nd.Type.Valid() {
		return "", workflow.NodeError(nd.ID, fmt.Sprintf("cannot derive a name for unknown node type %q", nd.Type))
	}

	role := nd.AgentType()
	if nd.Type == workflow.NodeTypeTrader {
		name, _ := reg.DisplayName(nd.Type, role)
		return name, nil
	}
	if role == "" {
		return "", workflow.NodeError(nd.ID, fmt.Sprintf(
			"cannot derive a name: %s node has no name and no config.%s", nd.Type, workflow.ConfigAgentType))
	}
	if name, ok := reg.DisplayName(nd.Type, role); ok {
		return name, nil
	}

	if nd.Type == workflow.NodeTypeToolNode {
		return registry.ToolNodeName(workflow.ToolKey(role)), nil
	}
	key := role
	if nd.Type == workflow.NodeTypeMessageClear {
		key = workflow.ToolKey(role)
	}
	title := titleCase(key)
	if title == "" {
		return "", workflow.NodeError(nd.ID, fmt.Sprintf("cannot derive a name from %s %q", workflow.ConfigAgentType, role))
	}
	if nd.Type == workflow.NodeTypeMessageClear {
		return registry.MessageClearName(title), nil
	}
	return title, nil
}

// titleCase renders "crypto_analyst" as "Crypto Analyst".
func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || unicode.IsSpace(r) })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToTitle(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// ResolveReference maps an edge endpoint to the name used in the compiled
// graph. Entry resolves to the start marker only as a source and Exit to the
// end marker only as a target. Any other reference must be a node id in
// names.
func ResolveReference(ref string, names map[string]string, isSource bool) (string, error) {
	name, err := resolveReference(ref, names, isSource)
	if err != nil {
		return "", err
	}
	return name, nil
}

func resolveReference(ref string, names map[string]string, isSource bool) (string, *workflow.ConfigurationError) {
	switch ref {
	case workflow.Entry:
		if !isSource {
			return "", &workflow.ConfigurationError{Reference: ref, Reason: "entry cannot be a target"}
		}
		return engine.Start, nil
	case workflow.Exit:
		if isSource {
			return "", &workflow.ConfigurationError{Reference: ref, Reason: "exit cannot be a source"}
		}
		return engine.End, nil
	}
	if name, ok := names[ref]; ok {
		return name, nil
	}
	return "", &workflow.ConfigurationError{Reference: ref, Reason: fmt.Sprintf("references unknown node %q", ref)}
}

// isSentinelMisuse reports whether err came from a sentinel in the wrong
// position rather than an unknown node.
func isSentinelMisuse(err *workflow.ConfigurationError) bool {
	return err != nil && workflow.IsSentinel(err.Reference)
}
