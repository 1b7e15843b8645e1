package compiler

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/petal-labs/tradingflow/conditional"
	"github.com/petal-labs/tradingflow/workflow"
)

// ValidateOption configures a standalone validation pass.
type ValidateOption func(*validation)

// WithConditionalLogic checks that every conditional edge names a predicate
// known to logic. Without it predicate names are not checked.
func WithConditionalLogic(logic conditional.Logic) ValidateOption {
	return func(v *validation) {
		v.logic = logic
	}
}

// WithValidationHandler sets a handler that receives the validate.finished
// event.
func WithValidationHandler(h EventHandler) ValidateOption {
	return func(v *validation) {
		v.handler = h
	}
}

// Validate checks cfg and returns every defect found. It never creates
// node bodies and never modifies cfg. Diagnostics are ordered by the
// position of the offending node or edge, followed by whole-workflow
// checks.
func Validate(cfg *workflow.Configuration, opts ...ValidateOption) []workflow.Diagnostic {
	v := &validation{}
	for _, opt := range opts {
		opt(v)
	}
	return v.run(cfg)
}

// Validate checks cfg against the compiler's conditional logic.
func (c *Compiler) Validate(cfg *workflow.Configuration) []workflow.Diagnostic {
	diags := Validate(cfg, WithConditionalLogic(c.logic), WithValidationHandler(c.handler))
	name := ""
	if cfg != nil {
		name = cfg.Name
	}
	c.logger.Debug("workflow validated",
		"workflow", name,
		"errors", len(workflow.Errors(diags)),
		"warnings", len(workflow.Warnings(diags)))
	return diags
}

type validation struct {
	logic   conditional.Logic
	handler EventHandler
}

func (v *validation) run(cfg *workflow.Configuration) []workflow.Diagnostic {
	started := time.Now()
	var diags []workflow.Diagnostic
	name := ""
	if cfg == nil {
		diags = workflow.CheckFields(nil)
	} else {
		name = cfg.Name
		diags = v.check(cfg)
	}

	if v.handler != nil {
		v.handler(NewEvent(EventValidateFinished, uuid.NewString(), name).
			WithElapsed(time.Since(started)).
			WithPayload("errors", len(workflow.Errors(diags))).
			WithPayload("warnings", len(workflow.Warnings(diags))))
	}
	return diags
}

func (v *validation) check(cfg *workflow.Configuration) []workflow.Diagnostic {
	diags := workflow.CheckFields(cfg)
	names := make(map[string]string, len(cfg.Nodes))

	// Nodes.
	owners := make(map[string]string, len(cfg.Nodes))
	for i, nd := range cfg.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		if nd.ID == "" {
			continue
		}
		if _, dup := names[nd.ID]; dup {
			diags = append(diags, nodeDiag(workflow.CodeDuplicateNodeID,
				fmt.Sprintf("duplicate node id %q", nd.ID), path+".id", nd.ID))
			continue
		}
		if !nd.Type.Valid() {
			// Reported by the field checks; keep the id resolvable.
			names[nd.ID] = nd.ID
			continue
		}

		display, err := NodeDisplayName(nd)
		if err != nil {
			diags = append(diags, nodeDiag(workflow.CodeNameDerivation, reason(err), path+".name", nd.ID))
			names[nd.ID] = nd.ID
			continue
		}
		names[nd.ID] = display

		if _, err := nd.Spec(); err != nil {
			diags = append(diags, nodeDiag(workflow.CodeUnknownRole, reason(err),
				path+".config."+workflow.ConfigAgentType, nd.ID))
		}
		if other, dup := owners[display]; dup {
			diags = append(diags, nodeDiag(workflow.CodeDuplicateName,
				fmt.Sprintf("display name %q already used by node %q", display, other), path+".name", nd.ID))
			continue
		}
		owners[display] = nd.ID
	}

	// Edges.
	referenced := make(map[string]bool, len(cfg.Nodes))
	functions := make(map[string]workflow.EdgeDescriptor)
	routes := make(map[string]map[string]route) // source -> result -> route
	entries, exits := 0, 0

	for i, ed := range cfg.Edges {
		path := fmt.Sprintf("edges[%d]", i)
		referenced[ed.Source] = true
		referenced[ed.Target] = true
		if ed.Source == workflow.Entry {
			entries++
		}
		if ed.Target == workflow.Exit {
			exits++
		}

		diags = append(diags, v.endpoint(ed, ed.Source, true, path+".source", names)...)
		diags = append(diags, v.endpoint(ed, ed.Target, false, path+".target", names)...)
		if ed.Source == workflow.Entry && ed.Target == workflow.Exit {
			diags = append(diags, edgeDiag(workflow.CodeSentinelMisuse,
				"edge cannot go directly from entry to exit", path+".target", ed.ID))
		}

		conditionalEdge := ed.Type == workflow.EdgeTypeConditional
		switch {
		case conditionalEdge && ed.Condition == nil:
			diags = append(diags, edgeDiag(workflow.CodeConditionMismatch,
				"conditional edge has no condition", path+".condition", ed.ID))
			continue
		case !conditionalEdge && ed.Condition != nil && ed.Type.Valid():
			diags = append(diags, edgeDiag(workflow.CodeConditionMismatch,
				fmt.Sprintf("%s edge carries a condition", ed.Type), path+".condition", ed.ID))
			continue
		case !conditionalEdge:
			continue
		}

		if ed.Source == workflow.Entry {
			diags = append(diags, edgeDiag(workflow.CodeSentinelMisuse,
				"conditional edge cannot leave entry", path+".source", ed.ID))
		}

		fn := ed.Condition.Function
		if fn == "" {
			diags = append(diags, edgeDiag(workflow.CodeUndefinedFunction,
				"conditional edge names no function", path+".condition.function", ed.ID))
		} else if v.logic != nil {
			if _, ok := v.logic.Predicate(fn); !ok {
				diags = append(diags, edgeDiag(workflow.CodeUndefinedFunction,
					fmt.Sprintf("undefined conditional function %q", fn), path+".condition.function", ed.ID))
			}
		}
		if first, seen := functions[ed.Source]; seen && first.Condition.Function != fn {
			diags = append(diags, edgeDiag(workflow.CodeInconsistentFunction,
				fmt.Sprintf("source %q uses function %q here but %q on edge %q",
					ed.Source, fn, first.Condition.Function, first.ID),
				path+".condition.function", ed.ID))
		} else if !seen {
			functions[ed.Source] = ed
		}

		if len(ed.Condition.Mapping) == 0 {
			diags = append(diags, edgeDiag(workflow.CodeUnresolvedMapping,
				"conditional edge has an empty mapping", path+".condition.mapping", ed.ID))
		}
		byResult := routes[ed.Source]
		if byResult == nil {
			byResult = make(map[string]route, len(ed.Condition.Mapping))
			routes[ed.Source] = byResult
		}
		for _, m := range ed.Condition.Mapping {
			referenced[m.Target] = true
			mpath := fmt.Sprintf("%s.condition.mapping.%s", path, m.Result)
			target, err := resolveReference(m.Target, names, false)
			if err != nil {
				diags = append(diags, edgeDiag(workflow.CodeUnresolvedMapping,
					fmt.Sprintf("mapping result %q: %s", m.Result, err.Reason), mpath, ed.ID))
				target = m.Target
			}
			if prev, dup := byResult[m.Result]; dup {
				if prev.target != target {
					diags = append(diags, edgeDiag(workflow.CodeUnresolvedMapping,
						fmt.Sprintf("result %q already routed to %q by edge %q", m.Result, prev.target, prev.edgeID),
						mpath, ed.ID))
				}
				continue
			}
			byResult[m.Result] = route{target: target, edgeID: ed.ID}
		}
	}

	// Whole workflow.
	if entries == 0 {
		diags = append(diags, workflow.Diagnostic{
			Code:     workflow.CodeMissingEntry,
			Severity: workflow.SeverityError,
			Message:  "no edge leaves entry",
			Path:     "edges",
		})
	}
	if entries > 1 {
		diags = append(diags, workflow.Diagnostic{
			Code:     workflow.CodeMultipleEntry,
			Severity: workflow.SeverityWarning,
			Message:  fmt.Sprintf("%d edges leave entry; execution starts at all of them", entries),
			Path:     "edges",
		})
	}
	if exits == 0 {
		diags = append(diags, workflow.Diagnostic{
			Code:     workflow.CodeMissingExit,
			Severity: workflow.SeverityError,
			Message:  "no edge reaches exit",
			Path:     "edges",
		})
	}

	if len(cfg.Nodes) > 1 {
		for i, nd := range cfg.Nodes {
			if nd.ID == "" || referenced[nd.ID] {
				continue
			}
			diags = append(diags, workflow.Diagnostic{
				Code:     workflow.CodeOrphanNode,
				Severity: workflow.SeverityWarning,
				Message:  fmt.Sprintf("node %q is not connected to any edge", nd.ID),
				Path:     fmt.Sprintf("nodes[%d]", i),
				NodeID:   nd.ID,
			})
		}
	}

	return diags
}

// endpoint checks one side of an edge.
func (v *validation) endpoint(ed workflow.EdgeDescriptor, ref string, isSource bool, path string, names map[string]string) []workflow.Diagnostic {
	if ref == "" {
		return nil
	}
	_, err := resolveReference(ref, names, isSource)
	if err == nil {
		return nil
	}
	code := workflow.CodeDanglingReference
	if isSentinelMisuse(err) {
		code = workflow.CodeSentinelMisuse
	}
	return []workflow.Diagnostic{edgeDiag(code, err.Reason, path, ed.ID)}
}

// route is the first declaration of a conditional result for a source.
type route struct {
	target string
	edgeID string
}

func nodeDiag(code, message, path, nodeID string) workflow.Diagnostic {
	return workflow.Diagnostic{
		Code:     code,
		Severity: workflow.SeverityError,
		Message:  message,
		Path:     path,
		NodeID:   nodeID,
	}
}

func edgeDiag(code, message, path, edgeID string) workflow.Diagnostic {
	return workflow.Diagnostic{
		Code:     code,
		Severity: workflow.SeverityError,
		Message:  message,
		Path:     path,
		EdgeID:   edgeID,
	}
}

// reason strips the location prefix from configuration errors since the
// diagnostic carries the location itself.
func reason(err error) string {
	if cfgErr, ok := workflow.AsConfigurationError(err); ok && cfgErr.Reason != "" {
		if cfgErr.Err != nil {
			return cfgErr.Reason + ": " + cfgErr.Err.Error()
		}
		return cfgErr.Reason
	}
	return err.Error()
}
