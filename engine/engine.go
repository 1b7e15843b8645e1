// Package engine adapts graph builders to the narrow contract the compiler
// needs: register a node under a name, add direct and conditional
// transitions, and compile.
//
// Two builders are provided. StateGraphBuilder targets the trpc-agent-go
// StateGraph and yields an executable *graph.Graph. Recorder captures the
// same calls into a Blueprint that can be inspected, printed and routed
// without running anything.
package engine

import (
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-agent-go/graph"
)

// Start and End are the engine's entry and finish markers. Edges from
// Start set the entry point; edges to End set a finish point.
var (
	Start = graph.Start
	End   = graph.End
)

// Errors returned by builders.
var (
	ErrDuplicateNode        = errors.New("node already registered")
	ErrUnknownNode          = errors.New("node not registered")
	ErrDuplicateConditional = errors.New("conditional transition already registered for source")
	ErrNilFunc              = errors.New("nil function")
	ErrCompiled             = errors.New("builder already compiled")
)

// Builder is a mutable graph under construction producing G on Compile.
// Implementations are not safe for concurrent use.
type Builder[G any] interface {
	// AddNode registers fn under name.
	AddNode(name string, fn graph.NodeFunc) error
	// AddEdge adds a direct transition. from may be Start and to may be End.
	AddEdge(from, to string) error
	// AddConditionalEdges routes from through cond. Each result of cond is
	// looked up in pathMap to find the next node, which may be End.
	AddConditionalEdges(from string, cond graph.ConditionalFunc, pathMap map[string]string) error
	// Compile finalizes the graph.
	Compile() (G, error)
}

// nodeSet tracks names registered on a builder so both implementations
// reject the same mistakes.
type nodeSet struct {
	names    map[string]struct{}
	branches map[string]struct{}
	compiled bool
}

func newNodeSet() nodeSet {
	return nodeSet{
		names:    make(map[string]struct{}),
		branches: make(map[string]struct{}),
	}
}

func (s *nodeSet) addNode(name string, fn graph.NodeFunc) error {
	if s.compiled {
		return ErrCompiled
	}
	if fn == nil {
		return fmt.Errorf("node %q: %w", name, ErrNilFunc)
	}
	if name == Start || name == End {
		return fmt.Errorf("node name %q is reserved", name)
	}
	if _, dup := s.names[name]; dup {
		return fmt.Errorf("node %q: %w", name, ErrDuplicateNode)
	}
	s.names[name] = struct{}{}
	return nil
}

func (s *nodeSet) checkEdge(from, to string) error {
	if s.compiled {
		return ErrCompiled
	}
	if from == End {
		return fmt.Errorf("transition cannot leave %q", End)
	}
	if to == Start {
		return fmt.Errorf("transition cannot enter %q", Start)
	}
	if from == Start && to == End {
		return fmt.Errorf("transition from %q directly to %q", Start, End)
	}
	if from != Start {
		if err := s.known(from); err != nil {
			return err
		}
	}
	if to != End {
		if err := s.known(to); err != nil {
			return err
		}
	}
	return nil
}

func (s *nodeSet) checkConditional(from string, cond graph.ConditionalFunc, pathMap map[string]string) error {
	if s.compiled {
		return ErrCompiled
	}
	if cond == nil {
		return fmt.Errorf("conditional from %q: %w", from, ErrNilFunc)
	}
	if from == Start || from == End {
		return fmt.Errorf("conditional transition cannot leave %q", from)
	}
	if err := s.known(from); err != nil {
		return err
	}
	if _, dup := s.branches[from]; dup {
		return fmt.Errorf("node %q: %w", from, ErrDuplicateConditional)
	}
	for result, to := range pathMap {
		if to == End {
			continue
		}
		if err := s.known(to); err != nil {
			return fmt.Errorf("result %q: %w", result, err)
		}
	}
	s.branches[from] = struct{}{}
	return nil
}

func (s *nodeSet) known(name string) error {
	if _, ok := s.names[name]; !ok {
		return fmt.Errorf("node %q: %w", name, ErrUnknownNode)
	}
	return nil
}
