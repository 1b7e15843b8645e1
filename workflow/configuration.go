package workflow

import (
	"encoding/json"
	"fmt"
	"time"
)

// Metadata keys stamped or read by this package.
const (
	MetaCreatedAt = "created_at"
	MetaUpdatedAt = "updated_at"
	MetaIsDefault = "is_default"
	MetaAuthor    = "author"
)

// Configuration describes one workflow: its nodes, the edges between them,
// free-form parameters consumed by node implementations, and metadata.
// The compiler and validator only read it.
type Configuration struct {
	Version     string           `json:"version"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Nodes       []NodeDescriptor `json:"nodes" validate:"dive"`
	Edges       []EdgeDescriptor `json:"edges" validate:"dive"`
	Parameters  map[string]any   `json:"parameters,omitempty"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

// NodeDescriptor is the declarative record of one unit of work.
type NodeDescriptor struct {
	ID          string         `json:"id" validate:"required"`
	Type        NodeType       `json:"type" validate:"required,nodetype"`
	Name        string         `json:"name,omitempty"`
	Category    string         `json:"category,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
	Position    *Position      `json:"position,omitempty"`
	ToolConfigs []string       `json:"tool_configs,omitempty"`
}

// Position is a layout hint for editors. The compiler never reads it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EdgeDescriptor is the declarative record of one transition.
type EdgeDescriptor struct {
	ID        string               `json:"id" validate:"required"`
	Source    string               `json:"source" validate:"required"`
	Target    string               `json:"target" validate:"required"`
	Type      EdgeType             `json:"type" validate:"required,edgetype"`
	Condition *ConditionDescriptor `json:"condition,omitempty"`
}

// ConditionDescriptor names a predicate on the conditional-logic
// collaborator and maps each of its results to a target node id.
type ConditionDescriptor struct {
	Function string        `json:"function"`
	Mapping  ResultMapping `json:"mapping"`
}

// New builds a configuration and stamps creation and update timestamps
// into its metadata.
func New(name, version string, nodes []NodeDescriptor, edges []EdgeDescriptor, params map[string]any) *Configuration {
	cfg := &Configuration{
		Version:    version,
		Name:       name,
		Nodes:      nodes,
		Edges:      edges,
		Parameters: params,
	}
	cfg.StampMetadata(time.Now())
	return cfg
}

// StampMetadata sets created_at (if absent) and updated_at to now.
func (c *Configuration) StampMetadata(now time.Time) {
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	ts := now.UTC().Format(time.RFC3339)
	if _, ok := c.Metadata[MetaCreatedAt]; !ok {
		c.Metadata[MetaCreatedAt] = ts
	}
	c.Metadata[MetaUpdatedAt] = ts
}

// Touch refreshes the updated_at timestamp.
func (c *Configuration) Touch() {
	c.StampMetadata(time.Now())
}

// IsDefault reports whether the configuration is flagged as the built-in default.
func (c *Configuration) IsDefault() bool {
	v, _ := c.Metadata[MetaIsDefault].(bool)
	return v
}

// Author returns the author recorded in metadata, if any.
func (c *Configuration) Author() string {
	v, _ := c.Metadata[MetaAuthor].(string)
	return v
}

// NodeByID returns the first node with the given id.
func (c *Configuration) NodeByID(id string) (NodeDescriptor, bool) {
	for _, nd := range c.Nodes {
		if nd.ID == id {
			return nd, true
		}
	}
	return NodeDescriptor{}, false
}

// Clone returns a deep copy made through the configuration's JSON form, so
// the copy shares nothing with the original.
func (c *Configuration) Clone() (*Configuration, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("cloning configuration: %w", err)
	}
	var out Configuration
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cloning configuration: %w", err)
	}
	return &out, nil
}

// AgentType returns the role key from the node's config, if present.
func (nd NodeDescriptor) AgentType() string {
	v, _ := nd.Config[ConfigAgentType].(string)
	return v
}

// IsSentinel reports whether ref is Entry or Exit.
func IsSentinel(ref string) bool {
	return ref == Entry || ref == Exit
}

// Equal reports whether two configurations have the same JSON form. Values
// that only differ in Go representation (int versus float64 after a JSON
// round trip, []string versus []any) compare equal.
func Equal(a, b *Configuration) bool {
	if a == nil || b == nil {
		return a == b
	}
	ca, err := canonicalJSON(a)
	if err != nil {
		return false
	}
	cb, err := canonicalJSON(b)
	if err != nil {
		return false
	}
	return string(ca) == string(cb)
}

// canonicalJSON encodes cfg, decodes it generically and encodes again so
// map keys are sorted and numbers normalized.
func canonicalJSON(cfg *Configuration) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
