// Package registry provides the node-type catalog for tradingflow. It maps
// each node type to its category, model tier, the roles it accepts and the
// display name each (type, role) pair compiles to. The name resolver, the
// node factory and the CLI all read from it.
package registry

import (
	"sync"

	"github.com/petal-labs/tradingflow/workflow"
)

// NodeTypeDef describes a registered node type.
type NodeTypeDef struct {
	Type        workflow.NodeType  `json:"type"`
	Category    string             `json:"category"`
	DisplayName string             `json:"display_name"`
	Description string             `json:"description"`
	Tier        workflow.ModelTier `json:"tier,omitempty"`   // model tier bound by the factory; analysts choose their own
	Memory      workflow.MemoryKey `json:"memory,omitempty"` // memory store for types without roles
	RoleKey     string             `json:"role_key,omitempty"`
	Roles       []RoleDef          `json:"roles,omitempty"`
}

// RoleDef describes one role a node type can play.
type RoleDef struct {
	Role        string             `json:"role"`
	DisplayName string             `json:"display_name"`
	Memory      workflow.MemoryKey `json:"memory,omitempty"` // dedicated memory store, if any
}

// Role returns the role definition for role.
func (d NodeTypeDef) Role(role string) (RoleDef, bool) {
	for _, rd := range d.Roles {
		if rd.Role == role {
			return rd, true
		}
	}
	return RoleDef{}, false
}

// DisplayEntry is one row of the (type, role) -> display name table.
type DisplayEntry struct {
	Type        workflow.NodeType `json:"type"`
	Role        string            `json:"role"`
	DisplayName string            `json:"display_name"`
}

var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the singleton registry instance. On first call it
// initializes the registry and registers the built-in node types.
func Global() *Registry {
	globalOnce.Do(func() {
		global = newRegistry()
		registerBuiltins(global)
	})
	return global
}

// Registry holds all known node types.
type Registry struct {
	mu    sync.RWMutex
	types map[workflow.NodeType]NodeTypeDef
	order []workflow.NodeType // preserves registration order
}

func newRegistry() *Registry {
	return &Registry{
		types: make(map[workflow.NodeType]NodeTypeDef),
	}
}

// Register adds a node type definition. If a type with the same name
// already exists it is overwritten.
func (r *Registry) Register(def NodeTypeDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[def.Type]; !exists {
		r.order = append(r.order, def.Type)
	}
	r.types[def.Type] = def
}

// Get returns a node type definition by type.
func (r *Registry) Get(t workflow.NodeType) (NodeTypeDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.types[t]
	return def, ok
}

// Has returns true if the type is registered.
func (r *Registry) Has(t workflow.NodeType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[t]
	return ok
}

// DisplayName looks up the display name for a (type, role) pair. Types
// without roles (the trader) answer for the empty role.
func (r *Registry) DisplayName(t workflow.NodeType, role string) (string, bool) {
	def, ok := r.Get(t)
	if !ok {
		return "", false
	}
	if len(def.Roles) == 0 {
		return def.DisplayName, true
	}
	rd, ok := def.Role(role)
	if !ok {
		return "", false
	}
	return rd.DisplayName, true
}

// Memory returns the memory store key bound to a (type, role) pair. Types
// without roles answer with their own store for any role.
func (r *Registry) Memory(t workflow.NodeType, role string) (workflow.MemoryKey, bool) {
	def, ok := r.Get(t)
	if !ok {
		return "", false
	}
	if len(def.Roles) == 0 {
		return def.Memory, def.Memory != ""
	}
	if rd, ok := def.Role(role); ok && rd.Memory != "" {
		return rd.Memory, true
	}
	return "", false
}

// DisplayTable returns every (type, role) -> display name row in
// registration order.
func (r *Registry) DisplayTable() []DisplayEntry {
	var out []DisplayEntry
	for _, def := range r.All() {
		if len(def.Roles) == 0 {
			out = append(out, DisplayEntry{Type: def.Type, DisplayName: def.DisplayName})
			continue
		}
		for _, rd := range def.Roles {
			out = append(out, DisplayEntry{Type: def.Type, Role: rd.Role, DisplayName: rd.DisplayName})
		}
	}
	return out
}

// All returns all registered node types in registration order.
func (r *Registry) All() []NodeTypeDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]NodeTypeDef, 0, len(r.order))
	for _, t := range r.order {
		result = append(result, r.types[t])
	}
	return result
}

// Len returns the number of registered node types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}
