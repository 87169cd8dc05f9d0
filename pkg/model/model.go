package model

import (
	"fmt"

	"github.com/google/uuid"
)

// ComponentType represents the kind of code element a component stands for
type ComponentType string

const (
	ComponentModule    ComponentType = "module"
	ComponentClass     ComponentType = "class"
	ComponentFunction  ComponentType = "function"
	ComponentMethod    ComponentType = "method"
	ComponentInterface ComponentType = "interface"
)

// ComponentTypes lists every valid component type in a stable order
var ComponentTypes = []ComponentType{
	ComponentModule,
	ComponentClass,
	ComponentFunction,
	ComponentMethod,
	ComponentInterface,
}

// Valid reports whether t is one of the fixed component kinds
func (t ComponentType) Valid() bool {
	for _, known := range ComponentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseComponentType converts a string into a ComponentType, rejecting unknown kinds
func ParseComponentType(s string) (ComponentType, error) {
	t := ComponentType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown component type %q", s)
	}
	return t, nil
}

// RelationshipType represents the kind of a directed edge between components.
// The set is open: any non-empty string is accepted.
type RelationshipType string

const (
	RelationshipImports  RelationshipType = "imports"  // Module imports another module
	RelationshipContains RelationshipType = "contains" // Lexical containment (module > class > method)
	RelationshipInherits RelationshipType = "inherits" // Class derives from base class
	RelationshipCalls    RelationshipType = "calls"    // Function or method calls another
)

// Component is a node in the code graph: a module, class, function, method or interface
type Component struct {
	ID         string            `json:"id" yaml:"id"`
	Name       string            `json:"name" yaml:"name"`
	Type       ComponentType     `json:"type" yaml:"type"`
	FilePath   string            `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	LineNumber int               `json:"line_number,omitempty" yaml:"line_number,omitempty"` // 1-based, 0 when unknown
	Metadata   ComponentMetadata `json:"metadata" yaml:"metadata"`
}

// NewComponent creates a component with a freshly generated ID
func NewComponent(name string, typ ComponentType) *Component {
	return &Component{
		ID:   uuid.NewString(),
		Name: name,
		Type: typ,
	}
}

// Validate checks the component invariants
func (c *Component) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("component %q has no id", c.Name)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("component %s has unknown type %q", c.ID, c.Type)
	}
	return nil
}

// Relationship is a directed, typed edge between two components
type Relationship struct {
	ID       string               `json:"id" yaml:"id"`
	SourceID string               `json:"source_id" yaml:"source_id"`
	TargetID string               `json:"target_id" yaml:"target_id"`
	Type     RelationshipType     `json:"type" yaml:"type"`
	Metadata RelationshipMetadata `json:"metadata" yaml:"metadata"`
}

// NewRelationship creates a relationship with a freshly generated ID
func NewRelationship(sourceID, targetID string, typ RelationshipType) *Relationship {
	return &Relationship{
		ID:       uuid.NewString(),
		SourceID: sourceID,
		TargetID: targetID,
		Type:     typ,
	}
}

// Validate checks that every required field of the relationship is set
func (r *Relationship) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("relationship %s -> %s has no id", r.SourceID, r.TargetID)
	case r.SourceID == "" || r.TargetID == "":
		return fmt.Errorf("relationship %s is missing an endpoint", r.ID)
	case r.Type == "":
		return fmt.Errorf("relationship %s has no type", r.ID)
	}
	return nil
}

// Other returns the endpoint of r that is not id
func (r *Relationship) Other(id string) string {
	if r.SourceID == id {
		return r.TargetID
	}
	return r.SourceID
}
