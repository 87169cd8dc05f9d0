// Package render turns a graph into diagrams: a neutral node and edge
// description that the web API serves as JSON, and Mermaid text for the CLI.
package render

import (
	"errors"
	"fmt"

	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/lens"
	"github.com/ritzau/codegraph/pkg/model"
)

// ErrUnknownComponent is returned when the focal component is not in the graph
var ErrUnknownComponent = errors.New("unknown component")

// Kind selects what a diagram shows
type Kind string

const (
	KindComponent  Kind = "component"  // Every component and relationship
	KindModule     Kind = "module"     // Modules and the relationships between them
	KindClass      Kind = "class"      // Classes, their methods and inheritance
	KindDependency Kind = "dependency" // Import dependencies
	KindCall       Kind = "call"       // Functions, methods and calls between them
)

// Kinds lists every diagram kind
var Kinds = []Kind{KindComponent, KindModule, KindClass, KindDependency, KindCall}

// ParseKind converts a string into a Kind
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unsupported diagram type %q", s)
}

// Node is one component in a diagram
type Node struct {
	ID       string              `json:"id" yaml:"id"`
	Name     string              `json:"name" yaml:"name"`
	Label    string              `json:"label" yaml:"label"`
	Type     model.ComponentType `json:"type" yaml:"type"`
	Parent   string              `json:"parent,omitempty" yaml:"parent,omitempty"` // Enclosing class or module when it is in the diagram
	External bool                `json:"external,omitempty" yaml:"external,omitempty"`
}

// Edge is one relationship in a diagram
type Edge struct {
	Source string                 `json:"source" yaml:"source"`
	Target string                 `json:"target" yaml:"target"`
	Type   model.RelationshipType `json:"type" yaml:"type"`
}

// Diagram is a renderable selection of the graph
type Diagram struct {
	Kind  Kind   `json:"kind" yaml:"kind"`
	Focus string `json:"focus,omitempty" yaml:"focus,omitempty"`
	Depth int    `json:"depth,omitempty" yaml:"depth,omitempty"`
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// lensFor returns the lens each diagram kind looks through
func lensFor(kind Kind, depth int) lens.Lens {
	l := lens.Lens{MaxDistance: depth}
	switch kind {
	case KindModule:
		l.ComponentTypes = []model.ComponentType{model.ComponentModule}
	case KindClass:
		l.ComponentTypes = []model.ComponentType{model.ComponentClass, model.ComponentInterface, model.ComponentMethod}
		l.RelationshipTypes = []model.RelationshipType{model.RelationshipInherits, model.RelationshipContains}
	case KindDependency:
		l.RelationshipTypes = []model.RelationshipType{model.RelationshipImports}
	case KindCall:
		l.ComponentTypes = []model.ComponentType{model.ComponentFunction, model.ComponentMethod}
		l.RelationshipTypes = []model.RelationshipType{model.RelationshipCalls}
	}
	return l
}

// Build selects the nodes and edges of a diagram. With a focus only
// components within depth relationships of it are included; depth is at
// least one. Without a focus the whole graph is drawn through the kind's
// filters, and dependency and call diagrams leave out components that have
// no edge of their kind.
func Build(g *graph.Graph, kind Kind, focus string, depth int) (*Diagram, error) {
	depth = max(depth, 1)
	d := &Diagram{Kind: kind, Focus: focus, Nodes: []Node{}, Edges: []Edge{}}

	var view *lens.View
	if focus != "" {
		if _, ok := g.Component(focus); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, focus)
		}
		d.Depth = depth
		view = lens.Apply(g, lensFor(kind, depth), focus)
	} else {
		view = lens.Apply(g, lensFor(kind, depth))
	}

	connected := make(map[string]bool)
	for _, r := range view.Relationships {
		connected[r.SourceID] = true
		connected[r.TargetID] = true
		d.Edges = append(d.Edges, Edge{Source: r.SourceID, Target: r.TargetID, Type: r.Type})
	}

	sparse := focus == "" && (kind == KindDependency || kind == KindCall)
	included := make(map[string]bool, len(view.Components))
	for _, c := range view.Components {
		if sparse && !connected[c.ID] {
			continue
		}
		included[c.ID] = true
	}

	for _, c := range view.Components {
		if !included[c.ID] {
			continue
		}
		n := Node{ID: c.ID, Name: c.Name, Label: Label(c), Type: c.Type, External: c.Metadata.Imported}
		switch {
		case included[c.Metadata.ClassID]:
			n.Parent = c.Metadata.ClassID
		case included[c.Metadata.ModuleID]:
			n.Parent = c.Metadata.ModuleID
		}
		d.Nodes = append(d.Nodes, n)
	}

	return d, nil
}

// Label formats a component for display
func Label(c *model.Component) string {
	switch c.Type {
	case model.ComponentModule:
		if c.FilePath != "" {
			return c.Name + ".py"
		}
		return c.Name
	case model.ComponentClass:
		return "Class " + c.Name
	case model.ComponentInterface:
		return "Interface " + c.Name
	case model.ComponentFunction:
		return "fn " + c.Name + "()"
	case model.ComponentMethod:
		return c.Name + "()"
	default:
		return c.Name
	}
}
