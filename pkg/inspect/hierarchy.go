package inspect

import (
	"cmp"
	"slices"

	"github.com/ritzau/codegraph/pkg/model"
)

// Ref is a component at the other end of a relationship
type Ref struct {
	ID          string              `json:"id" yaml:"id"`
	Name        string              `json:"name" yaml:"name"`
	Type        model.ComponentType `json:"type" yaml:"type"`
	ModuleID    string              `json:"module_id,omitempty" yaml:"module_id,omitempty"`
	LineNumbers []int               `json:"line_numbers,omitempty" yaml:"line_numbers,omitempty"`
}

// CallHierarchy is what a function calls and what calls it
type CallHierarchy struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Signature string `json:"signature,omitempty" yaml:"signature,omitempty"`
	Calls     []Ref  `json:"calls" yaml:"calls"`
	CalledBy  []Ref  `json:"called_by" yaml:"called_by"`
}

// InheritanceHierarchy is a class's direct bases and subclasses plus
// everything reachable through them. Ancestors and descendants are ordered
// nearest first.
type InheritanceHierarchy struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	InheritsFrom []Ref  `json:"inherits_from" yaml:"inherits_from"`
	InheritedBy  []Ref  `json:"inherited_by" yaml:"inherited_by"`
	Ancestors    []Ref  `json:"ancestors" yaml:"ancestors"`
	Descendants  []Ref  `json:"descendants" yaml:"descendants"`
}

// References lists the components pointing at one component, per
// relationship type. Only the types that apply to the component are filled.
type References struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Imports  []Ref  `json:"imports" yaml:"imports"`   // importers of a module
	Calls    []Ref  `json:"calls" yaml:"calls"`       // callers of a function or method
	Inherits []Ref  `json:"inherits" yaml:"inherits"` // subclasses of a class
	Contains []Ref  `json:"contains" yaml:"contains"` // lexical parent
}

// CallHierarchy returns the callees and callers of a function or method
func (in *Inspector) CallHierarchy(id string) (*CallHierarchy, error) {
	c, err := in.component(id, model.ComponentFunction, model.ComponentMethod)
	if err != nil {
		return nil, err
	}
	return &CallHierarchy{
		ID:        c.ID,
		Name:      c.Name,
		Signature: in.signature(c),
		Calls:     in.refs(in.graph.OutgoingOfType(id, model.RelationshipCalls), false),
		CalledBy:  in.refs(in.graph.IncomingOfType(id, model.RelationshipCalls), true),
	}, nil
}

// InheritanceHierarchy returns the bases and subclasses of a class
func (in *Inspector) InheritanceHierarchy(id string) (*InheritanceHierarchy, error) {
	c, err := in.component(id, model.ComponentClass, model.ComponentInterface)
	if err != nil {
		return nil, err
	}
	return &InheritanceHierarchy{
		ID:           c.ID,
		Name:         c.Name,
		InheritsFrom: in.refs(in.graph.OutgoingOfType(id, model.RelationshipInherits), false),
		InheritedBy:  in.refs(in.graph.IncomingOfType(id, model.RelationshipInherits), true),
		Ancestors:    in.closure(id, false),
		Descendants:  in.closure(id, true),
	}, nil
}

// References returns who imports, calls, subclasses or contains a component
func (in *Inspector) References(id string) (*References, error) {
	c, err := in.component(id)
	if err != nil {
		return nil, err
	}

	refs := &References{ID: c.ID, Name: c.Name, Imports: []Ref{}, Calls: []Ref{}, Inherits: []Ref{}}
	switch c.Type {
	case model.ComponentModule:
		refs.Imports = in.refs(in.graph.IncomingOfType(id, model.RelationshipImports), true)
	case model.ComponentFunction, model.ComponentMethod:
		refs.Calls = in.refs(in.graph.IncomingOfType(id, model.RelationshipCalls), true)
	case model.ComponentClass, model.ComponentInterface:
		refs.Inherits = in.refs(in.graph.IncomingOfType(id, model.RelationshipInherits), true)
	}
	refs.Contains = in.refs(in.graph.IncomingOfType(id, model.RelationshipContains), true)
	return refs, nil
}

// refs turns relationships into references to their far end, sorted by
// name. Several relationships to the same component merge their lines.
func (in *Inspector) refs(rels []*model.Relationship, incoming bool) []Ref {
	result := []Ref{}
	index := make(map[string]int)
	for _, r := range rels {
		id := r.TargetID
		if incoming {
			id = r.SourceID
		}
		if i, seen := index[id]; seen {
			result[i].LineNumbers = mergeLines(result[i].LineNumbers, r.Metadata.LineNumbers)
			continue
		}
		other, ok := in.graph.Component(id)
		if !ok {
			continue
		}
		index[id] = len(result)
		result = append(result, Ref{
			ID:          other.ID,
			Name:        other.Name,
			Type:        other.Type,
			ModuleID:    other.Metadata.ModuleID,
			LineNumbers: slices.Clone(r.Metadata.LineNumbers),
		})
	}
	slices.SortStableFunc(result, func(a, b Ref) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return result
}

func mergeLines(a, b []int) []int {
	merged := append(a, b...)
	slices.Sort(merged)
	return slices.Compact(merged)
}

// closure walks inherits edges breadth first, up for ancestors and down for
// descendants. Each level is sorted by name; the start class is never listed.
func (in *Inspector) closure(id string, down bool) []Ref {
	result := []Ref{}
	seen := map[string]bool{id: true}
	frontier := []string{id}

	for len(frontier) > 0 {
		var level []*model.Component
		for _, current := range frontier {
			rels := in.graph.OutgoingOfType(current, model.RelationshipInherits)
			if down {
				rels = in.graph.IncomingOfType(current, model.RelationshipInherits)
			}
			for _, r := range rels {
				next := r.TargetID
				if down {
					next = r.SourceID
				}
				if seen[next] {
					continue
				}
				seen[next] = true
				if c, ok := in.graph.Component(next); ok {
					level = append(level, c)
				}
			}
		}

		slices.SortStableFunc(level, func(a, b *model.Component) int {
			return cmp.Compare(a.Name, b.Name)
		})
		frontier = frontier[:0]
		for _, c := range level {
			result = append(result, Ref{ID: c.ID, Name: c.Name, Type: c.Type, ModuleID: c.Metadata.ModuleID})
			frontier = append(frontier, c.ID)
		}
	}
	return result
}
