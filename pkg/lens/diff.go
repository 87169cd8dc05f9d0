package lens

import (
	"fmt"
	"slices"

	"github.com/ritzau/codegraph/pkg/model"
)

// ViewDiff is the difference between two views of a graph. Component IDs are
// regenerated on every analysis, so components are matched by Key instead.
type ViewDiff struct {
	AddedComponents    []string `json:"addedComponents" yaml:"added_components"`
	RemovedComponents  []string `json:"removedComponents" yaml:"removed_components"`
	ModifiedComponents []string `json:"modifiedComponents" yaml:"modified_components"` // Moved or changed shape
	AddedEdges         []string `json:"addedEdges" yaml:"added_edges"`
	RemovedEdges       []string `json:"removedEdges" yaml:"removed_edges"`
}

// Empty reports whether the views were equivalent
func (d *ViewDiff) Empty() bool {
	return len(d.AddedComponents)+len(d.RemovedComponents)+len(d.ModifiedComponents)+
		len(d.AddedEdges)+len(d.RemovedEdges) == 0
}

// Snapshot indexes a view by stable keys for diffing
type Snapshot struct {
	Components map[string]*model.Component // key -> component
	Edges      map[string]bool             // edge key
}

// Key identifies a component across analyses: its type, file and qualified name
func Key(c *model.Component) string {
	name := c.Metadata.QualifiedName
	if name == "" {
		name = c.Name
	}
	return fmt.Sprintf("%s|%s|%s", c.Type, c.FilePath, name)
}

// CreateSnapshot creates a snapshot from a view
func CreateSnapshot(v *View) *Snapshot {
	s := &Snapshot{
		Components: make(map[string]*model.Component, len(v.Components)),
		Edges:      make(map[string]bool, len(v.Relationships)),
	}

	keys := make(map[string]string, len(v.Components)) // component ID -> key
	for _, c := range v.Components {
		key := Key(c)
		keys[c.ID] = key
		s.Components[key] = c
	}
	for _, r := range v.Relationships {
		s.Edges[edgeKey(keys[r.SourceID], keys[r.TargetID], r.Type)] = true
	}

	return s
}

// ComputeDiff computes what changed from old to current. All lists are sorted.
func ComputeDiff(old, current *Snapshot) *ViewDiff {
	diff := &ViewDiff{
		AddedComponents:    []string{},
		RemovedComponents:  []string{},
		ModifiedComponents: []string{},
		AddedEdges:         []string{},
		RemovedEdges:       []string{},
	}

	for key, c := range current.Components {
		if before, exists := old.Components[key]; !exists {
			diff.AddedComponents = append(diff.AddedComponents, key)
		} else if !componentsEqual(before, c) {
			diff.ModifiedComponents = append(diff.ModifiedComponents, key)
		}
	}
	for key := range old.Components {
		if _, exists := current.Components[key]; !exists {
			diff.RemovedComponents = append(diff.RemovedComponents, key)
		}
	}

	for key := range current.Edges {
		if !old.Edges[key] {
			diff.AddedEdges = append(diff.AddedEdges, key)
		}
	}
	for key := range old.Edges {
		if !current.Edges[key] {
			diff.RemovedEdges = append(diff.RemovedEdges, key)
		}
	}

	for _, list := range [][]string{diff.AddedComponents, diff.RemovedComponents, diff.ModifiedComponents, diff.AddedEdges, diff.RemovedEdges} {
		slices.Sort(list)
	}
	return diff
}

// edgeKey creates a unique key for an edge
func edgeKey(source, target string, typ model.RelationshipType) string {
	return fmt.Sprintf("%s -%s-> %s", source, typ, target)
}

// componentsEqual compares the position and shape of two components
func componentsEqual(a, b *model.Component) bool {
	return a.LineNumber == b.LineNumber &&
		a.Metadata.LineEnd == b.Metadata.LineEnd &&
		slices.Equal(a.Metadata.Bases, b.Metadata.Bases) &&
		slices.Equal(a.Metadata.Parameters, b.Metadata.Parameters) &&
		slices.Equal(a.Metadata.Decorators, b.Metadata.Decorators)
}
