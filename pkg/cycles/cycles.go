package cycles

import (
	"cmp"
	"slices"

	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/model"
)

// Member is one component taking part in a cycle
type Member struct {
	ID       string              `json:"id" yaml:"id"`
	Name     string              `json:"name" yaml:"name"`
	Type     model.ComponentType `json:"type" yaml:"type"`
	FilePath string              `json:"file_path,omitempty" yaml:"file_path,omitempty"`
}

// Cycle is a set of components that reach each other through relationships
// of the analyzed types. A component depending on itself is a cycle of one.
type Cycle struct {
	Members []Member `json:"members" yaml:"members"`
}

// IDs returns the component IDs of the cycle members
func (c Cycle) IDs() []string {
	ids := make([]string, len(c.Members))
	for i, m := range c.Members {
		ids[i] = m.ID
	}
	return ids
}

// Names returns the member names in cycle order
func (c Cycle) Names() []string {
	names := make([]string, len(c.Members))
	for i, m := range c.Members {
		names[i] = m.Name
	}
	return names
}

// FindCycles finds all circular dependencies among components over the given
// relationship types. No types means all relationships. Members are ordered
// by insertion order in the graph; cycles are ordered by their first member.
func FindCycles(g *graph.Graph, types ...model.RelationshipType) []Cycle {
	projection := g.Directed(types...)

	groups := NewTarjanSCC(projection.Graph()).FindSCCs()

	// Self-loops only form their own cycle when the component is not already
	// part of a larger one
	inCycle := make(map[string]bool)
	for _, scc := range groups {
		for _, nodeID := range scc {
			inCycle[projection.ComponentID(nodeID)] = true
		}
	}
	for _, id := range projection.SelfLoops() {
		if inCycle[id] {
			continue
		}
		if nodeID, ok := projection.NodeID(id); ok {
			groups = append(groups, []int64{nodeID})
		}
	}

	cycles := make([]Cycle, 0, len(groups))
	for _, scc := range groups {
		slices.Sort(scc)
		members := make([]Member, 0, len(scc))
		for _, nodeID := range scc {
			c, ok := g.Component(projection.ComponentID(nodeID))
			if !ok {
				continue
			}
			members = append(members, Member{ID: c.ID, Name: c.Name, Type: c.Type, FilePath: c.FilePath})
		}
		if len(members) > 0 {
			cycles = append(cycles, Cycle{Members: members})
		}
	}

	// Node IDs follow insertion order, so sorting by the first member's node
	// ID gives a stable order
	slices.SortFunc(cycles, func(a, b Cycle) int {
		x, _ := projection.NodeID(a.Members[0].ID)
		y, _ := projection.NodeID(b.Members[0].ID)
		return cmp.Compare(x, y)
	})

	return cycles
}
