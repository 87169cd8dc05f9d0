package graph

import (
	"slices"

	"github.com/ritzau/codegraph/pkg/model"
	"gonum.org/v1/gonum/graph/simple"
)

// Projection is a gonum directed graph over the components, restricted to
// a set of relationship types. Parallel edges collapse into one. Self-loops
// cannot live in a simple graph and are tracked separately.
type Projection struct {
	graph     *simple.DirectedGraph
	ids       map[string]int64 // component ID -> graph node ID
	nodes     []string         // graph node ID -> component ID
	selfLoops []string
}

// Directed builds a projection containing every component and the
// relationships of the given types. No types means all relationships.
func (g *Graph) Directed(types ...model.RelationshipType) *Projection {
	p := &Projection{
		graph: simple.NewDirectedGraph(),
		ids:   make(map[string]int64, len(g.order)),
		nodes: make([]string, 0, len(g.order)),
	}

	for _, id := range g.order {
		nodeID := int64(len(p.nodes))
		p.ids[id] = nodeID
		p.nodes = append(p.nodes, id)
		p.graph.AddNode(simple.Node(nodeID))
	}

	for _, r := range g.relationships {
		if len(types) > 0 && !slices.Contains(types, r.Type) {
			continue
		}
		if r.SourceID == r.TargetID {
			if !slices.Contains(p.selfLoops, r.SourceID) {
				p.selfLoops = append(p.selfLoops, r.SourceID)
			}
			continue
		}

		from, to := p.ids[r.SourceID], p.ids[r.TargetID]
		if !p.graph.HasEdgeFromTo(from, to) {
			p.graph.SetEdge(p.graph.NewEdge(p.graph.Node(from), p.graph.Node(to)))
		}
	}

	return p
}

// Graph returns the underlying directed graph
func (p *Projection) Graph() *simple.DirectedGraph {
	return p.graph
}

// NodeID returns the graph node ID of a component
func (p *Projection) NodeID(componentID string) (int64, bool) {
	id, ok := p.ids[componentID]
	return id, ok
}

// ComponentID maps a graph node ID back to its component ID
func (p *Projection) ComponentID(nodeID int64) string {
	if nodeID < 0 || nodeID >= int64(len(p.nodes)) {
		return ""
	}
	return p.nodes[nodeID]
}

// SelfLoops returns components with a relationship to themselves
func (p *Projection) SelfLoops() []string {
	return slices.Clone(p.selfLoops)
}

// Successors returns the component IDs reachable in one step from componentID
func (p *Projection) Successors(componentID string) []string {
	id, ok := p.ids[componentID]
	if !ok {
		return nil
	}

	var result []string
	iter := p.graph.From(id)
	for iter.Next() {
		result = append(result, p.nodes[iter.Node().ID()])
	}
	slices.Sort(result)
	return result
}
