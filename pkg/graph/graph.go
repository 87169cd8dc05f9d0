package graph

import (
	"slices"

	"github.com/ritzau/codegraph/pkg/model"
)

// Graph is the in-memory knowledge graph of components and relationships.
//
// Components are keyed by ID and remember their insertion order. Relationships
// are kept in discovery order and may contain duplicates. Secondary indices by
// name, type, file and endpoint are maintained on insertion so lookups do not
// scan the whole graph.
//
// A Graph has a single writer. It is safe for concurrent readers only once
// mutation has stopped.
type Graph struct {
	components    map[string]*model.Component
	order         []string
	relationships []*model.Relationship

	byName   map[string][]string
	byType   map[model.ComponentType][]string
	byFile   map[string][]string
	outgoing map[string][]int // component ID -> positions in relationships
	incoming map[string][]int

	project model.ProjectInfo
}

// New creates an empty graph
func New() *Graph {
	g := &Graph{
		project: model.DefaultProjectInfo(),
	}
	g.reset()
	return g
}

func (g *Graph) reset() {
	g.components = make(map[string]*model.Component)
	g.order = nil
	g.relationships = nil
	g.byName = make(map[string][]string)
	g.byType = make(map[model.ComponentType][]string)
	g.byFile = make(map[string][]string)
	g.outgoing = make(map[string][]int)
	g.incoming = make(map[string][]int)
}

// Project returns the project info carried by the graph
func (g *Graph) Project() model.ProjectInfo {
	return g.project
}

// SetProject replaces the project info
func (g *Graph) SetProject(info model.ProjectInfo) {
	g.project = info
}

// AddComponent inserts c, replacing any component with the same ID.
// A replaced component keeps its original position in the insertion order.
// Names are not checked for uniqueness.
func (g *Graph) AddComponent(c *model.Component) {
	if old, exists := g.components[c.ID]; exists {
		g.unindexComponent(old)
	} else {
		g.order = append(g.order, c.ID)
	}
	g.components[c.ID] = c
	g.indexComponent(c)
}

// AddRelationship appends r after checking that both endpoints exist.
// On failure the relationship sequence is left untouched and the returned
// error matches ErrReference.
func (g *Graph) AddRelationship(r *model.Relationship) error {
	if _, ok := g.components[r.SourceID]; !ok {
		return &ReferenceError{RelationshipID: r.ID, Endpoint: "source", ComponentID: r.SourceID}
	}
	if _, ok := g.components[r.TargetID]; !ok {
		return &ReferenceError{RelationshipID: r.ID, Endpoint: "target", ComponentID: r.TargetID}
	}

	g.relationships = append(g.relationships, r)
	g.indexRelationship(len(g.relationships) - 1)
	return nil
}

// Component returns the component with the given ID
func (g *Graph) Component(id string) (*model.Component, bool) {
	c, ok := g.components[id]
	return c, ok
}

// Components returns all components in insertion order
func (g *Graph) Components() []*model.Component {
	return g.lookup(g.order)
}

// Relationships returns all relationships in discovery order
func (g *Graph) Relationships() []*model.Relationship {
	return slices.Clone(g.relationships)
}

// Len returns the number of components
func (g *Graph) Len() int {
	return len(g.components)
}

// RelationshipCount returns the number of relationships
func (g *Graph) RelationshipCount() int {
	return len(g.relationships)
}

// ComponentsByName returns every component whose name matches exactly
func (g *Graph) ComponentsByName(name string) []*model.Component {
	return g.lookup(g.byName[name])
}

// ComponentsByType returns every component of the given type
func (g *Graph) ComponentsByType(typ model.ComponentType) []*model.Component {
	return g.lookup(g.byType[typ])
}

// ComponentsByFile returns every component extracted from path
func (g *Graph) ComponentsByFile(path string) []*model.Component {
	return g.lookup(g.byFile[path])
}

// RelationshipsFor returns relationships where id is the source or the target
func (g *Graph) RelationshipsFor(id string) []*model.Relationship {
	positions := append(slices.Clone(g.outgoing[id]), g.incoming[id]...)
	slices.Sort(positions)
	positions = slices.Compact(positions) // self-loops are indexed twice

	result := make([]*model.Relationship, 0, len(positions))
	for _, pos := range positions {
		result = append(result, g.relationships[pos])
	}
	return result
}

// Outgoing returns relationships whose source is id
func (g *Graph) Outgoing(id string) []*model.Relationship {
	return g.at(g.outgoing[id], "")
}

// Incoming returns relationships whose target is id
func (g *Graph) Incoming(id string) []*model.Relationship {
	return g.at(g.incoming[id], "")
}

// OutgoingOfType returns outgoing relationships of one type
func (g *Graph) OutgoingOfType(id string, typ model.RelationshipType) []*model.Relationship {
	return g.at(g.outgoing[id], typ)
}

// IncomingOfType returns incoming relationships of one type
func (g *Graph) IncomingOfType(id string, typ model.RelationshipType) []*model.Relationship {
	return g.at(g.incoming[id], typ)
}

// Related returns the distinct components one hop away from id in either
// direction. The result never contains id itself.
func (g *Graph) Related(id string) []*model.Component {
	seen := map[string]bool{id: true}
	var ids []string
	for _, r := range g.RelationshipsFor(id) {
		other := r.Other(id)
		if seen[other] {
			continue
		}
		seen[other] = true
		ids = append(ids, other)
	}
	return g.lookup(ids)
}

// DetachFile clears what was extracted from path ahead of extracting it
// again. Module components stay behind as import placeholders under the same
// ID, so relationships other files hold into them survive. Relationships from
// other files into the file's remaining components are dropped and returned
// for the caller to restore once those components exist again.
func (g *Graph) DetachFile(path string) (removed []*model.Component, inbound []*model.Relationship) {
	ids := g.byFile[path]
	if len(ids) == 0 {
		return nil, nil
	}

	inFile := make(map[string]bool, len(ids))
	for _, id := range ids {
		inFile[id] = true
	}

	components := g.Components()
	relationships := g.relationships
	g.reset()

	for _, c := range components {
		switch {
		case !inFile[c.ID]:
			g.AddComponent(c)
		case c.Type == model.ComponentModule:
			removed = append(removed, c)
			g.AddComponent(placeholderFor(c))
		default:
			removed = append(removed, c)
		}
	}
	for _, r := range relationships {
		if inFile[r.SourceID] {
			continue
		}
		if _, ok := g.components[r.TargetID]; !ok {
			inbound = append(inbound, r)
			continue
		}
		g.relationships = append(g.relationships, r)
		g.indexRelationship(len(g.relationships) - 1)
	}

	return removed, inbound
}

func placeholderFor(module *model.Component) *model.Component {
	return &model.Component{
		ID:   module.ID,
		Name: module.Name,
		Type: model.ComponentModule,
		Metadata: model.ComponentMetadata{
			QualifiedName: module.Metadata.QualifiedName,
			Imported:      true,
		},
	}
}

// Stats summarizes the graph contents
type Stats struct {
	Components    int                            `json:"components" yaml:"components"`
	Relationships int                            `json:"relationships" yaml:"relationships"`
	ByComponent   map[model.ComponentType]int    `json:"by_component_type" yaml:"by_component_type"`
	ByRelation    map[model.RelationshipType]int `json:"by_relationship_type" yaml:"by_relationship_type"`
}

// Stats counts components and relationships per type
func (g *Graph) Stats() Stats {
	s := Stats{
		Components:    len(g.components),
		Relationships: len(g.relationships),
		ByComponent:   make(map[model.ComponentType]int),
		ByRelation:    make(map[model.RelationshipType]int),
	}
	for typ, ids := range g.byType {
		s.ByComponent[typ] = len(ids)
	}
	for _, r := range g.relationships {
		s.ByRelation[r.Type]++
	}
	return s
}

func (g *Graph) lookup(ids []string) []*model.Component {
	result := make([]*model.Component, 0, len(ids))
	for _, id := range ids {
		result = append(result, g.components[id])
	}
	return result
}

func (g *Graph) at(positions []int, typ model.RelationshipType) []*model.Relationship {
	result := make([]*model.Relationship, 0, len(positions))
	for _, pos := range positions {
		r := g.relationships[pos]
		if typ != "" && r.Type != typ {
			continue
		}
		result = append(result, r)
	}
	return result
}

func (g *Graph) indexComponent(c *model.Component) {
	g.byName[c.Name] = append(g.byName[c.Name], c.ID)
	g.byType[c.Type] = append(g.byType[c.Type], c.ID)
	if c.FilePath != "" {
		g.byFile[c.FilePath] = append(g.byFile[c.FilePath], c.ID)
	}
}

func (g *Graph) unindexComponent(c *model.Component) {
	g.byName[c.Name] = removeID(g.byName[c.Name], c.ID)
	if len(g.byName[c.Name]) == 0 {
		delete(g.byName, c.Name)
	}
	g.byType[c.Type] = removeID(g.byType[c.Type], c.ID)
	if len(g.byType[c.Type]) == 0 {
		delete(g.byType, c.Type)
	}
	if c.FilePath != "" {
		g.byFile[c.FilePath] = removeID(g.byFile[c.FilePath], c.ID)
		if len(g.byFile[c.FilePath]) == 0 {
			delete(g.byFile, c.FilePath)
		}
	}
}

func (g *Graph) indexRelationship(pos int) {
	r := g.relationships[pos]
	g.outgoing[r.SourceID] = append(g.outgoing[r.SourceID], pos)
	g.incoming[r.TargetID] = append(g.incoming[r.TargetID], pos)
}

func removeID(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(s string) bool { return s == id })
}
