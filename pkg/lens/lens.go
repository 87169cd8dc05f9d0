// Package lens selects the part of a graph to look at: the components
// within some distance of a focus, filtered by type.
package lens

import (
	"slices"

	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/model"
)

// Lens defines which components and relationships a view keeps
type Lens struct {
	// MaxDistance bounds how far from the focus components may be. It is
	// ignored when there is no focus.
	MaxDistance       int                      `json:"maxDistance" yaml:"max_distance"`
	RelationshipTypes []model.RelationshipType `json:"relationshipTypes,omitempty" yaml:"relationship_types,omitempty"`
	ComponentTypes    []model.ComponentType    `json:"componentTypes,omitempty" yaml:"component_types,omitempty"`
	HideExternal      bool                     `json:"hideExternal,omitempty" yaml:"hide_external,omitempty"` // drop placeholder modules
}

// Default shows everything one hop around the focus
func Default() Lens {
	return Lens{MaxDistance: 1}
}

// View is the result of looking at a graph through a lens
type View struct {
	Focus         []string              `json:"focus,omitempty" yaml:"focus,omitempty"`
	Components    []*model.Component    `json:"components" yaml:"components"`
	Relationships []*model.Relationship `json:"relationships" yaml:"relationships"`
	Distances     map[string]int        `json:"distances,omitempty" yaml:"distances,omitempty"`
}

// Contains reports whether the view kept the component
func (v *View) Contains(id string) bool {
	return slices.ContainsFunc(v.Components, func(c *model.Component) bool { return c.ID == id })
}

// Apply builds a view of g. Components keep graph insertion order and
// relationships keep discovery order. A relationship is kept when both of
// its endpoints are and its type passes the lens.
func Apply(g *graph.Graph, l Lens, focus ...string) *View {
	v := &View{
		Focus:         focus,
		Components:    []*model.Component{},
		Relationships: []*model.Relationship{},
	}
	if len(focus) > 0 {
		v.Distances = ComputeDistances(g, focus, l.RelationshipTypes...)
	}

	kept := make(map[string]bool)
	for _, c := range g.Components() {
		if !l.keeps(c, v.Distances, focus) {
			continue
		}
		kept[c.ID] = true
		v.Components = append(v.Components, c)
	}

	for _, r := range g.Relationships() {
		if !kept[r.SourceID] || !kept[r.TargetID] {
			continue
		}
		if len(l.RelationshipTypes) > 0 && !slices.Contains(l.RelationshipTypes, r.Type) {
			continue
		}
		v.Relationships = append(v.Relationships, r)
	}

	return v
}

func (l Lens) keeps(c *model.Component, distances map[string]int, focus []string) bool {
	// Focal components are always shown
	if slices.Contains(focus, c.ID) {
		return true
	}
	if l.HideExternal && c.Metadata.Imported {
		return false
	}
	if len(l.ComponentTypes) > 0 && !slices.Contains(l.ComponentTypes, c.Type) {
		return false
	}
	if distances == nil {
		return true
	}
	d := distances[c.ID]
	return d != Infinite && d <= l.MaxDistance
}
