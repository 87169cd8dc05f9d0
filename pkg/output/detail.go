package output

import (
	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/model"
)

// Link is one relationship seen from a component: the relationship type and
// the component at the other end
type Link struct {
	Relationship model.RelationshipType `json:"relationship" yaml:"relationship"`
	ID           string                 `json:"id" yaml:"id"`
	Name         string                 `json:"name" yaml:"name"`
	Type         model.ComponentType    `json:"type" yaml:"type"`
}

// ComponentDetail is a component together with its relationships
type ComponentDetail struct {
	Component *model.Component `json:"component" yaml:"component"`
	Outgoing  []Link           `json:"outgoing" yaml:"outgoing"`
	Incoming  []Link           `json:"incoming" yaml:"incoming"`
}

// NewComponentDetail collects the relationships of c in discovery order
func NewComponentDetail(g *graph.Graph, c *model.Component) *ComponentDetail {
	d := &ComponentDetail{Component: c, Outgoing: []Link{}, Incoming: []Link{}}
	for _, r := range g.Outgoing(c.ID) {
		d.Outgoing = append(d.Outgoing, link(g, r.Type, r.TargetID))
	}
	for _, r := range g.Incoming(c.ID) {
		d.Incoming = append(d.Incoming, link(g, r.Type, r.SourceID))
	}
	return d
}

func link(g *graph.Graph, typ model.RelationshipType, id string) Link {
	l := Link{Relationship: typ, ID: id}
	if other, ok := g.Component(id); ok {
		l.Name = other.Name
		l.Type = other.Type
	}
	return l
}
