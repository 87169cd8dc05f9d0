package graph

import (
	"testing"

	"github.com/ritzau/codegraph/pkg/model"
)

func TestDirectedProjection(t *testing.T) {
	g := New()
	a := component("a", model.ComponentModule, "a.py")
	b := component("b", model.ComponentModule, "b.py")
	c := component("c", model.ComponentModule, "c.py")
	for _, comp := range []*model.Component{a, b, c} {
		g.AddComponent(comp)
	}
	mustRelate(t, g, a, b, model.RelationshipImports)
	mustRelate(t, g, a, b, model.RelationshipImports) // duplicate collapses
	mustRelate(t, g, b, c, model.RelationshipCalls)
	mustRelate(t, g, c, c, model.RelationshipImports)

	p := g.Directed(model.RelationshipImports)

	if n := p.Graph().Nodes().Len(); n != 3 {
		t.Errorf("Expected 3 nodes, got %d", n)
	}
	if n := p.Graph().Edges().Len(); n != 1 {
		t.Errorf("Expected 1 imports edge, got %d", n)
	}

	succ := p.Successors(a.ID)
	if len(succ) != 1 || succ[0] != b.ID {
		t.Errorf("Expected a -> b, got %v", succ)
	}
	if succ := p.Successors(b.ID); len(succ) != 0 {
		t.Errorf("Calls edge should be filtered out, got %v", succ)
	}

	loops := p.SelfLoops()
	if len(loops) != 1 || loops[0] != c.ID {
		t.Errorf("Expected self-loop on c, got %v", loops)
	}

	id, ok := p.NodeID(b.ID)
	if !ok || p.ComponentID(id) != b.ID {
		t.Errorf("Node ID mapping does not round-trip for b")
	}
	if p.ComponentID(99) != "" {
		t.Error("Unknown node ID should map to empty component ID")
	}
}

func TestDirectedProjectionAllTypes(t *testing.T) {
	g := New()
	a := component("a", model.ComponentFunction, "m.py")
	b := component("b", model.ComponentFunction, "m.py")
	g.AddComponent(a)
	g.AddComponent(b)
	mustRelate(t, g, a, b, model.RelationshipCalls)
	mustRelate(t, g, b, a, model.RelationshipInherits)

	p := g.Directed()
	if n := p.Graph().Edges().Len(); n != 2 {
		t.Errorf("Expected both edges without a type filter, got %d", n)
	}
}
