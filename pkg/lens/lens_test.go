package lens

import (
	"testing"

	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/model"
)

// chain builds module m containing class C with method run, plus an
// unrelated function and an external placeholder imported by m:
//
//	m -contains-> C -contains-> run
//	m -imports-> os
//	lonely
func chain(t *testing.T) (*graph.Graph, map[string]*model.Component) {
	t.Helper()
	g := graph.New()
	by := make(map[string]*model.Component)
	add := func(name string, typ model.ComponentType) *model.Component {
		c := model.NewComponent(name, typ)
		c.FilePath = "m.py"
		c.Metadata.QualifiedName = name
		g.AddComponent(c)
		by[name] = c
		return c
	}
	relate := func(src, dst string, typ model.RelationshipType) {
		if err := g.AddRelationship(model.NewRelationship(by[src].ID, by[dst].ID, typ)); err != nil {
			t.Fatalf("AddRelationship failed: %v", err)
		}
	}

	m := add("m", model.ComponentModule)
	c := add("C", model.ComponentClass)
	c.Metadata.ModuleID = m.ID
	run := add("run", model.ComponentMethod)
	run.Metadata.ModuleID = m.ID
	run.Metadata.ClassID = c.ID
	os := add("os", model.ComponentModule)
	os.FilePath = ""
	os.Metadata.Imported = true
	add("lonely", model.ComponentFunction)

	relate("m", "C", model.RelationshipContains)
	relate("C", "run", model.RelationshipContains)
	relate("m", "os", model.RelationshipImports)
	return g, by
}

func TestComputeDistances(t *testing.T) {
	g, by := chain(t)

	distances := ComputeDistances(g, []string{by["m"].ID})

	tests := map[string]int{"m": 0, "C": 1, "os": 1, "run": 2, "lonely": Infinite}
	for name, want := range tests {
		if got := distances[by[name].ID]; got != want {
			t.Errorf("distance(%s) = %d, want %d", name, got, want)
		}
	}
}

func TestComputeDistancesInheritsFromParent(t *testing.T) {
	g, by := chain(t)

	// Without containment the method is not reachable and takes its class's
	// distance, which in turn comes from the module
	distances := ComputeDistances(g, []string{by["os"].ID}, model.RelationshipImports)

	if got := distances[by["m"].ID]; got != 1 {
		t.Errorf("distance(m) = %d, want 1", got)
	}
	if got := distances[by["run"].ID]; got != 1 {
		t.Errorf("distance(run) = %d, want 1 inherited from m", got)
	}
	if got := distances[by["lonely"].ID]; got != Infinite {
		t.Errorf("distance(lonely) = %d, want Infinite", got)
	}
}

func TestComputeDistancesNoFocus(t *testing.T) {
	g, by := chain(t)

	distances := ComputeDistances(g, []string{"missing"})
	if got := distances[by["m"].ID]; got != Infinite {
		t.Errorf("Unknown focus should leave everything Infinite, got %d", got)
	}
}

func TestApply(t *testing.T) {
	g, by := chain(t)

	view := Apply(g, Default(), by["C"].ID)
	for _, name := range []string{"m", "C", "run"} {
		if !view.Contains(by[name].ID) {
			t.Errorf("Expected %s in view", name)
		}
	}
	if view.Contains(by["os"].ID) || view.Contains(by["lonely"].ID) {
		t.Error("Components two hops away or unreachable should be dropped")
	}
	if len(view.Relationships) != 2 {
		t.Errorf("Expected 2 relationships, got %d", len(view.Relationships))
	}
}

func TestApplyWithoutFocus(t *testing.T) {
	g, by := chain(t)

	view := Apply(g, Lens{HideExternal: true})
	if len(view.Components) != 4 {
		t.Errorf("Expected 4 components, got %d", len(view.Components))
	}
	if view.Contains(by["os"].ID) {
		t.Error("Placeholder modules should be hidden")
	}
	if view.Distances != nil {
		t.Error("No distances expected without focus")
	}

	classes := Apply(g, Lens{ComponentTypes: []model.ComponentType{model.ComponentClass, model.ComponentMethod}})
	if len(classes.Components) != 2 || len(classes.Relationships) != 1 {
		t.Errorf("Expected class and method with one edge, got %d components and %d relationships",
			len(classes.Components), len(classes.Relationships))
	}
}

func TestApplyKeepsFocusOutsideFilter(t *testing.T) {
	g, by := chain(t)

	view := Apply(g, Lens{MaxDistance: 1, ComponentTypes: []model.ComponentType{model.ComponentClass}}, by["m"].ID)
	if !view.Contains(by["m"].ID) || !view.Contains(by["C"].ID) {
		t.Error("Focus and matching neighbors should be kept")
	}
	if len(view.Components) != 2 {
		t.Errorf("Expected 2 components, got %d", len(view.Components))
	}
}

func TestComputeDiff(t *testing.T) {
	g, by := chain(t)
	before := CreateSnapshot(Apply(g, Lens{}))

	// Re-create C with a new ID and a moved line and add a function
	moved := *by["C"]
	moved.ID = "new-id"
	moved.LineNumber = 42
	g.AddComponent(&moved)
	fresh := model.NewComponent("fresh", model.ComponentFunction)
	fresh.FilePath = "m.py"
	g.AddComponent(fresh)

	after := Apply(g, Lens{})
	// Drop the old C and lonely from the view by hand
	kept := after.Components[:0]
	for _, c := range after.Components {
		if c.ID != by["C"].ID && c.ID != by["lonely"].ID {
			kept = append(kept, c)
		}
	}
	after.Components = kept
	after.Relationships = nil

	diff := ComputeDiff(before, CreateSnapshot(after))

	if len(diff.AddedComponents) != 1 || diff.AddedComponents[0] != "function|m.py|fresh" {
		t.Errorf("AddedComponents = %v", diff.AddedComponents)
	}
	if len(diff.RemovedComponents) != 1 || diff.RemovedComponents[0] != "function|m.py|lonely" {
		t.Errorf("RemovedComponents = %v", diff.RemovedComponents)
	}
	if len(diff.ModifiedComponents) != 1 || diff.ModifiedComponents[0] != "class|m.py|C" {
		t.Errorf("ModifiedComponents = %v", diff.ModifiedComponents)
	}
	if len(diff.RemovedEdges) != 3 {
		t.Errorf("Expected 3 removed edges, got %v", diff.RemovedEdges)
	}
	if diff.Empty() {
		t.Error("Diff should not be empty")
	}
}

func TestComputeDiffUnchanged(t *testing.T) {
	g, _ := chain(t)
	if diff := ComputeDiff(CreateSnapshot(Apply(g, Lens{})), CreateSnapshot(Apply(g, Lens{}))); !diff.Empty() {
		t.Errorf("Expected empty diff, got %+v", diff)
	}
}
