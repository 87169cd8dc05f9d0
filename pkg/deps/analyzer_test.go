package deps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/model"
)

type fixture struct {
	g  *graph.Graph
	by map[string]*model.Component
}

func (f *fixture) add(name string, typ model.ComponentType, file string) *model.Component {
	c := model.NewComponent(name, typ)
	c.FilePath = file
	f.g.AddComponent(c)
	f.by[name] = c
	return c
}

func (f *fixture) relate(t *testing.T, src, dst string, typ model.RelationshipType) {
	t.Helper()
	require.NoError(t, f.g.AddRelationship(model.NewRelationship(f.by[src].ID, f.by[dst].ID, typ)))
}

func (f *fixture) id(name string) string {
	return f.by[name].ID
}

// newFixture builds:
//
//	app.py:    module app imports models, os; def main() calls Dog.speak, helper
//	models.py: module models imports os; class Animal; class Dog(Animal) with speak; def _private()
//	util.py:   module util, imports nothing and is not imported
func newFixture(t *testing.T) *fixture {
	f := &fixture{g: graph.New(), by: make(map[string]*model.Component)}

	f.add("app", model.ComponentModule, "app.py")
	f.add("models", model.ComponentModule, "models.py")
	f.add("util", model.ComponentModule, "util.py")
	os := f.add("os", model.ComponentModule, "")
	os.Metadata.Imported = true

	main := f.add("main", model.ComponentFunction, "app.py")
	main.LineNumber = 10
	main.Metadata.LineEnd = 19
	main.Metadata.Parameters = []string{"argv", "env"}
	f.add("helper", model.ComponentFunction, "app.py")
	f.add("Animal", model.ComponentClass, "models.py")
	f.add("Dog", model.ComponentClass, "models.py")
	f.add("speak", model.ComponentMethod, "models.py")
	f.add("_private", model.ComponentFunction, "models.py")

	f.relate(t, "app", "main", model.RelationshipContains)
	f.relate(t, "app", "helper", model.RelationshipContains)
	f.relate(t, "models", "Animal", model.RelationshipContains)
	f.relate(t, "models", "Dog", model.RelationshipContains)
	f.relate(t, "models", "_private", model.RelationshipContains)
	f.relate(t, "Dog", "speak", model.RelationshipContains)
	f.relate(t, "Dog", "Animal", model.RelationshipInherits)
	f.relate(t, "app", "models", model.RelationshipImports)
	f.relate(t, "app", "os", model.RelationshipImports)
	f.relate(t, "models", "os", model.RelationshipImports)
	f.relate(t, "main", "speak", model.RelationshipCalls)
	f.relate(t, "main", "helper", model.RelationshipCalls)
	f.relate(t, "main", "helper", model.RelationshipCalls)
	return f
}

func TestImportAndCallDependencies(t *testing.T) {
	f := newFixture(t)
	a := New(f.g)

	imports := a.ImportDependencies()
	assert.Len(t, imports, 2)
	assert.ElementsMatch(t, []string{f.id("models"), f.id("os")}, imports[f.id("app")])
	assert.Equal(t, []string{f.id("os")}, imports[f.id("models")])

	calls := a.CallDependencies()
	require.Len(t, calls, 1)
	assert.Len(t, calls[f.id("main")], 2, "duplicate call edges collapse")
}

func TestComponentDependencies(t *testing.T) {
	f := newFixture(t)
	a := New(f.g)

	direct, err := a.ComponentDependencies(f.id("app"), nil, 1)
	require.NoError(t, err)
	assert.Len(t, direct[model.RelationshipContains], 2)
	assert.Len(t, direct[model.RelationshipImports], 2)
	assert.Empty(t, direct[model.RelationshipCalls])

	deeper, err := a.ComponentDependencies(f.id("app"), nil, 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.id("speak"), f.id("helper")}, deeper[model.RelationshipCalls])
	assert.Contains(t, deeper[model.RelationshipContains], f.id("Dog"))

	onlyImports, err := a.ComponentDependencies(f.id("app"), []model.RelationshipType{model.RelationshipImports}, 5)
	require.NoError(t, err)
	assert.Len(t, onlyImports, 1)
	assert.ElementsMatch(t, []string{f.id("models"), f.id("os")}, onlyImports[model.RelationshipImports])

	_, err = a.ComponentDependencies("missing", nil, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	a := New(f.g)

	dog, err := a.Report(f.id("Dog"))
	require.NoError(t, err)
	assert.Equal(t, []string{f.id("Animal")}, dog.Inherits)
	assert.Equal(t, []string{f.id("Animal")}, dog.DependsOn)
	assert.Empty(t, dog.UsedBy)

	animal, err := a.Report(f.id("Animal"))
	require.NoError(t, err)
	assert.Equal(t, []string{f.id("Dog")}, animal.InheritedBy)
	assert.Equal(t, []string{f.id("Dog")}, animal.UsedBy)

	helper, err := a.Report(f.id("helper"))
	require.NoError(t, err)
	assert.Equal(t, []string{f.id("main")}, helper.CalledBy)

	models, err := a.Report(f.id("models"))
	require.NoError(t, err)
	assert.Equal(t, []string{f.id("os")}, models.Imports)
	assert.Equal(t, []string{f.id("app")}, models.UsedBy)

	_, err = a.Report("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComplexity(t *testing.T) {
	f := newFixture(t)
	a := New(f.g)

	dog, err := a.Complexity(f.id("Dog"))
	require.NoError(t, err)
	assert.Equal(t, 0, dog.Incoming)
	assert.Equal(t, 1, dog.Outgoing)
	assert.Equal(t, 1, dog.InheritanceDepth)
	assert.Equal(t, 1, dog.MethodCount)
	assert.InDelta(t, 1*WeightOutgoing+1*WeightInheritanceDepth+1*WeightMethod, dog.Score, 1e-9)

	main, err := a.Complexity(f.id("main"))
	require.NoError(t, err)
	assert.Equal(t, 2, main.Outgoing)
	assert.Equal(t, 2, main.ByType["calls"])
	assert.Equal(t, 2, main.ParameterCount)
	assert.Equal(t, 10, main.LinesOfCode)
	assert.InDelta(t, 2*WeightOutgoing+2*WeightParameter+10*WeightLine, main.Score, 1e-9)

	helper, err := a.Complexity(f.id("helper"))
	require.NoError(t, err)
	assert.Equal(t, 2, helper.Incoming, "each call relationship counts")
	assert.Equal(t, 2, helper.ByType["incoming_calls"])

	_, err = a.Complexity("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInheritanceDepth(t *testing.T) {
	f := newFixture(t)
	f.add("Puppy", model.ComponentClass, "models.py")
	f.relate(t, "Puppy", "Dog", model.RelationshipInherits)
	a := New(f.g)

	assert.Equal(t, 0, a.InheritanceDepth(f.id("Animal")))
	assert.Equal(t, 2, a.InheritanceDepth(f.id("Puppy")))

	f.relate(t, "Animal", "Puppy", model.RelationshipInherits)
	assert.Equal(t, 3, a.InheritanceDepth(f.id("Puppy")), "a cycle ends the walk")
}

func TestModules(t *testing.T) {
	f := newFixture(t)
	f.relate(t, "models", "util", model.RelationshipImports)
	reports := New(f.g).Modules()

	require.Len(t, reports, 3, "placeholder modules are skipped")
	app, models, util := reports[0], reports[1], reports[2]

	assert.Equal(t, "app", app.Name)
	assert.Equal(t, []string{"models", "os"}, app.Imports)
	assert.Equal(t, []string{"models", "os", "util"}, app.DependsOn)
	assert.Empty(t, app.UsedBy)
	assert.Equal(t, []string{"main", "helper"}, app.Interfaces)
	// two imports plus one call into models.py
	assert.Equal(t, 3, app.Complexity)

	assert.Equal(t, []string{"app"}, models.UsedBy)
	assert.Equal(t, []string{"Animal", "Dog"}, models.Interfaces, "private functions are not interfaces")

	assert.Equal(t, []string{"models"}, util.UsedBy)
	assert.Empty(t, util.DependsOn)
}

func TestImportStructure(t *testing.T) {
	f := newFixture(t)
	s := New(f.g).ImportStructure()

	assert.Equal(t, 3, s.TotalModules)
	assert.Equal(t, 2, s.ImportCounts["app"])
	assert.Equal(t, 1, s.ImportedByCounts["models"])
	assert.Equal(t, []string{"util"}, s.Isolated)
	assert.Equal(t, []Count{{Name: "os", Count: 2}}, s.External)
	require.NotEmpty(t, s.MostImporting)
	assert.Equal(t, Count{Name: "app", Count: 2}, s.MostImporting[0])
	assert.Equal(t, Count{Name: "models", Count: 1}, s.MostImported[0])
}

func TestCircularDependencies(t *testing.T) {
	f := newFixture(t)
	a := New(f.g)
	assert.Empty(t, a.CircularDependencies())

	f.relate(t, "speak", "main", model.RelationshipCalls)
	found := a.CircularDependencies()
	require.Len(t, found, 1)
	assert.ElementsMatch(t, []string{"main", "speak"}, found[0].Names())

	assert.Empty(t, a.CircularDependencies(model.RelationshipImports))
}

func TestTopCounts(t *testing.T) {
	counts := map[string]int{"b": 2, "a": 2, "c": 5, "d": 1}

	assert.Equal(t, []Count{{"c", 5}, {"a", 2}, {"b", 2}}, topCounts(counts, 3))
	assert.Len(t, topCounts(counts, 0), 4)
}
