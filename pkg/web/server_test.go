package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/codegraph/pkg/cycles"
	"github.com/ritzau/codegraph/pkg/extract"
	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/inspect"
	"github.com/ritzau/codegraph/pkg/model"
	"github.com/ritzau/codegraph/pkg/output"
	"github.com/ritzau/codegraph/pkg/render"
)

// testGraph builds module app with function main calling helper, and module
// util imported by app
func testGraph(t *testing.T) (*graph.Graph, map[string]*model.Component) {
	t.Helper()
	g := graph.New()
	g.SetProject(model.ProjectInfo{Name: "demo", Version: "1.0.0"})
	by := make(map[string]*model.Component)
	for _, c := range []struct {
		name string
		typ  model.ComponentType
		file string
	}{
		{"app", model.ComponentModule, "app.py"},
		{"util", model.ComponentModule, "util.py"},
		{"main", model.ComponentFunction, "app.py"},
		{"helper", model.ComponentFunction, "app.py"},
	} {
		comp := model.NewComponent(c.name, c.typ)
		comp.FilePath = c.file
		g.AddComponent(comp)
		by[c.name] = comp
	}
	for _, r := range [][3]string{
		{"app", "main", string(model.RelationshipContains)},
		{"app", "helper", string(model.RelationshipContains)},
		{"app", "util", string(model.RelationshipImports)},
		{"main", "helper", string(model.RelationshipCalls)},
	} {
		rel := model.NewRelationship(by[r[0]].ID, by[r[1]].ID, model.RelationshipType(r[2]))
		require.NoError(t, g.AddRelationship(rel))
	}
	return g, by
}

func get(t *testing.T, s *Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestProject(t *testing.T) {
	g, _ := testGraph(t)
	rec := get(t, NewServer(g), "/api/project")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	resp := decode[ProjectResponse](t, rec)
	assert.Equal(t, "demo", resp.Project.Name)
	assert.Equal(t, 4, resp.Stats.Components)
	assert.Equal(t, 2, resp.Stats.ByComponent[model.ComponentFunction])
	assert.Equal(t, 1, resp.Stats.ByRelation[model.RelationshipImports])
}

func TestComponents(t *testing.T) {
	g, _ := testGraph(t)
	s := NewServer(g)

	tests := []struct {
		url   string
		names []string
	}{
		{"/api/components", []string{"app", "util", "main", "helper"}},
		{"/api/components?type=function", []string{"main", "helper"}},
		{"/api/components?name=util", []string{"util"}},
		{"/api/components?file=app.py&type=module", []string{"app"}},
		{"/api/components?name=nothing", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			rec := get(t, s, tt.url)
			require.Equal(t, http.StatusOK, rec.Code)

			names := []string{}
			for _, c := range decode[[]model.Component](t, rec) {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.names, names)
		})
	}

	rec := get(t, s, "/api/components?type=struct")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "struct")
}

func TestComponent(t *testing.T) {
	g, by := testGraph(t)
	s := NewServer(g)

	rec := get(t, s, "/api/components/"+by["main"].ID)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[output.ComponentDetail](t, rec)
	assert.Equal(t, "main", detail.Component.Name)
	require.Len(t, detail.Outgoing, 1)
	assert.Equal(t, "helper", detail.Outgoing[0].Name)
	require.Len(t, detail.Incoming, 1)
	assert.Equal(t, model.RelationshipContains, detail.Incoming[0].Relationship)

	rec = get(t, s, "/api/components/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRelationships(t *testing.T) {
	g, by := testGraph(t)
	s := NewServer(g)
	base := "/api/components/" + by["app"].ID + "/relationships"

	assert.Len(t, decode[[]model.Relationship](t, get(t, s, base)), 3)
	assert.Len(t, decode[[]model.Relationship](t, get(t, s, base+"?direction=incoming")), 0)
	assert.Len(t, decode[[]model.Relationship](t, get(t, s, base+"?type=imports")), 1)

	helper := "/api/components/" + by["helper"].ID + "/relationships?direction=incoming&type=calls"
	rels := decode[[]model.Relationship](t, get(t, s, helper))
	require.Len(t, rels, 1)
	assert.Equal(t, by["main"].ID, rels[0].SourceID)

	assert.Equal(t, http.StatusBadRequest, get(t, s, base+"?direction=sideways").Code)
}

func TestRelated(t *testing.T) {
	g, by := testGraph(t)
	rec := get(t, NewServer(g), "/api/components/"+by["helper"].ID+"/related")
	require.Equal(t, http.StatusOK, rec.Code)

	var names []string
	for _, c := range decode[[]model.Component](t, rec) {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"app", "main"}, names)
}

func TestDependenciesAndComplexity(t *testing.T) {
	g, by := testGraph(t)
	s := NewServer(g)

	rec := get(t, s, "/api/components/"+by["helper"].ID+"/dependencies")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), by["main"].ID)

	rec = get(t, s, "/api/components/"+by["main"].ID+"/complexity")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"complexity_score"`)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/components/missing/complexity").Code)
}

func TestDiagram(t *testing.T) {
	g, by := testGraph(t)
	s := NewServer(g)

	rec := get(t, s, "/api/diagram?type=module")
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[render.Diagram](t, rec)
	assert.Equal(t, render.KindModule, d.Kind)
	assert.Len(t, d.Nodes, 2)
	assert.Len(t, d.Edges, 1)

	rec = get(t, s, "/api/diagram?type=call&focus="+by["helper"].ID+"&depth=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[render.Diagram](t, rec).Nodes, 2)

	rec = get(t, s, "/api/diagram?type=module&format=mermaid")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "graph TD\n"), rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/diagram?type=sequence").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/diagram?depth=zero").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/diagram?format=svg").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/diagram?focus=missing").Code)
}

func TestCycles(t *testing.T) {
	g, by := testGraph(t)
	s := NewServer(g)

	assert.Empty(t, decode[[]cycles.Cycle](t, get(t, s, "/api/cycles")))

	require.NoError(t, g.AddRelationship(model.NewRelationship(by["helper"].ID, by["main"].ID, model.RelationshipCalls)))
	found := decode[[]cycles.Cycle](t, get(t, s, "/api/cycles?types=calls"))
	require.Len(t, found, 1)
	assert.ElementsMatch(t, []string{"main", "helper"}, found[0].Names())

	assert.Empty(t, decode[[]cycles.Cycle](t, get(t, s, "/api/cycles?types=imports")))
}

func TestModulesAndImports(t *testing.T) {
	g, _ := testGraph(t)
	s := NewServer(g)

	rec := get(t, s, "/api/modules")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"util"`)

	rec = get(t, s, "/api/imports")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_modules":2`)
}

func TestSetGraph(t *testing.T) {
	g, _ := testGraph(t)
	s := NewServer(g)

	s.SetGraph(graph.New())
	resp := decode[ProjectResponse](t, get(t, s, "/api/project"))
	assert.Equal(t, 0, resp.Stats.Components)
	assert.Equal(t, "unknown", resp.Project.Name)
}

func TestUnknownEndpoint(t *testing.T) {
	g, _ := testGraph(t)
	rec := get(t, NewServer(g), "/api/nothing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "/api/nothing")
}

const shapesSource = `class Shape:
    def area(self) -> float:
        return 0.0


class Square(Shape):
    def area(self) -> float:
        return side(self) ** 2


def side(shape):
    return 2
`

func TestInspectEndpoints(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "shapes.py")
	require.NoError(t, os.WriteFile(path, []byte(shapesSource), 0o644))
	g := graph.New()
	_, err := extract.New(g, extract.WithRoot(root)).ExtractFile(context.Background(), path)
	require.NoError(t, err)

	byName := func(name string) *model.Component {
		t.Helper()
		found := g.ComponentsByName(name)
		require.NotEmpty(t, found, name)
		return found[0]
	}
	s := NewServer(g)
	url := func(name, op string) string { return "/api/components/" + byName(name).ID + "/" + op }

	rec := get(t, s, url("Square", "source"))
	require.Equal(t, http.StatusOK, rec.Code)
	snippet := decode[inspect.Snippet](t, rec)
	assert.Equal(t, 6, snippet.StartLine)
	assert.True(t, strings.HasPrefix(snippet.Code, "class Square(Shape):"), snippet.Code)

	rec = get(t, s, url("side", "signature"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "side(shape)", decode[SignatureResponse](t, rec).Signature)

	rec = get(t, s, url("Square", "structure"))
	require.Equal(t, http.StatusOK, rec.Code)
	class := decode[inspect.ClassStructure](t, rec)
	require.Len(t, class.Methods, 1)
	assert.Equal(t, "area(self) -> float", class.Methods[0].Signature)

	rec = get(t, s, url("shapes", "structure"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[inspect.ModuleStructure](t, rec).Classes, 2)

	rec = get(t, s, url("Shape", "hierarchy"))
	require.Equal(t, http.StatusOK, rec.Code)
	inheritance := decode[inspect.InheritanceHierarchy](t, rec)
	require.Len(t, inheritance.Descendants, 1)
	assert.Equal(t, "Square", inheritance.Descendants[0].Name)

	rec = get(t, s, url("side", "hierarchy"))
	require.Equal(t, http.StatusOK, rec.Code)
	calls := decode[inspect.CallHierarchy](t, rec)
	require.Len(t, calls.CalledBy, 1)
	assert.Equal(t, "area", calls.CalledBy[0].Name)

	rec = get(t, s, url("side", "references"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[inspect.References](t, rec).Calls, 1)

	rec = get(t, s, url("Square", "docs"))
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[inspect.Documentation](t, rec)
	assert.NotEmpty(t, doc.Source)
	require.NotNil(t, doc.Inheritance)
	assert.Equal(t, "Shape", doc.Inheritance.InheritsFrom[0].Name)

	assert.Equal(t, http.StatusBadRequest, get(t, s, url("Square", "signature")).Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, url("side", "structure")).Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/components/missing/source").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/components/missing/docs").Code)
}

func TestInspectEndpointWithoutSource(t *testing.T) {
	g, by := testGraph(t)
	rec := get(t, NewServer(g), "/api/components/"+by["util"].ID+"/source")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "no source")
}
