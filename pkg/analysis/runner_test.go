package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/model"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sampleProject(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, root, "shapes/__init__.py", "")
	writeFile(t, root, "shapes/base.py", `"""Base shapes."""

class Shape:
    def area(self):
        raise NotImplementedError
`)
	writeFile(t, root, "shapes/square.py", `from shapes.base import Shape
import math

class Square(Shape):
    def area(self):
        return self.side * self.side
`)
	writeFile(t, root, "broken.py", "def oops(:\n")
	return root
}

func TestRunAnalyzesProject(t *testing.T) {
	root := sampleProject(t)
	g := graph.New()

	summary, err := NewAnalysisRunner(root, g).Run(context.Background(), AnalysisOptions{Reason: "test"})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Files)
	assert.Equal(t, 3, summary.Analyzed)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Diagnostics, 1)
	assert.Equal(t, filepath.Join(root, "broken.py"), summary.Diagnostics[0].Path)
	assert.Positive(t, summary.Diagnostics[0].Line)

	// base.py sorts before square.py, so Shape is known when Square is extracted
	square := g.ComponentsByName("Square")
	require.Len(t, square, 1)
	inherits := g.OutgoingOfType(square[0].ID, model.RelationshipInherits)
	require.Len(t, inherits, 1)
	shape, _ := g.Component(inherits[0].TargetID)
	assert.Equal(t, "Shape", shape.Name)

	// from shapes.base import Shape resolves to the analyzed module by dotted name
	base := g.ComponentsByName("base")
	require.Len(t, base, 1)
	assert.Equal(t, "shapes.base", base[0].Metadata.QualifiedName)
	assert.Len(t, g.IncomingOfType(base[0].ID, model.RelationshipImports), 1)

	math := g.ComponentsByName("math")
	require.Len(t, math, 1)
	assert.True(t, math[0].Metadata.Imported)

	assert.Empty(t, g.ComponentsByFile(filepath.Join(root, "broken.py")))
}

func TestRunIsIdempotent(t *testing.T) {
	root := sampleProject(t)
	g := graph.New()
	runner := NewAnalysisRunner(root, g)

	_, err := runner.Run(context.Background(), AnalysisOptions{})
	require.NoError(t, err)
	components, relationships := g.Len(), g.RelationshipCount()

	summary, err := runner.Run(context.Background(), AnalysisOptions{Reason: "re-analysis"})
	require.NoError(t, err)

	assert.Positive(t, summary.Replaced)
	assert.Equal(t, components, g.Len())
	assert.Equal(t, relationships, g.RelationshipCount())
}

func TestRunSingleFile(t *testing.T) {
	root := sampleProject(t)
	g := graph.New()

	summary, err := NewAnalysisRunner(filepath.Join(root, "shapes", "base.py"), g).Run(context.Background(), AnalysisOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Files)
	assert.Len(t, g.ComponentsByType(model.ComponentModule), 1)
	assert.Len(t, g.ComponentsByType(model.ComponentMethod), 1)
}

func TestRunSkipCalls(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "m.py", "def a():\n    pass\n\ndef b():\n    a()\n")

	g := graph.New()
	_, err := NewAnalysisRunner(root, g).Run(context.Background(), AnalysisOptions{SkipCalls: true})
	require.NoError(t, err)
	assert.Equal(t, 0, g.Stats().ByRelation[model.RelationshipCalls])
}

func TestRunCancelled(t *testing.T) {
	root := sampleProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAnalysisRunner(root, graph.New()).Run(ctx, AnalysisOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunMissingRoot(t *testing.T) {
	_, err := NewAnalysisRunner(filepath.Join(t.TempDir(), "nope"), graph.New()).Run(context.Background(), AnalysisOptions{})
	assert.Error(t, err)
}

func TestRunSingleFileKeepsCrossFileEdges(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/__init__.py", "")
	b := writeFile(t, root, "pkg/base.py", "class Base:\n    pass\n")
	writeFile(t, root, "pkg/child.py", "import pkg.base\nfrom pkg.base import Base\n\nclass Child(Base):\n    pass\n")

	g := graph.New()
	g.SetProject(model.ProjectInfo{Name: "demo", Root: root})
	_, err := NewAnalysisRunner(root, g).Run(context.Background(), AnalysisOptions{})
	require.NoError(t, err)

	module := g.ComponentsByFile(b)[0]
	require.Equal(t, model.ComponentModule, module.Type)
	base := g.ComponentsByName("Base")[0]
	require.Len(t, g.IncomingOfType(module.ID, model.RelationshipImports), 2)
	require.Len(t, g.IncomingOfType(base.ID, model.RelationshipInherits), 1)
	components, relationships := g.Len(), g.RelationshipCount()

	// Edit base.py and re-analyze only that file
	writeFile(t, root, "pkg/base.py", "class Base:\n    def run(self):\n        pass\n")
	_, err = NewAnalysisRunner(b, g).Run(context.Background(), AnalysisOptions{})
	require.NoError(t, err)

	again, ok := g.Component(module.ID)
	require.True(t, ok, "module keeps its ID")
	assert.False(t, again.Metadata.Imported)
	assert.Equal(t, "pkg.base", again.Metadata.QualifiedName)
	assert.Len(t, g.IncomingOfType(module.ID, model.RelationshipImports), 2)

	rebuilt, ok := g.Component(base.ID)
	require.True(t, ok, "class keeps its ID")
	assert.Equal(t, b, rebuilt.FilePath)
	assert.Len(t, g.IncomingOfType(base.ID, model.RelationshipInherits), 1)

	assert.Equal(t, components+1, g.Len(), "only the new method is added")
	assert.Equal(t, relationships+1, g.RelationshipCount())
}

func TestRunFileRemovedFromSource(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "import b\n")
	b := writeFile(t, root, "b.py", "def f():\n    pass\n")

	g := graph.New()
	_, err := NewAnalysisRunner(root, g).Run(context.Background(), AnalysisOptions{})
	require.NoError(t, err)

	// b.py now fails to parse: its module falls back to a placeholder that
	// a.py still imports
	writeFile(t, root, "b.py", "def f(:\n")
	summary, err := NewAnalysisRunner(b, g).Run(context.Background(), AnalysisOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	modules := g.ComponentsByName("b")
	require.Len(t, modules, 1)
	assert.True(t, modules[0].Metadata.Imported)
	assert.Empty(t, modules[0].FilePath)
	assert.Len(t, g.IncomingOfType(modules[0].ID, model.RelationshipImports), 1)
	assert.Empty(t, g.ComponentsByName("f"))
}
