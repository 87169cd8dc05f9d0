package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/codegraph/pkg/model"
)

func backends(t *testing.T) map[string]func(dir string) Storage {
	return map[string]func(dir string) Storage{
		BackendJSON: func(dir string) Storage { return NewJSONStorage(dir) },
		BackendSQLite: func(dir string) Storage {
			s, err := NewSQLiteStorage(dir)
			require.NoError(t, err)
			return s
		},
	}
}

func sampleData() ([]*model.Component, []*model.Relationship) {
	module := model.NewComponent("shapes", model.ComponentModule)
	module.FilePath = "pkg/shapes.py"
	module.LineNumber = 1
	module.Metadata.Path = "pkg/shapes.py"

	class := model.NewComponent("Square", model.ComponentClass)
	class.FilePath = "pkg/shapes.py"
	class.LineNumber = 4
	class.Metadata.Docstring = "A square."
	class.Metadata.ModuleID = module.ID
	class.Metadata.Set("visibility", "public")
	class.Metadata.Set("complexity", 3)
	class.Metadata.Set("coverage", 0.75)
	class.Metadata.Set("owners", []any{"core", 2})
	class.Metadata.Set("lint", map[string]any{"warnings": 1, "strict": true})

	external := model.NewComponent("math", model.ComponentModule)
	external.Metadata.Imported = true

	contains := model.NewRelationship(module.ID, class.ID, model.RelationshipContains)
	imports := model.NewRelationship(module.ID, external.ID, model.RelationshipImports)
	imports.Metadata.LineNumbers = []int{1}
	dup := model.NewRelationship(module.ID, external.ID, model.RelationshipImports)
	dup.Metadata.LineNumbers = []int{2}
	dup.Metadata.Names = []string{"pi", "sqrt"}
	dup.Metadata.Set("weight", 12)

	return []*model.Component{module, class, external}, []*model.Relationship{contains, imports, dup}
}

func TestRoundTrip(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			components, relationships := sampleData()

			s := open(dir)
			require.NoError(t, s.SaveComponents(components))
			require.NoError(t, s.SaveRelationships(relationships))
			require.NoError(t, s.Close())

			s = open(dir)
			defer s.Close()

			gotComponents, err := s.LoadComponents()
			require.NoError(t, err)
			assert.Equal(t, components, gotComponents)

			gotRelationships, err := s.LoadRelationships()
			require.NoError(t, err)
			assert.Equal(t, relationships, gotRelationships)
		})
	}
}

func TestEmptyRoundTrip(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			s := open(dir)
			defer s.Close()

			components, err := s.LoadComponents()
			require.NoError(t, err)
			assert.Empty(t, components)

			require.NoError(t, s.SaveComponents(nil))
			require.NoError(t, s.SaveRelationships(nil))

			components, err = s.LoadComponents()
			require.NoError(t, err)
			assert.Empty(t, components)

			relationships, err := s.LoadRelationships()
			require.NoError(t, err)
			assert.Empty(t, relationships)
		})
	}
}

func TestSaveReplacesPreviousContents(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t.TempDir())
			defer s.Close()

			components, _ := sampleData()
			require.NoError(t, s.SaveComponents(components))
			require.NoError(t, s.SaveComponents(components[:1]))

			got, err := s.LoadComponents()
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, components[0].ID, got[0].ID)
		})
	}
}

func TestProjectInfo(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t.TempDir())
			defer s.Close()

			info, err := s.ProjectInfo()
			require.NoError(t, err)
			assert.Equal(t, model.DefaultProjectInfo(), info)

			created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			want := model.ProjectInfo{Name: "shapes", Version: "1.2.0", CreatedAt: created, UpdatedAt: created}
			require.NoError(t, s.SaveProjectInfo(want))

			info, err = s.ProjectInfo()
			require.NoError(t, err)
			assert.Equal(t, want.Name, info.Name)
			assert.Equal(t, want.Version, info.Version)
			assert.True(t, want.CreatedAt.Equal(info.CreatedAt))
		})
	}
}

func TestJSONLayout(t *testing.T) {
	dir := t.TempDir()
	s := NewJSONStorage(dir)
	components, relationships := sampleData()

	require.NoError(t, s.SaveComponents(components))
	require.NoError(t, s.SaveRelationships(relationships))
	require.NoError(t, s.SaveProjectInfo(model.DefaultProjectInfo()))

	for _, rel := range []string{"kb/components.json", "kb/relationships.json", "config/config.json"} {
		_, err := os.Stat(filepath.Join(dir, rel))
		assert.NoError(t, err, rel)
	}
}

func TestJSONCorruptData(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"components not an object", "kb/components.json", `[1, 2]`},
		{"components truncated", "kb/components.json", `{"a": {"id": "a"`},
		{"component key mismatch", "kb/components.json", `{"a": {"id": "b", "name": "x", "type": "module"}}`},
		{"component bad type", "kb/components.json", `{"a": {"id": "a", "name": "x", "type": "widget"}}`},
		{"relationships not an array", "kb/relationships.json", `{"id": "r"}`},
		{"relationship missing endpoint", "kb/relationships.json", `[{"id": "r", "source_id": "a", "type": "calls"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o644))

			s := NewJSONStorage(dir)
			var err error
			if filepath.Base(tt.file) == "components.json" {
				_, err = s.LoadComponents()
			} else {
				_, err = s.LoadRelationships()
			}
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(BackendJSON, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &JSONStorage{}, s)

	s, err = Open(BackendSQLite, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStorage{}, s)
	require.NoError(t, s.Close())

	_, err = Open("redis", t.TempDir())
	assert.Error(t, err)
}
