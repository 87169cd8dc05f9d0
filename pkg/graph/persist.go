package graph

import (
	"fmt"
	"time"

	"github.com/ritzau/codegraph/pkg/storage"
)

// Load builds a graph from everything stored in s. A stored relationship
// that points at a missing component is reported as corrupt data.
func Load(s storage.Storage) (*Graph, error) {
	g := New()

	info, err := s.ProjectInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to load project info: %w", err)
	}
	g.SetProject(info)

	components, err := s.LoadComponents()
	if err != nil {
		return nil, fmt.Errorf("failed to load components: %w", err)
	}
	for _, c := range components {
		g.AddComponent(c)
	}

	relationships, err := s.LoadRelationships()
	if err != nil {
		return nil, fmt.Errorf("failed to load relationships: %w", err)
	}
	for _, r := range relationships {
		if err := g.AddRelationship(r); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrCorrupt, err)
		}
	}

	return g, nil
}

// Save writes the graph and its project info to s, stamping the update time
func (g *Graph) Save(s storage.Storage) error {
	now := time.Now().UTC()
	if g.project.CreatedAt.IsZero() {
		g.project.CreatedAt = now
	}
	g.project.UpdatedAt = now

	if err := s.SaveComponents(g.Components()); err != nil {
		return fmt.Errorf("failed to save components: %w", err)
	}
	if err := s.SaveRelationships(g.relationships); err != nil {
		return fmt.Errorf("failed to save relationships: %w", err)
	}
	if err := s.SaveProjectInfo(g.project); err != nil {
		return fmt.Errorf("failed to save project info: %w", err)
	}
	return nil
}
