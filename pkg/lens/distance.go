package lens

import (
	"slices"

	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/model"
)

// Infinite is the distance of components not connected to any focal component
const Infinite = -1

// distanceQueueNode represents a node in the BFS queue
type distanceQueueNode struct {
	id       string
	distance int
}

// ComputeDistances calculates the shortest distance from each component to
// the nearest focal component, treating relationships of the given types as
// undirected. No types means all relationships.
//
// Components the walk does not reach inherit the distance of their enclosing
// class or module, so a method stays next to its class even when containment
// is filtered out. Everything else is Infinite.
func ComputeDistances(g *graph.Graph, focus []string, types ...model.RelationshipType) map[string]int {
	distances := make(map[string]int, g.Len())

	queue := make([]distanceQueueNode, 0, len(focus))
	for _, id := range focus {
		if _, ok := g.Component(id); !ok {
			continue
		}
		if _, seen := distances[id]; !seen {
			distances[id] = 0
			queue = append(queue, distanceQueueNode{id: id})
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, r := range g.RelationshipsFor(current.id) {
			if len(types) > 0 && !slices.Contains(types, r.Type) {
				continue
			}
			neighbor := r.Other(current.id)
			if _, exists := distances[neighbor]; !exists {
				distances[neighbor] = current.distance + 1
				queue = append(queue, distanceQueueNode{id: neighbor, distance: current.distance + 1})
			}
		}
	}

	for _, c := range g.Components() {
		if _, exists := distances[c.ID]; !exists {
			distances[c.ID] = inheritedDistance(g, c, distances)
		}
	}

	return distances
}

// inheritedDistance looks up the distance of the closest enclosing component
// that has one
func inheritedDistance(g *graph.Graph, c *model.Component, distances map[string]int) int {
	visited := make(map[string]bool)
	for c != nil && !visited[c.ID] {
		visited[c.ID] = true

		parentID := c.Metadata.ClassID
		if parentID == "" {
			parentID = c.Metadata.ModuleID
		}
		if parentID == "" {
			break
		}
		if d, ok := distances[parentID]; ok {
			return d
		}
		c, _ = g.Component(parentID)
	}
	return Infinite
}
