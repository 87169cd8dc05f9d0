// Package deps answers dependency questions over an analyzed graph: who
// imports or calls whom, how far a component's dependencies reach, and how
// complex components and modules are.
package deps

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/ritzau/codegraph/pkg/cycles"
	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/logging"
	"github.com/ritzau/codegraph/pkg/model"
)

// ErrNotFound is returned for component IDs that are not in the graph
var ErrNotFound = errors.New("component not found")

// DefaultTypes are the relationship types followed by ComponentDependencies
// when none are given
var DefaultTypes = []model.RelationshipType{
	model.RelationshipImports,
	model.RelationshipCalls,
	model.RelationshipContains,
	model.RelationshipInherits,
}

// Analyzer computes dependency views of a graph. Results are computed on
// every call, so they follow the graph as it changes.
type Analyzer struct {
	graph  *graph.Graph
	logger *slog.Logger
}

// New creates an analyzer over g
func New(g *graph.Graph) *Analyzer {
	return &Analyzer{
		graph:  g,
		logger: logging.New("deps"),
	}
}

// Graph returns the graph being analyzed
func (a *Analyzer) Graph() *graph.Graph {
	return a.graph
}

// ImportDependencies maps each importing component ID to the sorted IDs it imports
func (a *Analyzer) ImportDependencies() map[string][]string {
	return a.edgesOfType(model.RelationshipImports)
}

// CallDependencies maps each calling component ID to the sorted IDs it calls
func (a *Analyzer) CallDependencies() map[string][]string {
	return a.edgesOfType(model.RelationshipCalls)
}

func (a *Analyzer) edgesOfType(typ model.RelationshipType) map[string][]string {
	result := make(map[string][]string)
	for _, r := range a.graph.Relationships() {
		if r.Type == typ {
			result[r.SourceID] = append(result[r.SourceID], r.TargetID)
		}
	}
	for id, targets := range result {
		result[id] = sortedUnique(targets)
	}
	return result
}

// ComponentDependencies follows outgoing relationships of the given types
// from id, breadth first, up to maxDepth hops (at least one). The result maps
// each relationship type to the sorted IDs reached through it. No types
// means DefaultTypes.
func (a *Analyzer) ComponentDependencies(id string, types []model.RelationshipType, maxDepth int) (map[model.RelationshipType][]string, error) {
	if _, ok := a.graph.Component(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if len(types) == 0 {
		types = DefaultTypes
	}
	maxDepth = max(maxDepth, 1)

	result := make(map[model.RelationshipType][]string)
	visited := map[string]bool{id: true}
	frontier := []string{id}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, current := range frontier {
			for _, r := range a.graph.Outgoing(current) {
				if !slices.Contains(types, r.Type) {
					continue
				}
				result[r.Type] = append(result[r.Type], r.TargetID)
				if !visited[r.TargetID] {
					visited[r.TargetID] = true
					next = append(next, r.TargetID)
				}
			}
		}
		frontier = next
	}

	for typ, ids := range result {
		result[typ] = sortedUnique(ids)
	}
	return result, nil
}

// Report lists the direct dependencies of one component in both directions.
// All lists hold sorted, distinct component IDs.
type Report struct {
	ID          string   `json:"id" yaml:"id"`
	DependsOn   []string `json:"depends_on" yaml:"depends_on"`
	UsedBy      []string `json:"used_by" yaml:"used_by"`
	Imports     []string `json:"imports" yaml:"imports"`
	Calls       []string `json:"calls" yaml:"calls"`
	CalledBy    []string `json:"called_by" yaml:"called_by"`
	Inherits    []string `json:"inherits" yaml:"inherits"`
	InheritedBy []string `json:"inherited_by" yaml:"inherited_by"`
}

// Report builds the dependency report for id
func (a *Analyzer) Report(id string) (*Report, error) {
	if _, ok := a.graph.Component(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	r := &Report{ID: id}
	for _, rel := range a.graph.Outgoing(id) {
		switch rel.Type {
		case model.RelationshipImports:
			r.Imports = append(r.Imports, rel.TargetID)
		case model.RelationshipCalls:
			r.Calls = append(r.Calls, rel.TargetID)
		case model.RelationshipInherits:
			r.Inherits = append(r.Inherits, rel.TargetID)
		default:
			continue
		}
		r.DependsOn = append(r.DependsOn, rel.TargetID)
	}
	for _, rel := range a.graph.Incoming(id) {
		switch rel.Type {
		case model.RelationshipCalls:
			r.CalledBy = append(r.CalledBy, rel.SourceID)
		case model.RelationshipInherits:
			r.InheritedBy = append(r.InheritedBy, rel.SourceID)
		case model.RelationshipImports:
			// importers only count as users
		default:
			continue
		}
		r.UsedBy = append(r.UsedBy, rel.SourceID)
	}

	for _, list := range []*[]string{&r.DependsOn, &r.UsedBy, &r.Imports, &r.Calls, &r.CalledBy, &r.Inherits, &r.InheritedBy} {
		*list = sortedUnique(*list)
	}
	return r, nil
}

// CircularDependencies finds dependency cycles over the given relationship
// types, imports and calls by default
func (a *Analyzer) CircularDependencies(types ...model.RelationshipType) []cycles.Cycle {
	if len(types) == 0 {
		types = []model.RelationshipType{model.RelationshipImports, model.RelationshipCalls}
	}
	found := cycles.FindCycles(a.graph, types...)
	a.logger.Debug("searched for cycles", "types", types, "cycles", len(found))
	return found
}

// sortedUnique returns ids sorted with duplicates removed, never nil
func sortedUnique(ids []string) []string {
	out := slices.Clone(ids)
	if out == nil {
		out = []string{}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Count pairs a name with how often it occurs
type Count struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// topCounts sorts counts descending, ties by name, and keeps at most limit
// entries. A limit of zero keeps all.
func topCounts(counts map[string]int, limit int) []Count {
	result := make([]Count, 0, len(counts))
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		result = append(result, Count{Name: name, Count: counts[name]})
	}
	slices.SortStableFunc(result, func(x, y Count) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return strings.Compare(x.Name, y.Name)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
