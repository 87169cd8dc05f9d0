package deps

import (
	"fmt"

	"github.com/ritzau/codegraph/pkg/model"
)

// Weights applied to the complexity score
const (
	WeightIncoming         = 0.7
	WeightOutgoing         = 0.3
	WeightInheritanceDepth = 0.5
	WeightMethod           = 0.2
	WeightParameter        = 0.1
	WeightLine             = 0.05
)

// complexityTypes are the relationship types counted as dependencies
var complexityTypes = []model.RelationshipType{
	model.RelationshipImports,
	model.RelationshipCalls,
	model.RelationshipInherits,
}

// Complexity holds the metrics behind a component's complexity score.
// Class and function fields are zero for other component types.
type Complexity struct {
	ID       string              `json:"id" yaml:"id"`
	Name     string              `json:"name" yaml:"name"`
	Type     model.ComponentType `json:"type" yaml:"type"`
	Incoming int                 `json:"incoming_dependencies" yaml:"incoming_dependencies"`
	Outgoing int                 `json:"outgoing_dependencies" yaml:"outgoing_dependencies"`
	ByType   map[string]int      `json:"dependency_types" yaml:"dependency_types"`

	InheritanceDepth int `json:"inheritance_depth,omitempty" yaml:"inheritance_depth,omitempty"`
	MethodCount      int `json:"method_count,omitempty" yaml:"method_count,omitempty"`
	ParameterCount   int `json:"parameter_count,omitempty" yaml:"parameter_count,omitempty"`
	LinesOfCode      int `json:"lines_of_code,omitempty" yaml:"lines_of_code,omitempty"`

	Score float64 `json:"complexity_score" yaml:"complexity_score"`
}

// Complexity scores a component by how many dependencies it has in each
// direction, adjusted by inheritance depth and method count for classes and
// by parameter count and length for functions and methods.
func (a *Analyzer) Complexity(id string) (*Complexity, error) {
	c, ok := a.graph.Component(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	m := &Complexity{
		ID:     c.ID,
		Name:   c.Name,
		Type:   c.Type,
		ByType: make(map[string]int),
	}

	outgoing, err := a.ComponentDependencies(id, complexityTypes, 1)
	if err != nil {
		return nil, err
	}
	for typ, targets := range outgoing {
		m.Outgoing += len(targets)
		m.ByType[string(typ)] = len(targets)
	}
	for _, typ := range complexityTypes {
		n := len(a.graph.IncomingOfType(id, typ))
		m.Incoming += n
		m.ByType["incoming_"+string(typ)] = n
	}

	m.Score = float64(m.Incoming)*WeightIncoming + float64(m.Outgoing)*WeightOutgoing

	switch c.Type {
	case model.ComponentClass:
		m.InheritanceDepth = a.InheritanceDepth(id)
		for _, r := range a.graph.OutgoingOfType(id, model.RelationshipContains) {
			if target, ok := a.graph.Component(r.TargetID); ok && target.Type == model.ComponentMethod {
				m.MethodCount++
			}
		}
		m.Score += float64(m.InheritanceDepth)*WeightInheritanceDepth + float64(m.MethodCount)*WeightMethod
	case model.ComponentFunction, model.ComponentMethod:
		m.ParameterCount = len(c.Metadata.Parameters)
		if c.LineNumber > 0 && c.Metadata.LineEnd >= c.LineNumber {
			m.LinesOfCode = c.Metadata.LineEnd - c.LineNumber + 1
		}
		m.Score += float64(m.ParameterCount)*WeightParameter + float64(m.LinesOfCode)*WeightLine
	}

	return m, nil
}

// InheritanceDepth counts inherits hops from id following the first base
// at each level. Cycles stop the walk.
func (a *Analyzer) InheritanceDepth(id string) int {
	depth := 0
	visited := make(map[string]bool)
	for current := id; !visited[current]; depth++ {
		visited[current] = true
		bases := a.graph.OutgoingOfType(current, model.RelationshipInherits)
		if len(bases) == 0 {
			break
		}
		current = bases[0].TargetID
	}
	return depth
}
