package inspect

import (
	"cmp"
	"slices"
	"strings"

	"github.com/ritzau/codegraph/pkg/model"
)

// Member is a class, function or method listed in a structure
type Member struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	LineNumber int      `json:"line_number,omitempty" yaml:"line_number,omitempty"`
	Signature  string   `json:"signature,omitempty" yaml:"signature,omitempty"`
	Docstring  string   `json:"docstring,omitempty" yaml:"docstring,omitempty"`
	Decorators []string `json:"decorators,omitempty" yaml:"decorators,omitempty"`
	Bases      []string `json:"bases,omitempty" yaml:"bases,omitempty"`
	Special    bool     `json:"is_special,omitempty" yaml:"is_special,omitempty"` // dunder method
	Async      bool     `json:"is_async,omitempty" yaml:"is_async,omitempty"`
}

// ClassStructure is a class with its methods in source order
type ClassStructure struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Docstring  string   `json:"docstring,omitempty" yaml:"docstring,omitempty"`
	Bases      []string `json:"bases" yaml:"bases"`
	Decorators []string `json:"decorators" yaml:"decorators"`
	Methods    []Member `json:"methods" yaml:"methods"`
	Source     string   `json:"source,omitempty" yaml:"source,omitempty"`
}

// ModuleStructure is a module with its imports and top-level definitions
type ModuleStructure struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	FilePath  string   `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	Docstring string   `json:"docstring,omitempty" yaml:"docstring,omitempty"`
	Imports   []Ref    `json:"imports" yaml:"imports"`
	Classes   []Member `json:"classes" yaml:"classes"`
	Functions []Member `json:"functions" yaml:"functions"`
}

// ClassStructure lists a class's methods with their signatures
func (in *Inspector) ClassStructure(id string) (*ClassStructure, error) {
	c, err := in.component(id, model.ComponentClass, model.ComponentInterface)
	if err != nil {
		return nil, err
	}

	s := &ClassStructure{
		ID:         c.ID,
		Name:       c.Name,
		Docstring:  c.Metadata.Docstring,
		Bases:      nonNil(c.Metadata.Bases),
		Decorators: nonNil(c.Metadata.Decorators),
		Methods:    []Member{},
	}
	if snippet, err := in.Source(id); err == nil {
		s.Source = snippet.Code
	}

	for _, child := range in.contained(c.ID) {
		if child.Type != model.ComponentMethod {
			continue
		}
		s.Methods = append(s.Methods, Member{
			ID:         child.ID,
			Name:       child.Name,
			LineNumber: child.LineNumber,
			Signature:  in.signature(child),
			Docstring:  child.Metadata.Docstring,
			Decorators: child.Metadata.Decorators,
			Special:    strings.HasPrefix(child.Name, "__") && strings.HasSuffix(child.Name, "__"),
			Async:      child.Metadata.Async,
		})
	}
	sortByLine(s.Methods)
	return s, nil
}

// ModuleStructure lists a module's imports, classes and functions
func (in *Inspector) ModuleStructure(id string) (*ModuleStructure, error) {
	c, err := in.component(id, model.ComponentModule)
	if err != nil {
		return nil, err
	}

	s := &ModuleStructure{
		ID:        c.ID,
		Name:      c.Name,
		FilePath:  c.FilePath,
		Docstring: c.Metadata.Docstring,
		Imports:   in.refs(in.graph.OutgoingOfType(c.ID, model.RelationshipImports), false),
		Classes:   []Member{},
		Functions: []Member{},
	}

	for _, child := range in.contained(c.ID) {
		switch child.Type {
		case model.ComponentClass, model.ComponentInterface:
			s.Classes = append(s.Classes, Member{
				ID:         child.ID,
				Name:       child.Name,
				LineNumber: child.LineNumber,
				Docstring:  child.Metadata.Docstring,
				Bases:      child.Metadata.Bases,
			})
		case model.ComponentFunction:
			s.Functions = append(s.Functions, Member{
				ID:         child.ID,
				Name:       child.Name,
				LineNumber: child.LineNumber,
				Signature:  in.signature(child),
				Docstring:  child.Metadata.Docstring,
				Decorators: child.Metadata.Decorators,
				Async:      child.Metadata.Async,
			})
		}
	}
	sortByLine(s.Classes)
	sortByLine(s.Functions)
	return s, nil
}

func (in *Inspector) contained(id string) []*model.Component {
	var children []*model.Component
	for _, r := range in.graph.OutgoingOfType(id, model.RelationshipContains) {
		if child, ok := in.graph.Component(r.TargetID); ok {
			children = append(children, child)
		}
	}
	return children
}

func sortByLine(members []Member) {
	slices.SortStableFunc(members, func(a, b Member) int {
		return cmp.Compare(a.LineNumber, b.LineNumber)
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
