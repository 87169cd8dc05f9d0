package inspect

import (
	"errors"

	"github.com/ritzau/codegraph/pkg/model"
)

// Documentation gathers everything known about one component. Which of the
// optional parts are set depends on the component type.
type Documentation struct {
	Component   *model.Component      `json:"component" yaml:"component"`
	Source      string                `json:"source,omitempty" yaml:"source,omitempty"`
	Signature   string                `json:"signature,omitempty" yaml:"signature,omitempty"`
	Class       *ClassStructure       `json:"class,omitempty" yaml:"class,omitempty"`
	Module      *ModuleStructure      `json:"module,omitempty" yaml:"module,omitempty"`
	Inheritance *InheritanceHierarchy `json:"inheritance,omitempty" yaml:"inheritance,omitempty"`
	Calls       *CallHierarchy        `json:"calls,omitempty" yaml:"calls,omitempty"`
	References  *References           `json:"references" yaml:"references"`
}

// Documentation collects source, structure, hierarchies and references of
// a component. Missing source text is not an error.
func (in *Inspector) Documentation(id string) (*Documentation, error) {
	c, err := in.component(id)
	if err != nil {
		return nil, err
	}

	doc := &Documentation{Component: c}
	switch snippet, err := in.Source(id); {
	case err == nil:
		doc.Source = snippet.Code
	case !errors.Is(err, ErrNoSource):
		return nil, err
	}

	switch c.Type {
	case model.ComponentClass, model.ComponentInterface:
		if doc.Class, err = in.ClassStructure(id); err != nil {
			return nil, err
		}
		doc.Class.Source = ""
		if doc.Inheritance, err = in.InheritanceHierarchy(id); err != nil {
			return nil, err
		}
	case model.ComponentFunction, model.ComponentMethod:
		if doc.Signature, err = in.Signature(id); err != nil {
			return nil, err
		}
		if doc.Calls, err = in.CallHierarchy(id); err != nil {
			return nil, err
		}
	case model.ComponentModule:
		if doc.Module, err = in.ModuleStructure(id); err != nil {
			return nil, err
		}
	}

	if doc.References, err = in.References(id); err != nil {
		return nil, err
	}
	return doc, nil
}
