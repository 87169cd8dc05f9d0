package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ComponentMetadata holds the optional attributes the extractor records on a
// component. Keys it does not know about are kept in Extra and survive a
// save/load cycle.
type ComponentMetadata struct {
	Path            string   `json:"path,omitempty" yaml:"path,omitempty"`
	QualifiedName   string   `json:"qualified_name,omitempty" yaml:"qualified_name,omitempty"`
	Docstring       string   `json:"docstring,omitempty" yaml:"docstring,omitempty"`
	ModuleID        string   `json:"module_id,omitempty" yaml:"module_id,omitempty"`
	ClassID         string   `json:"class_id,omitempty" yaml:"class_id,omitempty"`
	Bases           []string `json:"bases,omitempty" yaml:"bases,omitempty"`
	UnresolvedBases []string `json:"unresolved_bases,omitempty" yaml:"unresolved_bases,omitempty"`
	Decorators      []string `json:"decorators,omitempty" yaml:"decorators,omitempty"`
	Parameters      []string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	LineEnd         int      `json:"line_end,omitempty" yaml:"line_end,omitempty"`
	Imported        bool     `json:"imported,omitempty" yaml:"imported,omitempty"` // Placeholder for a module outside the analyzed tree
	Async           bool     `json:"is_async,omitempty" yaml:"is_async,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

var componentMetadataKeys = map[string]bool{
	"path": true, "qualified_name": true, "docstring": true, "module_id": true,
	"class_id": true, "bases": true, "unresolved_bases": true, "decorators": true,
	"parameters": true, "line_end": true, "imported": true, "is_async": true,
}

// MarshalJSON writes known fields and extras as one flat object
func (m ComponentMetadata) MarshalJSON() ([]byte, error) {
	type plain ComponentMetadata
	return marshalFlat(plain(m), m.Extra)
}

// UnmarshalJSON splits a flat object into known fields and extras
func (m *ComponentMetadata) UnmarshalJSON(data []byte) error {
	type plain ComponentMetadata
	var p plain
	extra, err := unmarshalFlat(data, &p, componentMetadataKeys)
	if err != nil {
		return err
	}
	*m = ComponentMetadata(p)
	m.Extra = extra
	return nil
}

// Set stores an attribute outside the known field set
func (m *ComponentMetadata) Set(key string, value any) {
	if m.Extra == nil {
		m.Extra = make(map[string]any)
	}
	m.Extra[key] = value
}

// RelationshipMetadata holds the optional attributes of a relationship
type RelationshipMetadata struct {
	LineNumbers []int    `json:"line_numbers,omitempty" yaml:"line_numbers,omitempty"`
	Names       []string `json:"names,omitempty" yaml:"names,omitempty"` // Names pulled in by a from-import
	Alias       string   `json:"alias,omitempty" yaml:"alias,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

var relationshipMetadataKeys = map[string]bool{
	"line_numbers": true, "names": true, "alias": true,
}

// MarshalJSON writes known fields and extras as one flat object
func (m RelationshipMetadata) MarshalJSON() ([]byte, error) {
	type plain RelationshipMetadata
	return marshalFlat(plain(m), m.Extra)
}

// UnmarshalJSON splits a flat object into known fields and extras
func (m *RelationshipMetadata) UnmarshalJSON(data []byte) error {
	type plain RelationshipMetadata
	var p plain
	extra, err := unmarshalFlat(data, &p, relationshipMetadataKeys)
	if err != nil {
		return err
	}
	*m = RelationshipMetadata(p)
	m.Extra = extra
	return nil
}

// Set stores an attribute outside the known field set
func (m *RelationshipMetadata) Set(key string, value any) {
	if m.Extra == nil {
		m.Extra = make(map[string]any)
	}
	m.Extra[key] = value
}

func marshalFlat(known any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	merged, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		// Known fields win over extras with the same key
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

func unmarshalFlat(data []byte, known any, knownKeys map[string]bool) (map[string]any, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	if err := json.Unmarshal(data, known); err != nil {
		return nil, err
	}

	all, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	var extra map[string]any
	for k, v := range all {
		if knownKeys[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = normalizeNumbers(v)
	}
	return extra, nil
}

// decodeObject decodes a JSON object keeping numbers as json.Number
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// normalizeNumbers turns whole numbers into int and the rest into float64,
// descending into maps and lists
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(x.String(), 10, 0); err == nil {
			return int(i)
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, item := range x {
			x[k] = normalizeNumbers(item)
		}
		return x
	case []any:
		for i, item := range x {
			x[i] = normalizeNumbers(item)
		}
		return x
	}
	return v
}
