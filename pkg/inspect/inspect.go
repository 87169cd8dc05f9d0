// Package inspect reads components back out of the knowledge base the way a
// developer looks at code: source text, signatures, class and module
// structure, call and inheritance hierarchies, references and documentation.
package inspect

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/logging"
	"github.com/ritzau/codegraph/pkg/model"
)

var (
	// ErrNotFound is returned for component IDs that are not in the graph
	ErrNotFound = errors.New("component not found")
	// ErrWrongType is returned when an operation does not apply to the
	// component's type, like a call hierarchy for a class
	ErrWrongType = errors.New("operation does not apply to component type")
	// ErrNoSource is returned when a component's source text cannot be read
	ErrNoSource = errors.New("no source available")
)

// Extra metadata keys that override what would be read from disk
const (
	MetadataSource    = "source"
	MetadataSignature = "signature"
)

// Inspector answers questions about single components. Source text is read
// from the files recorded on the components every time it is asked for.
type Inspector struct {
	graph    *graph.Graph
	logger   *slog.Logger
	readFile func(string) ([]byte, error)
}

// New creates an inspector over g
func New(g *graph.Graph) *Inspector {
	return &Inspector{
		graph:    g,
		logger:   logging.New("inspect"),
		readFile: os.ReadFile,
	}
}

// Snippet is the source text of a component with the lines it spans
type Snippet struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	FilePath  string `json:"file_path" yaml:"file_path"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	EndLine   int    `json:"end_line" yaml:"end_line"`
	Code      string `json:"code" yaml:"code"`
}

func (in *Inspector) component(id string, types ...model.ComponentType) (*model.Component, error) {
	c, ok := in.graph.Component(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if len(types) == 0 {
		return c, nil
	}
	for _, t := range types {
		if c.Type == t {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s is a %s", ErrWrongType, c.Name, c.Type)
}

// Source returns the lines from a component's line number through its end
// line. Modules span their whole file. A "source" metadata entry wins over
// the file on disk.
func (in *Inspector) Source(id string) (*Snippet, error) {
	c, err := in.component(id)
	if err != nil {
		return nil, err
	}
	s := &Snippet{ID: c.ID, Name: c.Name, FilePath: c.FilePath, StartLine: c.LineNumber, EndLine: c.Metadata.LineEnd}

	if code, ok := c.Metadata.Extra[MetadataSource].(string); ok {
		s.Code = code
		return s, nil
	}
	if c.FilePath == "" {
		return nil, fmt.Errorf("%w: %s has no file", ErrNoSource, c.Name)
	}
	if c.LineNumber <= 0 {
		return nil, fmt.Errorf("%w: %s has no line number", ErrNoSource, c.Name)
	}

	content, err := in.readFile(c.FilePath)
	if err != nil {
		in.logger.Warn("reading source failed", "id", c.ID, "path", c.FilePath, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrNoSource, err)
	}
	lines := strings.SplitAfter(string(content), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	end := c.Metadata.LineEnd
	switch {
	case c.Type == model.ComponentModule:
		end = len(lines)
	case end < c.LineNumber:
		end = c.LineNumber
	}
	end = min(end, len(lines))
	if c.LineNumber > end {
		return nil, fmt.Errorf("%w: %s starts at line %d but %s has %d lines",
			ErrNoSource, c.Name, c.LineNumber, c.FilePath, len(lines))
	}

	s.EndLine = end
	s.Code = strings.Join(lines[c.LineNumber-1:end], "")
	return s, nil
}

// Signature returns the header of a function or method without "def" and
// the trailing colon, for example "area(self, scale: float = 1) -> float".
// When the source cannot be read it is rebuilt from the parameter names.
func (in *Inspector) Signature(id string) (string, error) {
	c, err := in.component(id, model.ComponentFunction, model.ComponentMethod)
	if err != nil {
		return "", err
	}
	if sig, ok := c.Metadata.Extra[MetadataSignature].(string); ok {
		return sig, nil
	}

	if snippet, err := in.Source(id); err == nil {
		if sig := parseSignature(snippet.Code); sig != "" {
			return sig, nil
		}
	}
	return c.Name + "(" + strings.Join(c.Metadata.Parameters, ", ") + ")", nil
}

// signature is Signature for callers that already hold the component and
// treat a failure as an empty signature
func (in *Inspector) signature(c *model.Component) string {
	sig, err := in.Signature(c.ID)
	if err != nil {
		return ""
	}
	return sig
}

// parseSignature finds the first def in code and returns everything up to
// the colon that ends its header, with whitespace collapsed
func parseSignature(code string) string {
	start := -1
	offset := 0
	for _, line := range strings.SplitAfter(code, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		trimmed = strings.TrimPrefix(trimmed, "async ")
		if strings.HasPrefix(trimmed, "def ") {
			start = offset + strings.Index(line, "def ") + len("def ")
			break
		}
		offset += len(line)
	}
	if start < 0 {
		return ""
	}

	depth := 0
	var quote byte
	for i := start; i < len(code); i++ {
		ch := code[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			depth--
		case ch == ':' && depth == 0:
			return tidy(code[start:i])
		}
	}
	return ""
}

func tidy(header string) string {
	s := strings.Join(strings.Fields(header), " ")
	s = strings.ReplaceAll(s, "( ", "(")
	s = strings.ReplaceAll(s, ", )", ")")
	return strings.ReplaceAll(s, " )", ")")
}
