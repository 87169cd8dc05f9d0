// Package extract turns Python source files into components and
// relationships in the knowledge graph.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/logging"
	"github.com/ritzau/codegraph/pkg/model"
)

// DefaultMaxFileSize is the largest file the extractor will parse
const DefaultMaxFileSize = 10 * 1024 * 1024

// Option configures an Extractor
type Option func(*Extractor)

// WithRoot sets the analysis root used to derive dotted module names
func WithRoot(root string) Option {
	return func(e *Extractor) {
		e.root = root
	}
}

// WithMaxFileSize limits the size of files the extractor accepts
func WithMaxFileSize(bytes int64) Option {
	return func(e *Extractor) {
		if bytes > 0 {
			e.maxFileSize = bytes
		}
	}
}

// WithCalls enables or disables call edge extraction
func WithCalls(enabled bool) Option {
	return func(e *Extractor) {
		e.calls = enabled
	}
}

// WithPreviousIDs lets re-extracted components keep the IDs they had before
// their file was cleared. ids maps IdentityKey to component ID; matched
// entries are consumed.
func WithPreviousIDs(ids map[string]string) Option {
	return func(e *Extractor) {
		e.previous = ids
	}
}

// IdentityKey identifies a component across extractions of the same file
func IdentityKey(c *model.Component) string {
	return c.FilePath + "|" + string(c.Type) + "|" + c.Metadata.QualifiedName
}

// Extractor emits the components of Python files into a graph. Files are
// extracted one at a time; base classes and imports resolve against whatever
// the graph already holds.
type Extractor struct {
	graph       *graph.Graph
	root        string
	maxFileSize int64
	calls       bool
	previous    map[string]string
}

// New creates an extractor writing into g
func New(g *graph.Graph, opts ...Option) *Extractor {
	e := &Extractor{
		graph:       g,
		maxFileSize: DefaultMaxFileSize,
		calls:       true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Unresolved is a reference the extractor could not link to a component
type Unresolved struct {
	Kind        string `json:"kind" yaml:"kind"` // "base"
	Name        string `json:"name" yaml:"name"`
	Line        int    `json:"line" yaml:"line"`
	ComponentID string `json:"component_id" yaml:"component_id"`
}

// Result lists everything one file contributed to the graph
type Result struct {
	Path          string
	Module        *model.Component
	Components    []*model.Component
	Relationships []*model.Relationship
	Unresolved    []Unresolved
}

// ExtractFile reads and extracts path. Read failures are reported as
// *ParseError like syntax errors.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if info.Size() > e.maxFileSize {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("%w: %d bytes exceeds limit %d", ErrFileTooLarge, info.Size(), e.maxFileSize)}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return e.Extract(ctx, path, content)
}

// Extract parses content as the file at path and emits its components.
//
// A file that fails to parse contributes nothing and yields a *ParseError.
// Any other error means the graph rejected an emitted relationship or ctx
// was cancelled.
func (e *Extractor) Extract(ctx context.Context, path string, content []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if int64(len(content)) > e.maxFileSize {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("%w: %d bytes exceeds limit %d", ErrFileTooLarge, len(content), e.maxFileSize)}
	}

	file, err := parsePython(ctx, content)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		pe := &ParseError{Path: path, Err: err}
		var se *syntaxError
		if errors.As(err, &se) {
			pe.Line = se.line
		}
		return nil, pe
	}

	em := &emitter{
		Extractor: e,
		result:    &Result{Path: path},
		path:      path,
	}
	if err := em.emit(file); err != nil {
		return nil, fmt.Errorf("failed to emit %s: %w", path, err)
	}

	logging.Debug("extracted file",
		"path", path,
		"components", len(em.result.Components),
		"relationships", len(em.result.Relationships),
		"unresolved", len(em.result.Unresolved))

	return em.result, nil
}

// ModuleName derives the dotted module name of path relative to root:
// pkg/sub/mod.py is pkg.sub.mod and pkg/__init__.py is pkg
func ModuleName(root, path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if root == "" {
		return stem
	}

	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return stem
	}

	rel = strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
	rel = strings.TrimSuffix(rel, "/__init__")
	if rel == "__init__" {
		return stem
	}
	return strings.ReplaceAll(rel, "/", ".")
}
