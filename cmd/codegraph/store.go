package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/logging"
	"github.com/ritzau/codegraph/pkg/model"
	"github.com/ritzau/codegraph/pkg/output"
	"github.com/ritzau/codegraph/pkg/storage"
)

var errNotInitialized = errors.New("knowledge base not initialized, run 'codegraph init' first")

// openStore opens the knowledge base in dataDir, which must already exist
func openStore(dataDir, backend string) (storage.Storage, error) {
	if _, err := os.Stat(dataDir); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w (no %s)", errNotInitialized, dataDir)
	} else if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", dataDir, err)
	}
	return storage.Open(backend, dataDir)
}

// loadGraph reads the whole knowledge base into memory
func loadGraph(dataDir, backend string) (*graph.Graph, error) {
	s, err := openStore(dataDir, backend)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	g, err := graph.Load(s)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	logging.Debug("loaded knowledge base", "dir", dataDir, "components", g.Len(), "relationships", g.RelationshipCount())
	return g, nil
}

// resolveComponent looks ref up as an ID first and then as a name. When
// several components share the name the first one found is used.
func resolveComponent(g *graph.Graph, ref string) (*model.Component, error) {
	if c, ok := g.Component(ref); ok {
		return c, nil
	}
	matches := g.ComponentsByName(ref)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("component %q not found", ref)
	case 1:
	default:
		logging.Warn("component name is ambiguous, using the first match", "name", ref, "matches", len(matches))
	}
	return matches[0], nil
}

// newPrinter creates a printer for the configured output format
func newPrinter(w io.Writer) (*output.Printer, error) {
	format, err := output.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(w, format), nil
}
