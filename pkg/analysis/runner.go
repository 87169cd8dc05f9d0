package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ritzau/codegraph/pkg/extract"
	"github.com/ritzau/codegraph/pkg/finder"
	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/logging"
	"github.com/ritzau/codegraph/pkg/model"
)

// AnalysisRunner orchestrates finding source files and extracting them
// into a graph
type AnalysisRunner struct {
	root  string
	graph *graph.Graph
	mu    sync.Mutex // Prevent concurrent analysis runs
}

// AnalysisOptions configures an analysis run
type AnalysisOptions struct {
	Extensions  []string
	Exclude     []string
	NoGitignore bool
	SkipCalls   bool
	MaxFileSize int64
	Reason      string // e.g., "initial analysis", "re-analysis"
}

// Diagnostic is a per-file problem that did not stop the run
type Diagnostic struct {
	Path    string `json:"path" yaml:"path"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Summary reports what an analysis run did
type Summary struct {
	Files         int           `json:"files" yaml:"files"`
	Analyzed      int           `json:"analyzed" yaml:"analyzed"`
	Failed        int           `json:"failed" yaml:"failed"`
	Replaced      int           `json:"replaced" yaml:"replaced"` // components dropped from earlier runs
	Components    int           `json:"components" yaml:"components"`
	Relationships int           `json:"relationships" yaml:"relationships"`
	Unresolved    int           `json:"unresolved" yaml:"unresolved"`
	Diagnostics   []Diagnostic  `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
}

// NewAnalysisRunner creates a runner that analyzes root into g. Root may be
// a directory or a single file.
func NewAnalysisRunner(root string, g *graph.Graph) *AnalysisRunner {
	return &AnalysisRunner{
		root:  root,
		graph: g,
	}
}

// Run executes the analysis. Files that fail to parse become diagnostics;
// only cancellation and graph integrity errors abort the run.
func (ar *AnalysisRunner) Run(ctx context.Context, opts AnalysisOptions) (*Summary, error) {
	// Lock to prevent concurrent analysis
	ar.mu.Lock()
	defer ar.mu.Unlock()

	start := time.Now()
	logging.Info("starting analysis", "root", ar.root, "reason", opts.Reason)

	// Phase 1: find files
	logging.Info("[1/3] finding source files")
	files, extractRoot, err := ar.findFiles(opts)
	if err != nil {
		return nil, err
	}
	logging.Info("[1/3] found source files", "count", len(files))

	summary := &Summary{Files: len(files)}

	// Phase 2: clear what earlier runs extracted from these files so
	// re-analysis replaces instead of duplicating. Components that come back
	// keep their IDs, and edges other files hold into them are restored.
	previous := make(map[string]string)
	detached := make(map[string]bool)
	var inbound []*model.Relationship
	for _, path := range files {
		removed, held := ar.graph.DetachFile(path)
		for _, c := range removed {
			previous[extract.IdentityKey(c)] = c.ID
			detached[c.ID] = true
		}
		inbound = append(inbound, held...)
		summary.Replaced += len(removed)
	}
	if summary.Replaced > 0 {
		logging.Info("[2/3] cleared previous results", "components", summary.Replaced)
	}

	// Phase 3: extract
	extractor := extract.New(ar.graph,
		extract.WithRoot(extractRoot),
		extract.WithCalls(!opts.SkipCalls),
		extract.WithMaxFileSize(opts.MaxFileSize),
		extract.WithPreviousIDs(previous))

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analysis cancelled after %d files: %w", i, err)
		}

		result, err := extractor.ExtractFile(ctx, path)
		var pe *extract.ParseError
		switch {
		case errors.As(err, &pe):
			summary.Failed++
			summary.Diagnostics = append(summary.Diagnostics, Diagnostic{
				Path:    pe.Path,
				Line:    pe.Line,
				Message: pe.Err.Error(),
			})
			logging.Warn("skipping file", "path", pe.Path, "line", pe.Line, "error", pe.Err)
			continue
		case err != nil:
			return nil, fmt.Errorf("failed to analyze %s: %w", path, err)
		}

		summary.Analyzed++
		summary.Components += len(result.Components)
		summary.Relationships += len(result.Relationships)
		summary.Unresolved += len(result.Unresolved)
		logging.Trace("[3/3] analyzed", "path", path, "progress", fmt.Sprintf("%d/%d", i+1, len(files)))
	}

	// Edges held by files analyzed in this run were extracted again
	restored := 0
	for _, r := range inbound {
		if detached[r.SourceID] {
			continue
		}
		if ar.graph.AddRelationship(r) == nil {
			restored++
		}
	}
	if restored > 0 {
		logging.Debug("restored relationships from other files", "count", restored)
	}

	summary.Duration = time.Since(start)
	logging.Info("[3/3] analysis complete",
		"analyzed", summary.Analyzed,
		"failed", summary.Failed,
		"components", summary.Components,
		"relationships", summary.Relationships,
		"durationMs", summary.Duration.Milliseconds())

	return summary, nil
}

// findFiles returns the files to analyze and the root dotted module names
// are computed from. The project root wins when it contains ar.root so a
// file or subdirectory keeps the module names a full run gives it.
func (ar *AnalysisRunner) findFiles(opts AnalysisOptions) ([]string, string, error) {
	info, err := os.Stat(ar.root)
	if err != nil {
		return nil, "", fmt.Errorf("failed to access %s: %w", ar.root, err)
	}

	moduleRoot := ar.root
	if !info.IsDir() {
		moduleRoot = ""
	}
	if project := ar.graph.Project().Root; project != "" && within(project, ar.root) {
		moduleRoot = project
	}

	if !info.IsDir() {
		return []string{ar.root}, moduleRoot, nil
	}

	files, err := finder.FindSourceFiles(ar.root, finder.Options{
		Extensions:  opts.Extensions,
		Exclude:     opts.Exclude,
		NoGitignore: opts.NoGitignore,
	})
	if err != nil {
		return nil, "", fmt.Errorf("finding source files: %w", err)
	}
	return files, moduleRoot, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
