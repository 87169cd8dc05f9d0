package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ritzau/codegraph/pkg/analysis"
	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/lens"
	"github.com/ritzau/codegraph/pkg/logging"
)

var (
	analyzeNoGitignore bool
	analyzeNoCalls     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [PATH]",
	Short: "Extract Python sources into the knowledge base",
	Long: `Parse every Python file under PATH, or the single file PATH, and add the
components and relationships found to the knowledge base. Files analyzed
before are replaced in place: components that still exist keep their IDs
and relationships other files hold into them are kept.

Files that fail to parse are reported and skipped.

Examples:
  codegraph analyze
  codegraph analyze src --exclude 'tests/' --exclude '*_pb2.py'
  codegraph analyze app/main.py --no-calls`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringSlice("exclude", nil, "Gitignore-style patterns to skip (repeatable)")
	f.String("language", "python", "Source language")
	f.BoolVar(&analyzeNoGitignore, "no-gitignore", false, "Do not honor .gitignore")
	f.BoolVar(&analyzeNoCalls, "no-calls", false, "Skip call extraction")
	f.String("format", "text", "Output format: text, json, yaml")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	dataDir := cfg.DataPath(".")

	s, err := openStore(dataDir, cfg.Storage)
	if err != nil {
		return err
	}
	defer s.Close()

	g, err := graph.Load(s)
	if err != nil {
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}

	summary, diff, err := analyzeInto(cmd.Context(), g, path, dataDir, analysis.AnalysisOptions{
		Exclude:     cfg.Exclude,
		NoGitignore: analyzeNoGitignore,
		SkipCalls:   analyzeNoCalls,
	})
	if err != nil {
		return err
	}

	if err := g.Save(s); err != nil {
		return fmt.Errorf("failed to save knowledge base: %w", err)
	}
	logging.Info("knowledge graph updated",
		"added", len(diff.AddedComponents),
		"removed", len(diff.RemovedComponents),
		"modified", len(diff.ModifiedComponents),
		"addedEdges", len(diff.AddedEdges),
		"removedEdges", len(diff.RemovedEdges))

	p, err := newPrinter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return p.Print(summary)
}

// analyzeInto runs the analysis of path into g and reports how the graph
// changed. The data directory is excluded when it lives under path.
func analyzeInto(ctx context.Context, g *graph.Graph, path, dataDir string, opts analysis.AnalysisOptions) (*analysis.Summary, *lens.ViewDiff, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if absData, err := filepath.Abs(dataDir); err == nil {
		if rel, err := filepath.Rel(root, absData); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			opts.Exclude = append(opts.Exclude, "/"+filepath.ToSlash(rel)+"/")
		}
	}

	opts.Reason = "initial analysis"
	if g.Len() > 0 {
		opts.Reason = "re-analysis"
	}

	before := lens.CreateSnapshot(lens.Apply(g, lens.Lens{}))
	summary, err := analysis.NewAnalysisRunner(root, g).Run(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	diff := lens.ComputeDiff(before, lens.CreateSnapshot(lens.Apply(g, lens.Lens{})))

	return summary, diff, nil
}
