package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/inspect"
	"github.com/ritzau/codegraph/pkg/logging"
	"github.com/ritzau/codegraph/pkg/model"
	"github.com/ritzau/codegraph/pkg/output"
)

var (
	queryType          string
	queryFile          string
	queryID            string
	queryRelationships bool
	queryStats         bool
	queryView          inspectView
)

// inspectView selects what query shows of each match besides the listing
type inspectView struct {
	source     bool
	hierarchy  bool
	structure  bool
	references bool
	doc        bool
}

func (v inspectView) any() bool {
	return v.source || v.hierarchy || v.structure || v.references || v.doc
}

var queryCmd = &cobra.Command{
	Use:   "query [NAME]",
	Short: "Look up components in the knowledge base",
	Long: `List components, optionally narrowed by name, type and file. With
--relationships every match is shown with its incoming and outgoing
relationships. --source, --hierarchy, --structure, --references and --doc
show one view of each match instead; components the view does not apply to
are skipped.

Examples:
  codegraph query
  codegraph query Square -r
  codegraph query --type class --file src/shapes.py
  codegraph query --id 3f0c... --format json
  codegraph query --stats
  codegraph query area --source
  codegraph query Square --hierarchy
  codegraph query shapes --type module --structure`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryType, "type", "", "Only components of this type (module, class, function, method, interface)")
	f.StringVar(&queryFile, "file", "", "Only components extracted from this file")
	f.StringVar(&queryID, "id", "", "Look up a single component by ID")
	f.BoolVarP(&queryRelationships, "relationships", "r", false, "Show relationships of each match")
	f.BoolVar(&queryStats, "stats", false, "Show knowledge base statistics")
	f.BoolVar(&queryView.source, "source", false, "Show the source code of each match")
	f.BoolVar(&queryView.hierarchy, "hierarchy", false, "Show the call hierarchy of functions and the inheritance of classes")
	f.BoolVar(&queryView.structure, "structure", false, "Show the members of modules and classes")
	f.BoolVar(&queryView.references, "references", false, "Show what imports, calls, inherits or contains each match")
	f.BoolVar(&queryView.doc, "doc", false, "Show everything known about each match")
	queryCmd.MarkFlagsMutuallyExclusive("relationships", "source", "hierarchy", "structure", "references", "doc")
	f.String("format", "text", "Output format: text, json, yaml")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	g, err := loadGraph(cfg.DataPath("."), cfg.Storage)
	if err != nil {
		return err
	}
	p, err := newPrinter(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if queryStats {
		return p.Print(g.Stats())
	}

	var found []*model.Component
	if queryID != "" {
		c, ok := g.Component(queryID)
		if !ok {
			return fmt.Errorf("component %q not found", queryID)
		}
		found = []*model.Component{c}
	} else {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		file := queryFile
		if file != "" {
			// Paths are stored absolute
			if file, err = filepath.Abs(file); err != nil {
				return fmt.Errorf("failed to resolve %s: %w", queryFile, err)
			}
		}
		if found, err = findComponents(g, name, queryType, file); err != nil {
			return err
		}
		if name != "" && len(found) == 0 {
			return fmt.Errorf("no components found with name %q", name)
		}
	}

	switch {
	case queryView.any():
		result, err := inspectComponents(inspect.New(g), found, queryView)
		if err != nil {
			return err
		}
		return p.Print(result)
	case queryID != "":
		return p.Print(output.NewComponentDetail(g, found[0]))
	case !queryRelationships:
		return p.Print(found)
	}

	details := make([]*output.ComponentDetail, 0, len(found))
	for _, c := range found {
		details = append(details, output.NewComponentDetail(g, c))
	}
	return p.Print(details)
}

// inspectComponents applies view to every component. A single component is
// returned on its own; with several, components the view does not apply to
// are skipped.
func inspectComponents(in *inspect.Inspector, found []*model.Component, view inspectView) (any, error) {
	var results []any
	var snippets []*inspect.Snippet
	for _, c := range found {
		result, err := inspectOne(in, c, view)
		switch {
		case err == nil:
		case len(found) > 1 && (errors.Is(err, inspect.ErrWrongType) || errors.Is(err, inspect.ErrNoSource)):
			logging.Debug("skipping component", "id", c.ID, "name", c.Name, "error", err)
			continue
		default:
			return nil, err
		}
		if s, ok := result.(*inspect.Snippet); ok {
			snippets = append(snippets, s)
		}
		results = append(results, result)
	}

	switch {
	case len(results) == 0:
		return nil, fmt.Errorf("no matching component has anything to show")
	case len(results) == 1:
		return results[0], nil
	case len(snippets) == len(results):
		return snippets, nil
	}
	return results, nil
}

func inspectOne(in *inspect.Inspector, c *model.Component, view inspectView) (any, error) {
	switch {
	case view.source:
		return in.Source(c.ID)
	case view.hierarchy:
		switch c.Type {
		case model.ComponentClass, model.ComponentInterface:
			return in.InheritanceHierarchy(c.ID)
		default:
			return in.CallHierarchy(c.ID)
		}
	case view.structure:
		if c.Type == model.ComponentModule {
			return in.ModuleStructure(c.ID)
		}
		return in.ClassStructure(c.ID)
	case view.references:
		return in.References(c.ID)
	default:
		return in.Documentation(c.ID)
	}
}

// findComponents selects components by name, type and file. Empty criteria
// match everything.
func findComponents(g *graph.Graph, name, typ, file string) ([]*model.Component, error) {
	var ct model.ComponentType
	if typ != "" {
		var err error
		if ct, err = model.ParseComponentType(typ); err != nil {
			return nil, err
		}
	}

	candidates := g.Components()
	switch {
	case name != "":
		candidates = g.ComponentsByName(name)
	case file != "":
		candidates = g.ComponentsByFile(file)
	case ct != "":
		candidates = g.ComponentsByType(ct)
	}

	result := make([]*model.Component, 0, len(candidates))
	for _, c := range candidates {
		if ct != "" && c.Type != ct {
			continue
		}
		if file != "" && c.FilePath != file {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}
