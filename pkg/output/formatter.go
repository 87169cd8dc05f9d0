// Package output prints query and analysis results as colored text, JSON
// or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/ritzau/codegraph/pkg/analysis"
	"github.com/ritzau/codegraph/pkg/cycles"
	"github.com/ritzau/codegraph/pkg/deps"
	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/inspect"
	"github.com/ritzau/codegraph/pkg/model"
)

// Format selects how results are printed
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a string into a Format
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Color definitions
var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

// Printer writes results in one format
type Printer struct {
	w      io.Writer
	format Format
}

// NewPrinter creates a printer writing to w
func NewPrinter(w io.Writer, format Format) *Printer {
	return &Printer{w: w, format: format}
}

// Print writes v. JSON and YAML encode any value; text knows the result
// types of this module and falls back to YAML for anything else.
func (p *Printer) Print(v any) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		return p.yaml(v)
	}

	switch v := v.(type) {
	case *analysis.Summary:
		p.summary(v)
	case graph.Stats:
		p.stats(v)
	case []*model.Component:
		p.components(v)
	case *ComponentDetail:
		p.detail(v)
	case []*ComponentDetail:
		for i, d := range v {
			if i > 0 {
				fmt.Fprintln(p.w)
			}
			p.detail(d)
		}
	case *deps.Report:
		p.report(v)
	case *deps.Complexity:
		p.complexity(v)
	case []deps.ModuleReport:
		p.modules(v)
	case *deps.ImportStructure:
		p.importStructure(v)
	case []cycles.Cycle:
		p.cycles(v)
	case *inspect.Snippet:
		p.snippet(v)
	case []*inspect.Snippet:
		for _, s := range v {
			p.snippet(s)
		}
	case *inspect.CallHierarchy:
		p.callHierarchy(v)
	case *inspect.InheritanceHierarchy:
		p.inheritance(v)
	case *inspect.References:
		p.references(v)
	default:
		return p.yaml(v)
	}
	return nil
}

func (p *Printer) yaml(v any) error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

func (p *Printer) summary(s *analysis.Summary) {
	bold.Fprintln(p.w, "Analysis Summary")
	bold.Fprintln(p.w, "================")
	fmt.Fprintf(p.w, "Files: %d\n", s.Files)

	if s.Failed == 0 {
		green.Fprintf(p.w, "Analyzed: %d files\n", s.Analyzed)
	} else {
		fmt.Fprintf(p.w, "Analyzed: %d files\n", s.Analyzed)
		yellow.Fprintf(p.w, "Failed: %d file(s)\n", s.Failed)
	}
	fmt.Fprintf(p.w, "Components: %d\n", s.Components)
	fmt.Fprintf(p.w, "Relationships: %d\n", s.Relationships)
	if s.Unresolved > 0 {
		yellow.Fprintf(p.w, "Unresolved references: %d\n", s.Unresolved)
	}
	if s.Replaced > 0 {
		faint.Fprintf(p.w, "Replaced %d components from the previous run\n", s.Replaced)
	}

	if len(s.Diagnostics) > 0 {
		fmt.Fprintln(p.w)
		red.Fprintln(p.w, "FAILED FILES:")
		for _, d := range s.Diagnostics {
			if d.Line > 0 {
				yellow.Fprintf(p.w, "  %s:%d\n", d.Path, d.Line)
			} else {
				yellow.Fprintf(p.w, "  %s\n", d.Path)
			}
			fmt.Fprintf(p.w, "    %s\n", d.Message)
		}
	}

	fmt.Fprintln(p.w)
	summaryColor := green
	if s.Failed > 0 {
		summaryColor = yellow
	}
	if s.Files > 0 && s.Failed*2 > s.Files {
		summaryColor = red
	}
	summaryColor.Fprintf(p.w, "Done in %s\n", s.Duration.Round(time.Millisecond))
}

func (p *Printer) stats(s graph.Stats) {
	bold.Fprintln(p.w, "Knowledge Graph")
	fmt.Fprintf(p.w, "Components: %d\n", s.Components)
	for _, typ := range model.ComponentTypes {
		if n := s.ByComponent[typ]; n > 0 {
			cyan.Fprintf(p.w, "  %-10s %d\n", typ, n)
		}
	}
	fmt.Fprintf(p.w, "Relationships: %d\n", s.Relationships)
	types := make([]string, 0, len(s.ByRelation))
	for typ := range s.ByRelation {
		types = append(types, string(typ))
	}
	slices.Sort(types)
	for _, typ := range types {
		cyan.Fprintf(p.w, "  %-10s %d\n", typ, s.ByRelation[model.RelationshipType(typ)])
	}
}

func (p *Printer) components(list []*model.Component) {
	if len(list) == 0 {
		yellow.Fprintln(p.w, "No components found")
		return
	}
	for _, c := range list {
		p.componentLine(c)
	}
	faint.Fprintf(p.w, "%d component(s)\n", len(list))
}

func (p *Printer) componentLine(c *model.Component) {
	cyan.Fprintf(p.w, "%-9s ", c.Type)
	bold.Fprint(p.w, c.Name)
	if loc := location(c); loc != "" {
		fmt.Fprintf(p.w, "  %s", loc)
	}
	if c.Metadata.Imported {
		faint.Fprint(p.w, "  (external)")
	}
	faint.Fprintf(p.w, "  %s\n", c.ID)
}

func location(c *model.Component) string {
	switch {
	case c.FilePath == "":
		return ""
	case c.LineNumber > 0:
		return fmt.Sprintf("%s:%d", c.FilePath, c.LineNumber)
	default:
		return c.FilePath
	}
}

func (p *Printer) detail(d *ComponentDetail) {
	c := d.Component
	bold.Fprintf(p.w, "%s %s\n", c.Type, c.Name)
	fmt.Fprintf(p.w, "ID: %s\n", c.ID)
	if loc := location(c); loc != "" {
		fmt.Fprintf(p.w, "Location: %s\n", loc)
	}
	if c.Metadata.QualifiedName != "" && c.Metadata.QualifiedName != c.Name {
		fmt.Fprintf(p.w, "Qualified name: %s\n", c.Metadata.QualifiedName)
	}
	if len(c.Metadata.Bases) > 0 {
		fmt.Fprintf(p.w, "Bases: %s\n", strings.Join(c.Metadata.Bases, ", "))
	}
	if len(c.Metadata.Parameters) > 0 {
		fmt.Fprintf(p.w, "Parameters: %s\n", strings.Join(c.Metadata.Parameters, ", "))
	}
	if len(c.Metadata.Decorators) > 0 {
		fmt.Fprintf(p.w, "Decorators: %s\n", strings.Join(c.Metadata.Decorators, ", "))
	}
	if c.Metadata.Docstring != "" {
		faint.Fprintf(p.w, "%s\n", c.Metadata.Docstring)
	}

	p.links("Outgoing", "->", d.Outgoing)
	p.links("Incoming", "<-", d.Incoming)
}

func (p *Printer) links(title, arrow string, links []Link) {
	if len(links) == 0 {
		return
	}
	fmt.Fprintln(p.w)
	bold.Fprintf(p.w, "%s (%d):\n", title, len(links))
	for _, l := range links {
		cyan.Fprintf(p.w, "  %s %-9s ", arrow, l.Relationship)
		fmt.Fprintf(p.w, "%s %s", l.Type, l.Name)
		faint.Fprintf(p.w, "  %s\n", l.ID)
	}
}

func (p *Printer) report(r *deps.Report) {
	bold.Fprintf(p.w, "Dependencies of %s\n", r.ID)
	for _, row := range []struct {
		label string
		ids   []string
	}{
		{"depends on", r.DependsOn},
		{"used by", r.UsedBy},
		{"imports", r.Imports},
		{"calls", r.Calls},
		{"called by", r.CalledBy},
		{"inherits", r.Inherits},
		{"inherited by", r.InheritedBy},
	} {
		cyan.Fprintf(p.w, "  %-13s", row.label)
		fmt.Fprintf(p.w, "%d\n", len(row.ids))
		for _, id := range row.ids {
			fmt.Fprintf(p.w, "    %s\n", id)
		}
	}
}

func (p *Printer) complexity(c *deps.Complexity) {
	bold.Fprintf(p.w, "Complexity of %s %s\n", c.Type, c.Name)
	fmt.Fprintf(p.w, "Incoming dependencies: %d\n", c.Incoming)
	fmt.Fprintf(p.w, "Outgoing dependencies: %d\n", c.Outgoing)
	switch c.Type {
	case model.ComponentClass:
		fmt.Fprintf(p.w, "Inheritance depth: %d\n", c.InheritanceDepth)
		fmt.Fprintf(p.w, "Methods: %d\n", c.MethodCount)
	case model.ComponentFunction, model.ComponentMethod:
		fmt.Fprintf(p.w, "Parameters: %d\n", c.ParameterCount)
		fmt.Fprintf(p.w, "Lines of code: %d\n", c.LinesOfCode)
	}

	scoreColor := green
	if c.Score >= 5 {
		scoreColor = yellow
	}
	if c.Score >= 10 {
		scoreColor = red
	}
	scoreColor.Fprintf(p.w, "Score: %.2f\n", c.Score)
}

func (p *Printer) modules(reports []deps.ModuleReport) {
	if len(reports) == 0 {
		yellow.Fprintln(p.w, "No modules analyzed")
		return
	}
	for _, m := range reports {
		bold.Fprintf(p.w, "%s", m.Name)
		faint.Fprintf(p.w, "  complexity %d\n", m.Complexity)
		printList(p.w, "imports", m.Imports)
		printList(p.w, "depends on", m.DependsOn)
		printList(p.w, "used by", m.UsedBy)
		printList(p.w, "interfaces", m.Interfaces)
	}
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	cyan.Fprintf(w, "  %-11s", label)
	fmt.Fprintln(w, strings.Join(items, ", "))
}

func (p *Printer) importStructure(s *deps.ImportStructure) {
	bold.Fprintln(p.w, "Import Structure")
	fmt.Fprintf(p.w, "Modules: %d\n", s.TotalModules)
	printCounts(p.w, "Most imported", s.MostImported)
	printCounts(p.w, "Most importing", s.MostImporting)
	printCounts(p.w, "External dependencies", s.External)
	if len(s.Isolated) > 0 {
		fmt.Fprintln(p.w)
		yellow.Fprintf(p.w, "Isolated modules (%d):\n", len(s.Isolated))
		for _, name := range s.Isolated {
			fmt.Fprintf(p.w, "  %s\n", name)
		}
	}
}

func printCounts(w io.Writer, title string, counts []deps.Count) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintln(w)
	bold.Fprintf(w, "%s:\n", title)
	for _, c := range counts {
		fmt.Fprintf(w, "  %-30s %d\n", c.Name, c.Count)
	}
}

func (p *Printer) cycles(found []cycles.Cycle) {
	if len(found) == 0 {
		green.Fprintln(p.w, "✓ No circular dependencies")
		return
	}
	red.Fprintf(p.w, "Found %d circular dependenc%s:\n", len(found), plural(len(found), "y", "ies"))
	for i, c := range found {
		names := c.Names()
		if len(names) == 1 {
			yellow.Fprintf(p.w, "  %d. %s -> %s\n", i+1, names[0], names[0])
			continue
		}
		yellow.Fprintf(p.w, "  %d. %s\n", i+1, strings.Join(names, " <-> "))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
