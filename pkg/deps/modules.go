package deps

import (
	"strings"

	"github.com/ritzau/codegraph/pkg/model"
)

// topN bounds the most imported and most importing lists
const topN = 10

// ModuleReport describes one analyzed module's place in the import graph.
// Names are module names; DependsOn is the transitive closure of Imports.
type ModuleReport struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Imports    []string `json:"imports" yaml:"imports"`
	DependsOn  []string `json:"depends_on" yaml:"depends_on"`
	UsedBy     []string `json:"used_by" yaml:"used_by"`
	Interfaces []string `json:"interfaces" yaml:"interfaces"`
	Complexity int      `json:"complexity" yaml:"complexity"`
}

// Modules reports on every analyzed module in graph order. Placeholder
// modules standing in for external imports are skipped.
func (a *Analyzer) Modules() []ModuleReport {
	modules := a.internalModules()
	reports := make([]ModuleReport, 0, len(modules))

	for _, m := range modules {
		report := ModuleReport{
			ID:         m.ID,
			Name:       m.Name,
			Imports:    a.importedModuleNames(m.ID),
			UsedBy:     []string{},
			Interfaces: a.interfaces(m.ID),
			Complexity: a.moduleComplexity(m),
		}

		for _, r := range a.graph.IncomingOfType(m.ID, model.RelationshipImports) {
			if source, ok := a.graph.Component(r.SourceID); ok && source.Type == model.ComponentModule && !source.Metadata.Imported {
				report.UsedBy = append(report.UsedBy, source.Name)
			}
		}
		report.UsedBy = sortedUnique(report.UsedBy)
		report.DependsOn = a.transitiveImports(m.ID)

		reports = append(reports, report)
	}

	a.logger.Debug("analyzed module dependencies", "modules", len(reports))
	return reports
}

func (a *Analyzer) internalModules() []*model.Component {
	var modules []*model.Component
	for _, m := range a.graph.ComponentsByType(model.ComponentModule) {
		if !m.Metadata.Imported {
			modules = append(modules, m)
		}
	}
	return modules
}

func (a *Analyzer) importedModuleNames(id string) []string {
	var names []string
	for _, r := range a.graph.OutgoingOfType(id, model.RelationshipImports) {
		if target, ok := a.graph.Component(r.TargetID); ok && target.Type == model.ComponentModule {
			names = append(names, target.Name)
		}
	}
	return sortedUnique(names)
}

// transitiveImports returns the names of every module reachable from id
// through imports, excluding id itself
func (a *Analyzer) transitiveImports(id string) []string {
	visited := map[string]bool{id: true}
	queue := []string{id}
	var names []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, r := range a.graph.OutgoingOfType(current, model.RelationshipImports) {
			if visited[r.TargetID] {
				continue
			}
			visited[r.TargetID] = true
			if target, ok := a.graph.Component(r.TargetID); ok && target.Type == model.ComponentModule {
				names = append(names, target.Name)
				queue = append(queue, r.TargetID)
			}
		}
	}
	return sortedUnique(names)
}

// interfaces lists the classes and public functions a module contains
func (a *Analyzer) interfaces(id string) []string {
	names := []string{}
	for _, r := range a.graph.OutgoingOfType(id, model.RelationshipContains) {
		c, ok := a.graph.Component(r.TargetID)
		if !ok {
			continue
		}
		switch {
		case c.Type == model.ComponentClass, c.Type == model.ComponentInterface:
			names = append(names, c.Name)
		case c.Type == model.ComponentFunction && !strings.HasPrefix(c.Name, "_"):
			names = append(names, c.Name)
		}
	}
	return names
}

// moduleComplexity counts imports in both directions plus calls that cross
// the module's file boundary
func (a *Analyzer) moduleComplexity(m *model.Component) int {
	score := len(a.graph.OutgoingOfType(m.ID, model.RelationshipImports)) +
		len(a.graph.IncomingOfType(m.ID, model.RelationshipImports))

	if m.FilePath == "" {
		return score
	}
	for _, c := range a.graph.ComponentsByFile(m.FilePath) {
		for _, r := range a.graph.OutgoingOfType(c.ID, model.RelationshipCalls) {
			if target, ok := a.graph.Component(r.TargetID); ok && target.FilePath != m.FilePath {
				score++
			}
		}
		for _, r := range a.graph.IncomingOfType(c.ID, model.RelationshipCalls) {
			if source, ok := a.graph.Component(r.SourceID); ok && source.FilePath != m.FilePath {
				score++
			}
		}
	}
	return score
}

// ImportStructure summarizes the import graph of the analyzed modules
type ImportStructure struct {
	TotalModules     int            `json:"total_modules" yaml:"total_modules"`
	ImportCounts     map[string]int `json:"import_counts" yaml:"import_counts"`
	ImportedByCounts map[string]int `json:"imported_by_counts" yaml:"imported_by_counts"`
	MostImported     []Count        `json:"most_imported" yaml:"most_imported"`
	MostImporting    []Count        `json:"most_importing" yaml:"most_importing"`
	Isolated         []string       `json:"isolated_modules" yaml:"isolated_modules"`
	External         []Count        `json:"external_dependencies" yaml:"external_dependencies"`
}

// ImportStructure counts imports per module, ranks the most imported and
// most importing modules, lists modules with no imports in either direction
// and tallies how often each external module is imported.
func (a *Analyzer) ImportStructure() *ImportStructure {
	modules := a.internalModules()
	s := &ImportStructure{
		TotalModules:     len(modules),
		ImportCounts:     make(map[string]int),
		ImportedByCounts: make(map[string]int),
		Isolated:         []string{},
	}
	external := make(map[string]int)

	for _, m := range modules {
		imports := a.graph.OutgoingOfType(m.ID, model.RelationshipImports)
		importedBy := a.graph.IncomingOfType(m.ID, model.RelationshipImports)
		s.ImportCounts[m.Name] += len(imports)
		s.ImportedByCounts[m.Name] += len(importedBy)

		for _, r := range imports {
			if target, ok := a.graph.Component(r.TargetID); ok && target.Metadata.Imported {
				external[target.Name]++
			}
		}
		if len(imports) == 0 && len(importedBy) == 0 {
			s.Isolated = append(s.Isolated, m.Name)
		}
	}

	s.MostImported = topCounts(s.ImportedByCounts, topN)
	s.MostImporting = topCounts(s.ImportCounts, topN)
	s.External = topCounts(external, 0)
	return s
}
