package main

import (
	"github.com/spf13/cobra"

	"github.com/ritzau/codegraph/pkg/deps"
	"github.com/ritzau/codegraph/pkg/model"
)

var depsCycleTypes []string

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Analyze dependencies between components",
	Long: `Commands for dependency reports, complexity metrics, module structure
and circular dependencies.

Subcommands:
  report      - What a component depends on and what uses it
  complexity  - Complexity metrics of a component
  modules     - Per-module imports, dependents and interfaces
  imports     - Project-wide import structure
  cycles      - Circular dependencies

Examples:
  codegraph deps report Square
  codegraph deps complexity main --format json
  codegraph deps cycles --types imports`,
}

var depsReportCmd = &cobra.Command{
	Use:   "report COMPONENT",
	Short: "Show what a component depends on and what uses it",
	Args:  cobra.ExactArgs(1),
	RunE:  runDepsReport,
}

var depsComplexityCmd = &cobra.Command{
	Use:   "complexity COMPONENT",
	Short: "Show complexity metrics of a component",
	Args:  cobra.ExactArgs(1),
	RunE:  runDepsComplexity,
}

var depsModulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Show imports, dependents and interfaces of every module",
	Args:  cobra.NoArgs,
	RunE:  runDepsModules,
}

var depsImportsCmd = &cobra.Command{
	Use:   "imports",
	Short: "Show the import structure of the project",
	Args:  cobra.NoArgs,
	RunE:  runDepsImports,
}

var depsCyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Find circular dependencies",
	Args:  cobra.NoArgs,
	RunE:  runDepsCycles,
}

func init() {
	depsCmd.PersistentFlags().String("format", "text", "Output format: text, json, yaml")
	depsCyclesCmd.Flags().StringSliceVar(&depsCycleTypes, "types", nil, "Relationship types to follow (default imports,calls)")

	depsCmd.AddCommand(depsReportCmd)
	depsCmd.AddCommand(depsComplexityCmd)
	depsCmd.AddCommand(depsModulesCmd)
	depsCmd.AddCommand(depsImportsCmd)
	depsCmd.AddCommand(depsCyclesCmd)
	rootCmd.AddCommand(depsCmd)
}

// runDeps loads the graph and prints what fn computes from it
func runDeps(cmd *cobra.Command, fn func(*deps.Analyzer) (any, error)) error {
	g, err := loadGraph(cfg.DataPath("."), cfg.Storage)
	if err != nil {
		return err
	}
	p, err := newPrinter(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	result, err := fn(deps.New(g))
	if err != nil {
		return err
	}
	return p.Print(result)
}

func runDepsReport(cmd *cobra.Command, args []string) error {
	return runDeps(cmd, func(a *deps.Analyzer) (any, error) {
		c, err := resolveComponent(a.Graph(), args[0])
		if err != nil {
			return nil, err
		}
		return a.Report(c.ID)
	})
}

func runDepsComplexity(cmd *cobra.Command, args []string) error {
	return runDeps(cmd, func(a *deps.Analyzer) (any, error) {
		c, err := resolveComponent(a.Graph(), args[0])
		if err != nil {
			return nil, err
		}
		return a.Complexity(c.ID)
	})
}

func runDepsModules(cmd *cobra.Command, args []string) error {
	return runDeps(cmd, func(a *deps.Analyzer) (any, error) {
		return a.Modules(), nil
	})
}

func runDepsImports(cmd *cobra.Command, args []string) error {
	return runDeps(cmd, func(a *deps.Analyzer) (any, error) {
		return a.ImportStructure(), nil
	})
}

func runDepsCycles(cmd *cobra.Command, args []string) error {
	return runDeps(cmd, func(a *deps.Analyzer) (any, error) {
		types := make([]model.RelationshipType, len(depsCycleTypes))
		for i, t := range depsCycleTypes {
			types[i] = model.RelationshipType(t)
		}
		return a.CircularDependencies(types...), nil
	})
}
