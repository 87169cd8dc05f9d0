package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ritzau/codegraph/pkg/graph"
	"github.com/ritzau/codegraph/pkg/logging"
	"github.com/ritzau/codegraph/pkg/model"
	"github.com/ritzau/codegraph/pkg/storage"
)

var initName string

var initCmd = &cobra.Command{
	Use:   "init [DIRECTORY]",
	Short: "Create an empty knowledge base for a project",
	Long: `Create the knowledge base directory (.codegraph by default) inside
DIRECTORY, or the current directory, and record the project info.

Examples:
  codegraph init
  codegraph init ~/src/shop --name shop
  codegraph init --storage sqlite`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "Project name (default: directory name)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	info, dataDir, err := initProject(dir, cfg.DataPath(dir), cfg.Storage, initName)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized project %s\n", info.Name)
	fmt.Fprintf(cmd.OutOrStdout(), "Knowledge base created in %s\n", dataDir)
	return nil
}

// initProject creates an empty knowledge base in dataDir. It refuses to
// touch an existing one.
func initProject(dir, dataDir, backend, name string) (model.ProjectInfo, string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return model.ProjectInfo{}, "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if fi, err := os.Stat(root); err != nil {
		return model.ProjectInfo{}, "", fmt.Errorf("failed to access %s: %w", dir, err)
	} else if !fi.IsDir() {
		return model.ProjectInfo{}, "", fmt.Errorf("%s is not a directory", dir)
	}

	if _, err := os.Stat(dataDir); err == nil {
		return model.ProjectInfo{}, "", fmt.Errorf("already initialized in %s", dataDir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return model.ProjectInfo{}, "", fmt.Errorf("failed to access %s: %w", dataDir, err)
	}

	if name == "" {
		name = filepath.Base(root)
	}
	info := model.DefaultProjectInfo()
	info.Name = name
	info.Root = root

	s, err := storage.Open(backend, dataDir)
	if err != nil {
		return model.ProjectInfo{}, "", err
	}
	defer s.Close()

	g := graph.New()
	g.SetProject(info)
	if err := g.Save(s); err != nil {
		return model.ProjectInfo{}, "", fmt.Errorf("failed to create knowledge base: %w", err)
	}

	logging.Info("initialized project", "name", name, "dataDir", dataDir, "storage", backend)
	return g.Project(), dataDir, nil
}
