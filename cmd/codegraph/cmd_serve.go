package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritzau/codegraph/pkg/logging"
	"github.com/ritzau/codegraph/pkg/watcher"
	"github.com/ritzau/codegraph/pkg/web"
)

var serveReload bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the knowledge graph as a JSON API",
	Long: `Load the knowledge base and serve it read-only over HTTP until
interrupted. With --reload the knowledge base is loaded again whenever it is
saved, e.g. by an analyze run in another terminal.

Endpoints:
  GET /api/project
  GET /api/components?name=&type=&file=
  GET /api/components/{id}
  GET /api/components/{id}/relationships?direction=&type=
  GET /api/components/{id}/related
  GET /api/components/{id}/dependencies
  GET /api/components/{id}/complexity
  GET /api/diagram?type=&focus=&depth=&format=
  GET /api/cycles?types=
  GET /api/modules
  GET /api/imports`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveReload, "reload", false, "Reload the knowledge base when it changes on disk")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	dataDir := cfg.DataPath(".")
	g, err := loadGraph(dataDir, cfg.Storage)
	if err != nil {
		return err
	}
	server := web.NewServer(g)

	if serveReload {
		if err := watchKnowledgeBase(cmd.Context(), dataDir, server); err != nil {
			return err
		}
	}

	return server.Start(cmd.Context(), cfg.Port)
}

// watchKnowledgeBase reloads the served graph after every save to dataDir.
// A knowledge base that fails to load keeps the previous graph in place.
func watchKnowledgeBase(ctx context.Context, dataDir string, server *web.Server) error {
	fw, err := watcher.NewFileWatcher(dataDir)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(fw.Events(), 500*time.Millisecond, 5*time.Second)
	debouncer.Start(ctx)

	go func() {
		for event := range debouncer.Output() {
			g, err := loadGraph(dataDir, cfg.Storage)
			if err != nil {
				logging.Warn("failed to reload knowledge base", "error", err)
				continue
			}
			server.SetGraph(g)
			logging.Info("reloaded knowledge base",
				"changed", len(event.Paths),
				"components", g.Len(),
				"relationships", g.RelationshipCount())
		}
	}()
	return nil
}
