// Command codegraph builds a knowledge graph of Python code and answers
// questions about it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ritzau/codegraph/pkg/config"
	"github.com/ritzau/codegraph/pkg/logging"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "codegraph",
	Short: "Build and query a knowledge graph of Python code",
	Long: `codegraph extracts modules, classes, functions and methods from Python
sources together with the imports, calls, containment and inheritance between
them, and stores the result as a knowledge graph.

Typical session:
  codegraph init
  codegraph analyze src
  codegraph query Square -r
  codegraph visualize --type class
  codegraph deps cycles`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ./"+config.FileName+")")
	pf.String("data-dir", ".codegraph", "Knowledge base directory, relative to the project")
	pf.String("storage", "json", "Storage backend: json or sqlite")
	pf.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	pf.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
}

// loadConfig layers defaults, the config file, the environment and the
// command's flags, then applies the log level
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cmd.Flags(), cfgFile)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(c.Verbosity, c.VerboseCnt)
	if err != nil {
		return err
	}
	logging.SetLevel(level)

	cfg = c
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
