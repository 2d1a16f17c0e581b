// Command geoagent serves the geospatial agent and the marketing email
// pipeline over HTTP, and runs either of them once from the command line.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"geoagent/internal"
	"geoagent/internal/initialization"
	"geoagent/internal/logger"
)

var (
	configPath string
	envFile    string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   internal.APP_NAME,
		Short: "Geospatial and financial LLM agent",
		Long: `geoagent answers location, satellite and market questions with an
LLM that calls external APIs as tools, and drafts marketing emails from
company documents.

Examples:
  geoagent serve                                   # HTTP API on :8000
  geoagent ask "How far is Delhi from Mumbai?"     # One-shot agent run
  geoagent email --topic demo --recipient cto a.pdf
  geoagent tools                                   # List registered tools`,
		Version:       internal.APP_VERSION,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", internal.DEFAULT_CONFIG_PATH, "Path to the TOML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", internal.DEFAULT_ENV_FILE, "Path to a .env file, skipped when missing")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		serveCmd(),
		mcpCmd(),
		askCmd(),
		emailCmd(),
		toolsCmd(),
		configCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func initApp() (*initialization.App, error) {
	return initialization.Initialize(configPath, envFile, debug)
}

// initTools skips the LLM client for commands that only need the registry
func initTools() (*initialization.App, error) {
	return initialization.InitializeRegistry(configPath, envFile, debug)
}
