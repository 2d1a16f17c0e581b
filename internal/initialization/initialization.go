package initialization

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"geoagent/internal"
	"geoagent/internal/ai"
	"geoagent/internal/ai/tools"
	"geoagent/internal/config"
	"geoagent/internal/logger"
	"geoagent/internal/marketing"
)

// App holds the long-lived components shared by every command
type App struct {
	Config   *config.Config
	Registry *tools.ToolRegistry
	Gateway  *ai.OpenAIGateway
	Agent    *ai.Agent
	Pipeline *marketing.Pipeline
}

// Initialize loads the environment file and configuration, opens the log
// sinks and wires the model gateway, tool registry, agent and email pipeline.
func Initialize(configPath, envFile string, debug bool) (*App, error) {
	app, err := InitializeRegistry(configPath, envFile, debug)
	if err != nil {
		return nil, err
	}
	cfg := app.Config

	client, err := ai.NewClient(cfg.LLM)
	if err != nil {
		app.Close()
		return nil, err
	}

	agentCfg := ai.FromAppConfig(cfg)
	app.Gateway = ai.NewOpenAIGateway(client, agentCfg)
	app.Agent = ai.NewAgent(app.Gateway, app.Registry, agentCfg)

	// The pipeline samples at its own temperature
	marketingCfg := ai.FromAppConfig(cfg)
	marketingCfg.Temperature = cfg.Marketing.Temperature
	marketingGateway := ai.NewOpenAIGateway(client, marketingCfg)
	app.Pipeline = marketing.New(marketingGateway, marketingGateway, cfg.Marketing)

	logger.Successf("Initialized %s %s with model %s", internal.APP_NAME, internal.APP_VERSION, ai.MapModelName(cfg.LLM.Model))
	return app, nil
}

// InitializeRegistry does everything Initialize does up to the tool registry
// and never touches the LLM, so it runs without an OpenAI key. Gateway, Agent
// and Pipeline are left nil.
func InitializeRegistry(configPath, envFile string, debug bool) (*App, error) {
	if err := loadEnv(envFile); err != nil {
		return nil, err
	}

	logger.Infof("Loading configuration from %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := logger.Setup(cfg.Log.Dir); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	logger.SetDebug(debug || cfg.Log.Debug)

	registry, err := tools.NewDefaultRegistry(tools.OptionsFromConfig(cfg))
	if err != nil {
		logger.Close()
		return nil, err
	}

	return &App{Config: cfg, Registry: registry}, nil
}

// Close flushes the log sinks
func (a *App) Close() {
	logger.Close()
}

func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debugf("No env file at %s, using the process environment", path)
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
