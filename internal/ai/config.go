package ai

import (
	"time"

	"geoagent/internal"
	"geoagent/internal/config"
)

type Config struct {
	Model             string
	EmbeddingModel    string
	MaxResponseTokens int
	Temperature       float32
	// SystemPrompt overrides the built-in geospatial instructions, which are
	// rendered with the current date on every run
	SystemPrompt string

	MaxIterations  int
	RequestTimeout time.Duration
	ParallelTools  bool
}

func DefaultConfig() *Config {
	return &Config{
		Model:             internal.DEFAULT_MODEL,
		EmbeddingModel:    internal.DEFAULT_EMBEDDING_MODEL,
		MaxResponseTokens: 4096,
		Temperature:       0,
		MaxIterations:     internal.DEFAULT_MAX_ITERATIONS,
		RequestTimeout:    internal.DEFAULT_REQUEST_TIMEOUT * time.Second,
		ParallelTools:     true,
	}
}

// FromAppConfig derives the agent settings from the loaded application config.
func FromAppConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.Model = cfg.LLM.Model
	c.EmbeddingModel = cfg.LLM.EmbeddingModel
	c.MaxResponseTokens = cfg.LLM.MaxResponseTokens
	c.Temperature = cfg.LLM.Temperature
	c.MaxIterations = cfg.Agent.MaxIterations
	c.RequestTimeout = time.Duration(cfg.Agent.RequestTimeout) * time.Second
	c.ParallelTools = cfg.Agent.ParallelTools
	if cfg.Agent.SystemPrompt != "" {
		c.SystemPrompt = cfg.Agent.SystemPrompt
	}
	return c
}
