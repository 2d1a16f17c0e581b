package ai

import (
	"strings"

	"github.com/sashabaranov/go-openai"

	"geoagent/internal/config"
	"geoagent/internal/logger"
)

var modelMap = map[string]string{
	"gpt-4o":      openai.GPT4o,
	"gpt-4o-mini": openai.GPT4oMini,
	"gpt-4.1":     "gpt-4.1",
}

// NewClient creates an OpenAI client for the configured endpoint.
// Any OpenAI-compatible server works through llm.base_url.
func NewClient(cfg config.LLMConfig) (*openai.Client, error) {
	if cfg.APIKey == "" {
		logger.Warnf("OPENAI_API_KEY is not set, the agent and email pipeline are unavailable")
		return nil, ErrMissingAPIKey
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	logger.Successf("OpenAI client initialized (%s)", clientConfig.BaseURL)
	return openai.NewClientWithConfig(clientConfig), nil
}

func MapModelName(modelName string) string {
	if mapped, exists := modelMap[modelName]; exists {
		return mapped
	}
	return modelName
}
