package tools

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Tool is a single named capability the model can invoke.
// Execute receives arguments already validated, coerced and defaulted
// by the registry, encoded as a JSON object.
type Tool interface {
	Name() string
	Description() string
	Parameters() jsonschema.Definition
	Defaults() map[string]any
	Execute(ctx context.Context, args string) (string, error)
	ToOpenAITool() openai.Tool
}

type BaseTool struct {
	ToolName        string
	ToolDescription string
	ToolParameters  jsonschema.Definition
	ToolDefaults    map[string]any
}

func (b *BaseTool) Name() string {
	return b.ToolName
}

func (b *BaseTool) Description() string {
	return b.ToolDescription
}

func (b *BaseTool) Parameters() jsonschema.Definition {
	return b.ToolParameters
}

func (b *BaseTool) Defaults() map[string]any {
	return b.ToolDefaults
}

func (b *BaseTool) ToOpenAITool() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        b.Name(),
			Description: b.Description(),
			Parameters:  b.Parameters(),
		},
	}
}
