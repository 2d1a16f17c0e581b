// Package tools provides the agent's toolbox: the Tool contract, a registry
// that validates and dispatches calls by name, and the API-backed tools.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"geoagent/internal/logger"
)

// ToolRegistry maps tool names to tools.
// It is filled once at startup and only read afterwards, so it is safe to
// share between concurrent requests.
type ToolRegistry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// Result is the outcome of a validated tool call.
// Output is always set, on failure it holds text the model can act on.
type Result struct {
	Output  string
	IsError bool
	Err     error
}

// NewToolRegistry creates a new tool registry.
// Use RegisterTool to add tools to the registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Tool),
	}
}

// RegisterTool adds a new tool to the registry.
// Names are unique, registering the same name twice returns ErrDuplicateTool.
func (r *ToolRegistry) RegisterTool(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return errors.New("tool name must not be empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}

	r.tools[name] = tool
	logger.AIDebugf("Registered tool: %s", name)
	return nil
}

// Resolve returns a tool by name.
// If the tool doesn't exist, an error wrapping ErrUnknownTool is returned.
func (r *ToolRegistry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownTool, name)
	}

	return tool, nil
}

// GetAllTools returns all registered tools sorted by name.
func (r *ToolRegistry) GetAllTools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })

	return tools
}

// Names returns the sorted tool names.
func (r *ToolRegistry) Names() []string {
	tools := r.GetAllTools()
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name()
	}
	return names
}

// GetOpenAITools converts all registered tools to OpenAI's Tool format.
// This is what gets bound to the chat completion request.
func (r *ToolRegistry) GetOpenAITools() []openai.Tool {
	tools := r.GetAllTools()
	out := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		out = append(out, tool.ToOpenAITool())
	}
	return out
}

// ValidateAndExecute runs the named tool with raw JSON arguments.
//
// Unknown names, schema violations, executor errors and executor panics are
// all reported through Result instead of an error return, so a single bad
// call never aborts the agent loop. The model sees the text and can retry.
func (r *ToolRegistry) ValidateAndExecute(ctx context.Context, name string, rawArgs string) Result {
	tool, err := r.Resolve(name)
	if err != nil {
		logger.Warnf("Model requested unknown tool %q", name)
		return Result{
			Output:  fmt.Sprintf("Invalid tool name %q; retry with one of: %s", name, strings.Join(r.Names(), ", ")),
			IsError: true,
			Err:     err,
		}
	}

	args, err := coerceArguments(name, tool.Parameters(), tool.Defaults(), rawArgs)
	if err != nil {
		logger.Warnf("Rejected arguments for %s: %v", name, err)
		return Result{
			Output:  fmt.Sprintf("Error: %v. Fix the arguments and retry.", err),
			IsError: true,
			Err:     err,
		}
	}

	encoded, err := json.Marshal(args)
	if err != nil {
		return r.failure(name, err)
	}

	logger.AIDebugf("Executing tool: %s with args: %s", name, encoded)
	output, err := runTool(ctx, tool, string(encoded))
	if err != nil {
		return r.failure(name, err)
	}

	logger.AIDebugf("Tool %s executed, response length: %d chars", name, len(output))
	return Result{Output: output}
}

func (r *ToolRegistry) failure(name string, err error) Result {
	execErr := &ExecutionError{Tool: name, Err: err}
	logger.Errorf("Tool execution error: %v", execErr)
	return Result{
		Output:  "Error executing tool: " + err.Error(),
		IsError: true,
		Err:     execErr,
	}
}

func runTool(ctx context.Context, tool Tool, args string) (output string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	return tool.Execute(ctx, args)
}
