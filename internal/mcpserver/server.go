// Package mcpserver exposes the tool registry over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"geoagent/internal"
	"geoagent/internal/ai/tools"
	"geoagent/internal/logger"
)

// New creates an MCP server with one MCP tool per registry entry.
// Calls go through the registry, so MCP clients get the same validation,
// defaults and error text as the agent loop.
func New(registry *tools.ToolRegistry) (*mcp.Server, error) {
	server := mcp.NewServer(&mcp.Implementation{Name: internal.APP_NAME, Version: internal.APP_VERSION}, nil)

	for _, tool := range registry.GetAllTools() {
		schema, err := InputSchema(tool)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", tool.Name(), err)
		}

		server.AddTool(&mcp.Tool{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: schema,
		}, callHandler(registry, tool.Name()))
	}

	logger.Infof("MCP server exposes %d tools", len(registry.Names()))
	return server, nil
}

// Handler serves the MCP streamable HTTP transport for server.
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server { return server }, nil)
}

// Serve runs server over stdio until ctx is cancelled or the client hangs up.
func Serve(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func callHandler(registry *tools.ToolRegistry, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args string
		if req.Params != nil {
			args = string(req.Params.Arguments)
		}

		logger.Debugf("MCP call %s with %s", name, args)
		result := registry.ValidateAndExecute(ctx, name, args)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.Output}},
			IsError: result.IsError,
		}, nil
	}
}

// InputSchema converts a tool's parameter definition to a JSON Schema and
// records the tool's defaults on the matching properties.
func InputSchema(tool tools.Tool) (*jsonschema.Schema, error) {
	params := tool.Parameters()
	raw, err := json.Marshal(&params)
	if err != nil {
		return nil, err
	}

	schema := &jsonschema.Schema{}
	if err := json.Unmarshal(raw, schema); err != nil {
		return nil, err
	}
	if schema.Type == "" {
		schema.Type = "object"
	}
	if schema.Properties == nil {
		schema.Properties = map[string]*jsonschema.Schema{}
	}

	for key, value := range tool.Defaults() {
		prop, ok := schema.Properties[key]
		if !ok {
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("default for %s: %w", key, err)
		}
		prop.Default = encoded
	}
	return schema, nil
}
