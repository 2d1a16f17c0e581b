package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	BaseTool
	execute func(ctx context.Context, args string) (string, error)
	calls   []string
}

func newStubTool(name string, execute func(ctx context.Context, args string) (string, error)) *stubTool {
	return &stubTool{
		BaseTool: BaseTool{
			ToolName:        name,
			ToolDescription: "stub " + name,
			ToolParameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"lat":   {Type: jsonschema.Number},
					"count": {Type: jsonschema.Integer},
					"mode":  {Type: jsonschema.String, Enum: []string{"fast", "slow"}},
				},
				Required: []string{"lat"},
			},
			ToolDefaults: map[string]any{"mode": "fast"},
		},
		execute: execute,
	}
}

func (s *stubTool) Execute(ctx context.Context, args string) (string, error) {
	s.calls = append(s.calls, args)
	return s.execute(ctx, args)
}

func echoTool(name string) *stubTool {
	return newStubTool(name, func(_ context.Context, args string) (string, error) {
		return "ok:" + args, nil
	})
}

func TestRegisterToolRejectsDuplicates(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.RegisterTool(echoTool("a")))

	err := r.RegisterTool(echoTool("a"))
	assert.ErrorIs(t, err, ErrDuplicateTool)

	assert.Error(t, r.RegisterTool(echoTool("")))
	assert.Equal(t, []string{"a"}, r.Names())
}

func TestResolveUnknown(t *testing.T) {
	r := NewToolRegistry()
	_, err := r.Resolve("missing")
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestGetAllToolsSorted(t *testing.T) {
	r := NewToolRegistry()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, r.RegisterTool(echoTool(name)))
	}

	assert.Equal(t, []string{"a", "b", "c"}, r.Names())

	openAITools := r.GetOpenAITools()
	require.Len(t, openAITools, 3)
	assert.Equal(t, "a", openAITools[0].Function.Name)
	assert.Equal(t, "stub a", openAITools[0].Function.Description)
}

func TestValidateAndExecuteAppliesDefaultsAndCoerces(t *testing.T) {
	tool := echoTool("geo")
	r := NewToolRegistry()
	require.NoError(t, r.RegisterTool(tool))

	result := r.ValidateAndExecute(context.Background(), "geo", `{"lat":"12.5","count":3}`)
	require.False(t, result.IsError, result.Output)
	require.Len(t, tool.calls, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(tool.calls[0]), &got))
	assert.Equal(t, 12.5, got["lat"])
	assert.Equal(t, float64(3), got["count"])
	assert.Equal(t, "fast", got["mode"])
}

func TestValidateAndExecuteUnknownTool(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.RegisterTool(echoTool("geo")))

	result := r.ValidateAndExecute(context.Background(), "nope", `{}`)
	assert.True(t, result.IsError)
	assert.ErrorIs(t, result.Err, ErrUnknownTool)
	assert.Contains(t, result.Output, `Invalid tool name "nope"`)
	assert.Contains(t, result.Output, "geo")
}

func TestValidateAndExecuteSchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  string
		field string
	}{
		{"missing required", `{}`, "lat"},
		{"wrong type", `{"lat":"north"}`, "lat"},
		{"fractional integer", `{"lat":1,"count":1.5}`, "count"},
		{"integer out of range", `{"lat":1,"count":1e300}`, "count"},
		{"integer at 2^63", `{"lat":1,"count":9223372036854775808}`, "count"},
		{"NaN string", `{"lat":"NaN"}`, "lat"},
		{"infinite string", `{"lat":"-Inf"}`, "lat"},
		{"number overflows float64", `{"lat":1e400}`, "lat"},
		{"enum violation", `{"lat":1,"mode":"warp"}`, "mode"},
		{"not an object", `[1,2]`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := echoTool("geo")
			r := NewToolRegistry()
			require.NoError(t, r.RegisterTool(tool))

			result := r.ValidateAndExecute(context.Background(), "geo", tt.args)
			assert.True(t, result.IsError)
			assert.Empty(t, tool.calls, "executor must not run on invalid input")

			var schemaErr *SchemaError
			require.ErrorAs(t, result.Err, &schemaErr)
			assert.Equal(t, tt.field, schemaErr.Field)
			assert.Contains(t, result.Output, "Fix the arguments and retry")
		})
	}
}

func TestValidateAndExecuteIntegerBounds(t *testing.T) {
	tool := echoTool("geo")
	r := NewToolRegistry()
	require.NoError(t, r.RegisterTool(tool))

	result := r.ValidateAndExecute(context.Background(), "geo", `{"lat":"-12.5","count":-9223372036854775808}`)
	require.False(t, result.IsError, result.Output)
	assert.JSONEq(t, `{"lat":-12.5,"count":-9223372036854775808,"mode":"fast"}`, tool.calls[0])
}

func TestValidateAndExecuteExecutorError(t *testing.T) {
	boom := errors.New("upstream down")
	r := NewToolRegistry()
	require.NoError(t, r.RegisterTool(newStubTool("geo", func(context.Context, string) (string, error) {
		return "", boom
	})))

	result := r.ValidateAndExecute(context.Background(), "geo", `{"lat":1}`)
	assert.True(t, result.IsError)
	assert.Equal(t, "Error executing tool: upstream down", result.Output)

	var execErr *ExecutionError
	require.ErrorAs(t, result.Err, &execErr)
	assert.Equal(t, "geo", execErr.Tool)
	assert.ErrorIs(t, result.Err, boom)
}

func TestValidateAndExecuteRecoversPanics(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.RegisterTool(newStubTool("geo", func(context.Context, string) (string, error) {
		panic("nil map")
	})))

	result := r.ValidateAndExecute(context.Background(), "geo", `{"lat":1}`)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Output, "panic: nil map")
}

func TestCoerceArgumentsNestedArrays(t *testing.T) {
	schema := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"points": {
				Type:  jsonschema.Array,
				Items: &jsonschema.Definition{Type: jsonschema.Number},
			},
			"flag": {Type: jsonschema.Boolean},
		},
	}

	args, err := coerceArguments("t", schema, nil, `{"points":[1,"2.5"],"flag":"true","extra":"kept"}`)
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), 2.5}, args["points"])
	assert.Equal(t, true, args["flag"])
	assert.Equal(t, "kept", args["extra"])

	_, err = coerceArguments("t", schema, nil, `{"points":[1,"x"]}`)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "points", schemaErr.Field)
}

func TestCoerceArgumentsEmptyInput(t *testing.T) {
	args, err := coerceArguments("t", jsonschema.Definition{Type: jsonschema.Object}, map[string]any{"k": 1}, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": 1}, args)
}
