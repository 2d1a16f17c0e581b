package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoagent/internal/ai/tools"
)

// scriptedGateway replays replies in order and repeats the last one
type scriptedGateway struct {
	mu      sync.Mutex
	replies []Message
	err     error
	seen    [][]Message
}

func (g *scriptedGateway) Chat(ctx context.Context, messages []Message, _ []tools.Tool) (Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seen = append(g.seen, messages)
	if g.err != nil {
		return Message{}, g.err
	}
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	i := len(g.seen) - 1
	if i >= len(g.replies) {
		i = len(g.replies) - 1
	}
	return g.replies[i], nil
}

func (g *scriptedGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

type echoArgs struct {
	Text    string `json:"text"`
	DelayMS int    `json:"delay_ms"`
}

// echoTool returns its text argument after an optional delay
type echoTool struct {
	tools.BaseTool
}

func newEchoTool() *echoTool {
	return &echoTool{BaseTool: tools.BaseTool{
		ToolName:        "echo",
		ToolDescription: "Echoes text back",
		ToolParameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"text":     {Type: jsonschema.String},
				"delay_ms": {Type: jsonschema.Integer},
			},
			Required: []string{"text"},
		},
		ToolDefaults: map[string]any{"delay_ms": 0},
	}}
}

func (t *echoTool) Execute(ctx context.Context, args string) (string, error) {
	var p echoArgs
	if err := json.Unmarshal([]byte(args), &p); err != nil {
		return "", err
	}
	select {
	case <-time.After(time.Duration(p.DelayMS) * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "echo: " + p.Text, nil
}

func testAgent(t *testing.T, gateway Gateway, mutate func(*Config)) *Agent {
	t.Helper()
	registry := tools.NewToolRegistry()
	require.NoError(t, registry.RegisterTool(newEchoTool()))

	cfg := DefaultConfig()
	cfg.SystemPrompt = "be helpful"
	if mutate != nil {
		mutate(cfg)
	}
	return NewAgent(gateway, registry, cfg)
}

func assistantWithCalls(calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, ToolCalls: calls}
}

func TestRunImmediateDone(t *testing.T) {
	gateway := &scriptedGateway{replies: []Message{{Role: RoleAssistant, Content: "Paris is in France."}}}
	agent := testAgent(t, gateway, nil)

	result, err := agent.Run(context.Background(), "  Where is Paris?  ")
	require.NoError(t, err)

	assert.Equal(t, "Paris is in France.", result.Answer)
	assert.Equal(t, 1, result.Iterations)
	assert.Zero(t, result.ToolCalls)

	messages := result.Conversation.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, SystemMessage("be helpful"), messages[0])
	assert.Equal(t, UserMessage("Where is Paris?"), messages[1])
	assert.Equal(t, RoleAssistant, messages[2].Role)
}

func TestRunToolResultsFollowRequestOrder(t *testing.T) {
	gateway := &scriptedGateway{replies: []Message{
		assistantWithCalls(
			ToolCall{ID: "c1", Name: "echo", Arguments: `{"text":"first","delay_ms":40}`},
			ToolCall{ID: "c2", Name: "echo", Arguments: `{"text":"second","delay_ms":20}`},
			ToolCall{ID: "c3", Name: "echo", Arguments: `{"text":"third"}`},
		),
		{Role: RoleAssistant, Content: "done"},
	}}
	agent := testAgent(t, gateway, nil)

	result, err := agent.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "done", result.Answer)
	assert.Equal(t, 2, result.Iterations)
	assert.Equal(t, 3, result.ToolCalls)

	messages := result.Conversation.Messages()
	require.Len(t, messages, 7)
	for i, want := range []struct{ id, content string }{
		{"c1", "echo: first"},
		{"c2", "echo: second"},
		{"c3", "echo: third"},
	} {
		msg := messages[3+i]
		assert.Equal(t, RoleTool, msg.Role)
		assert.Equal(t, want.id, msg.ToolCallID)
		assert.Equal(t, "echo", msg.Name)
		assert.Equal(t, want.content, msg.Content)
	}

	// The second model call sees the assistant request and all three results
	require.Equal(t, 2, gateway.calls())
	assert.Len(t, gateway.seen[1], 6)
}

func TestRunSequentialTools(t *testing.T) {
	gateway := &scriptedGateway{replies: []Message{
		assistantWithCalls(
			ToolCall{ID: "a", Name: "echo", Arguments: `{"text":"1"}`},
			ToolCall{ID: "b", Name: "echo", Arguments: `{"text":"2"}`},
		),
		{Role: RoleAssistant, Content: "ok"},
	}}
	agent := testAgent(t, gateway, func(cfg *Config) { cfg.ParallelTools = false })

	result, err := agent.Run(context.Background(), "go")
	require.NoError(t, err)

	messages := result.Conversation.Messages()
	assert.Equal(t, "a", messages[3].ToolCallID)
	assert.Equal(t, "b", messages[4].ToolCallID)
}

func TestRunLoopExceeded(t *testing.T) {
	gateway := &scriptedGateway{replies: []Message{
		assistantWithCalls(ToolCall{ID: "again", Name: "echo", Arguments: `{"text":"x"}`}),
	}}
	agent := testAgent(t, gateway, func(cfg *Config) { cfg.MaxIterations = 3 })

	result, err := agent.Run(context.Background(), "loop forever")
	require.ErrorIs(t, err, ErrLoopExceeded)
	assert.Equal(t, 3, gateway.calls())
	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, 3, result.ToolCalls)
}

func TestRunUnknownToolContinues(t *testing.T) {
	gateway := &scriptedGateway{replies: []Message{
		assistantWithCalls(ToolCall{ID: "u1", Name: "teleport", Arguments: `{}`}),
		{Role: RoleAssistant, Content: "sorry"},
	}}
	agent := testAgent(t, gateway, nil)

	result, err := agent.Run(context.Background(), "beam me up")
	require.NoError(t, err)
	assert.Equal(t, "sorry", result.Answer)

	toolMsg := result.Conversation.Messages()[3]
	assert.Equal(t, "u1", toolMsg.ToolCallID)
	assert.Contains(t, toolMsg.Content, `Invalid tool name "teleport"`)
}

func TestRunSchemaErrorContinues(t *testing.T) {
	gateway := &scriptedGateway{replies: []Message{
		assistantWithCalls(ToolCall{ID: "s1", Name: "echo", Arguments: `{"delay_ms":1}`}),
		{Role: RoleAssistant, Content: "fixed"},
	}}
	agent := testAgent(t, gateway, nil)

	result, err := agent.Run(context.Background(), "echo nothing")
	require.NoError(t, err)
	assert.Contains(t, result.Conversation.Messages()[3].Content, `"text" is required`)
}

func TestRunGatewayError(t *testing.T) {
	cause := errors.New("connection refused")
	gateway := &scriptedGateway{err: cause}
	agent := testAgent(t, gateway, nil)

	result, err := agent.Run(context.Background(), "hello")
	require.Error(t, err)

	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, 1, gatewayErr.Iteration)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, gateway.calls())
	assert.Equal(t, 2, result.Conversation.Len())
}

// stalledGateway never answers and only returns once ctx is done
type stalledGateway struct{}

func (stalledGateway) Chat(ctx context.Context, _ []Message, _ []tools.Tool) (Message, error) {
	<-ctx.Done()
	return Message{}, ctx.Err()
}

func TestRunRequestTimeoutStalledModel(t *testing.T) {
	agent := testAgent(t, stalledGateway{}, func(cfg *Config) { cfg.RequestTimeout = 50 * time.Millisecond })

	start := time.Now()
	result, err := agent.Run(context.Background(), "hello")
	assert.Less(t, time.Since(start), 2*time.Second)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, 1, gatewayErr.Iteration)
	assert.Equal(t, 2, result.Conversation.Len())
}

func TestRunRequestTimeoutSpansIterations(t *testing.T) {
	gateway := &scriptedGateway{replies: []Message{
		assistantWithCalls(ToolCall{ID: "slow", Name: "echo", Arguments: `{"text":"late","delay_ms":10000}`}),
		{Role: RoleAssistant, Content: "too late"},
	}}
	agent := testAgent(t, gateway, func(cfg *Config) { cfg.RequestTimeout = 50 * time.Millisecond })

	start := time.Now()
	result, err := agent.Run(context.Background(), "slow echo")
	assert.Less(t, time.Since(start), 2*time.Second)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, gateway.calls())
	assert.Equal(t, 2, result.Iterations)
	assert.Equal(t, 1, result.ToolCalls)

	// system, user, assistant tool request, tool result
	messages := result.Conversation.Messages()
	require.Len(t, messages, 4)
	assert.Equal(t, RoleAssistant, messages[2].Role)
	assert.Equal(t, "slow", messages[3].ToolCallID)
	assert.Contains(t, messages[3].Content, "context deadline exceeded")
}

func TestRunEmptyQuery(t *testing.T) {
	agent := testAgent(t, &scriptedGateway{}, nil)
	_, err := agent.Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRunEmptyAnswerAfterTools(t *testing.T) {
	gateway := &scriptedGateway{replies: []Message{
		assistantWithCalls(ToolCall{ID: "c", Name: "echo", Arguments: `{"text":"x"}`}),
		{Role: RoleAssistant},
	}}
	agent := testAgent(t, gateway, nil)

	result, err := agent.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "I've completed your request using: echo", result.Answer)
}

func TestRunDefaultSystemPromptHasDate(t *testing.T) {
	gateway := &scriptedGateway{replies: []Message{{Role: RoleAssistant, Content: "ok"}}}
	agent := testAgent(t, gateway, func(cfg *Config) { cfg.SystemPrompt = "" })
	agent.now = func() time.Time { return time.Date(2025, 4, 15, 8, 0, 0, 0, time.UTC) }

	result, err := agent.Run(context.Background(), "hi")
	require.NoError(t, err)

	system := result.Conversation.Messages()[0]
	assert.Equal(t, RoleSystem, system.Role)
	assert.True(t, strings.HasPrefix(system.Content, "You are a helpful geospatial assistant."))
	assert.Contains(t, system.Content, "Current date: 2025-04-15")
	assert.Contains(t, system.Content, "GetSatelliteImage")
}

func TestContinueExistingConversation(t *testing.T) {
	gateway := &scriptedGateway{replies: []Message{{Role: RoleAssistant, Content: "second answer"}}}
	agent := testAgent(t, gateway, nil)

	conv := NewConversation("", "first question")
	conv.Append(Message{Role: RoleAssistant, Content: "first answer"}, UserMessage("follow up"))

	result, err := agent.Continue(context.Background(), conv)
	require.NoError(t, err)
	assert.Same(t, conv, result.Conversation)
	assert.Equal(t, 4, conv.Len())
	assert.Len(t, gateway.seen[0], 3)
}

func TestConversationMessagesIsCopy(t *testing.T) {
	conv := NewConversation("sys", "q")
	messages := conv.Messages()
	messages[0].Content = "changed"

	first := conv.Messages()[0]
	assert.Equal(t, "sys", first.Content)

	last, ok := conv.Last()
	require.True(t, ok)
	assert.Equal(t, "q", last.Content)

	_, ok = (&Conversation{}).Last()
	assert.False(t, ok)
}

func TestAgentStatus(t *testing.T) {
	agent := testAgent(t, &scriptedGateway{}, nil)
	status := agent.Status()
	assert.Equal(t, []string{"echo"}, status["tools"])
	assert.Equal(t, 10, status["max_iterations"])
}
