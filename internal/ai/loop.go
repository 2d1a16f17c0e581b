package ai

import (
	"context"
	"strings"
	"sync"
	"time"

	"geoagent/internal/ai/tools"
	"geoagent/internal/logger"
)

type State string

const (
	StateAwaitingModel  State = "AWAITING_MODEL"
	StateExecutingTools State = "EXECUTING_TOOLS"
	StateDone           State = "DONE"
)

// Agent drives the tool-calling loop between a Gateway and a ToolRegistry.
// An Agent holds no per-request state and can serve concurrent runs.
type Agent struct {
	gateway  Gateway
	registry *tools.ToolRegistry
	cfg      *Config
	now      func() time.Time
}

// Result is the outcome of one run. Conversation is the complete log,
// including the final assistant message.
type Result struct {
	Answer       string
	Conversation *Conversation
	Iterations   int
	ToolCalls    int
}

func NewAgent(gateway Gateway, registry *tools.ToolRegistry, cfg *Config) *Agent {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultConfig().MaxIterations
	}
	return &Agent{gateway: gateway, registry: registry, cfg: cfg, now: time.Now}
}

func (a *Agent) systemPrompt() string {
	if a.cfg.SystemPrompt != "" {
		return a.cfg.SystemPrompt
	}
	return SystemPrompt(a.now())
}

// Run answers query starting from a fresh conversation
func (a *Agent) Run(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	return a.Continue(ctx, NewConversation(a.systemPrompt(), query))
}

// Continue runs the loop on an existing conversation whose last message is
// the one the model should respond to. The conversation is appended to in
// place and returned in the Result, also when an error ends the run.
//
// The number of model calls is bounded by MaxIterations, one more request for
// tools past that bound fails with ErrLoopExceeded. A gateway failure ends
// the run with a *GatewayError and is not retried.
func (a *Agent) Continue(ctx context.Context, conv *Conversation) (*Result, error) {
	if a.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.RequestTimeout)
		defer cancel()
	}

	available := a.registry.GetAllTools()
	result := &Result{Conversation: conv}
	state := StateAwaitingModel
	var pending []ToolCall

	for {
		switch state {
		case StateAwaitingModel:
			if result.Iterations >= a.cfg.MaxIterations {
				logger.Warnf("Reached maximum model calls (%d)", a.cfg.MaxIterations)
				return result, ErrLoopExceeded
			}
			result.Iterations++

			reply, err := a.gateway.Chat(ctx, conv.Messages(), available)
			if err != nil {
				logger.Errorf("OpenAI API error (iteration %d): %v", result.Iterations, err)
				return result, &GatewayError{Iteration: result.Iterations, Err: err}
			}
			reply.Role = RoleAssistant
			conv.Append(reply)

			if len(reply.ToolCalls) == 0 {
				state = StateDone
				continue
			}
			logger.AIDebugf("Found %d tool calls in iteration %d", len(reply.ToolCalls), result.Iterations)
			pending = reply.ToolCalls
			state = StateExecutingTools

		case StateExecutingTools:
			conv.Append(a.executeTools(ctx, pending)...)
			result.ToolCalls += len(pending)
			pending = nil
			state = StateAwaitingModel

		case StateDone:
			last, _ := conv.Last()
			result.Answer = last.Content
			if result.Answer == "" && result.ToolCalls > 0 {
				logger.Warnf("Empty AI response after tool execution (iteration %d)", result.Iterations)
				result.Answer = createToolFallbackResponse(conv)
			}
			return result, nil
		}
	}
}

// executeTools runs every call and returns exactly one tool result per call,
// in request order, whether or not the calls ran concurrently
func (a *Agent) executeTools(ctx context.Context, calls []ToolCall) []Message {
	results := make([]Message, len(calls))
	run := func(i int, call ToolCall) {
		logger.AIDebugf("Processing tool call: %s (%s)", call.Name, call.ID)
		res := a.registry.ValidateAndExecute(ctx, call.Name, call.Arguments)
		results[i] = ToolResultMessage(call, res.Output)
	}

	if !a.cfg.ParallelTools || len(calls) == 1 {
		for i, call := range calls {
			run(i, call)
		}
		return results
	}

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(i, call)
		}()
	}
	wg.Wait()

	return results
}

func createToolFallbackResponse(conv *Conversation) string {
	toolNames := conv.ToolsUsed()
	if len(toolNames) > 0 {
		return "I've completed your request using: " + strings.Join(toolNames, ", ")
	}
	return "I've completed the operations but couldn't generate a final response."
}

// Status describes the agent for diagnostics endpoints
func (a *Agent) Status() map[string]interface{} {
	return map[string]interface{}{
		"model":          a.cfg.Model,
		"max_iterations": a.cfg.MaxIterations,
		"parallel_tools": a.cfg.ParallelTools,
		"tools":          a.registry.Names(),
	}
}
