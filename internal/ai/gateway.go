package ai

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"geoagent/internal/ai/tools"
	"geoagent/internal/logger"
)

// Gateway is the chat model seen by the agent loop. Given the conversation
// so far and the tools on offer it returns the next assistant message, which
// either carries tool calls or the final answer.
type Gateway interface {
	Chat(ctx context.Context, messages []Message, available []tools.Tool) (Message, error)
}

var errNoChoices = errors.New("model returned no choices")

// OpenAIGateway implements Gateway on the chat completions API. It also
// serves the plain text generation and embedding calls of the email pipeline.
type OpenAIGateway struct {
	client *openai.Client
	cfg    *Config
}

func NewOpenAIGateway(client *openai.Client, cfg *Config) *OpenAIGateway {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &OpenAIGateway{client: client, cfg: cfg}
}

// temperature works around go-openai dropping a zero temperature from the
// request, which the API would read as its default of 1
func temperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func (g *OpenAIGateway) createChatRequest(messages []openai.ChatCompletionMessage, availableTools []openai.Tool) openai.ChatCompletionRequest {
	request := openai.ChatCompletionRequest{
		Model:       MapModelName(g.cfg.Model),
		Messages:    messages,
		Temperature: temperature(g.cfg.Temperature),
		MaxTokens:   g.cfg.MaxResponseTokens,
	}

	if len(availableTools) > 0 {
		request.Tools = availableTools
	}

	return request
}

func (g *OpenAIGateway) Chat(ctx context.Context, messages []Message, available []tools.Tool) (Message, error) {
	openAITools := make([]openai.Tool, 0, len(available))
	for _, tool := range available {
		openAITools = append(openAITools, tool.ToOpenAITool())
	}

	resp, err := g.client.CreateChatCompletion(ctx, g.createChatRequest(toOpenAIMessages(messages), openAITools))
	if err != nil {
		return Message{}, err
	}
	if len(resp.Choices) == 0 {
		return Message{}, errNoChoices
	}

	logger.AIDebugf("Chat completion: %d prompt / %d completion tokens, finish reason %s",
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Choices[0].FinishReason)
	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

// Complete runs a single-turn text generation without tools
func (g *OpenAIGateway) Complete(ctx context.Context, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	resp, err := g.client.CreateChatCompletion(ctx, g.createChatRequest(messages, nil))
	if err != nil {
		return "", fmt.Errorf("text generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}

	return resp.Choices[0].Message.Content, nil
}

// Embed returns one vector per input text, in input order
func (g *OpenAIGateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := g.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(g.cfg.EmbeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding failed: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding failed: index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		converted := openai.ChatCompletionMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		if msg.Role == RoleTool {
			converted.Name = msg.Name
		}
		for _, call := range msg.ToolCalls {
			converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		out = append(out, converted)
	}
	return out
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) Message {
	out := Message{
		Role:    RoleAssistant,
		Content: msg.Content,
	}
	for _, call := range msg.ToolCalls {
		id := call.ID
		if id == "" {
			// Some compatible servers omit IDs, results must still be matchable
			id = "call_" + uuid.NewString()
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        id,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return out
}
