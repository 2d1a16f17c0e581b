package ai

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message is one entry of a Conversation.
// ToolCalls is only set on assistant messages, ToolCallID and Name only on
// tool results.
type Message struct {
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	Name       string      `json:"name,omitempty"`         // For tool messages
	ToolCallID string      `json:"tool_call_id,omitempty"` // For tool response messages
}

// ToolCall is a single invocation requested by the model. Arguments is the
// raw JSON object exactly as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func ToolResultMessage(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, Name: call.Name, ToolCallID: call.ID}
}
