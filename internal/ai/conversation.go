package ai

// Conversation is the ordered, append-only message log of one agent run.
// Each request owns its own Conversation; it is not safe for concurrent use.
type Conversation struct {
	messages []Message
}

// NewConversation seeds a log with an optional system message and the user query
func NewConversation(systemPrompt, query string) *Conversation {
	c := &Conversation{}
	if systemPrompt != "" {
		c.Append(SystemMessage(systemPrompt))
	}
	c.Append(UserMessage(query))
	return c
}

func (c *Conversation) Append(messages ...Message) {
	c.messages = append(c.messages, messages...)
}

// Messages returns a copy of the log
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Last returns the most recent message, ok is false for an empty log
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

// ToolsUsed lists tool names in the order their results were appended
func (c *Conversation) ToolsUsed() []string {
	var names []string
	for _, msg := range c.messages {
		if msg.Role == RoleTool {
			names = append(names, msg.Name)
		}
	}
	return names
}
