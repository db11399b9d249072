package core

type LLMMessageRole string

const (
	LLMMessageRoleUser      LLMMessageRole = "user"
	LLMMessageRoleAssistant LLMMessageRole = "assistant"
	LLMMessageRoleSystem    LLMMessageRole = "system"
)

// LLMMessage is one conversation turn exchanged with the chat provider.
type LLMMessage struct {
	Role    LLMMessageRole `json:"role"`    // Role of the message sender (user, assistant or system).
	Message string         `json:"message"` // Content of the message.
}

// LLMContext is the ordered message list sent to a chat provider.
type LLMContext struct {
	Messages []LLMMessage
}

func (c *LLMContext) AddSystemMessage(text string) {
	c.Messages = append(c.Messages, LLMMessage{Role: LLMMessageRoleSystem, Message: text})
}

func (c *LLMContext) AddUserMessage(text string) {
	c.Messages = append(c.Messages, LLMMessage{Role: LLMMessageRoleUser, Message: text})
}

func (c *LLMContext) AddAssistantMessage(text string) {
	c.Messages = append(c.Messages, LLMMessage{Role: LLMMessageRoleAssistant, Message: text})
}

// GetLastUserMessage returns the most recent user message, or "" if there is none.
func (c *LLMContext) GetLastUserMessage() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == LLMMessageRoleUser {
			return c.Messages[i].Message
		}
	}
	return ""
}
