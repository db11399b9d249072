package context

import "fmt"

// DefaultSessionID is used when a turn arrives without a session identifier.
const DefaultSessionID = "default"

// ConversationStoreConfig holds configuration for ConversationStore construction
type ConversationStoreConfig struct {
	MaxTurns    int `json:"max_turns" yaml:"max_turns"`       // Number of most recent turns kept per session. Older turns are evicted first.
	MaxSessions int `json:"max_sessions" yaml:"max_sessions"` // Hard ceiling on live sessions; least recently used ones are dropped. 0 disables the ceiling.
}

// DefaultConversationStoreConfig returns a ConversationStoreConfig with sensible defaults
func DefaultConversationStoreConfig() ConversationStoreConfig {
	return ConversationStoreConfig{
		MaxTurns:    12,
		MaxSessions: 1024,
	}
}

func (c ConversationStoreConfig) Validate() error {
	if c.MaxTurns < 1 {
		return fmt.Errorf("max_turns must be at least 1, got %d", c.MaxTurns)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("max_sessions must not be negative, got %d", c.MaxSessions)
	}
	return nil
}
