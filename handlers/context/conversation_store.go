package context

import (
	"fmt"
	"strings"
	"sync"

	"voicebridge/core"

	lru "github.com/hashicorp/golang-lru/v2"
)

// sessionHistory is one session's bounded turn list. mu serialises the
// append-then-trim sequence so concurrent turns on a session cannot break the bound.
// dropped is set once the history leaves the store; later writers must look it up again.
type sessionHistory struct {
	mu      sync.Mutex
	turns   []core.LLMMessage
	dropped bool
}

func (h *sessionHistory) drop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropped = true
}

// snapshot copies the turns. The caller holds h.mu.
func (h *sessionHistory) snapshot() []core.LLMMessage {
	out := make([]core.LLMMessage, len(h.turns))
	copy(out, h.turns)
	return out
}

// ConversationStore keeps a bounded FIFO history per session id.
// Sessions are created on first reference. With MaxSessions > 0 the least
// recently used session is dropped once the ceiling is reached.
type ConversationStore struct {
	config ConversationStoreConfig
	logger *core.Logger

	mu       sync.Mutex // guards get-or-create only; histories have their own locks
	bounded  *lru.Cache[string, *sessionHistory]
	sessions map[string]*sessionHistory
}

// NewConversationStore creates a store. Use DefaultConversationStoreConfig() and override what you need.
func NewConversationStore(config ConversationStoreConfig, logger *core.Logger) (*ConversationStore, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("conversation store: %w", err)
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	s := &ConversationStore{
		config: config,
		logger: logger.With(map[string]interface{}{"component": "conversation_store"}),
	}
	if config.MaxSessions > 0 {
		cache, err := lru.NewWithEvict[string, *sessionHistory](config.MaxSessions, func(key string, h *sessionHistory) {
			h.drop()
			s.logger.With(map[string]interface{}{"session_id": key}).Debug("session evicted")
		})
		if err != nil {
			return nil, fmt.Errorf("conversation store: %w", err)
		}
		s.bounded = cache
	} else {
		s.sessions = make(map[string]*sessionHistory)
	}
	return s, nil
}

// MaxTurns returns the per-session bound.
func (s *ConversationStore) MaxTurns() int {
	return s.config.MaxTurns
}

// NormalizeSessionID maps an absent id to DefaultSessionID.
func NormalizeSessionID(session string) string {
	session = strings.TrimSpace(session)
	if session == "" {
		return DefaultSessionID
	}
	return session
}

func (s *ConversationStore) lookup(session string, create bool) *sessionHistory {
	session = NormalizeSessionID(session)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bounded != nil {
		if h, ok := s.bounded.Get(session); ok {
			return h
		}
		if !create {
			return nil
		}
		h := &sessionHistory{}
		s.bounded.Add(session, h)
		return h
	}

	if h, ok := s.sessions[session]; ok {
		return h
	}
	if !create {
		return nil
	}
	h := &sessionHistory{}
	s.sessions[session] = h
	return h
}

// appendTurn adds one turn and returns the history as it stood right after the
// append. A history dropped between lookup and lock is looked up again, so the
// write always lands in the live session.
func (s *ConversationStore) appendTurn(session string, role core.LLMMessageRole, text string) ([]core.LLMMessage, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}
	for {
		h := s.lookup(session, true)
		h.mu.Lock()
		if h.dropped {
			h.mu.Unlock()
			continue
		}
		h.turns = append(h.turns, core.LLMMessage{Role: role, Message: text})
		if over := len(h.turns) - s.config.MaxTurns; over > 0 {
			// Copy down instead of reslicing so the backing array does not grow forever.
			kept := make([]core.LLMMessage, s.config.MaxTurns)
			copy(kept, h.turns[over:])
			h.turns = kept
		}
		out := h.snapshot()
		h.mu.Unlock()
		return out, true
	}
}

// AppendUserTurn records what the user said and returns the session history
// including it, oldest first. Whitespace-only text is ignored and reports false.
func (s *ConversationStore) AppendUserTurn(session, text string) ([]core.LLMMessage, bool) {
	return s.appendTurn(session, core.LLMMessageRoleUser, text)
}

// AppendAssistantTurn records the assistant reply. Whitespace-only text is ignored.
func (s *ConversationStore) AppendAssistantTurn(session, text string) bool {
	_, ok := s.appendTurn(session, core.LLMMessageRoleAssistant, text)
	return ok
}

// HistoryFor returns a copy of the session's turns, oldest first.
func (s *ConversationStore) HistoryFor(session string) []core.LLMMessage {
	h := s.lookup(session, false)
	if h == nil {
		return []core.LLMMessage{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dropped {
		return []core.LLMMessage{}
	}
	return h.snapshot()
}

// Reset drops a session's history.
func (s *ConversationStore) Reset(session string) {
	session = NormalizeSessionID(session)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bounded != nil {
		// Remove runs the eviction callback, which marks the history dropped.
		s.bounded.Remove(session)
		return
	}
	if h, ok := s.sessions[session]; ok {
		delete(s.sessions, session)
		h.drop()
	}
}

// Len returns the number of live sessions.
func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bounded != nil {
		return s.bounded.Len()
	}
	return len(s.sessions)
}
