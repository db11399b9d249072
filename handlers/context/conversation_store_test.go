package context

import (
	"fmt"
	"sync"
	"testing"

	"voicebridge/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxTurns, maxSessions int) *ConversationStore {
	t.Helper()
	store, err := NewConversationStore(ConversationStoreConfig{MaxTurns: maxTurns, MaxSessions: maxSessions}, nil)
	require.NoError(t, err)
	return store
}

func TestConversationStoreRejectsBadConfig(t *testing.T) {
	_, err := NewConversationStore(ConversationStoreConfig{MaxTurns: 0, MaxSessions: 1}, nil)
	assert.Error(t, err)

	_, err = NewConversationStore(ConversationStoreConfig{MaxTurns: 1, MaxSessions: -1}, nil)
	assert.Error(t, err)
}

func TestConversationStoreAppendsInOrder(t *testing.T) {
	store := newTestStore(t, 12, 0)

	history, ok := store.AppendUserTurn("s1", "merhaba")
	assert.True(t, ok)
	assert.Equal(t, []core.LLMMessage{{Role: core.LLMMessageRoleUser, Message: "merhaba"}}, history)
	assert.True(t, store.AppendAssistantTurn("s1", "Selam!"))

	assert.Equal(t, []core.LLMMessage{
		{Role: core.LLMMessageRoleUser, Message: "merhaba"},
		{Role: core.LLMMessageRoleAssistant, Message: "Selam!"},
	}, store.HistoryFor("s1"))
}

func TestConversationStoreEvictsOldestFirst(t *testing.T) {
	store := newTestStore(t, 12, 0)

	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			store.AppendUserTurn("s", fmt.Sprintf("turn %d", i))
		} else {
			store.AppendAssistantTurn("s", fmt.Sprintf("turn %d", i))
		}
		assert.LessOrEqual(t, len(store.HistoryFor("s")), 12)
	}

	history := store.HistoryFor("s")
	require.Len(t, history, 12)
	for i, msg := range history {
		assert.Equal(t, fmt.Sprintf("turn %d", i+8), msg.Message)
	}
	assert.Equal(t, core.LLMMessageRoleUser, history[0].Role)
}

func TestConversationStoreIgnoresBlankText(t *testing.T) {
	store := newTestStore(t, 12, 0)

	for _, text := range []string{"", "  \n\t "} {
		history, ok := store.AppendUserTurn("s", text)
		assert.False(t, ok)
		assert.Nil(t, history)
	}
	assert.False(t, store.AppendAssistantTurn("s", " "))
	assert.Empty(t, store.HistoryFor("s"))
	assert.Equal(t, 0, store.Len())
}

func TestConversationStoreHistoryIsACopy(t *testing.T) {
	store := newTestStore(t, 12, 0)
	store.AppendUserTurn("s", "hello")

	history := store.HistoryFor("s")
	history[0].Message = "tampered"
	_ = append(history, core.LLMMessage{Role: core.LLMMessageRoleUser, Message: "extra"})

	assert.Equal(t, []core.LLMMessage{{Role: core.LLMMessageRoleUser, Message: "hello"}}, store.HistoryFor("s"))
}

func TestConversationStoreUnknownSessionIsEmpty(t *testing.T) {
	store := newTestStore(t, 12, 4)

	history := store.HistoryFor("nobody")
	assert.NotNil(t, history)
	assert.Empty(t, history)
	assert.Equal(t, 0, store.Len(), "reading must not create a session")
}

func TestConversationStoreDefaultSession(t *testing.T) {
	store := newTestStore(t, 12, 0)

	store.AppendUserTurn("", "hi")
	assert.Len(t, store.HistoryFor(DefaultSessionID), 1)
	assert.Len(t, store.HistoryFor("  "), 1)
}

func TestConversationStoreSessionsAreIsolated(t *testing.T) {
	store := newTestStore(t, 12, 0)

	store.AppendUserTurn("a", "from a")
	store.AppendUserTurn("b", "from b")

	assert.Equal(t, "from a", store.HistoryFor("a")[0].Message)
	assert.Equal(t, "from b", store.HistoryFor("b")[0].Message)
	assert.Equal(t, 2, store.Len())
}

func TestConversationStoreReset(t *testing.T) {
	store := newTestStore(t, 12, 8)

	store.AppendUserTurn("a", "one")
	store.AppendUserTurn("b", "two")
	store.Reset("a")

	assert.Empty(t, store.HistoryFor("a"))
	assert.Len(t, store.HistoryFor("b"), 1)
	assert.Equal(t, 1, store.Len())

	store.Reset("never-existed")
	assert.Equal(t, 1, store.Len())
}

func TestConversationStoreDropsLeastRecentlyUsedSession(t *testing.T) {
	store := newTestStore(t, 12, 2)

	store.AppendUserTurn("a", "one")
	store.AppendUserTurn("b", "two")
	// Touch a so b becomes the eviction candidate.
	store.HistoryFor("a")
	store.AppendUserTurn("c", "three")

	assert.Equal(t, 2, store.Len())
	assert.Len(t, store.HistoryFor("a"), 1)
	assert.Empty(t, store.HistoryFor("b"))
	assert.Len(t, store.HistoryFor("c"), 1)
}

func TestConversationStoreConcurrentAppends(t *testing.T) {
	const writers = 16
	const perWriter = 50
	store := newTestStore(t, 12, 0)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				store.AppendUserTurn("shared", fmt.Sprintf("w%d-%d", w, i))
				store.AppendAssistantTurn(fmt.Sprintf("own-%d", w), fmt.Sprintf("%d", i))
				assert.LessOrEqual(t, len(store.HistoryFor("shared")), 12)
			}
		}(w)
	}
	wg.Wait()

	assert.Len(t, store.HistoryFor("shared"), 12)
	for w := 0; w < writers; w++ {
		own := store.HistoryFor(fmt.Sprintf("own-%d", w))
		require.Len(t, own, 12)
		assert.Equal(t, fmt.Sprintf("%d", perWriter-1), own[11].Message)
	}
}

func TestConversationStoreAppendReturnsHistoryUnderSessionPressure(t *testing.T) {
	const workers = 32
	const perWorker = 40
	store := newTestStore(t, 6, 2)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			session := fmt.Sprintf("device-%d", w%5)
			for i := 0; i < perWorker; i++ {
				text := fmt.Sprintf("w%d-%d", w, i)
				history, ok := store.AppendUserTurn(session, text)
				if !assert.True(t, ok) || !assert.NotEmpty(t, history) {
					return
				}
				assert.LessOrEqual(t, len(history), 6)
				assert.Equal(t, core.LLMMessage{Role: core.LLMMessageRoleUser, Message: text}, history[len(history)-1])
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, store.Len(), 2)
}

func TestConversationStoreEvictedHistoryIsNotWritten(t *testing.T) {
	store := newTestStore(t, 12, 1)

	stale := store.lookup("a", true)
	store.AppendUserTurn("b", "evicts a")
	assert.True(t, stale.dropped)

	history, ok := store.AppendUserTurn("a", "after eviction")
	require.True(t, ok)
	assert.Equal(t, []core.LLMMessage{{Role: core.LLMMessageRoleUser, Message: "after eviction"}}, history)
	assert.Empty(t, stale.turns)
	assert.Equal(t, history, store.HistoryFor("a"))
}

func TestConversationStoreResetDropsHistory(t *testing.T) {
	for _, maxSessions := range []int{0, 4} {
		store := newTestStore(t, 12, maxSessions)
		store.AppendUserTurn("a", "one")
		stale := store.lookup("a", false)
		require.NotNil(t, stale)

		store.Reset("a")
		assert.True(t, stale.dropped, "max sessions %d", maxSessions)
	}
}
