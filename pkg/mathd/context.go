package mathd

import (
	"sync"
	"time"

	"github.com/stepwisehq/stepwise/pkg/chat"
)

// maxHistoryPerSession bounds the stored turns per conversation. Older
// entries are trimmed first; the metadata counter keeps the lifetime total.
const maxHistoryPerSession = 20

// StoredMessage is one conversation turn as the server keeps it. Timestamp
// is unix seconds; Datetime is the same instant in RFC 3339 for humans.
type StoredMessage struct {
	Role        string  `json:"role"`
	Content     string  `json:"content"`
	RequestType string  `json:"request_type,omitempty"`
	Timestamp   float64 `json:"timestamp,omitempty"`
	Datetime    string  `json:"datetime,omitempty"`
}

// ContextMetadata tracks conversation lifecycle. MessageCount counts every
// turn ever stored, not just the trimmed window.
type ContextMetadata struct {
	CreatedAt    float64 `json:"created_at"`
	LastActivity float64 `json:"last_activity"`
	MessageCount int     `json:"message_count"`
}

// ContextSnapshot is the context endpoint's response body. MessageCount here
// is the size of the retained window.
type ContextSnapshot struct {
	SessionID    string          `json:"session_id"`
	MessageCount int             `json:"message_count"`
	Metadata     ContextMetadata `json:"metadata"`
	FullHistory  []StoredMessage `json:"full_history"`
}

type conversation struct {
	history  []StoredMessage
	metadata ContextMetadata
}

// ContextManager keeps per-session conversation history so follow-up
// questions can be answered with context. Safe for concurrent handlers.
type ContextManager struct {
	mu            sync.Mutex
	conversations map[string]*conversation
}

func NewContextManager() *ContextManager {
	return &ContextManager{conversations: make(map[string]*conversation)}
}

// get returns the conversation for sessionID, creating it on first touch.
// Callers must hold mu.
func (cm *ContextManager) get(sessionID string) *conversation {
	conv, ok := cm.conversations[sessionID]
	if !ok {
		now := unixSeconds(time.Now())
		conv = &conversation{metadata: ContextMetadata{CreatedAt: now, LastActivity: now}}
		cm.conversations[sessionID] = conv
	}
	return conv
}

func (cm *ContextManager) appendLocked(conv *conversation, role, content, requestType string) {
	now := time.Now()
	conv.history = append(conv.history, StoredMessage{
		Role:        role,
		Content:     content,
		RequestType: requestType,
		Timestamp:   unixSeconds(now),
		Datetime:    now.Format(time.RFC3339),
	})
	if len(conv.history) > maxHistoryPerSession {
		conv.history = conv.history[len(conv.history)-maxHistoryPerSession:]
	}
	conv.metadata.LastActivity = unixSeconds(now)
	conv.metadata.MessageCount++
}

// AddMessage appends one turn to a session, stamping it with the current
// time.
func (cm *ContextManager) AddMessage(sessionID, role, content, requestType string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.appendLocked(cm.get(sessionID), role, content, requestType)
}

// ImportHistory seeds an empty conversation from client-supplied turns. A
// session that already holds turns keeps them; the import is then a no-op.
func (cm *ContextManager) ImportHistory(sessionID string, entries []chat.HistoryEntry) {
	if len(entries) == 0 {
		return
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	conv := cm.get(sessionID)
	if len(conv.history) > 0 {
		return
	}
	for _, entry := range entries {
		cm.appendLocked(conv, entry.Role, entry.Content, entry.RequestType)
	}
}

// History returns a copy of the retained turns for a session, oldest first.
func (cm *ContextManager) History(sessionID string) []StoredMessage {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conv, ok := cm.conversations[sessionID]
	if !ok {
		return nil
	}
	out := make([]StoredMessage, len(conv.history))
	copy(out, conv.history)
	return out
}

// Snapshot returns the context view for one session. Asking about an unknown
// session starts an empty conversation for it rather than erroring.
func (cm *ContextManager) Snapshot(sessionID string) ContextSnapshot {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conv := cm.get(sessionID)
	history := make([]StoredMessage, len(conv.history))
	copy(history, conv.history)
	return ContextSnapshot{
		SessionID:    sessionID,
		MessageCount: len(history),
		Metadata:     conv.metadata,
		FullHistory:  history,
	}
}

// Stats reports the number of tracked conversations and the sum of their
// retained turns.
func (cm *ContextManager) Stats() (conversations, messages int) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for _, conv := range cm.conversations {
		messages += len(conv.history)
	}
	return len(cm.conversations), messages
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
