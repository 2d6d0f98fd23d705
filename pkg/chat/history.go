package chat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// HistoryEntry is the per-turn record sent to the solver as conversation
// context. Only content, role and request_type cross the wire.
type HistoryEntry struct {
	Content     string `json:"content"`
	Role        string `json:"role"`
	RequestType string `json:"request_type"`
}

// BuildHistory projects messages into wire history entries. Messages with
// whitespace-only text are dropped, a missing role defaults to user, and a
// missing request type defaults to unknown. The input is not modified.
func BuildHistory(messages []Message) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		if msg.IsEmpty() {
			continue
		}
		role := msg.Role
		if role == "" {
			role = RoleUser
		}
		requestType := msg.RequestType
		if requestType == "" {
			requestType = RequestTypeUnknown
		}
		entries = append(entries, HistoryEntry{
			Content:     msg.Text,
			Role:        role,
			RequestType: requestType,
		})
	}
	return entries
}

// transcript is the on-disk shape of a saved conversation.
type transcript struct {
	SessionID string    `json:"session_id,omitempty"`
	Messages  []Message `json:"messages"`
}

// SaveTranscript writes a snapshot of the conversation to path as JSON.
func SaveTranscript(path, sessionID string, messages []Message) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}

	data, err := json.MarshalIndent(transcript{SessionID: sessionID, Messages: messages}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write transcript file: %w", err)
	}
	return nil
}

// LoadTranscript reads a conversation snapshot saved by SaveTranscript.
func LoadTranscript(path string) (string, []Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read transcript file: %w", err)
	}

	var t transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return t.SessionID, t.Messages, nil
}
