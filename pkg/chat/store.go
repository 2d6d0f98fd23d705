package chat

import (
	"errors"
	"fmt"
	"sync"
)

// ErrMessageNotFound is returned by UpdateByID when no message has the id.
var ErrMessageNotFound = errors.New("message not found")

// Store is the append-only conversation log. Messages are never removed;
// streaming fills assistant messages in place via UpdateByID. Reads return
// copies so callers can render without holding the lock.
type Store struct {
	mu       sync.RWMutex
	messages []Message
	index    map[string]int
	subs     []func()
}

func NewStore() *Store {
	return &Store{
		index: make(map[string]int),
	}
}

// Append adds a message to the end of the conversation.
func (s *Store) Append(msg Message) {
	s.mu.Lock()
	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.notify()
}

// MessagePatch describes an in-place update to a message. Nil fields are
// left untouched, so a patch changes exactly what it names.
type MessagePatch struct {
	Text               *string
	Progress           *int
	StreamingSessionID *string
	Steps              []SolutionStep
	Solution           *Solution
	Feedback           *FeedbackState
	IsError            *bool
}

// UpdateByID applies patch to the message with the given id. The patch is
// applied under the store lock, so readers observe it atomically.
func (s *Store) UpdateByID(id string, patch MessagePatch) error {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("updating message %s: %w", id, ErrMessageNotFound)
	}
	msg := &s.messages[i]
	if patch.Text != nil {
		msg.Text = *patch.Text
	}
	if patch.Progress != nil {
		msg.Progress = *patch.Progress
	}
	if patch.StreamingSessionID != nil {
		msg.StreamingSessionID = *patch.StreamingSessionID
	}
	if patch.Steps != nil {
		msg.Steps = append([]SolutionStep(nil), patch.Steps...)
	}
	if patch.Solution != nil {
		sol := *patch.Solution
		msg.Solution = &sol
	}
	if patch.Feedback != nil {
		msg.Feedback = *patch.Feedback
	}
	if patch.IsError != nil {
		msg.IsError = *patch.IsError
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// Messages returns a snapshot copy of the conversation.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	for i := range out {
		out[i].Steps = append([]SolutionStep(nil), s.messages[i].Steps...)
		if s.messages[i].Solution != nil {
			sol := *s.messages[i].Solution
			out[i].Solution = &sol
		}
	}
	return out
}

// Get returns a copy of the message with the given id.
func (s *Store) Get(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Message{}, false
	}
	msg := s.messages[i]
	msg.Steps = append([]SolutionStep(nil), s.messages[i].Steps...)
	if s.messages[i].Solution != nil {
		sol := *s.messages[i].Solution
		msg.Solution = &sol
	}
	return msg, true
}

// Last returns a copy of the newest message.
func (s *Store) Last() (Message, bool) {
	s.mu.RLock()
	if len(s.messages) == 0 {
		s.mu.RUnlock()
		return Message{}, false
	}
	id := s.messages[len(s.messages)-1].ID
	s.mu.RUnlock()
	return s.Get(id)
}

// LastAssistant returns a copy of the newest assistant message.
func (s *Store) LastAssistant() (Message, bool) {
	s.mu.RLock()
	var id string
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == RoleAssistant {
			id = s.messages[i].ID
			break
		}
	}
	s.mu.RUnlock()
	if id == "" {
		return Message{}, false
	}
	return s.Get(id)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Subscribe registers fn to run after every append or update. Subscribers
// are invoked outside the store lock and must not block.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}
