package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/stepwisehq/stepwise/pkg/chat"
	"github.com/stepwisehq/stepwise/pkg/logger"
	"github.com/stepwisehq/stepwise/pkg/solver"
	"github.com/stepwisehq/stepwise/pkg/stream"
)

var (
	// ErrEmptyQuestion is returned when the trimmed question is empty; no
	// transport is opened and no message is appended.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrNothingToRate is returned when no assistant message carries a
	// solution yet.
	ErrNothingToRate = errors.New("no completed solution to rate")
	// ErrRatingRange is returned for ratings outside the 1 to 5 scale.
	ErrRatingRange = errors.New("rating must be between 1 and 5")
)

// StreamOpener is the slice of the solver client that opens solve streams.
type StreamOpener interface {
	OpenSolveStream(ctx context.Context, req solver.SolveRequest) (*stream.Stream, error)
}

// FeedbackSubmitter is the slice of the solver client that submits ratings.
type FeedbackSubmitter interface {
	SubmitFeedback(ctx context.Context, req solver.FeedbackRequest) (*solver.FeedbackResponse, error)
}

// Client bundles what the session layer needs from the solver service.
// *solver.Client satisfies it.
type Client interface {
	StreamOpener
	FeedbackSubmitter
}

// Manager runs the conversation: it appends the user turn and the assistant
// placeholder, opens the stream, and guarantees at most one live session per
// conversation. Asking again while a session is live cancels the old session
// before the new transport opens.
type Manager struct {
	client Client
	sinks  Sinks
	log    *logger.Logger

	mu        sync.Mutex
	store     *chat.Store
	sessionID string
	live      *Controller
}

func NewManager(client Client, store *chat.Store, sinks Sinks) *Manager {
	return &Manager{
		client:    client,
		sinks:     sinks,
		log:       logger.WithComponent("session"),
		store:     store,
		sessionID: uuid.New().String(),
	}
}

// SessionID returns the conversation-scoped id sent to the solver so
// server-side context survives across questions.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Store returns the conversation's message store.
func (m *Manager) Store() *chat.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store
}

// Active returns the live session, or nil.
func (m *Manager) Active() *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

// Ask submits a question. The history snapshot sent to the solver is taken
// before the new user message is appended, so it carries prior turns only.
func (m *Manager) Ask(ctx context.Context, question string) (*Controller, error) {
	userMsg := chat.NewUserMessage(question)
	if userMsg.IsEmpty() {
		return nil, ErrEmptyQuestion
	}

	m.mu.Lock()
	store := m.store
	sessionID := m.sessionID
	prev := m.live
	m.live = nil
	m.mu.Unlock()

	if prev != nil {
		m.log.Debug("Cancelling previous session", "session_id", prev.ID())
		prev.Cancel()
	}

	history := chat.BuildHistory(store.Messages())

	store.Append(userMsg)
	placeholder := chat.NewAssistantPlaceholder(userMsg.Text)
	store.Append(placeholder)

	m.log.Info("Asking solver", "session_id", sessionID, "request_type", userMsg.RequestType)

	ctrl := newController(sessionID, placeholder.ID, store, m.sinks)
	if err := ctrl.open(ctx, m.client, solver.SolveRequest{
		Question:            userMsg.Text,
		SessionID:           sessionID,
		ConversationHistory: history,
	}); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.live = ctrl
	m.mu.Unlock()
	return ctrl, nil
}

// CancelActive stops the live session, if any, and reports whether one
// was running. Safe to call at any time.
func (m *Manager) CancelActive() bool {
	m.mu.Lock()
	live := m.live
	m.live = nil
	m.mu.Unlock()

	if live != nil {
		live.Cancel()
		return true
	}
	return false
}

// RateLastSolution submits feedback for the most recent solved message and
// records the rating on it.
func (m *Manager) RateLastSolution(ctx context.Context, rating int, comment string) (*solver.FeedbackResponse, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrRatingRange
	}

	m.mu.Lock()
	store := m.store
	m.mu.Unlock()

	var target *chat.Message
	msgs := store.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Solution != nil {
			target = &msgs[i]
			break
		}
	}
	if target == nil {
		return nil, ErrNothingToRate
	}

	resp, err := m.client.SubmitFeedback(ctx, solver.FeedbackRequest{
		Question:         target.OriginalQuestion,
		OriginalSolution: target.Solution,
		UserRating:       rating,
		UserComment:      comment,
		SessionID:        target.Solution.SessionID,
	})
	if err != nil {
		return nil, err
	}

	feedback := chat.FeedbackState{
		Submitted:            true,
		Rating:               rating,
		ImprovementTriggered: resp.ImprovementTriggered,
	}
	if err := store.UpdateByID(target.ID, chat.MessagePatch{Feedback: &feedback}); err != nil {
		m.log.Warn("Failed to record feedback state", "message_id", target.ID, "error", err)
	}

	m.log.Info("Feedback submitted", "rating", rating, "feedback_id", resp.FeedbackID)
	return resp, nil
}

// NewConversation cancels any live session, resets the server-side context
// id, and starts an empty message store, which it returns. Subscribers on
// the old store must re-subscribe.
func (m *Manager) NewConversation() *chat.Store {
	m.CancelActive()

	m.mu.Lock()
	m.store = chat.NewStore()
	m.sessionID = uuid.New().String()
	store := m.store
	m.mu.Unlock()

	m.log.Info("Started new conversation", "session_id", m.SessionID())
	return store
}
