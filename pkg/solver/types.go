package solver

import (
	"github.com/stepwisehq/stepwise/pkg/chat"
)

// SolveRequest is the POST body for the streaming solve endpoint. The
// conversation history carries prior turns only; the question itself is not
// repeated in it.
type SolveRequest struct {
	Question            string              `json:"question"`
	SessionID           string              `json:"session_id,omitempty"`
	ConversationHistory []chat.HistoryEntry `json:"conversation_history"`
}

// FeedbackRequest rates a delivered solution on a 1 to 5 scale. Corrections
// are optional and feed the solver's learning loop.
type FeedbackRequest struct {
	Question         string         `json:"question"`
	OriginalSolution *chat.Solution `json:"original_solution"`
	UserRating       int            `json:"user_rating"`
	UserComment      string         `json:"user_comment,omitempty"`
	CorrectedAnswer  string         `json:"corrected_answer,omitempty"`
	CorrectedSteps   []string       `json:"corrected_steps,omitempty"`
	SessionID        string         `json:"session_id,omitempty"`
}

type FeedbackResponse struct {
	Status               string `json:"status"`
	Message              string `json:"message"`
	FeedbackID           int64  `json:"feedback_id"`
	ImprovementTriggered bool   `json:"improvement_triggered"`
}

// LearningStats summarizes accumulated feedback. Status and Message are set
// only on the no-feedback response, when every other field is zero.
type LearningStats struct {
	Status         string  `json:"status,omitempty"`
	Message        string  `json:"message,omitempty"`
	TotalFeedback  int     `json:"total_feedback"`
	AverageRating  float64 `json:"average_rating"`
	KBAccuracy     float64 `json:"kb_accuracy"`
	WebAccuracy    float64 `json:"web_accuracy"`
	LowRatings     int     `json:"low_ratings"`
	HighRatings    int     `json:"high_ratings"`
	LearningStatus string  `json:"learning_status"`
}

type Health struct {
	Status              string `json:"status"`
	Streaming           string `json:"streaming"`
	ActiveConversations int    `json:"active_conversations"`
	TotalStoredMessages int    `json:"total_stored_messages"`
}

// SessionContext is the server-side view of one conversation, exposed for
// debugging.
type SessionContext struct {
	SessionID    string          `json:"session_id"`
	MessageCount int             `json:"message_count"`
	Metadata     ContextMetadata `json:"metadata"`
	FullHistory  []StoredMessage `json:"full_history"`
}

type ContextMetadata struct {
	CreatedAt    float64 `json:"created_at"`
	LastActivity float64 `json:"last_activity"`
	MessageCount int     `json:"message_count"`
}

// StoredMessage is one history entry as the server stores it, timestamps
// included.
type StoredMessage struct {
	Role        string  `json:"role"`
	Content     string  `json:"content"`
	RequestType string  `json:"request_type,omitempty"`
	Timestamp   float64 `json:"timestamp,omitempty"`
	Datetime    string  `json:"datetime,omitempty"`
}
