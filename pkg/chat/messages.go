package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one turn in the conversation. ID and Role are immutable after
// creation; Text, Progress, Steps, StreamingSessionID, Solution and Feedback
// are mutated in place through Store.UpdateByID as streaming progresses.
type Message struct {
	ID                 string         `json:"id"`
	Role               string         `json:"role"`
	Text               string         `json:"text"`
	Timestamp          time.Time      `json:"timestamp"`
	OriginalQuestion   string         `json:"original_question,omitempty"`
	RequestType        string         `json:"request_type,omitempty"`
	StreamingSessionID string         `json:"streaming_session_id,omitempty"`
	Progress           int            `json:"progress,omitempty"`
	Steps              []SolutionStep `json:"steps,omitempty"`
	Solution           *Solution      `json:"solution,omitempty"`
	Feedback           FeedbackState  `json:"feedback"`
	IsError            bool           `json:"is_error,omitempty"`
}

// Solution is the structured result delivered at terminal success.
type Solution struct {
	Route                  string         `json:"route"`
	Confidence             float64        `json:"confidence"`
	Steps                  []SolutionStep `json:"steps"`
	FinalAnswer            string         `json:"final_answer"`
	ConversationalResponse string         `json:"conversational_response"`
	FollowUpSuggestions    []string       `json:"follow_up_suggestions,omitempty"`
	RequestType            string         `json:"request_type,omitempty"`
	SessionID              string         `json:"session_id,omitempty"`
	ContextAware           bool           `json:"context_aware,omitempty"`
}

// SolutionStep is one step of a worked solution.
type SolutionStep struct {
	Step int    `json:"step"`
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

// FeedbackState records whether the user has rated a solution.
type FeedbackState struct {
	Submitted            bool `json:"submitted"`
	Rating               int  `json:"rating,omitempty"`
	ImprovementTriggered bool `json:"improvement_triggered,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request types tagged on user messages.
const (
	RequestTypeSolving  = "solving"
	RequestTypeTeaching = "teaching"
	RequestTypeUnknown  = "unknown"
)

func NewUserMessage(content string) Message {
	text := strings.TrimSpace(content)
	return Message{
		ID:          uuid.New().String(),
		Role:        RoleUser,
		Text:        text,
		RequestType: DetectRequestType(text),
		Timestamp:   time.Now(),
	}
}

// NewAssistantPlaceholder creates the assistant message a streaming session
// will fill in. The streaming session id is attached once the transport opens.
func NewAssistantPlaceholder(question string) Message {
	return Message{
		ID:               uuid.New().String(),
		Role:             RoleAssistant,
		Text:             "",
		OriginalQuestion: question,
		Timestamp:        time.Now(),
	}
}

func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Text) == ""
}

// IsStreaming reports whether an active stream is filling this message.
func (m Message) IsStreaming() bool {
	return m.StreamingSessionID != ""
}

// teachingKeywords mark a question as a teaching request rather than a
// straight solve. Matches the routing the solver service applies server-side.
var teachingKeywords = []string{
	"explain like",
	"make me understand",
	"teach me",
	"beginner",
	"simple",
	"basics",
	"noob",
	"more about",
}

// DetectRequestType classifies a question as "teaching" or "solving".
func DetectRequestType(question string) string {
	lower := strings.ToLower(question)
	for _, keyword := range teachingKeywords {
		if strings.Contains(lower, keyword) {
			return RequestTypeTeaching
		}
	}
	return RequestTypeSolving
}
