package stream

import (
	"encoding/json"
	"fmt"
)

// Event types carried on the solve stream, in the order a well-behaved
// solver emits them. Anything else dispatches as unknown.
const (
	EventConnected         = "connected"
	EventProcessingStarted = "processing_started"
	EventRouting           = "routing"
	EventRoutingResult     = "routing_result"
	EventStepUpdate        = "step_update"
	EventStepGenerated     = "step_generated"
	EventCompletion        = "completion"
	EventSolutionComplete  = "solution_complete"
	EventError             = "error"
)

// Envelope is one decoded stream frame: the type discriminant plus the raw
// JSON object it arrived in. Payload decoding happens at dispatch time so a
// bad payload can be skipped without losing the rest of the stream.
type Envelope struct {
	Type string
	Raw  json.RawMessage
}

// ParseEnvelope reads the type discriminant out of a JSON frame. The input
// is copied, so callers may reuse their buffer.
func ParseEnvelope(data []byte) (Envelope, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Envelope{}, fmt.Errorf("decoding event envelope: %w", err)
	}
	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return Envelope{Type: head.Type, Raw: raw}, nil
}

type ConnectedPayload struct {
	SessionID string `json:"session_id"`
}

type ProcessingStartedPayload struct {
	Message  string `json:"message"`
	Question string `json:"question"`
}

type RoutingPayload struct {
	Message string `json:"message"`
}

type RoutingResultPayload struct {
	Route      string  `json:"route"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message"`
}

// StepUpdatePayload reports coarse pipeline progress. Progress is nil when
// the solver omits it, in which case the current value is kept.
type StepUpdatePayload struct {
	Step     int    `json:"step"`
	Message  string `json:"message"`
	Progress *int   `json:"progress"`
}

type StepGeneratedPayload struct {
	StepNumber int      `json:"step_number"`
	TotalSteps int      `json:"total_steps"`
	StepData   StepData `json:"step_data"`
}

// StepData is one worked solution step as it crosses the wire.
type StepData struct {
	Step int    `json:"step"`
	Text string `json:"text"`
	Type string `json:"type"`
}

type CompletionPayload struct {
	Message  string `json:"message"`
	Progress *int   `json:"progress"`
}

type SolutionCompletePayload struct {
	Data SolutionData `json:"data"`
}

// SolutionData is the terminal result bundle.
type SolutionData struct {
	Route                  string     `json:"route"`
	Confidence             float64    `json:"confidence"`
	Steps                  []StepData `json:"steps"`
	FinalAnswer            string     `json:"final_answer"`
	ConversationalResponse string     `json:"conversational_response"`
	FollowUpSuggestions    []string   `json:"follow_up_suggestions"`
	RequestType            string     `json:"request_type"`
	SessionID              string     `json:"session_id"`
	ContextAware           bool       `json:"context_aware"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
