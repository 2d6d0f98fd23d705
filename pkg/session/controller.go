package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/stepwisehq/stepwise/pkg/chat"
	"github.com/stepwisehq/stepwise/pkg/logger"
	"github.com/stepwisehq/stepwise/pkg/solver"
	"github.com/stepwisehq/stepwise/pkg/stream"
)

// RouteInfo captures which path the solver chose for a question.
type RouteInfo struct {
	Route      string
	Confidence float64
	Message    string
}

// AgentError is a failure the solver reported over an open stream, as
// opposed to a transport failure.
type AgentError struct {
	Message string
}

func (e *AgentError) Error() string {
	return e.Message
}

// Sinks are optional observers the UI layers hook into. They run on the
// dispatch goroutine and must not block.
type Sinks struct {
	// OnUpdate fires after any message mutation.
	OnUpdate func()
	// OnCompleted fires once, with the final message state, on success.
	OnCompleted func(msg chat.Message)
	// OnError fires once on terminal failure. err is *AgentError for
	// solver-reported errors and the transport error otherwise.
	OnError func(msg chat.Message, err error)
	// OnUnknown fires for event types without a handler.
	OnUnknown func(eventType string)
}

// Controller owns one streaming solve: it consumes the event stream and
// folds each event into the assistant message it was created for. Progress
// only ever moves forward, and a terminal event latches the session so late
// or duplicate events cannot reopen it.
type Controller struct {
	id        string
	messageID string
	store     *chat.Store
	sinks     Sinks
	log       *logger.Logger

	st         *stream.Stream
	cancelCtx  context.CancelFunc
	cancelOnce sync.Once
	cancelled  atomic.Bool
	done       chan struct{}

	mu              sync.Mutex
	phase           Phase
	progress        int
	steps           []chat.SolutionStep
	route           *RouteInfo
	serverSessionID string
}

func newController(id, messageID string, store *chat.Store, sinks Sinks) *Controller {
	return &Controller{
		id:        id,
		messageID: messageID,
		store:     store,
		sinks:     sinks,
		log:       logger.WithComponent("session"),
		done:      make(chan struct{}),
		phase:     PhaseConnecting,
	}
}

// open starts the transport and the dispatch loop. On failure the assistant
// message is moved to the errored state and the error returned.
func (c *Controller) open(ctx context.Context, opener StreamOpener, req solver.SolveRequest) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelCtx = cancel

	st, err := opener.OpenSolveStream(ctx, req)
	if err != nil {
		c.connectionError(err)
		cancel()
		close(c.done)
		return err
	}
	c.st = st

	c.patch(chat.MessagePatch{StreamingSessionID: &c.id})
	c.log.Debug("Session opened", "session_id", c.id, "message_id", c.messageID)

	go c.run(ctx)
	return nil
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.done)

	stream.DispatchAll(ctx, c.st.Events(), c.callbacks())

	if c.cancelled.Load() || ctx.Err() != nil {
		c.detach()
		return
	}
	if c.Terminal() {
		return
	}

	err := c.st.Err()
	if err == nil {
		err = errors.New("stream ended before a terminal event")
	}
	c.connectionError(err)
}

// ID returns the streaming session id attached to the assistant message.
func (c *Controller) ID() string {
	return c.id
}

// MessageID returns the id of the assistant message this session fills.
func (c *Controller) MessageID() string {
	return c.messageID
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Route returns the routing decision, or nil before routing_result arrives.
func (c *Controller) Route() *RouteInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.route == nil {
		return nil
	}
	route := *c.route
	return &route
}

func (c *Controller) Terminal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase.Terminal()
}

// Done is closed when the dispatch loop has fully stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Cancel stops the stream and detaches the session from its message. It is
// idempotent, safe after terminal events, and is not itself an error: the
// message keeps whatever text and progress it had.
func (c *Controller) Cancel() {
	c.cancelOnce.Do(func() {
		c.cancelled.Store(true)
		if c.cancelCtx != nil {
			c.cancelCtx()
		}
		if c.st != nil {
			c.st.Cancel()
		}
		c.log.Debug("Session cancelled", "session_id", c.id)
	})
}

func (c *Controller) callbacks() stream.Callbacks {
	return stream.Callbacks{
		OnConnected:         c.handleConnected,
		OnProcessingStarted: c.handleProcessingStarted,
		OnRouting:           c.handleRouting,
		OnRoutingResult:     c.handleRoutingResult,
		OnStepUpdate:        c.handleStepUpdate,
		OnStepGenerated:     c.handleStepGenerated,
		OnCompletion:        c.handleCompletion,
		OnSolutionComplete:  c.handleSolutionComplete,
		OnError:             c.handleError,
		OnUnknown:           c.handleUnknown,
	}
}

func (c *Controller) handleConnected(p stream.ConnectedPayload) {
	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return
	}
	c.serverSessionID = p.SessionID
	c.mu.Unlock()

	c.log.Debug("Solver acknowledged session", "server_session_id", p.SessionID)
}

func (c *Controller) handleProcessingStarted(p stream.ProcessingStartedPayload) {
	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseStarted
	progress := c.raiseProgress(10)
	c.mu.Unlock()

	c.patch(chat.MessagePatch{Text: &p.Message, Progress: &progress})
}

func (c *Controller) handleRouting(p stream.RoutingPayload) {
	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseRouting
	progress := c.raiseProgress(25)
	c.mu.Unlock()

	c.patch(chat.MessagePatch{Text: &p.Message, Progress: &progress})
}

func (c *Controller) handleRoutingResult(p stream.RoutingResultPayload) {
	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseRouted
	c.route = &RouteInfo{Route: p.Route, Confidence: p.Confidence, Message: p.Message}
	progress := c.raiseProgress(40)
	c.mu.Unlock()

	text := fmt.Sprintf("Using %s route (%d%% confidence)", p.Route, int(math.Round(p.Confidence*100)))
	c.patch(chat.MessagePatch{Text: &text, Progress: &progress})
}

func (c *Controller) handleStepUpdate(p stream.StepUpdatePayload) {
	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseStepping
	progress := c.progress
	if p.Progress != nil {
		progress = c.raiseProgress(*p.Progress)
	}
	c.mu.Unlock()

	c.patch(chat.MessagePatch{Progress: &progress})
}

func (c *Controller) handleStepGenerated(p stream.StepGeneratedPayload) {
	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseStepping
	step := chat.SolutionStep{Step: p.StepData.Step, Text: p.StepData.Text, Type: p.StepData.Type}
	if step.Step == 0 {
		step.Step = p.StepNumber
	}
	c.steps = placeStep(c.steps, step, p.StepNumber)
	progress := c.progress
	if p.TotalSteps > 0 {
		progress = c.raiseProgress(50 + 30*p.StepNumber/p.TotalSteps)
	}
	steps := append([]chat.SolutionStep(nil), c.steps...)
	c.mu.Unlock()

	c.patch(chat.MessagePatch{Steps: steps, Progress: &progress})
}

func (c *Controller) handleCompletion(p stream.CompletionPayload) {
	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseFinalizing
	target := 95
	if p.Progress != nil {
		target = *p.Progress
	}
	progress := c.raiseProgress(target)
	c.mu.Unlock()

	c.patch(chat.MessagePatch{Text: &p.Message, Progress: &progress})
}

func (c *Controller) handleSolutionComplete(p stream.SolutionCompletePayload) {
	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseCompleted
	progress := c.raiseProgress(100)
	solution := solutionFromData(p.Data)
	if len(solution.Steps) == 0 {
		solution.Steps = append([]chat.SolutionStep(nil), c.steps...)
	}
	c.mu.Unlock()

	text := solution.ConversationalResponse
	if text == "" {
		text = "Solution provided"
	}
	empty := ""
	c.patch(chat.MessagePatch{
		Text:               &text,
		Progress:           &progress,
		Steps:              solution.Steps,
		Solution:           &solution,
		StreamingSessionID: &empty,
	})

	c.log.Info("Solution complete",
		"session_id", c.id,
		"route", solution.Route,
		"steps", len(solution.Steps),
		"final_answer", solution.FinalAnswer)

	if c.sinks.OnCompleted != nil {
		if msg, ok := c.store.Get(c.messageID); ok {
			c.sinks.OnCompleted(msg)
		}
	}
}

func (c *Controller) handleError(p stream.ErrorPayload) {
	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseErrored
	c.mu.Unlock()

	text := "Sorry, I encountered an error: " + p.Message
	isError := true
	empty := ""
	c.patch(chat.MessagePatch{
		Text:               &text,
		IsError:            &isError,
		StreamingSessionID: &empty,
	})

	c.log.Warn("Solver reported an error", "session_id", c.id, "message", p.Message)

	if c.sinks.OnError != nil {
		if msg, ok := c.store.Get(c.messageID); ok {
			c.sinks.OnError(msg, &AgentError{Message: p.Message})
		}
	}
}

func (c *Controller) handleUnknown(env stream.Envelope) {
	c.log.Debug("Ignoring unknown event type", "type", env.Type)
	if c.sinks.OnUnknown != nil {
		c.sinks.OnUnknown(env.Type)
	}
}

// connectionError moves the session to errored without flagging the message
// as a solver error bubble.
func (c *Controller) connectionError(err error) {
	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseErrored
	c.mu.Unlock()

	text := fmt.Sprintf("Connection error: %v", err)
	empty := ""
	c.patch(chat.MessagePatch{Text: &text, StreamingSessionID: &empty})

	c.log.Warn("Session lost its stream", "session_id", c.id, "error", err)

	if c.sinks.OnError != nil {
		if msg, ok := c.store.Get(c.messageID); ok {
			c.sinks.OnError(msg, err)
		}
	}
}

// detach clears the streaming marker after a user cancel, leaving text and
// progress as they were.
func (c *Controller) detach() {
	empty := ""
	c.patch(chat.MessagePatch{StreamingSessionID: &empty})
}

// raiseProgress ratchets progress toward target, never past 100 and never
// backwards. Callers must hold c.mu.
func (c *Controller) raiseProgress(target int) int {
	if target > 100 {
		target = 100
	}
	if target > c.progress {
		c.progress = target
	}
	return c.progress
}

func (c *Controller) patch(p chat.MessagePatch) {
	if err := c.store.UpdateByID(c.messageID, p); err != nil {
		c.log.Warn("Failed to update message", "message_id", c.messageID, "error", err)
		return
	}
	if c.sinks.OnUpdate != nil {
		c.sinks.OnUpdate()
	}
}

// placeStep puts a step at its 1-based position, overwriting a duplicate
// delivery and appending when the number runs ahead of what we have.
func placeStep(steps []chat.SolutionStep, step chat.SolutionStep, number int) []chat.SolutionStep {
	if number >= 1 && number <= len(steps) {
		steps[number-1] = step
		return steps
	}
	return append(steps, step)
}

func solutionFromData(d stream.SolutionData) chat.Solution {
	steps := make([]chat.SolutionStep, 0, len(d.Steps))
	for _, s := range d.Steps {
		steps = append(steps, chat.SolutionStep{Step: s.Step, Text: s.Text, Type: s.Type})
	}
	return chat.Solution{
		Route:                  d.Route,
		Confidence:             d.Confidence,
		Steps:                  steps,
		FinalAnswer:            d.FinalAnswer,
		ConversationalResponse: d.ConversationalResponse,
		FollowUpSuggestions:    append([]string(nil), d.FollowUpSuggestions...),
		RequestType:            d.RequestType,
		SessionID:              d.SessionID,
		ContextAware:           d.ContextAware,
	}
}
