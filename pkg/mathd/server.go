// Package mathd is a development solver service speaking the same wire
// protocol as the hosted math tutor: a streaming solve endpoint plus
// feedback, learning stats, health and context lookups. It lets the client
// run end to end without the upstream deployment.
package mathd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stepwisehq/stepwise/pkg/chat"
	"github.com/stepwisehq/stepwise/pkg/logger"
)

const defaultStepDelay = 300 * time.Millisecond

// Options configures a Server. Zero values select in-memory storage, the
// builtin solver and the default pacing.
type Options struct {
	// DBPath is the SQLite feedback database; empty means in-memory.
	DBPath string
	// KBDir persists the knowledge base; empty keeps it in memory.
	KBDir string
	// MinScore is the knowledge base routing floor; 0 means the default.
	MinScore float64
	// StepDelay paces step_generated events; 0 means the default, negative
	// disables pacing.
	StepDelay time.Duration
	// Provider selects the fallback solver; "ollama" enables the model
	// backed one.
	Provider string
	// OllamaURL and OllamaModel configure the ollama provider; OllamaTimeout
	// bounds each model call, 0 leaving it to the request context.
	OllamaURL     string
	OllamaModel   string
	OllamaTimeout time.Duration
}

// Server hosts the solver API on a gin engine.
type Server struct {
	engine       *gin.Engine
	contexts     *ContextManager
	feedback     *FeedbackStore
	kb           *KnowledgeBase
	solver       Solver
	solveTimeout time.Duration
	stepDelay    time.Duration
	log          *logger.Logger
}

// NewServer builds a ready-to-serve solver service: feedback store opened
// and migrated, knowledge base seeded, routes registered.
func NewServer(opts Options) (*Server, error) {
	log := logger.WithComponent("mathd")

	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = ":memory:"
	}
	feedback, err := OpenFeedbackStore(dbPath)
	if err != nil {
		return nil, err
	}

	kb, err := NewKnowledgeBase(opts.KBDir, opts.MinScore)
	if err != nil {
		feedback.Close()
		return nil, err
	}
	if err := kb.Seed(context.Background(), seedProblems()); err != nil {
		feedback.Close()
		return nil, err
	}

	var solv Solver = BuiltinSolver{}
	var solveTimeout time.Duration
	if opts.Provider == "ollama" {
		ollamaSolver, err := NewOllamaSolver(opts.OllamaURL, opts.OllamaModel)
		if err != nil {
			feedback.Close()
			return nil, err
		}
		solv = ollamaSolver
		solveTimeout = opts.OllamaTimeout
	}

	stepDelay := opts.StepDelay
	if stepDelay == 0 {
		stepDelay = defaultStepDelay
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:       engine,
		contexts:     NewContextManager(),
		feedback:     feedback,
		kb:           kb,
		solver:       solv,
		solveTimeout: solveTimeout,
		stepDelay:    stepDelay,
		log:          log,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.POST("/solve", s.handleSolve)
	api.POST("/feedback", s.handleFeedback)
	api.GET("/learning-stats", s.handleLearningStats)
	api.GET("/health", s.handleHealth)
	api.GET("/context/:session_id", s.handleContext)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Close releases the feedback database.
func (s *Server) Close() error {
	return s.feedback.Close()
}

// Run serves on listen until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Run(ctx context.Context, listen string) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Solver server listening", "addr", listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("Solver server stopped")
	return nil
}

type solveRequest struct {
	Question            string              `json:"question"`
	SessionID           string              `json:"session_id"`
	ConversationHistory []chat.HistoryEntry `json:"conversation_history"`
}

func (s *Server) handleSolve(c *gin.Context) {
	var req solveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Question required"})
		return
	}
	if s.solver == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Math agent not ready"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("session_%d", time.Now().Unix())
	}
	requestType := chat.DetectRequestType(question)

	s.contexts.ImportHistory(sessionID, req.ConversationHistory)
	s.contexts.AddMessage(sessionID, chat.RoleUser, question, requestType)
	historyLen := len(s.contexts.History(sessionID))

	s.log.Info("Solve stream opened",
		"session_id", sessionID,
		"request_type", requestType,
		"history_len", historyLen)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events := make(chan any, 8)
	go s.solveEvents(c.Request.Context(), events, question, sessionID, requestType, historyLen)

	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		writeEvent(w, event)
		return true
	})
}

// writeEvent frames one payload as an SSE data line.
func writeEvent(w io.Writer, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// solveEvents produces the solve stream. It owns the events channel and
// closes it when the stream is done or the client has gone away.
func (s *Server) solveEvents(ctx context.Context, events chan<- any, question, sessionID, requestType string, historyLen int) {
	defer close(events)

	gone := false
	emit := func(payload any) {
		if gone {
			return
		}
		select {
		case events <- payload:
		case <-ctx.Done():
			gone = true
		}
	}

	mode := "solving"
	if requestType == chat.RequestTypeTeaching {
		mode = "teaching"
	}

	emit(gin.H{"type": "connected", "session_id": sessionID})
	emit(gin.H{
		"type":     "processing_started",
		"message":  "Starting to solve your math problem...",
		"question": truncate(question, 100),
	})
	emit(gin.H{
		"type":     "step_update",
		"step":     1,
		"message":  fmt.Sprintf("Initializing %s mode for your question...", mode),
		"progress": 15,
	})
	emit(gin.H{"type": "routing", "message": "Analyzing your question..."})
	if gone {
		return
	}

	route, confidence, hit := s.kb.Route(ctx, question)
	emit(gin.H{
		"type":       "routing_result",
		"route":      route,
		"confidence": confidence,
		"message":    fmt.Sprintf("Used %s route", route),
	})
	emit(gin.H{
		"type":     "step_update",
		"step":     2,
		"message":  "Generating step-by-step solution...",
		"progress": 50,
	})
	if gone {
		return
	}

	worked, err := s.workQuestion(ctx, question, hit)
	if err != nil {
		s.log.Error("Solve failed", "session_id", sessionID, "error", err)
		emit(gin.H{"type": "error", "message": fmt.Sprintf("Error: %v", err)})
		return
	}

	steps := worked.Steps
	if len(steps) == 0 {
		steps = defaultSteps()
	}
	for i, step := range steps {
		emit(gin.H{
			"type":        "step_generated",
			"step_number": i + 1,
			"total_steps": len(steps),
			"step_data":   step,
		})
		if gone || !sleepFor(ctx, s.stepDelay) {
			return
		}
	}

	emit(gin.H{
		"type":     "step_update",
		"step":     3,
		"message":  fmt.Sprintf("Finalizing %s response...", mode),
		"progress": 90,
	})

	solution := Solution{
		Steps:                  steps,
		FinalAnswer:            worked.FinalAnswer,
		Confidence:             confidence,
		Route:                  route,
		ConversationalResponse: conversationalResponse(requestType, worked.FinalAnswer),
		FollowUpSuggestions:    followUpSuggestions(requestType),
		RequestType:            requestType,
		SessionID:              sessionID,
		ContextAware:           historyLen > 1,
	}

	assistantText := solution.ConversationalResponse
	if assistantText == "" {
		assistantText = "Solution provided"
	}
	s.contexts.AddMessage(sessionID, chat.RoleAssistant, assistantText, requestType)

	emit(gin.H{"type": "completion", "message": "Solution complete!", "progress": 95})
	emit(gin.H{"type": "solution_complete", "data": solution})
}

// workQuestion runs the configured solver, falling back to the matched
// problem's stored steps when the solver cannot handle the question.
func (s *Server) workQuestion(ctx context.Context, question string, hit *Problem) (*Worked, error) {
	if s.solveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.solveTimeout)
		defer cancel()
	}
	worked, err := s.solver.Solve(ctx, question)
	if err == nil {
		return worked, nil
	}
	if !errors.Is(err, ErrCannotSolve) {
		return nil, err
	}
	if hit != nil {
		return hit.worked(), nil
	}
	return &Worked{}, nil
}

type feedbackRequest struct {
	Question         string          `json:"question"`
	OriginalSolution json.RawMessage `json:"original_solution"`
	UserRating       int             `json:"user_rating"`
	UserComment      string          `json:"user_comment"`
	CorrectedAnswer  string          `json:"corrected_answer"`
	CorrectedSteps   []string        `json:"corrected_steps"`
	SessionID        string          `json:"session_id"`
}

func (s *Server) handleFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}
	if req.UserRating < 1 || req.UserRating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Rating must be between 1 and 5"})
		return
	}

	var solution struct {
		Route      string  `json:"route"`
		Confidence float64 `json:"confidence"`
	}
	if len(req.OriginalSolution) > 0 {
		if err := json.Unmarshal(req.OriginalSolution, &solution); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid original_solution"})
			return
		}
	}
	route := solution.Route
	if route == "" {
		route = "unknown"
	}

	correctedSteps := ""
	if len(req.CorrectedSteps) > 0 {
		if data, err := json.Marshal(req.CorrectedSteps); err == nil {
			correctedSteps = string(data)
		}
	}
	originalSolution := string(req.OriginalSolution)
	if originalSolution == "" {
		originalSolution = "{}"
	}

	id, err := s.feedback.Insert(c.Request.Context(), FeedbackEntry{
		Question:         req.Question,
		OriginalSolution: originalSolution,
		UserRating:       req.UserRating,
		UserComment:      req.UserComment,
		CorrectedAnswer:  req.CorrectedAnswer,
		CorrectedSteps:   correctedSteps,
		IsHelpful:        req.UserRating >= 3,
		RouteUsed:        route,
		Confidence:       solution.Confidence,
		Topic:            "mathematics",
		Difficulty:       0,
		SessionID:        req.SessionID,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		s.log.Error("Failed to store feedback", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to store feedback"})
		return
	}

	improvement := req.UserRating <= 2
	if improvement {
		s.log.Info("Low rating, queueing solver improvement",
			"feedback_id", id,
			"rating", req.UserRating)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":                "success",
		"message":               "Feedback received! This will help improve our math tutoring.",
		"feedback_id":           id,
		"improvement_triggered": improvement,
	})
}

func (s *Server) handleLearningStats(c *gin.Context) {
	stats, err := s.feedback.Stats(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrNoFeedback) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "no_feedback",
				"message": "No feedback data available yet",
			})
			return
		}
		s.log.Error("Failed to aggregate feedback", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleHealth(c *gin.Context) {
	conversations, messages := s.contexts.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":                "healthy",
		"streaming":             "enabled",
		"active_conversations":  conversations,
		"total_stored_messages": messages,
	})
}

func (s *Server) handleContext(c *gin.Context) {
	c.JSON(http.StatusOK, s.contexts.Snapshot(c.Param("session_id")))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// sleepFor pauses between step events, giving up early when the client
// disconnects. Non-positive delays skip the pause.
func sleepFor(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
