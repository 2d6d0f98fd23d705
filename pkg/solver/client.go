package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stepwisehq/stepwise/pkg/chat"
	"github.com/stepwisehq/stepwise/pkg/logger"
	"github.com/stepwisehq/stepwise/pkg/stream"
)

// Client talks to the math solver service. Request/response endpoints share
// a bounded http.Client; the solve stream uses an unbounded one, since an
// overall request timeout would kill long-running streams mid-solution.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	idleTimeout  time.Duration
	log          *logger.Logger
}

type Option func(*Client)

// WithTimeout bounds the request/response endpoints (feedback, stats,
// health, context). It does not apply to the solve stream.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithIdleTimeout arms the stream watchdog: a solve stream that goes silent
// for longer than d is cancelled with stream.ErrIdleTimeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.idleTimeout = d
	}
}

// WithHTTPClient swaps both underlying clients, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
		c.streamClient = hc
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		streamClient: &http.Client{},
		log:          logger.WithComponent("solver"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenSolveStream posts the question and returns the live event stream. The
// caller owns the stream and must drain or cancel it. Failures to open are
// returned as *ConnectionError; once the stream is open, server-side
// failures arrive as error events on it.
func (c *Client) OpenSolveStream(ctx context.Context, req SolveRequest) (*stream.Stream, error) {
	url := fmt.Sprintf("%s/api/solve", c.baseURL)

	if req.ConversationHistory == nil {
		req.ConversationHistory = []chat.HistoryEntry{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode solve request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build solve request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, &ConnectionError{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &ConnectionError{URL: url, StatusCode: resp.StatusCode}
	}

	c.log.Debug("Solve stream opened", "url", url, "session_id", req.SessionID)
	return stream.New(ctx, resp.Body, stream.Options{IdleTimeout: c.idleTimeout}), nil
}

// SubmitFeedback rates a solution. Rejections come back as *FeedbackError.
func (c *Client) SubmitFeedback(ctx context.Context, req FeedbackRequest) (*FeedbackResponse, error) {
	url := fmt.Sprintf("%s/api/feedback", c.baseURL)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode feedback request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build feedback request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to submit feedback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &FeedbackError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var feedbackResponse FeedbackResponse
	if err := json.NewDecoder(resp.Body).Decode(&feedbackResponse); err != nil {
		return nil, fmt.Errorf("failed to decode feedback response: %w", err)
	}
	return &feedbackResponse, nil
}

// LearningStats fetches aggregate feedback statistics.
func (c *Client) LearningStats(ctx context.Context) (*LearningStats, error) {
	url := fmt.Sprintf("%s/api/learning-stats", c.baseURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build learning stats request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to get learning stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("learning stats request failed with status: %d", resp.StatusCode)
	}

	var stats LearningStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode learning stats response: %w", err)
	}
	return &stats, nil
}

// Health checks the solver's health endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	url := fmt.Sprintf("%s/api/health", c.baseURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to get health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health request failed with status: %d", resp.StatusCode)
	}

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &health, nil
}

// SessionContext fetches the server-side history for a session.
func (c *Client) SessionContext(ctx context.Context, sessionID string) (*SessionContext, error) {
	url := fmt.Sprintf("%s/api/context/%s", c.baseURL, sessionID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build context request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to get session context: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("context request failed with status: %d", resp.StatusCode)
	}

	var sessionContext SessionContext
	if err := json.NewDecoder(resp.Body).Decode(&sessionContext); err != nil {
		return nil, fmt.Errorf("failed to decode context response: %w", err)
	}
	return &sessionContext, nil
}
