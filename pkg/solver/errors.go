package solver

import "fmt"

// ConnectionError reports a failure to open the solve stream, either because
// the server was unreachable or because it answered with a non-2xx status.
// It is distinct from an error event on an open stream.
type ConnectionError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ConnectionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("solve request to %s failed with status: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("solve request to %s failed: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// FeedbackError reports a rejected feedback submission.
type FeedbackError struct {
	StatusCode int
	Body       string
}

func (e *FeedbackError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("feedback request failed with status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("feedback request failed with status: %d", e.StatusCode)
}
