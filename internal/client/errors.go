package client

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError is returned when the service rejects a create or submission
// with 400. Fields is empty for the direct create path.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// TransientFetchError reports a failed list retrieval. The cache keeps its
// last-known list when it sees one and retries on the next poll.
type TransientFetchError struct {
	// StatusCode is zero when no response was received.
	StatusCode int
	Err        error
}

func (e *TransientFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch organizations (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("failed to fetch organizations: %v", e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// SubmissionError reports a create or submission that failed for a reason
// other than validation.
type SubmissionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("failed to submit organization: %v", e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("failed to submit organization (status %d): %s", e.StatusCode, e.Message)
	default:
		return "failed to submit organization: " + e.Message
	}
}

func (e *SubmissionError) Unwrap() error { return e.Err }
