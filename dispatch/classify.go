package dispatch

import (
	"fmt"
	"net/http"
	"time"
)

// Outcome is the classification of a single delivery attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeTerminal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	default:
		return "terminal"
	}
}

// Classify maps an HTTP status onto an outcome: 2xx succeeds, 3xx and 5xx are
// retried, everything else fails the message.
func Classify(status int) Outcome {
	switch {
	case status >= 200 && status <= 299:
		return OutcomeSuccess
	case status >= 300 && status <= 399, status >= 500 && status <= 599:
		return OutcomeRetryable
	default:
		return OutcomeTerminal
	}
}

const (
	// MaxRetries caps how often one message is resent after its first attempt.
	MaxRetries = 4
	// MaxAttempts is the first attempt plus every retry.
	MaxAttempts = MaxRetries + 1
)

// Backoff is the wait before the given retry (1-based): 2^(5+retry) milliseconds.
func Backoff(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	return time.Duration(1<<uint(5+retry)) * time.Millisecond
}

// DeliveryError describes a message the mailbox did not accept.
type DeliveryError struct {
	Status   int
	Body     string
	Attempts int
	// Terminal is false only while retries remain.
	Terminal bool
	Err      error
}

func (e *DeliveryError) Error() string {
	kind := "transient"
	if e.Terminal {
		kind = "terminal"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s delivery failure after %d attempt(s): %v", kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s delivery failure after %d attempt(s): HTTP %d %s", kind, e.Attempts, e.Status, http.StatusText(e.Status))
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
