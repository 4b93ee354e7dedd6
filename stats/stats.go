package stats

import (
	"time"
)

// Result is the final outcome of delivering one message.
type Result struct {
	Line       int
	SourceLine int
	RequestID  string
	Delivered  bool
	// Status is the last HTTP status seen, or 0 when no response arrived.
	Status   int
	Attempts int
	// RequestBody and ResponseBody are only kept for failed deliveries.
	RequestBody  []byte
	ResponseBody []byte
	Err          error
}

// Retries is the number of attempts after the first one.
func (r Result) Retries() int {
	if r.Attempts <= 1 {
		return 0
	}
	return r.Attempts - 1
}

// Summary accumulates results for one run. It is owned by a single goroutine.
type Summary struct {
	Total       int
	Sent        int
	Failed      []int
	Failures    []Result
	Elapsed     time.Duration
	Interrupted bool
}

// NewSummary starts a summary expecting total messages.
func NewSummary(total int) *Summary {
	return &Summary{Total: total}
}

// Add folds one result into the summary.
func (s *Summary) Add(res Result) {
	if res.Delivered {
		s.Sent++
		return
	}
	s.Failed = append(s.Failed, res.Line)
	s.Failures = append(s.Failures, res)
}

// Processed is the number of messages with a final outcome.
func (s *Summary) Processed() int {
	return s.Sent + len(s.Failed)
}

// OK reports whether every message was delivered.
func (s *Summary) OK() bool {
	return !s.Interrupted && len(s.Failed) == 0 && s.Processed() == s.Total
}

func (s *Summary) LogAttrs() []any {
	attrs := []any{
		"total", s.Total,
		"sent", s.Sent,
		"failed", len(s.Failed),
		"elapsed", s.Elapsed,
	}
	if s.Interrupted {
		attrs = append(attrs, "interrupted", true)
	}
	if n := len(s.Failures); n > 0 {
		last := s.Failures[n-1]
		attrs = append(attrs, "lastFailedLine", last.Line, "lastStatus", last.Status)
	}
	return attrs
}
