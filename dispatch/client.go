package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dhcgn/mailbox-grant/model"
	"github.com/dhcgn/mailbox-grant/stats"
)

const maxResponseBody = 1 << 20

// Recorder receives per-attempt and per-message observations.
type Recorder interface {
	ObserveAttempt(status int, latency time.Duration)
	ObserveResult(res stats.Result)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(int, time.Duration) {}
func (nopRecorder) ObserveResult(stats.Result)        {}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Options struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
	Sleep      SleepFunc
	Recorder   Recorder
}

// Client posts grant payloads to the mailbox endpoint.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	sleep    SleepFunc
	recorder Recorder
	logger   *slog.Logger
}

func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q must be an http(s) URL", opts.Endpoint)
	}
	if opts.Token == "" {
		return nil, fmt.Errorf("admin token is empty")
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{
			Timeout: timeout,
			// 3xx is classified like any other status, so it must reach Classify.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	var recorder Recorder = nopRecorder{}
	if opts.Recorder != nil {
		recorder = opts.Recorder
	}

	return &Client{
		endpoint: opts.Endpoint,
		token:    opts.Token,
		http:     client,
		sleep:    sleep,
		recorder: recorder,
		logger:   logger,
	}, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

type attempt struct {
	status int
	body   []byte
	err    error
}

// Deliver drives one message through Pending, InFlight and RetryWait until it
// either succeeds or fails terminally. Only one request is ever outstanding.
func (c *Client) Deliver(ctx context.Context, p model.Prepared) stats.Result {
	res := stats.Result{
		Line:       p.Line,
		SourceLine: p.SourceLine,
		RequestID:  uuid.NewString(),
	}

	var last attempt
	state := StatePending
	for !state.Final() {
		switch state {
		case StatePending:
			state = StateInFlight
		case StateInFlight:
			res.Attempts++
			last = c.post(ctx, p.Payload, res.RequestID)
			outcome := OutcomeRetryable
			if last.status != 0 {
				outcome = Classify(last.status)
			}
			if outcome == OutcomeRetryable && ctx.Err() != nil {
				outcome = OutcomeTerminal
			}
			state = next(outcome, res.Attempts)
			if c.logger != nil {
				c.logger.Debug("delivery attempt", "line", p.Line, "attempt", res.Attempts, "status", last.status, "outcome", outcome, "state", state, "requestID", res.RequestID, "err", last.err)
			}
		case StateRetryWait:
			wait := Backoff(res.Attempts)
			if err := c.sleep(ctx, wait); err != nil {
				last.err = err
				state = StateFailedTerminal
				continue
			}
			state = StateInFlight
		}
	}

	res.Status = last.status
	if state == StateSucceeded {
		res.Delivered = true
	} else {
		res.RequestBody = p.Payload
		res.ResponseBody = last.body
		if last.err != nil && len(last.body) == 0 {
			res.ResponseBody = []byte(last.err.Error())
		}
		res.Err = &DeliveryError{
			Status:   last.status,
			Body:     string(last.body),
			Attempts: res.Attempts,
			Terminal: true,
			Err:      last.err,
		}
	}
	c.recorder.ObserveResult(res)
	return res
}

func (c *Client) post(ctx context.Context, payload []byte, requestID string) attempt {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return attempt{err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.recorder.ObserveAttempt(0, time.Since(start))
		return attempt{err: fmt.Errorf("post: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	c.recorder.ObserveAttempt(resp.StatusCode, time.Since(start))
	if err != nil {
		return attempt{status: resp.StatusCode, err: fmt.Errorf("read response: %w", err)}
	}
	return attempt{status: resp.StatusCode, body: body}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
