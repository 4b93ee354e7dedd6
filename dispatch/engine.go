package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/dhcgn/mailbox-grant/model"
	"github.com/dhcgn/mailbox-grant/stats"
)

// Observer is told about every message in send order.
type Observer interface {
	// Before runs ahead of the message at the 0-based index.
	Before(index, total int, elapsed time.Duration)
	// After runs once the message has its final outcome.
	After(res stats.Result)
}

// FailureLog durably records failed deliveries as they happen.
type FailureLog interface {
	AppendFailure(endpoint string, res stats.Result) error
}

// Engine sends prepared messages strictly one after another.
type Engine struct {
	client   *Client
	observer Observer
	failures FailureLog
	logger   *slog.Logger
	now      func() time.Time
}

func NewEngine(client *Client, observer Observer, failures FailureLog, logger *slog.Logger) *Engine {
	return &Engine{
		client:   client,
		observer: observer,
		failures: failures,
		logger:   logger,
		now:      time.Now,
	}
}

// DispatchAll delivers every message in input order and returns the run summary.
// Delivery failures are recorded, never returned. A cancelled context stops the
// run before the next message; the summary is interrupted only if a message was
// left without an outcome.
func (e *Engine) DispatchAll(ctx context.Context, messages []model.Prepared) *stats.Summary {
	summary := stats.NewSummary(len(messages))
	start := e.now()

	for i, msg := range messages {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		if e.observer != nil {
			e.observer.Before(i, len(messages), e.now().Sub(start))
		}

		res := e.client.Deliver(ctx, msg)
		summary.Add(res)
		if !res.Delivered && e.failures != nil {
			if err := e.failures.AppendFailure(e.client.Endpoint(), res); err != nil && e.logger != nil {
				e.logger.Error("failure log append failed", "line", res.Line, "err", err)
			}
		}
		if e.observer != nil {
			e.observer.After(res)
		}
	}

	summary.Elapsed = e.now().Sub(start)
	if e.logger != nil {
		e.logger.Info("dispatch finished", summary.LogAttrs()...)
	}
	return summary
}
