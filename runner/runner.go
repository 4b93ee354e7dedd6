package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dhcgn/mailbox-grant/config"
	"github.com/dhcgn/mailbox-grant/dispatch"
	"github.com/dhcgn/mailbox-grant/grant"
	"github.com/dhcgn/mailbox-grant/metrics"
	"github.com/dhcgn/mailbox-grant/progress"
	"github.com/dhcgn/mailbox-grant/stats"
	"github.com/dhcgn/mailbox-grant/transcript"
)

var (
	// ErrDeliveryFailures is returned when the run finished but some lines were not accepted.
	ErrDeliveryFailures = errors.New("some messages were not delivered")
	// ErrInterrupted is returned when the run was cancelled before every message had an outcome.
	ErrInterrupted = errors.New("run interrupted")
)

// Deps are the collaborators of a run. Console is required; the rest default.
type Deps struct {
	Console    *transcript.Transcript
	Logger     *slog.Logger
	HTTPClient *http.Client
	Sleep      dispatch.SleepFunc
	Now        func() time.Time
	Registry   *prometheus.Registry
}

type Runner struct {
	opts     config.Options
	logger   *slog.Logger
	console  *transcript.Transcript
	report   *progress.Reporter
	http     *http.Client
	sleep    dispatch.SleepFunc
	now      func() time.Time
	registry *prometheus.Registry

	summary *stats.Summary
}

func New(opts config.Options, deps Deps) (*Runner, error) {
	if deps.Console == nil {
		return nil, fmt.Errorf("console transcript must not be nil")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Runner{
		opts:     opts,
		logger:   logger,
		console:  deps.Console,
		report:   progress.New(deps.Console),
		http:     deps.HTTPClient,
		sleep:    deps.Sleep,
		now:      now,
		registry: registry,
	}, nil
}

// Reporter exposes the console reporter so callers can print through the transcript.
func (r *Runner) Reporter() *progress.Reporter {
	return r.report
}

// Summary returns the dispatch summary, or nil if dispatch never started.
func (r *Runner) Summary() *stats.Summary {
	return r.summary
}

// Run loads the environment, reads and validates the whole grant file and only
// then sends the messages one by one. Every fatal condition is reported on the
// console before it is returned.
func (r *Runner) Run(ctx context.Context) error {
	envFile := r.opts.EnvironmentFile()
	r.report.Infof("Reading configuration values from '%s'.", envFile)
	settings, err := config.LoadSettings(envFile)
	if err != nil {
		r.report.Errorf("Invalid environment values.  Check %s values and try again.", envFile)
		r.report.Println(err)
		return err
	}

	if err := r.opts.CheckGrantFile(); err != nil {
		r.report.Errorf("%v", err)
		return err
	}
	r.report.Infof("Reading grants from '%s'...", r.opts.GrantFile)
	reader, err := grant.NewReader(grant.Options{Path: r.opts.GrantFile, Encoding: r.opts.Encoding}, r.logger)
	if err != nil {
		r.report.Errorf("%v", err)
		return fmt.Errorf("grant.NewReader: %w", err)
	}

	r.report.Infof("Validating headers for correctness...")
	file, err := reader.ReadFile()
	if err != nil {
		r.reportSchemaError(err)
		return err
	}

	prepared, err := grant.Prepare(grant.NewBuilder(r.now), file.Rows)
	if err != nil {
		r.reportSchemaError(err)
		return err
	}

	if r.opts.DryRun {
		r.report.Infof("%d messages found to send.  Dry run, nothing was sent.", len(prepared))
		return nil
	}
	r.report.Infof("%d messages found to send.  Starting...", len(prepared))

	recorder, err := metrics.NewRecorder(r.registry)
	if err != nil {
		return fmt.Errorf("metrics.NewRecorder: %w", err)
	}
	client, err := dispatch.NewClient(dispatch.Options{
		Endpoint:   settings.MailboxEndpoint,
		Token:      settings.AdminToken,
		Timeout:    r.opts.Timeout,
		HTTPClient: r.http,
		Sleep:      r.sleep,
		Recorder:   recorder,
	}, r.logger)
	if err != nil {
		r.report.Errorf("%v", err)
		return fmt.Errorf("dispatch.NewClient: %w", err)
	}

	engine := dispatch.NewEngine(client, r.report, r.console, r.logger)
	r.summary = engine.DispatchAll(ctx, prepared)
	r.report.Summary(r.summary, r.console.Path())

	if r.opts.MetricsFile != "" {
		if err := metrics.WriteTextfile(r.opts.MetricsFile, r.registry); err != nil {
			r.logger.Warn("metrics export failed", "path", r.opts.MetricsFile, "err", err)
		}
	}

	switch {
	case r.summary.Interrupted:
		return fmt.Errorf("%w after %d of %d messages: %v", ErrInterrupted, r.summary.Processed(), r.summary.Total, ctx.Err())
	case !r.summary.OK():
		return fmt.Errorf("%w: %d of %d failed", ErrDeliveryFailures, len(r.summary.Failed), r.summary.Total)
	}
	return nil
}

func (r *Runner) reportSchemaError(err error) {
	var schemaErr *grant.SchemaError
	if !errors.As(err, &schemaErr) {
		r.report.Errorf("%v", err)
		return
	}
	if len(schemaErr.Payload) > 0 {
		r.report.Errorf("Invalid JSON; the message will fail.  Check the grant data on line %d.", schemaErr.Line)
		r.report.Println(string(schemaErr.Payload))
		r.report.Println(schemaErr.Error())
		return
	}
	r.report.Errorf("Invalid grant data.  %v", schemaErr)
}
