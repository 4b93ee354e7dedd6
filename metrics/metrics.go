package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dhcgn/mailbox-grant/stats"
)

// Recorder keeps delivery counters for a run in Prometheus collectors.
type Recorder struct {
	attempts *prometheus.CounterVec
	latency  prometheus.Histogram
	messages *prometheus.CounterVec
	retries  prometheus.Counter
}

// NewRecorder registers the grant collectors on reg. If reg is nil the default
// registerer is used; collectors that are already registered are reused.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grant_delivery_attempts_total",
		Help: "HTTP attempts made against the mailbox endpoint, by status code (0 for no response)",
	}, []string{"code"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "grant_delivery_attempt_duration_seconds",
		Help:    "Round-trip time of a single delivery attempt",
		Buckets: prometheus.DefBuckets,
	})
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grant_messages_total",
		Help: "Messages with a final outcome",
	}, []string{"outcome"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grant_delivery_retries_total",
		Help: "Attempts beyond the first one for any message",
	})

	var err error
	if attempts, err = register(reg, attempts); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if messages, err = register(reg, messages); err != nil {
		return nil, err
	}
	if retries, err = register(reg, retries); err != nil {
		return nil, err
	}
	return &Recorder{attempts: attempts, latency: latency, messages: messages, retries: retries}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (r *Recorder) ObserveAttempt(status int, latency time.Duration) {
	r.attempts.WithLabelValues(strconv.Itoa(status)).Inc()
	r.latency.Observe(latency.Seconds())
}

func (r *Recorder) ObserveResult(res stats.Result) {
	outcome := "failed"
	if res.Delivered {
		outcome = "delivered"
	}
	r.messages.WithLabelValues(outcome).Inc()
	r.retries.Add(float64(res.Retries()))
}

// WriteTextfile dumps everything gathered by g in the node exporter textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
