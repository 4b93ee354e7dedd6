package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhcgn/mailbox-grant/stats"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewRecorder(reg)
	require.NoError(t, err)

	rec.ObserveAttempt(503, 10*time.Millisecond)
	rec.ObserveAttempt(200, 5*time.Millisecond)
	rec.ObserveResult(stats.Result{Delivered: true, Attempts: 2})
	rec.ObserveResult(stats.Result{Attempts: 1})

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.attempts.WithLabelValues("503")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.messages.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.messages.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.retries))
}

func TestNewRecorder_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewRecorder(reg)
	require.NoError(t, err)
	second, err := NewRecorder(reg)
	require.NoError(t, err)

	first.ObserveResult(stats.Result{Delivered: true})
	assert.Equal(t, 1.0, testutil.ToFloat64(second.messages.WithLabelValues("delivered")))
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewRecorder(reg)
	require.NoError(t, err)
	rec.ObserveResult(stats.Result{Delivered: true, Attempts: 1})

	path := filepath.Join(t.TempDir(), "grant.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `grant_messages_total{outcome="delivered"} 1`))
}
