package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"

	"github.com/dhcgn/mailbox-grant/stats"
)

func TestFormatETA(t *testing.T) {
	cases := map[int64]string{
		0:       "0s",
		999:     "0s",
		42_000:  "42s",
		60_000:  "0s",
		61_000:  "1m1s",
		185_500: "3m5s",
	}
	for ms, want := range cases {
		assert.Equal(t, want, FormatETA(ms), "ms=%d", ms)
	}
}

func TestProgressLine(t *testing.T) {
	line := ProgressLine(100, 400, 2*time.Second)
	assert.Equal(t, " 100 sent (25 %) | 2000ms elapsed | 6s ETA", line)

	line = ProgressLine(100, 800, 30*time.Second)
	assert.Equal(t, " 100 sent (12 %) | 30000ms elapsed | 3m30s ETA", line)

	line = ProgressLine(100, 1600, 10*time.Second)
	assert.Equal(t, " 100 sent ( 6 %) | 10000ms elapsed | 2m30s ETA", line)
}

func TestBefore_OnlyEveryHundred(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	for i := 0; i < 250; i++ {
		r.Before(i, 250, time.Second)
	}
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "sent ("))
	assert.Contains(t, out, " 100 sent (40 %)")
	assert.Contains(t, out, " 200 sent (80 %)")
}

func TestAfter_Markers(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	r.After(stats.Result{Delivered: true})
	r.After(stats.Result{Delivered: false})
	r.After(stats.Result{Delivered: true})
	assert.Equal(t, ".x.", buf.String())
}

func TestSummary_ListsFailedLines(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	var buf bytes.Buffer
	r := New(&buf)
	summary := stats.NewSummary(5)
	for line := 1; line <= 5; line++ {
		summary.Add(stats.Result{Line: line, Delivered: line != 2 && line != 4})
	}
	summary.Elapsed = 1500 * time.Millisecond

	r.Summary(summary, "grant-log-x.txt")
	out := buf.String()
	assert.Contains(t, out, "2 messages failed on lines:")
	assert.Contains(t, out, "\t2\n\t4\n")
	assert.Contains(t, out, "See 'grant-log-x.txt' for more information.")
	assert.Contains(t, out, "1500ms total elapsed time.")
	assert.NotContains(t, out, "Success!")
}

func TestSummary_Success(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	summary := stats.NewSummary(1)
	summary.Add(stats.Result{Line: 1, Delivered: true})

	r.Summary(summary, "grant-log-x.txt")
	out := pterm.RemoveColorFromString(buf.String())
	assert.Contains(t, out, "Success!  All messages were sent")
	assert.Contains(t, out, "Console output saved to 'grant-log-x.txt'")
}
