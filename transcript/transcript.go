package transcript

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/dhcgn/mailbox-grant/stats"
)

var rule = strings.Repeat("-", 120)

// FileName is the per-run log file name for a run started at the given time.
func FileName(started time.Time) string {
	return fmt.Sprintf("grant-log-%s.txt", started.Format("20060102T150405"))
}

// Transcript mirrors console output into memory and owns the run's log file.
// Failures are appended to the file as they happen; Flush rewrites it once at
// the end with the console transcript followed by those failure blocks.
type Transcript struct {
	path string
	out  io.Writer

	mu       sync.Mutex
	console  bytes.Buffer
	failures *os.File

	flushOnce sync.Once
	flushErr  error
}

func New(dir string, started time.Time, out io.Writer) (*Transcript, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if out == nil {
		out = io.Discard
	}
	return &Transcript{
		path: filepath.Join(dir, FileName(started)),
		out:  out,
	}, nil
}

func (t *Transcript) Path() string {
	return t.path
}

// Write sends p to the console and keeps an uncoloured copy for the log file.
func (t *Transcript) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.console.WriteString(pterm.RemoveColorFromString(string(p)))
	return t.out.Write(p)
}

// String returns the console transcript captured so far.
func (t *Transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.console.String()
}

// AppendFailure writes a diagnostic block for one failed delivery and syncs it
// to disk. The log file is created on the first failure.
func (t *Transcript) AppendFailure(endpoint string, res stats.Result) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failures == nil {
		file, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open failure log: %w", err)
		}
		t.failures = file
	}
	if _, err := io.WriteString(t.failures, FormatFailure(endpoint, res)); err != nil {
		return fmt.Errorf("write failure log: %w", err)
	}
	if err := t.failures.Sync(); err != nil {
		return fmt.Errorf("sync failure log: %w", err)
	}
	return nil
}

// FormatFailure renders everything needed to diagnose or replay one failed delivery.
func FormatFailure(endpoint string, res stats.Result) string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(rule)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "LINE %d", res.Line)
	if retries := res.Retries(); retries > 0 {
		fmt.Fprintf(&sb, " (retried %d times)", retries)
	}
	sb.WriteString("\n")
	if res.SourceLine > 0 {
		fmt.Fprintf(&sb, "CSV line %d\n", res.SourceLine)
	}
	if res.RequestID != "" {
		fmt.Fprintf(&sb, "X-Request-Id: %s\n", res.RequestID)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "POST %s\n%s\n\n", endpoint, res.RequestBody)
	if res.Status == 0 {
		sb.WriteString("HTTP 0 (no response)\n")
	} else {
		fmt.Fprintf(&sb, "HTTP %d %s\n", res.Status, http.StatusText(res.Status))
	}
	sb.Write(res.ResponseBody)
	sb.WriteString("\n")
	sb.WriteString(rule)
	sb.WriteString("\n")
	return sb.String()
}

// Flush persists the console transcript, followed by any failure blocks already
// on disk, to the log file. Only the first call has an effect.
func (t *Transcript) Flush() error {
	t.flushOnce.Do(func() {
		t.flushErr = t.flush()
	})
	return t.flushErr
}

func (t *Transcript) flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failures != nil {
		if err := t.failures.Close(); err != nil {
			return fmt.Errorf("close failure log: %w", err)
		}
		t.failures = nil
	}

	content := t.console.Bytes()
	existing, err := os.ReadFile(t.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read failure log: %w", err)
	default:
		content = append(append(content, "\n\n"...), existing...)
	}

	if err := os.WriteFile(t.path, content, 0o644); err != nil {
		return fmt.Errorf("write log file: %w", err)
	}
	return nil
}
