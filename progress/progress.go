package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"

	"github.com/dhcgn/mailbox-grant/stats"
)

// Every is how many messages pass between throughput lines.
const Every = 100

// Reporter writes the operator-facing console output of a run: a marker per
// message, a throughput line every hundred messages and the final report.
type Reporter struct {
	out     io.Writer
	info    *pterm.PrefixPrinter
	warning *pterm.PrefixPrinter
	success *pterm.PrefixPrinter
	failure *pterm.PrefixPrinter
}

func New(out io.Writer) *Reporter {
	return &Reporter{
		out:     out,
		info:    pterm.Info.WithWriter(out),
		warning: pterm.Warning.WithWriter(out),
		success: pterm.Success.WithWriter(out),
		failure: pterm.Error.WithWriter(out),
	}
}

func (r *Reporter) Infof(format string, args ...any) {
	r.info.Printfln(format, args...)
}

func (r *Reporter) Errorf(format string, args ...any) {
	r.failure.Printfln(format, args...)
}

// Println writes an unstyled line, used for payload dumps.
func (r *Reporter) Println(a ...any) {
	fmt.Fprintln(r.out, a...)
}

// Before prints the throughput line ahead of every hundredth message.
func (r *Reporter) Before(index, total int, elapsed time.Duration) {
	if index <= 0 || index%Every != 0 || total <= 0 {
		return
	}
	fmt.Fprintln(r.out, ProgressLine(index, total, elapsed))
}

// After prints "." for a delivered message and "x" for a failed one.
func (r *Reporter) After(res stats.Result) {
	if res.Delivered {
		fmt.Fprint(r.out, ".")
		return
	}
	fmt.Fprint(r.out, "x")
}

// ProgressLine renders count sent, percent complete, elapsed time and ETA.
func ProgressLine(index, total int, elapsed time.Duration) string {
	elapsedMs := elapsed.Milliseconds()
	completion := float64(index) / float64(total)
	percent := int(completion * 100)
	remaining := int64(float64(elapsedMs)/completion) - elapsedMs
	return fmt.Sprintf(" %d sent (%2d %%) | %dms elapsed | %s ETA", index, percent, elapsedMs, FormatETA(remaining))
}

// FormatETA renders milliseconds as "<m>m<s>s", leaving out minutes unless more
// than a minute remains.
func FormatETA(remainingMs int64) string {
	minutes := ""
	if remainingMs > 60_000 {
		minutes = fmt.Sprintf("%dm", remainingMs/60_000)
	}
	return fmt.Sprintf("%s%ds", minutes, (remainingMs/1_000)%60)
}

// Summary prints the final report naming every failed line and the log file.
func (r *Reporter) Summary(summary *stats.Summary, logPath string) {
	fmt.Fprintln(r.out)

	totalTime := fmt.Sprintf("%dms total elapsed time.", summary.Elapsed.Milliseconds())
	if summary.Interrupted {
		r.warning.Printfln("Interrupted after %d of %d messages.  See '%s' for more information.  %s",
			summary.Processed(), summary.Total, logPath, totalTime)
	}
	if len(summary.Failed) > 0 {
		r.warning.Printfln("%d messages failed on lines:", len(summary.Failed))
		for _, line := range summary.Failed {
			fmt.Fprintf(r.out, "\t%d\n", line)
		}
		fmt.Fprintln(r.out)
		r.warning.Printfln("See '%s' for more information.  %s", logPath, totalTime)
		return
	}
	if !summary.Interrupted {
		r.success.Printfln("Success!  All messages were sent, and all the responses were 200-level status codes.  Console output saved to '%s'.  %s",
			logPath, totalTime)
	}
}
