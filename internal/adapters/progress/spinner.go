package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

// SpinnerSink renders progress events with a terminal spinner
type SpinnerSink struct {
	spinner    *spinner.Spinner
	out        io.Writer
	stage      string
	stageStart time.Time
}

func NewSpinnerSink() *SpinnerSink {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.HideCursor = false
	return &SpinnerSink{spinner: s, out: os.Stderr}
}

// OnProgress starts, updates or stops the spinner
func (r *SpinnerSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	if event.Stage != r.stage {
		r.stage = event.Stage
		r.stageStart = time.Now()
	}

	if !event.Spinner {
		if r.spinner.Active() {
			r.spinner.Stop()
		}
		return
	}

	r.spinner.Suffix = " " + formatEvent(event, time.Since(r.stageStart))
	if !r.spinner.Active() {
		r.spinner.Start()
	}
}

func (r *SpinnerSink) Info(message string) {
	r.pause(func() { color.New(color.FgCyan).Fprintln(r.out, message) })
}

func (r *SpinnerSink) Error(message string) {
	r.pause(func() { color.New(color.FgRed).Fprintln(r.out, message) })
}

// Stop halts the spinner if running
func (r *SpinnerSink) Stop() {
	if r.spinner.Active() {
		r.spinner.Stop()
	}
}

func (r *SpinnerSink) pause(print func()) {
	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}
	print()
	if wasActive {
		r.spinner.Start()
	}
}

func formatEvent(event usecase.ProgressEvent, elapsed time.Duration) string {
	msg := event.Message
	if event.Total > 1 {
		msg = fmt.Sprintf("%s %s", msg, color.New(color.Faint).Sprintf("[%d/%d]", event.Current, event.Total))
	}
	if elapsed >= time.Second {
		msg = fmt.Sprintf("%s (%s)", msg, elapsed.Round(time.Second))
	}
	return msg
}

var _ usecase.ProgressSink = (*SpinnerSink)(nil)
