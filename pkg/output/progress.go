package output

import (
	"fmt"
	"io"
	"os"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/mediasync/pkg/models"
)

const barTemplate = `{{string . "phase"}} {{counters . }} {{bar . }} {{percent . }} {{string . "item"}}`

// maxItemWidth keeps long file names from wrapping the bar
const maxItemWidth = 40

// ProgressFormatter draws a progress bar on a terminal and falls back to
// human-readable lines elsewhere (pipes, redirects, CI logs).
type ProgressFormatter struct {
	writer    io.Writer
	termWidth int
	bar       *pb.ProgressBar
	fallback  *HumanFormatter
	kind      models.JobKind
}

// NewProgressFormatter creates a new progress bar formatter writing to w
func NewProgressFormatter(w io.Writer) *ProgressFormatter {
	if w == nil {
		w = os.Stdout
	}
	f := &ProgressFormatter{writer: w}

	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			f.termWidth = width
		}
	}
	if f.termWidth == 0 {
		f.fallback = NewHumanFormatter(w)
	}
	return f
}

// Interactive reports whether a bar is drawn
func (f *ProgressFormatter) Interactive() bool {
	return f.fallback == nil
}

// Start initializes the bar
func (f *ProgressFormatter) Start(kind models.JobKind, totalItems int) error {
	if f.fallback != nil {
		return f.fallback.Start(kind, totalItems)
	}

	f.kind = kind
	f.bar = pb.New(totalItems)
	f.bar.SetWriter(f.writer)
	f.bar.SetTemplateString(barTemplate)
	f.bar.SetWidth(f.termWidth)
	f.bar.Set("phase", titleKind(kind))
	f.bar.Start()
	return nil
}

// Progress advances the bar
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	if f.fallback != nil {
		return f.fallback.Progress(update)
	}
	if f.bar == nil {
		return nil
	}

	switch update.Type {
	case UpdateItemStart:
		f.bar.Set("item", truncate(update.Item, maxItemWidth))
	case UpdateItemEnd:
		f.bar.Increment()
	case UpdateMessage:
		if update.Total > 0 {
			f.bar.SetTotal(int64(update.Total))
			f.bar.SetCurrent(int64(update.Position))
		}
		f.bar.Set("item", truncate(update.Message, maxItemWidth))
	}
	return nil
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(report *models.JobReport) error {
	if f.fallback != nil {
		return f.fallback.Complete(report)
	}
	if f.bar != nil {
		f.bar.Set("item", "")
		f.bar.Finish()
		f.bar = nil
	}

	fmt.Fprintf(f.writer, "%s completed in %s\n", titleKind(report.Kind), formatDuration(report.Duration))
	if report.Message != "" {
		fmt.Fprintf(f.writer, "%s\n", report.Message)
	}
	fmt.Fprintf(f.writer, "Summary: %s\n", report.Summary())
	return nil
}

// Error reports an error without breaking the bar line
func (f *ProgressFormatter) Error(err error) error {
	if f.fallback != nil {
		return f.fallback.Error(err)
	}
	fmt.Fprintf(f.writer, "\nError: %v\n", err)
	return nil
}

// ShowErrors lists failed items
func (f *ProgressFormatter) ShowErrors(failures []models.ItemFailure) error {
	writeFailures(f.writer, failures)
	return nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return "..." + string(r[len(r)-width+3:])
}
