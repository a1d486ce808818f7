package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sdejongh/mediasync/pkg/models"
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	writer     io.Writer
	kind       models.JobKind
	totalItems int
	startTime  time.Time
}

// NewHumanFormatter creates a new human-readable formatter writing to w
func NewHumanFormatter(w io.Writer) *HumanFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &HumanFormatter{writer: w}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(kind models.JobKind, totalItems int) error {
	f.kind = kind
	f.totalItems = totalItems
	f.startTime = time.Now()

	if totalItems > 0 {
		fmt.Fprintf(f.writer, "Starting %s: %d items\n", kind, totalItems)
	} else {
		fmt.Fprintf(f.writer, "Starting %s\n", kind)
	}
	return nil
}

// Progress reports progress during the job
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	switch update.Type {
	case UpdateItemEnd:
		switch update.Status {
		case models.ItemSuccess:
			fmt.Fprintf(f.writer, "  ✓ %s\n", update.Item)
		case models.ItemFail:
			fmt.Fprintf(f.writer, "  ✗ %s: %v\n", update.Item, update.Error)
		}

	case UpdateMessage:
		if update.Total > 0 {
			fmt.Fprintf(f.writer, "[%d/%d] %s\n", update.Position, update.Total, update.Message)
		} else {
			fmt.Fprintf(f.writer, "%s\n", update.Message)
		}
	}

	return nil
}

// Complete finalizes output and displays summary
func (f *HumanFormatter) Complete(report *models.JobReport) error {
	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "%s completed in %s\n", titleKind(report.Kind), formatDuration(report.Duration))
	if report.Message != "" {
		fmt.Fprintf(f.writer, "%s\n", report.Message)
	}
	fmt.Fprintf(f.writer, "Summary: %s\n", report.Summary())
	fmt.Fprintf(f.writer, "Status: %s\n", report.Status)
	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	fmt.Fprintf(f.writer, "Error: %v\n", err)
	return nil
}

// ShowErrors lists failed items
func (f *HumanFormatter) ShowErrors(failures []models.ItemFailure) error {
	writeFailures(f.writer, failures)
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func writeFailures(w io.Writer, failures []models.ItemFailure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(w, "\nErrors:\n")
	for _, failure := range failures {
		fmt.Fprintf(w, "  %s: %s\n", failure.Name, failure.Error)
	}
}

func titleKind(kind models.JobKind) string {
	switch kind {
	case models.JobImport:
		return "Import"
	case models.JobSync:
		return "Sync"
	default:
		return "Job"
	}
}

// formatDuration formats duration in human-readable format
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
