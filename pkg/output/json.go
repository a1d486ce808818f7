package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sdejongh/mediasync/pkg/models"
)

// JSONFormatter formats output as JSON for automation and scripting.
// Nothing is written until Complete, which prints the final report.
type JSONFormatter struct {
	writer io.Writer
	kind   models.JobKind
	errors []string
}

// JSONReportData represents the final report data
type JSONReportData struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	Status       string          `json:"status"`
	Summary      string          `json:"summary"`
	Message      string          `json:"message,omitempty"`
	Duration     string          `json:"duration"`
	DurationMs   int64           `json:"duration_ms"`
	Processed    int             `json:"processed"`
	Failed       int             `json:"failed"`
	Ignored      int             `json:"ignored"`
	Cancelled    int             `json:"cancelled"`
	FirstFailure string          `json:"first_failure,omitempty"`
	Errors       []JSONErrorData `json:"errors,omitempty"`
	Aborts       []string        `json:"aborts,omitempty"`
}

// JSONErrorData represents an error entry
type JSONErrorData struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// NewJSONFormatter creates a new JSON formatter writing to w
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &JSONFormatter{writer: w}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(kind models.JobKind, totalItems int) error {
	f.kind = kind
	f.errors = nil
	return nil
}

// Progress is not streamed to keep the output parseable
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete writes the final report
func (f *JSONFormatter) Complete(report *models.JobReport) error {
	var errs []JSONErrorData
	for _, failure := range report.Failures {
		errs = append(errs, JSONErrorData{Path: failure.Name, Error: failure.Error})
	}

	data := JSONReportData{
		ID:           report.ID,
		Kind:         string(report.Kind),
		Status:       string(report.Status),
		Summary:      report.Summary(),
		Message:      report.Message,
		Duration:     report.Duration.Round(time.Millisecond).String(),
		DurationMs:   report.Duration.Milliseconds(),
		Processed:    report.Processed,
		Failed:       report.Failed,
		Ignored:      report.Ignored,
		Cancelled:    report.Cancelled,
		FirstFailure: report.FirstFailure,
		Errors:       errs,
		Aborts:       f.errors,
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Error records an error for the final report
func (f *JSONFormatter) Error(err error) error {
	f.errors = append(f.errors, err.Error())
	return nil
}

// ShowErrors is covered by the errors list of the final report
func (f *JSONFormatter) ShowErrors(failures []models.ItemFailure) error {
	return nil
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
