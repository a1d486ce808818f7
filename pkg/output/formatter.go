package output

import (
	"fmt"
	"io"

	"github.com/sdejongh/mediasync/pkg/models"
)

// UpdateType names a progress notification
type UpdateType string

const (
	UpdateItemStart UpdateType = "item_start"
	UpdateItemEnd   UpdateType = "item_end"
	UpdateMessage   UpdateType = "message"
)

// ProgressUpdate represents a progress notification during a job
type ProgressUpdate struct {
	Type     UpdateType
	Item     string
	Status   models.ItemStatus
	Message  string
	Position int
	Total    int
	Error    error
}

// Formatter defines the interface for output formatting.
// A job's status reporter calls it from the coordinator only, so
// implementations need no locking of their own.
type Formatter interface {
	// Start begins a new job of the given kind
	Start(kind models.JobKind, totalItems int) error

	// Progress reports progress during the job
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays summary
	Complete(report *models.JobReport) error

	// Error reports a fatal error for part of the job
	Error(err error) error

	// ShowErrors lists every failed item
	ShowErrors(failures []models.ItemFailure) error

	// Name returns the formatter name
	Name() string
}

// New builds the formatter named by format ("human" or "json").
// progress selects the progress bar for human output.
func New(format string, progress bool, w io.Writer) (Formatter, error) {
	switch format {
	case "", "human":
		if progress {
			return NewProgressFormatter(w), nil
		}
		return NewHumanFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}
