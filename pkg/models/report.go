package models

import (
	"fmt"
	"strings"
	"time"
)

// ItemStatus is the outcome reported for a single item
type ItemStatus string

const (
	// ItemSuccess indicates the file operation succeeded
	ItemSuccess ItemStatus = "success"
	// ItemFail indicates the file operation failed
	ItemFail ItemStatus = "fail"
	// ItemCancel indicates the item was not attempted because the job was cancelled
	ItemCancel ItemStatus = "cancel"
	// ItemIgnored indicates the item needed no work or was skipped by policy
	ItemIgnored ItemStatus = "ignored"
)

// JobKind names the kind of long-running operation
type JobKind string

const (
	JobImport JobKind = "import"
	JobSync   JobKind = "sync"
)

// JobReport is the outcome of one long-running operation
type JobReport struct {
	ID   string
	Kind JobKind

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Processed int
	Failed    int
	Ignored   int
	Cancelled int

	// FirstFailure is the name of the first item that failed
	FirstFailure string

	// Failures lists every failed item
	Failures []ItemFailure

	// Message is the completion or abort message
	Message string

	// Aborted is set when the job stopped on a fatal error
	Aborted bool

	Status JobStatus
}

// ItemFailure records one failed item
type ItemFailure struct {
	Name  string
	Error string
}

// Summary returns the human-readable outcome line
func (r *JobReport) Summary() string {
	verb := "processed"
	if r.Kind == JobImport {
		verb = "imported"
	} else if r.Kind == JobSync {
		verb = "synced"
	}

	parts := []string{
		fmt.Sprintf("%d %s", r.Processed, verb),
		fmt.Sprintf("%d failed", r.Failed),
		fmt.Sprintf("%d ignored", r.Ignored),
	}
	if r.Cancelled > 0 {
		parts = append(parts, fmt.Sprintf("%d cancelled", r.Cancelled))
	}
	return strings.Join(parts, ", ")
}

// ResolveStatus derives Status from the counters
func (r *JobReport) ResolveStatus() {
	switch {
	case r.Aborted && r.Processed == 0:
		r.Status = StatusFailed
	case r.Failed > 0 && r.Processed == 0:
		r.Status = StatusFailed
	case r.Failed > 0 || r.Aborted:
		r.Status = StatusPartial
	case r.Cancelled > 0:
		r.Status = StatusCancelled
	default:
		r.Status = StatusSuccess
	}
}

// JobStatus represents the overall result
type JobStatus string

const (
	// StatusSuccess indicates all operations completed successfully
	StatusSuccess JobStatus = "success"
	// StatusPartial indicates some operations failed
	StatusPartial JobStatus = "partial"
	// StatusFailed indicates the operation failed
	StatusFailed JobStatus = "failed"
	// StatusCancelled indicates the operation was cancelled
	StatusCancelled JobStatus = "cancelled"
)

// ExitCode returns the appropriate exit code for the job status
func (s JobStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}
