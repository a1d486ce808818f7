package models

import (
	"strings"
)

// ImportOptions configures one import job
type ImportOptions struct {
	// DestFolder is the library root
	DestFolder string
	// DestStructure is the folder template, e.g. "{year}/{created}"
	DestStructure string
	// Move removes the source after a successful transfer
	Move bool
	// OverwriteIfNewer replaces an existing destination when the source is strictly newer
	OverwriteIfNewer bool
	// SetCreatedDate stamps the resolved created date on the destination
	SetCreatedDate bool
}

// Validate checks if the options are usable
func (o ImportOptions) Validate() error {
	if strings.TrimSpace(o.DestFolder) == "" {
		return &ValidationError{Field: "DestFolder", Message: "destination folder is required"}
	}
	return nil
}

// FailurePolicy decides what a batch does after a per-item failure
type FailurePolicy string

const (
	// FailureContinue attempts every item and aggregates failures
	FailureContinue FailurePolicy = "continue"
	// FailureStop ignores the remaining items after the first failure
	FailureStop FailurePolicy = "stop"
)

// Valid reports whether p is a known policy
func (p FailurePolicy) Valid() bool {
	return p == FailureContinue || p == FailureStop
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
