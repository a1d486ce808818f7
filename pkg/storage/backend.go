package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sdejongh/mediasync/pkg/cancel"
)

// FileInfo represents metadata about a file
type FileInfo struct {
	Path        string
	Name        string
	Size        int64
	ModTime     time.Time
	Permissions uint32
}

// FolderInfo represents a sub-folder returned by a listing
type FolderInfo struct {
	Path string
	Name string
}

// Walker enumerates folders one level at a time.
// Recursion is left to the caller so deep trees can be walked with an explicit stack.
type Walker interface {
	// List returns the files and sub-folders directly inside folder
	List(ctx context.Context, folder string) ([]FileInfo, []FolderInfo, error)

	// Exists checks if a file or folder exists
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns file metadata
	Stat(ctx context.Context, path string) (*FileInfo, error)
}

// FileOps performs the file operations the execution engine needs
type FileOps interface {
	// Copy copies src to dst. With failIfExists an existing dst is an AlreadyExists error.
	Copy(ctx context.Context, src, dst string, failIfExists bool) error

	// Move moves src to dst with the same existence rule as Copy
	Move(ctx context.Context, src, dst string, failIfExists bool) error

	// Delete removes a file
	Delete(ctx context.Context, path string) error

	// CreateFolder creates a folder and its parents; an existing folder is not an error
	CreateFolder(ctx context.Context, path string) error

	// SetCreatedDate stamps date on path
	SetCreatedDate(ctx context.Context, path string, date time.Time) error
}

// Backend is the full storage surface used by the engine
type Backend interface {
	Walker
	FileOps

	// Close releases any resources held by the backend
	Close() error
}

// Result is the coarse outcome of a file operation
type Result int

const (
	// ResultOK indicates the operation succeeded
	ResultOK Result = iota
	// ResultAlreadyExists indicates the target was already there
	ResultAlreadyExists
	// ResultCancelled indicates the operation was interrupted by cancellation
	ResultCancelled
	// ResultFailed indicates any other failure
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultAlreadyExists:
		return "already-exists"
	case ResultCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Classify maps an operation error to its Result code
func Classify(err error) Result {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, os.ErrExist):
		return ResultAlreadyExists
	case errors.Is(err, cancel.ErrCancelled), errors.Is(err, context.Canceled):
		return ResultCancelled
	default:
		return ResultFailed
	}
}

// OpError describes a failed file operation
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
