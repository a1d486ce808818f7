package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const copyBufferSize = 64 * 1024

// partSuffix marks a copy in flight; a crash can leave one behind
const partSuffix = ".part"

// Local is a filesystem-backed storage backend.
// Paths are absolute; any number of roots can live on the same filesystem.
type Local struct {
	fs         afero.Fs
	limiter    *Limiter
	bufferSize int
}

// Option configures a Local backend
type Option func(*Local)

// WithBandwidthLimit throttles copies to bytesPerSecond (0 = unlimited)
func WithBandwidthLimit(bytesPerSecond int64) Option {
	return func(l *Local) {
		l.limiter = NewLimiter(bytesPerSecond)
	}
}

// WithBufferSize sets the copy buffer size
func WithBufferSize(size int) Option {
	return func(l *Local) {
		if size > 0 {
			l.bufferSize = size
		}
	}
}

// NewLocal creates a backend over fs
func NewLocal(fs afero.Fs, opts ...Option) *Local {
	l := &Local{fs: fs, bufferSize: copyBufferSize}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewOSLocal creates a backend over the real filesystem
func NewOSLocal(opts ...Option) *Local {
	return NewLocal(afero.NewOsFs(), opts...)
}

// List returns the files and sub-folders directly inside folder, sorted by
// name. Leftover partial copies are not listed.
func (l *Local) List(ctx context.Context, folder string) ([]FileInfo, []FolderInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	entries, err := afero.ReadDir(l.fs, folder)
	if err != nil {
		return nil, nil, &OpError{Op: "list", Path: folder, Err: err}
	}

	var files []FileInfo
	var folders []FolderInfo
	for _, e := range entries {
		p := filepath.Join(folder, e.Name())
		if e.IsDir() {
			folders = append(folders, FolderInfo{Path: p, Name: e.Name()})
			continue
		}
		if !e.Mode().IsRegular() || strings.HasSuffix(e.Name(), partSuffix) {
			continue
		}
		files = append(files, toFileInfo(p, e))
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })

	return files, folders, nil
}

// Exists checks if a file or folder exists
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	ok, err := afero.Exists(l.fs, path)
	if err != nil {
		return false, &OpError{Op: "exists", Path: path, Err: err}
	}
	return ok, nil
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, &OpError{Op: "stat", Path: path, Err: err}
	}
	fi := toFileInfo(path, info)
	return &fi, nil
}

// Copy copies src to dst, preserving the modification time and permissions
func (l *Local) Copy(ctx context.Context, src, dst string, failIfExists bool) error {
	if err := l.checkTarget(dst, failIfExists); err != nil {
		return err
	}
	if err := l.copyFile(ctx, src, dst); err != nil {
		return &OpError{Op: "copy", Path: src, Err: err}
	}
	return nil
}

// Move renames src to dst, falling back to copy+delete across devices
func (l *Local) Move(ctx context.Context, src, dst string, failIfExists bool) error {
	if err := l.checkTarget(dst, failIfExists); err != nil {
		return err
	}
	if err := l.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return &OpError{Op: "move", Path: dst, Err: err}
	}

	if err := l.fs.Rename(src, dst); err == nil {
		return nil
	}

	if err := l.copyFile(ctx, src, dst); err != nil {
		return &OpError{Op: "move", Path: src, Err: err}
	}
	if err := l.fs.Remove(src); err != nil {
		return &OpError{Op: "move", Path: src, Err: fmt.Errorf("copied but failed to remove source: %w", err)}
	}
	return nil
}

// Delete removes a file
func (l *Local) Delete(ctx context.Context, path string) error {
	if err := l.fs.Remove(path); err != nil {
		return &OpError{Op: "delete", Path: path, Err: err}
	}
	return nil
}

// CreateFolder creates a folder and all necessary parents
func (l *Local) CreateFolder(ctx context.Context, path string) error {
	info, err := l.fs.Stat(path)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		return &OpError{Op: "mkdir", Path: path, Err: fmt.Errorf("path exists and is not a folder")}
	}

	if err := l.fs.MkdirAll(path, 0755); err != nil {
		return &OpError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

// SetCreatedDate stamps date as both access and modification time.
// Portable filesystems expose no settable birth time.
func (l *Local) SetCreatedDate(ctx context.Context, path string, date time.Time) error {
	if err := l.fs.Chtimes(path, date, date); err != nil {
		return &OpError{Op: "set-created", Path: path, Err: err}
	}
	return nil
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}

func (l *Local) checkTarget(dst string, failIfExists bool) error {
	if !failIfExists {
		return nil
	}
	exists, err := afero.Exists(l.fs, dst)
	if err != nil {
		return &OpError{Op: "stat", Path: dst, Err: err}
	}
	if exists {
		return &OpError{Op: "copy", Path: dst, Err: os.ErrExist}
	}
	return nil
}

// copyFile writes src to a temp file next to dst and renames it into place
func (l *Local) copyFile(ctx context.Context, src, dst string) error {
	in, err := l.fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}

	if err := l.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := dst + partSuffix
	out, err := l.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	buf := make([]byte, l.bufferSize)
	written, copyErr := io.CopyBuffer(out, newThrottledReader(ctx, in, l.limiter), buf)
	closeErr := out.Close()

	if copyErr == nil && written != info.Size() {
		copyErr = fmt.Errorf("incomplete write: expected %d bytes, wrote %d", info.Size(), written)
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		l.fs.Remove(tmp)
		return copyErr
	}

	if err := l.fs.Chtimes(tmp, info.ModTime(), info.ModTime()); err != nil {
		l.fs.Remove(tmp)
		return fmt.Errorf("failed to set modification time: %w", err)
	}

	if err := l.fs.Rename(tmp, dst); err != nil {
		l.fs.Remove(tmp)
		return fmt.Errorf("failed to finalize file: %w", err)
	}

	return nil
}

func toFileInfo(path string, info os.FileInfo) FileInfo {
	return FileInfo{
		Path:        path,
		Name:        info.Name(),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Permissions: uint32(info.Mode().Perm()),
	}
}
