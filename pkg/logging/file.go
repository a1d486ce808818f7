package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileLoggerConfig holds configuration for file logging
type FileLoggerConfig struct {
	// Path is the log file path
	Path string
	// Format is the output format (json or text)
	Format Format
	// Level is the minimum log level
	Level Level
	// MaxSize is the maximum size in bytes before rotation (0 = no rotation)
	MaxSize int64
	// MaxBackups is the maximum number of backup files to keep
	MaxBackups int
}

// FileLogger is a WriterLogger over a size-rotated log file
type FileLogger struct {
	*WriterLogger
	file *rotatingFile
}

// NewFileLogger creates a new file logger
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rf, err := openRotatingFile(config.Path, config.MaxSize, config.MaxBackups)
	if err != nil {
		return nil, err
	}

	wl := NewWriterLogger(rf, config.Format, config.Level)
	wl.out.beforeWrite = rf.rotateIfNeeded
	wl.out.afterWrite = func(n int) { rf.size += int64(n) }

	return &FileLogger{WriterLogger: wl, file: rf}, nil
}

// Close flushes and closes the log file
func (l *FileLogger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	return l.file.close()
}

// rotatingFile is only touched under the owning output lock
type rotatingFile struct {
	path       string
	file       *os.File
	size       int64
	maxSize    int64
	maxBackups int
}

func openRotatingFile(path string, maxSize int64, maxBackups int) (*rotatingFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &rotatingFile{
		path:       path,
		file:       file,
		size:       info.Size(),
		maxSize:    maxSize,
		maxBackups: maxBackups,
	}, nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	if r.file == nil {
		return 0, os.ErrClosed
	}
	return r.file.Write(p)
}

func (r *rotatingFile) rotateIfNeeded() {
	if r.maxSize <= 0 || r.size < r.maxSize || r.file == nil {
		return
	}

	r.file.Close()

	// shift path.N -> path.N+1, newest backup is path.1
	for i := r.maxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", r.path, i), fmt.Sprintf("%s.%d", r.path, i+1))
	}
	os.Rename(r.path, r.path+".1")

	if r.maxBackups > 0 {
		os.Remove(fmt.Sprintf("%s.%d", r.path, r.maxBackups+1))
	}

	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		r.file = nil
		return
	}
	r.file = file
	r.size = 0
}

func (r *rotatingFile) close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
