package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Format represents the log output format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// output is shared by a logger and every logger derived from it with WithFields
type output struct {
	mu sync.Mutex
	w  io.Writer
	// beforeWrite runs under the lock, used for rotation
	beforeWrite func()
	// afterWrite runs under the lock with the number of bytes written
	afterWrite func(n int)
}

// WriterLogger writes formatted entries to an io.Writer
type WriterLogger struct {
	out    *output
	format Format
	level  Level
	fields Fields
	now    func() time.Time
}

// NewWriterLogger creates a logger writing to w (stderr in the CLI)
func NewWriterLogger(w io.Writer, format Format, level Level) *WriterLogger {
	return &WriterLogger{
		out:    &output{w: w},
		format: format,
		level:  level,
		now:    time.Now,
	}
}

// Debug logs a debug message
func (l *WriterLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.log(DebugLevel, msg, nil, fields)
}

// Info logs an info message
func (l *WriterLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.log(InfoLevel, msg, nil, fields)
}

// Warn logs a warning message
func (l *WriterLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.log(WarnLevel, msg, nil, fields)
}

// Error logs an error message
func (l *WriterLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.log(ErrorLevel, msg, err, fields)
}

// WithFields returns a logger with additional fields sharing the same output
func (l *WriterLogger) WithFields(fields Fields) Logger {
	return &WriterLogger{
		out:    l.out,
		format: l.format,
		level:  l.level,
		fields: mergeFields(l.fields, fields),
		now:    l.now,
	}
}

// Close does nothing; the writer belongs to the caller
func (l *WriterLogger) Close() error {
	return nil
}

func (l *WriterLogger) log(level Level, msg string, err error, fields Fields) {
	if level < l.level {
		return
	}

	all := mergeFields(l.fields, fields)

	var line []byte
	if l.format == FormatJSON {
		var jsonErr error
		line, jsonErr = l.formatJSON(level, msg, err, all)
		if jsonErr != nil {
			return
		}
	} else {
		line = l.formatText(level, msg, err, all)
	}

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if l.out.beforeWrite != nil {
		l.out.beforeWrite()
	}
	n, _ := l.out.w.Write(line)
	if l.out.afterWrite != nil {
		l.out.afterWrite(n)
	}
}

// formatJSON formats a log entry as JSON
func (l *WriterLogger) formatJSON(level Level, msg string, err error, fields Fields) ([]byte, error) {
	entry := map[string]interface{}{
		"timestamp": l.now().UTC().Format(time.RFC3339),
		"level":     levelString(level),
		"message":   msg,
	}

	if err != nil {
		entry["error"] = err.Error()
	}

	for k, v := range fields {
		entry[k] = v
	}

	data, jsonErr := json.Marshal(entry)
	if jsonErr != nil {
		return nil, jsonErr
	}

	return append(data, '\n'), nil
}

// formatText formats a log entry as plain text with sorted fields
func (l *WriterLogger) formatText(level Level, msg string, err error, fields Fields) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", l.now().UTC().Format("2006-01-02T15:04:05.000Z"), levelString(level), msg)

	if err != nil {
		fmt.Fprintf(&b, " error=%q", err.Error())
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}

	b.WriteByte('\n')
	return []byte(b.String())
}
