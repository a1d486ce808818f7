package logging

import "context"

// NullLogger drops every entry. OrNull hands one out wherever a component
// was built without a logger.
type NullLogger struct{}

// NewNullLogger returns a logger that writes nothing
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (*NullLogger) Debug(context.Context, string, Fields)        {}
func (*NullLogger) Info(context.Context, string, Fields)         {}
func (*NullLogger) Warn(context.Context, string, Fields)         {}
func (*NullLogger) Error(context.Context, string, error, Fields) {}

// WithFields has nothing to attach fields to
func (l *NullLogger) WithFields(Fields) Logger { return l }

// Close is a no-op
func (*NullLogger) Close() error { return nil }
