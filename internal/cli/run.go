package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sdejongh/mediasync/pkg/cancel"
	"github.com/sdejongh/mediasync/pkg/config"
	"github.com/sdejongh/mediasync/pkg/engine"
	"github.com/sdejongh/mediasync/pkg/history"
	"github.com/sdejongh/mediasync/pkg/library"
	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/output"
	"github.com/sdejongh/mediasync/pkg/storage"
)

// ExitError carries the process exit code of a finished job
type ExitError struct {
	Code   int
	Status models.JobStatus
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("job finished with status %s", e.Status)
}

// exitFor returns nil for a successful report and an ExitError otherwise
func exitFor(report *models.JobReport) error {
	if report == nil || report.Status.ExitCode() == 0 {
		return nil
	}
	return &ExitError{Code: report.Status.ExitCode(), Status: report.Status}
}

// createLogger creates a logger based on configuration.
// Without a log file, entries go to stderr.
func createLogger(cfg config.LoggingConfig, stderr io.Writer) (logging.Logger, error) {
	// Parse log format
	var format logging.Format
	switch cfg.Format {
	case "json":
		format = logging.FormatJSON
	default:
		format = logging.FormatText
	}
	level := logging.ParseLevel(cfg.Level)

	if cfg.File == "" {
		return logging.NewWriterLogger(stderr, format, level), nil
	}

	// Create file logger
	return logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       cfg.File,
		Format:     format,
		Level:      level,
		MaxSize:    10 * 1024 * 1024, // 10 MB
		MaxBackups: 5,
	})
}

// newSink creates the output formatter; nil in quiet mode
func newSink(cfg config.OutputConfig, w io.Writer) (output.Formatter, error) {
	if cfg.Quiet {
		return nil, nil
	}
	return output.New(cfg.Format, cfg.Progress, w)
}

// openHistory opens the configured dedup history
func openHistory(cfg *config.Config, logger logging.Logger) (history.Store, error) {
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cfg.History.Backend, path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

// session holds everything a job command opens
type session struct {
	cfg     *config.Config
	logger  logging.Logger
	history history.Store
	lib     *library.Library
}

// openSession builds the logger, history store and library from cfg
func openSession(cfg *config.Config, stderr io.Writer) (*session, error) {
	logger, err := createLogger(cfg.Logging, stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := openHistory(cfg, logger)
	if err != nil {
		logger.Close()
		return nil, err
	}

	backend := storage.NewOSLocal(
		storage.WithBandwidthLimit(cfg.Performance.BandwidthLimit),
		storage.WithBufferSize(cfg.Performance.BufferSize),
	)

	lib, err := library.New(library.Options{
		Backend:           backend,
		History:           store,
		Exclusions:        cfg.Exclusions(),
		SidecarExtensions: cfg.Import.SidecarExtensions,
		Engine: engine.Config{
			ImportFailure: cfg.Import.FailurePolicy,
			SyncFailure:   cfg.Sync.FailurePolicy,
		},
		Logger: logger,
	})
	if err != nil {
		store.Close()
		logger.Close()
		return nil, err
	}

	return &session{cfg: cfg, logger: logger, history: store, lib: lib}, nil
}

// Close drains the queues, then releases the history and the logger
func (s *session) Close() {
	s.lib.Close()
	if err := s.history.Close(); err != nil {
		s.logger.Error(context.Background(), "failed to close history", err, nil)
	}
	s.logger.Close()
}

// cancelOnInterrupt cancels source on the first interrupt and every job on
// the second. The returned func stops listening.
func cancelOnInterrupt(source *cancel.Source, logger logging.Logger) func() {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		count := 0
		for {
			select {
			case <-done:
				return
			case sig := <-signals:
				count++
				if count == 1 {
					logger.Warn(context.Background(), "interrupt received, cancelling job", logging.Fields{"signal": sig.String()})
					source.Cancel()
				} else {
					logger.Warn(context.Background(), "second interrupt, cancelling everything", nil)
					cancel.CancelAll()
				}
			}
		}
	}()

	return func() {
		signal.Stop(signals)
		close(done)
	}
}
