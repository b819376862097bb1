package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"desarquivamento/pkg/requestcontext"
)

const runTimeout = 5 * time.Minute

// Scheduler runs the scanner on cron schedules. Panics inside a run are
// recovered and logged.
type Scheduler struct {
	cron    *cron.Cron
	scanner *Scanner
	logger  *slog.Logger
	clock   func() time.Time
}

// NewScheduler registers the scan and cleanup jobs. Specs use the standard
// five-field cron format.
func NewScheduler(scanner *Scanner, scanSpec, cleanupSpec string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	cronLogger := slogCronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		scanner: scanner,
		logger:  logger,
		clock:   time.Now,
	}

	if _, err := s.cron.AddFunc(scanSpec, s.RunScan); err != nil {
		return nil, fmt.Errorf("schedule scan %q: %w", scanSpec, err)
	}
	if _, err := s.cron.AddFunc(cleanupSpec, s.RunCleanup); err != nil {
		return nil, fmt.Errorf("schedule cleanup %q: %w", cleanupSpec, err)
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop prevents new runs and waits for running ones or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunScan performs one scan with a single "now" for the whole batch.
func (s *Scheduler) RunScan() {
	now := s.clock()
	ctx, cancel := context.WithTimeout(requestcontext.WithTime(context.Background(), now), runTimeout)
	defer cancel()
	if _, err := s.scanner.Scan(ctx, now); err != nil {
		s.logger.ErrorContext(ctx, "pending request scan failed", "error", err)
	}
}

func (s *Scheduler) RunCleanup() {
	now := s.clock()
	ctx, cancel := context.WithTimeout(requestcontext.WithTime(context.Background(), now), runTimeout)
	defer cancel()
	if _, err := s.scanner.Cleanup(ctx, now); err != nil {
		s.logger.ErrorContext(ctx, "notification cleanup failed", "error", err)
	}
}

// slogCronLogger adapts slog to cron.Logger.
type slogCronLogger struct {
	logger *slog.Logger
}

func (l slogCronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l slogCronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
