// Package scheduler runs recurring jobs on cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/logger"
)

// standardParser accepts five-field expressions and descriptors such as
// @daily.
var standardParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler wraps a cron engine. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron    *cron.Cron
	parser  cron.Parser
	timeout time.Duration
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler.
func New(opts ...Option) *Scheduler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	engine := o.Cron
	if engine == nil {
		engine = cron.New(
			cron.WithLocation(o.Location),
			cron.WithParser(standardParser),
			cron.WithLogger(cronLogger{}),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    engine,
		parser:  standardParser,
		timeout: o.JobTimeout,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Validate reports whether spec is a valid schedule expression.
func Validate(spec string) error {
	if _, err := standardParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Add registers job under name on the given schedule.
func (s *Scheduler) Add(name, spec string, job Job) (cron.EntryID, error) {
	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	wrapped := cron.NewChain(
		cron.Recover(cronLogger{}),
		cron.SkipIfStillRunning(cronLogger{}),
	).Then(cron.FuncJob(func() { s.runJob(name, job) }))

	return s.cron.Schedule(schedule, wrapped), nil
}

func (s *Scheduler) runJob(name string, job Job) {
	ctx := s.baseCtx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	logger.Info("scheduled job started", "job", name)
	if err := job(ctx); err != nil {
		logger.Error("scheduled job failed", "job", name, "error", err, "elapsed", time.Since(start))
		return
	}
	logger.Info("scheduled job finished", "job", name, "elapsed", time.Since(start))
}

// Next returns the next activation of entry id, or the zero time when the
// scheduler is not running.
func (s *Scheduler) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

// NextAfter returns the activation of entry id following t.
func (s *Scheduler) NextAfter(id cron.EntryID, t time.Time) time.Time {
	entry := s.cron.Entry(id)
	if entry.Schedule == nil {
		return time.Time{}
	}
	return entry.Schedule.Next(t)
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels in-flight jobs and waits for them to return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// cronLogger routes cron's internal logging through the package logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
