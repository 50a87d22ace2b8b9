// Package services runs batches of accounts through the usage pipeline.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/logger"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/notify"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/report"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/services/session"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/services/usage"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/telecom"
)

// NotifyTitle is the title of the aggregated notification.
const NotifyTitle = "📢【电信套餐用量监控】"

// ReportSeparator separates account reports in the notification body.
var ReportSeparator = "\n\n" + strings.Repeat("=", 50) + "\n\n"

// Recorder stores run history. It is optional.
type Recorder interface {
	RecordUsage(ctx context.Context, summary *models.UsageSummary) error
	RecordRun(ctx context.Context, run models.BatchRun) error
}

// RunObserver receives per-account and per-run outcomes, typically for
// metrics. It is optional.
type RunObserver interface {
	AccountProcessed(status models.OutcomeStatus)
	RunFinished(finishedAt time.Time, d time.Duration)
}

// Deps are the collaborators of a Manager. Only Sessions is required.
type Deps struct {
	Sessions *session.Manager
	Notifier notify.Notifier
	Recorder Recorder
	Observer RunObserver
	Clock    func() time.Time
}

// Manager runs accounts through the pipeline one after another.
type Manager struct {
	sessions *session.Manager
	notifier notify.Notifier
	recorder Recorder
	observer RunObserver
	now      func() time.Time
}

// NewManager creates a batch manager.
func NewManager(deps Deps) *Manager {
	m := &Manager{
		sessions: deps.Sessions,
		notifier: deps.Notifier,
		recorder: deps.Recorder,
		observer: deps.Observer,
		now:      deps.Clock,
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// RunResult is the outcome of one batch run.
type RunResult struct {
	StartedAt  time.Time               `json:"startedAt" yaml:"started_at"`
	FinishedAt time.Time               `json:"finishedAt" yaml:"finished_at"`
	RunID      string                  `json:"runId" yaml:"run_id"`
	Outcomes   []models.AccountOutcome `json:"outcomes" yaml:"outcomes"`
}

// Reports returns the rendered reports in account order.
func (r *RunResult) Reports() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.OK() {
			out = append(out, o.Report)
		}
	}
	return out
}

// Processed returns the number of accounts that produced a report.
func (r *RunResult) Processed() int {
	return len(r.Reports())
}

// Skipped returns the number of accounts that did not produce a report.
func (r *RunResult) Skipped() int {
	return len(r.Outcomes) - r.Processed()
}

// Body returns the notification body, or "" when there is nothing to send.
func (r *RunResult) Body() string {
	return strings.Join(r.Reports(), ReportSeparator)
}

// Record returns the persisted form of the run.
func (r *RunResult) Record() models.BatchRun {
	return models.BatchRun{
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		ID:         r.RunID,
		Accounts:   len(r.Outcomes),
		Processed:  r.Processed(),
		Skipped:    r.Skipped(),
	}
}

// Run processes creds in order. A failing account is logged and recorded in
// the result; it never stops the batch. The notifier is called once when at
// least one report was produced.
func (m *Manager) Run(ctx context.Context, creds []models.Credential) *RunResult {
	result := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: m.now(),
		Outcomes:  make([]models.AccountOutcome, 0, len(creds)),
	}

	logger.Info("batch started", "run_id", result.RunID, "accounts", len(creds))

	for i, cred := range creds {
		logger.Info("processing account",
			"index", i+1, "total", len(creds), "phone", report.MaskPhone(cred.Phone))

		outcome := m.Process(ctx, cred)
		if !outcome.OK() {
			logger.Warn("account skipped",
				"phone", report.MaskPhone(cred.Phone),
				"status", string(outcome.Status),
				"reason", outcome.Reason)
		}
		if m.observer != nil {
			m.observer.AccountProcessed(outcome.Status)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	result.FinishedAt = m.now()
	logger.Info("batch finished",
		"run_id", result.RunID,
		"processed", result.Processed(),
		"skipped", result.Skipped(),
		"elapsed", result.FinishedAt.Sub(result.StartedAt))

	m.notify(ctx, result)

	if m.recorder != nil {
		if err := m.recorder.RecordRun(ctx, result.Record()); err != nil {
			logger.Error("failed to record run", "run_id", result.RunID, "error", err)
		}
	}
	if m.observer != nil {
		m.observer.RunFinished(result.FinishedAt, result.FinishedAt.Sub(result.StartedAt))
	}

	return result
}

// Process runs a single account through the pipeline.
func (m *Manager) Process(ctx context.Context, cred models.Credential) models.AccountOutcome {
	start := m.now()
	outcome := models.AccountOutcome{Phone: report.MaskPhone(cred.Phone)}

	summary, text, err := m.process(ctx, cred)
	outcome.Elapsed = m.now().Sub(start)
	if err != nil {
		outcome.Err = err
		outcome.Status = Classify(err)
		outcome.Reason = err.Error()
		return outcome
	}

	outcome.Status = models.OutcomeOK
	outcome.Summary = summary
	outcome.Report = text
	return outcome
}

func (m *Manager) process(ctx context.Context, cred models.Credential) (*models.UsageSummary, string, error) {
	if !cred.Valid() {
		return nil, "", session.ErrInvalidIdentifier
	}

	sess, err := m.sessions.Open(ctx, cred)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		if err := sess.Close(ctx); err != nil {
			logger.Error("failed to persist session state",
				"phone", report.MaskPhone(cred.Phone), "error", err)
		}
	}()

	data, err := sess.FetchUsage(ctx)
	if err != nil {
		return nil, "", err
	}

	summary, err := usage.Normalize(cred.Phone, data, m.now())
	if err != nil {
		return nil, "", err
	}

	packageText := ""
	if cred.FluxPackage {
		pkg, err := sess.FetchPackageDetail(ctx)
		if err != nil {
			logger.Warn("package detail unavailable",
				"phone", report.MaskPhone(cred.Phone), "error", err)
		} else {
			packageText = pkg.Text()
		}
	}

	if m.recorder != nil {
		if err := m.recorder.RecordUsage(ctx, summary); err != nil {
			logger.Error("failed to record usage",
				"phone", report.MaskPhone(cred.Phone), "error", err)
		}
	}

	return summary, report.Render(summary, packageText), nil
}

func (m *Manager) notify(ctx context.Context, result *RunResult) {
	body := result.Body()
	if m.notifier == nil || body == "" {
		return
	}
	if err := m.notifier.Send(ctx, NotifyTitle, body); err != nil {
		logger.Error("failed to send notification", "run_id", result.RunID, "error", err)
	}
}

// Classify maps a pipeline error to an outcome status.
func Classify(err error) models.OutcomeStatus {
	switch {
	case err == nil:
		return models.OutcomeOK
	case errors.Is(err, session.ErrInvalidIdentifier):
		return models.OutcomeInvalid
	case errors.Is(err, session.ErrAuthThrottled):
		return models.OutcomeThrottled
	case errors.Is(err, session.ErrAuthenticationFailed):
		return models.OutcomeAuthFailed
	case errors.Is(err, usage.ErrMalformedPayload), errors.Is(err, telecom.ErrMalformedResponse):
		return models.OutcomeMalformed
	case errors.Is(err, session.ErrFetchFailed):
		return models.OutcomeFetchFailed
	default:
		return models.OutcomeError
	}
}
