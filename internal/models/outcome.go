package models

import "time"

// OutcomeStatus classifies how processing one account ended.
type OutcomeStatus string

const (
	OutcomeOK          OutcomeStatus = "ok"
	OutcomeThrottled   OutcomeStatus = "throttled"
	OutcomeAuthFailed  OutcomeStatus = "auth_failed"
	OutcomeFetchFailed OutcomeStatus = "fetch_failed"
	OutcomeMalformed   OutcomeStatus = "malformed"
	OutcomeInvalid     OutcomeStatus = "invalid"
	OutcomeError       OutcomeStatus = "error"
)

// AccountOutcome is the per-account result of a batch run.
type AccountOutcome struct {
	Summary *UsageSummary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Err     error         `json:"-" yaml:"-"`
	Phone   string        `json:"phonenum" yaml:"phonenum"`
	Status  OutcomeStatus `json:"status" yaml:"status"`
	Reason  string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Report  string        `json:"report,omitempty" yaml:"report,omitempty"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// OK reports whether the account produced a report.
func (o AccountOutcome) OK() bool {
	return o.Status == OutcomeOK && o.Report != ""
}

// BatchRun is the persisted summary of one batch run.
type BatchRun struct {
	StartedAt  time.Time `json:"startedAt" yaml:"started_at"`
	FinishedAt time.Time `json:"finishedAt" yaml:"finished_at"`
	ID         string    `json:"id" yaml:"id"`
	Accounts   int       `json:"accounts" yaml:"accounts"`
	Processed  int       `json:"processed" yaml:"processed"`
	Skipped    int       `json:"skipped" yaml:"skipped"`
}
