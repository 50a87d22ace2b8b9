// Package models defines data structures and domain types.
package models

import (
	"encoding/json"
	"time"
)

// Credential identifies one carrier account to monitor.
// It is supplied by the account source and never modified during a run.
type Credential struct {
	Phone       string `json:"phonenum" yaml:"phonenum" mapstructure:"phonenum"`
	Password    string `json:"password" yaml:"password" mapstructure:"password"`
	FluxPackage bool   `json:"fluxPackage" yaml:"flux_package" mapstructure:"flux_package"`
}

// Valid reports whether both identifier and secret are present.
func (c Credential) Valid() bool {
	return c.Phone != "" && c.Password != ""
}

// SessionState is the persisted per-account session record.
type SessionState struct {
	LastSuccessAt time.Time       `json:"lastSuccessAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	LoginInfo     json.RawMessage `json:"loginInfo,omitempty"`
	Phone         string          `json:"phonenum"`
	Owner         string          `json:"owner,omitempty"`
	FailCount     int             `json:"loginFailTime"`
}

// NewSessionState returns an empty state record for phone.
func NewSessionState(phone string) *SessionState {
	return &SessionState{Phone: phone}
}

// HasSession reports whether a cached login payload is available for reuse.
func (s *SessionState) HasSession() bool {
	return s != nil && len(s.LoginInfo) > 0 && s.Owner != ""
}

// ClearSession drops the cached login payload, keeping the failure counter.
func (s *SessionState) ClearSession() {
	s.LoginInfo = nil
	s.Owner = ""
}

// Clone returns a deep copy of the state.
func (s *SessionState) Clone() SessionState {
	clone := *s
	if s.LoginInfo != nil {
		clone.LoginInfo = append(json.RawMessage(nil), s.LoginInfo...)
	}
	return clone
}
