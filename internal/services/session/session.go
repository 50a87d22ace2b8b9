// Package session owns the authenticated session of one account: cached
// login reuse, bounded re-authentication and the persisted failure counter
// that keeps repeated bad logins away from the provider's risk control.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/logger"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/report"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/telecom"
)

// DefaultMaxFailures is the consecutive login failure count at which an
// account stops attempting to log in.
const DefaultMaxFailures = 5

var (
	// ErrAuthThrottled means the failure counter reached the threshold and no
	// login was attempted.
	ErrAuthThrottled = errors.New("authentication throttled")
	// ErrAuthenticationFailed means the provider rejected the credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrFetchFailed means a data request failed after the allowed retry.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrInvalidIdentifier means the phone number is not all digits.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// Login attempt results reported to the Observer.
const (
	LoginSuccess   = "success"
	LoginRejected  = "rejected"
	LoginError     = "error"
	LoginThrottled = "throttled"
)

// Client is the account client capability.
type Client interface {
	Login(ctx context.Context, phone, password string) (*telecom.LoginResult, error)
	FetchUsage(ctx context.Context, state models.SessionState) (*telecom.ImportantData, error)
	FetchPackageDetail(ctx context.Context, state models.SessionState) (*telecom.FluxPackage, error)
}

// Store persists session state keyed by phone. LoadSession returns nil and
// no error when the account has no record yet.
type Store interface {
	LoadSession(ctx context.Context, phone string) (*models.SessionState, error)
	SaveSession(ctx context.Context, state *models.SessionState) error
}

// Observer receives login outcomes, typically for metrics.
type Observer interface {
	LoginAttempt(result string)
	FailCount(phone string, count int)
}

// Manager opens sessions for accounts. At most one Session per phone is
// open at a time; Open blocks until the previous one is closed.
type Manager struct {
	client      Client
	store       Store
	observer    Observer
	now         func() time.Time
	locks       map[string]chan struct{}
	mu          sync.Mutex
	maxFailures int
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxFailures sets the throttling threshold.
func WithMaxFailures(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxFailures = n
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithObserver registers an observer for login outcomes.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observer = o
	}
}

// New creates a Manager.
func New(client Client, store Store, opts ...Option) *Manager {
	m := &Manager{
		client:      client,
		store:       store,
		now:         time.Now,
		locks:       make(map[string]chan struct{}),
		maxFailures: DefaultMaxFailures,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// lock acquires the per-phone lock. The returned func releases it.
func (m *Manager) lock(ctx context.Context, phone string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[phone]
	if !ok {
		l = make(chan struct{}, 1)
		m.locks[phone] = l
	}
	m.mu.Unlock()

	select {
	case l <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-l }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for session lock: %w", ctx.Err())
	}
}

// Open returns an authenticated session for cred. A cached login is reused
// without contacting the provider. On error the state has already been
// persisted and no Session is returned. The caller must Close the Session
// to persist its state and release the account for the next Open.
func (m *Manager) Open(ctx context.Context, cred models.Credential) (*Session, error) {
	masked := report.MaskPhone(cred.Phone)
	if !isDigits(cred.Phone) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, masked)
	}

	unlock, err := m.lock(ctx, cred.Phone)
	if err != nil {
		return nil, err
	}

	state, err := m.store.LoadSession(ctx, cred.Phone)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}
	if state == nil {
		state = models.NewSessionState(cred.Phone)
	}

	s := &Session{manager: m, cred: cred, state: state, unlock: unlock}

	if state.HasSession() {
		logger.Info("reusing cached session", "phone", masked)
		return s, nil
	}

	if err := s.authenticate(ctx); err != nil {
		if cerr := s.Close(ctx); cerr != nil {
			logger.Error("failed to persist session state", "phone", masked, "error", cerr)
		}
		return nil, err
	}
	s.fresh = true
	return s, nil
}

// Session is an authenticated handle for one account during one run.
type Session struct {
	manager  *Manager
	state    *models.SessionState
	unlock   func()
	cred     models.Credential
	fresh    bool
	reauthed bool
	closed   bool
}

// State returns a copy of the current session state.
func (s *Session) State() models.SessionState {
	return s.state.Clone()
}

// FetchUsage fetches the usage payload, re-authenticating once if the cached
// session turns out to be stale.
func (s *Session) FetchUsage(ctx context.Context) (*telecom.ImportantData, error) {
	var data *telecom.ImportantData
	err := s.withSession(ctx, func(state models.SessionState) error {
		var err error
		data, err = s.manager.client.FetchUsage(ctx, state)
		return err
	})
	return data, err
}

// FetchPackageDetail fetches the flow package listing under the same retry
// rules as FetchUsage.
func (s *Session) FetchPackageDetail(ctx context.Context) (*telecom.FluxPackage, error) {
	var pkg *telecom.FluxPackage
	err := s.withSession(ctx, func(state models.SessionState) error {
		var err error
		pkg, err = s.manager.client.FetchPackageDetail(ctx, state)
		return err
	})
	return pkg, err
}

// Close persists the session state and releases the account. Calling it more
// than once is a no-op.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer s.unlock()
	s.state.UpdatedAt = s.manager.now()
	if err := s.manager.store.SaveSession(ctx, s.state); err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

// withSession runs call with the current state. A stale session triggers at
// most one re-authentication per Session, followed by a single retry. A
// response of the wrong shape is returned as is.
func (s *Session) withSession(ctx context.Context, call func(models.SessionState) error) error {
	err := call(s.state.Clone())
	if err == nil || errors.Is(err, telecom.ErrMalformedResponse) {
		return err
	}
	if !errors.Is(err, telecom.ErrSessionInvalid) || s.fresh || s.reauthed {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	logger.Warn("cached session rejected, logging in again",
		"phone", report.MaskPhone(s.cred.Phone), "error", err)
	s.reauthed = true
	s.state.ClearSession()

	if err := s.authenticate(ctx); err != nil {
		return err
	}

	err = call(s.state.Clone())
	if err == nil || errors.Is(err, telecom.ErrMalformedResponse) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFetchFailed, err)
}

func (s *Session) authenticate(ctx context.Context) error {
	m := s.manager
	masked := report.MaskPhone(s.cred.Phone)

	if s.state.FailCount >= m.maxFailures {
		m.observeLogin(LoginThrottled)
		logger.Warn("login skipped to avoid risk control",
			"phone", masked, "failures", s.state.FailCount)
		return fmt.Errorf("%w: %d consecutive failures", ErrAuthThrottled, s.state.FailCount)
	}

	logger.Info("logging in", "phone", masked)
	res, err := m.client.Login(ctx, s.cred.Phone, s.cred.Password)
	if err != nil {
		m.observeLogin(LoginError)
		return fmt.Errorf("login request failed: %w", err)
	}

	if !res.Success {
		next := s.state.FailCount + 1
		if res.FailCount != nil && *res.FailCount > next {
			next = *res.FailCount
		}
		s.state.FailCount = next
		m.observeLogin(LoginRejected)
		m.observeFailCount(s.cred.Phone, next)
		logger.Warn("login rejected", "phone", masked, "failures", next, "reason", res.Message)
		return fmt.Errorf("%w: %s (%d consecutive failures)", ErrAuthenticationFailed, res.Message, next)
	}

	s.state.FailCount = 0
	s.state.LastSuccessAt = m.now()
	s.state.LoginInfo = res.Payload
	s.state.Owner = s.cred.Phone
	m.observeLogin(LoginSuccess)
	m.observeFailCount(s.cred.Phone, 0)
	logger.Info("login succeeded", "phone", masked)
	return nil
}

func (m *Manager) observeLogin(result string) {
	if m.observer != nil {
		m.observer.LoginAttempt(result)
	}
}

func (m *Manager) observeFailCount(phone string, n int) {
	if m.observer != nil {
		m.observer.FailCount(phone, n)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
