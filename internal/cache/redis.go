// Package cache provides a redis-backed session state store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "telecom:session:"

const (
	fieldLoginInfo   = "login_info"
	fieldOwner       = "owner"
	fieldFailCount   = "fail_count"
	fieldLastSuccess = "last_success_at"
	fieldUpdatedAt   = "updated_at"
)

// Store keeps one hash per account.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New connects to addr and verifies the connection.
func New(ctx context.Context, addr, password string, opts ...Option) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewWithClient(client, opts...), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(phone string) string {
	return s.prefix + phone
}

// LoadSession returns the stored state for phone, or nil if there is none.
func (s *Store) LoadSession(ctx context.Context, phone string) (*models.SessionState, error) {
	fields, err := s.client.HGetAll(ctx, s.key(phone)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	state := models.NewSessionState(phone)
	if v := fields[fieldLoginInfo]; v != "" {
		if !json.Valid([]byte(v)) {
			return nil, fmt.Errorf("failed to load session state: invalid login payload for %s", phone)
		}
		state.LoginInfo = json.RawMessage(v)
	}
	state.Owner = fields[fieldOwner]
	if v := fields[fieldFailCount]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse failure counter: %w", err)
		}
		state.FailCount = n
	}
	state.LastSuccessAt = parseTime(fields[fieldLastSuccess])
	state.UpdatedAt = parseTime(fields[fieldUpdatedAt])
	return state, nil
}

// SaveSession writes the whole record in a single HSET.
func (s *Store) SaveSession(ctx context.Context, state *models.SessionState) error {
	updated := state.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	err := s.client.HSet(ctx, s.key(state.Phone),
		fieldLoginInfo, string(state.LoginInfo),
		fieldOwner, state.Owner,
		fieldFailCount, state.FailCount,
		fieldLastSuccess, formatTime(state.LastSuccessAt),
		fieldUpdatedAt, formatTime(updated),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

// ResetFailCount clears the failure counter of phone. It reports whether a
// record existed.
func (s *Store) ResetFailCount(ctx context.Context, phone string) (bool, error) {
	state, err := s.LoadSession(ctx, phone)
	if err != nil || state == nil {
		return false, err
	}
	state.FailCount = 0
	state.UpdatedAt = time.Now()
	return true, s.SaveSession(ctx, state)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
