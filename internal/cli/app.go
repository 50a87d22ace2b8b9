package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/cache"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/config"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/db"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/logger"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/metrics"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/notify"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/services"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/services/accounts"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/services/session"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/telecom"
)

// stateStore is a session store that can also clear failure counters.
type stateStore interface {
	session.Store
	ResetFailCount(ctx context.Context, phone string) (bool, error)
}

// sessionLister is implemented by stores that can enumerate their records.
type sessionLister interface {
	ListSessions(ctx context.Context) ([]models.SessionState, error)
}

// app holds the long-lived collaborators of a command.
type app struct {
	cfg      *config.Config
	db       *db.DB
	redis    *cache.Store
	store    stateStore
	client   *telecom.Client
	metrics  *metrics.Recorder
	sessions *session.Manager
	manager  *services.Manager
}

// newApp opens storage and builds the pipeline. Usage history and the run
// log always live in sqlite; session state follows the configured backend.
// notifyOut receives console notifications.
func newApp(ctx context.Context, cfg *config.Config, notifyOut io.Writer) (*app, error) {
	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &app{cfg: cfg, db: database, store: database, metrics: metrics.New()}

	if cfg.StateBackend == config.BackendRedis {
		store, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = store
		a.store = store
	}

	a.client = telecom.NewClient(cfg.GatewayURL,
		telecom.WithTimeout(cfg.RequestTimeout),
		telecom.WithClientVersion(cfg.ClientVersion),
	)

	notifier, err := notify.New(cfg.Notifiers, notifyOut)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.sessions = session.New(a.client, a.store,
		session.WithMaxFailures(cfg.MaxLoginFailures),
		session.WithObserver(a.metrics),
	)
	a.manager = services.NewManager(services.Deps{
		Sessions: a.sessions,
		Notifier: notifier,
		Recorder: database,
		Observer: a.metrics,
	})
	return a, nil
}

// credentials reads every configured account.
func (a *app) credentials() ([]models.Credential, error) {
	file, err := accounts.LoadFile(a.cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	return accounts.Load(nil, file)
}

// listSessions returns every stored session record when the backend supports
// enumeration.
func (a *app) listSessions(ctx context.Context) ([]models.SessionState, error) {
	lister, ok := a.store.(sessionLister)
	if !ok {
		return nil, fmt.Errorf("listing sessions is not supported by the %s backend", a.cfg.StateBackend)
	}
	return lister.ListSessions(ctx)
}

// Close releases storage handles.
func (a *app) Close() {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error("failed to close storage", "error", err)
	}
}
