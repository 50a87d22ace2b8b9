package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/logger"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/scheduler"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/server"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/services/accounts"
)

const (
	housekeepingSchedule = "30 3 * * *"
	batchTimeout         = 30 * time.Minute
	stopTimeout          = 30 * time.Second
)

// accountSet holds the current credential list, replaced on file changes.
type accountSet struct {
	mu    sync.RWMutex
	creds []models.Credential
	load  func() ([]models.Credential, error)
}

func (s *accountSet) reload() error {
	creds, err := s.load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
	logger.Info("accounts loaded", "count", len(creds))
	return nil
}

func (s *accountSet) snapshot() []models.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Credential(nil), s.creds...)
}

func (c *command) daemonCmd() *cobra.Command {
	var (
		listen string
		runNow bool
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run batches on a cron schedule and serve the query API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("listen") {
				listen = c.cfg.ListenAddr
			}

			a, err := newApp(ctx, c.cfg, c.stdout)
			if err != nil {
				return err
			}
			defer a.Close()

			set := &accountSet{load: a.credentials}
			if err := set.reload(); err != nil {
				// An empty account list is valid while waiting for the file.
				if !errors.Is(err, accounts.ErrNoAccounts) {
					return err
				}
				logger.Warn("no accounts configured yet", "config", c.cfg.ConfigFile)
			}

			watcher, err := accounts.NewWatcher(c.cfg.ConfigFile, accounts.DefaultDebounce, func() {
				if err := set.reload(); err != nil {
					logger.Error("failed to reload accounts", "config", c.cfg.ConfigFile, "error", err)
				}
			})
			if err != nil {
				return err
			}
			defer func() {
				if err := watcher.Close(); err != nil {
					logger.Error("failed to close watcher", "error", err)
				}
			}()

			batch := func(ctx context.Context) error {
				creds := set.snapshot()
				if len(creds) == 0 {
					return accounts.ErrNoAccounts
				}
				result := a.manager.Run(ctx, creds)
				logger.Info("scheduled batch done", "run_id", result.RunID,
					"processed", result.Processed(), "skipped", result.Skipped())
				return nil
			}
			housekeeping := func(ctx context.Context) error {
				n, err := a.db.CleanupOldSnapshots(ctx, c.cfg.RetentionDays)
				if err != nil {
					return err
				}
				logger.Info("old snapshots removed", "count", n, "retention_days", c.cfg.RetentionDays)
				return nil
			}

			sched := scheduler.New(scheduler.WithJobTimeout(batchTimeout))
			batchID, err := sched.Add("batch", c.cfg.Schedule, batch)
			if err != nil {
				return err
			}
			if c.cfg.RetentionDays > 0 {
				if _, err := sched.Add("housekeeping", housekeepingSchedule, housekeeping); err != nil {
					return err
				}
			}
			sched.Start()
			logger.Info("daemon started", "schedule", c.cfg.Schedule, "next_run", sched.Next(batchID))

			if runNow {
				if err := batch(ctx); err != nil {
					logger.Warn("initial batch skipped", "error", err)
				}
			}

			errCh := make(chan error, 1)
			if listen != "" {
				srv := server.New(server.Options{
					Processor: a.manager,
					Sessions:  a.sessions,
					Raw:       a.client,
					Metrics:   a.metrics,
					APIKey:    c.cfg.APIKey,
					Dev:       c.cfg.Dev,
				})
				go func() { errCh <- srv.ListenAndServe(ctx, listen) }()
			}

			var serveErr error
			select {
			case <-ctx.Done():
				logger.Info("shutdown signal received")
				if listen != "" {
					serveErr = <-errCh
				}
			case serveErr = <-errCh:
			}

			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				logger.Error("scheduler did not stop cleanly", "error", err)
			}
			if serveErr != nil {
				return fmt.Errorf("query api: %w", serveErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", `listen address of the query API and /metrics (default from TELECOM_LISTEN_ADDR, "" disables)`)
	cmd.Flags().BoolVar(&runNow, "run-now", false, "run one batch immediately on start")
	return cmd
}

func (c *command) serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP query API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("listen") {
				listen = c.cfg.ListenAddr
			}

			a, err := newApp(cmd.Context(), c.cfg, c.stdout)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.New(server.Options{
				Processor: a.manager,
				Sessions:  a.sessions,
				Raw:       a.client,
				Metrics:   a.metrics,
				APIKey:    c.cfg.APIKey,
				Dev:       c.cfg.Dev,
			})
			return srv.ListenAndServe(cmd.Context(), listen)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (default from TELECOM_LISTEN_ADDR)")
	return cmd
}
