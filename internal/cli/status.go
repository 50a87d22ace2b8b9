package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/services/projection"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/ui"
)

const recentRuns = 10

func (c *command) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cached sessions, failure counters and recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, c.cfg, c.stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			console := ui.NewConsole(c.stdout, !c.flags.noColor)

			states, err := a.listSessions(ctx)
			if err != nil {
				return err
			}
			if err := console.Print(ui.RenderSessions(states, c.cfg.MaxLoginFailures)); err != nil {
				return err
			}

			runs, err := a.db.RecentRuns(ctx, recentRuns)
			if err != nil {
				return err
			}
			return console.Print(ui.RenderRuns(runs))
		},
	}
}

func (c *command) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <phone>",
		Short: "Clear the login failure counter of an account",
		Long: `Clears the login failure counter so that the account is logged in again
on the next run. Use this after fixing a wrong password.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg, c.stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			phone := args[0]
			found, err := a.store.ResetFailCount(cmd.Context(), phone)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no session state for %s", phone)
			}
			_, err = fmt.Fprintf(c.stdout, "failure counter of %s cleared\n", phone)
			return err
		},
	}
}

func (c *command) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <phone>",
		Short: "Show recorded usage of an account and project the current cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}

			a, err := newApp(cmd.Context(), c.cfg, c.stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			history, err := a.db.UsageHistory(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			console := ui.NewConsole(c.stdout, !c.flags.noColor)
			if err := console.Print(ui.RenderHistory(args[0], history)); err != nil {
				return err
			}
			if proj := projection.Project(history, time.Now()); proj != nil {
				return console.Print(ui.RenderProjection(proj))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 30, "number of snapshots to show")
	return cmd
}
