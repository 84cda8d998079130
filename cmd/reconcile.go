package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/presslane/pressgang/internal/logutil"
	"github.com/presslane/pressgang/internal/press"
	"github.com/presslane/pressgang/internal/press/reconcile"
)

var (
	reconcileAccounts []string
	reconcileLimit    int
	cronSpec          string
)

func newReconcileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Promote pseudo-scheduled drafts whose deadline has passed",
		Long: "reconcile scans recent posts on pseudo-scheduling accounts, finds drafts whose " +
			"title carries an overdue schedule tag, and publishes them with the tag stripped. " +
			"With --cron it keeps running and sweeps on the given schedule.",
		RunE: runReconcile,
		Example: `  pressgang reconcile
  pressgang reconcile --account kinketsu --limit 200
  pressgang reconcile --cron "*/10 * * * *"`,
	}

	cmd.Flags().StringSliceVar(&reconcileAccounts, "account", nil, "Accounts to sweep (default: every reconcilable account)")
	cmd.Flags().IntVar(&reconcileLimit, "limit", 0, "How many recent posts to inspect per account (default: per-account recent_count, or 100)")
	cmd.Flags().StringVar(&cronSpec, "cron", "", "Keep running and sweep on this cron schedule")
	cmd.Flags().SortFlags = false

	return cmd
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	codec, err := cfg.Codec()
	if err != nil {
		return err
	}

	names := reconcileAccounts
	if len(names) == 0 {
		for name, account := range cfg.Accounts {
			if account.Reconcilable() {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return errors.New("no reconcilable accounts configured")
	}

	targets := make([]reconcile.Target, 0, len(names))
	for _, name := range names {
		account, ok := cfg.Accounts[name]
		if !ok {
			return fmt.Errorf("account %q not found in config", name)
		}
		limit := reconcileLimit
		if limit <= 0 {
			limit = account.RecentCount
		}
		targets = append(targets, reconcile.Target{
			Name:  name,
			Limit: limit,
			Open: func(ctx context.Context) (press.Publisher, error) {
				return account.Publisher(ctx)
			},
		})
	}
	reconcile.SortTargets(targets)

	rec := reconcile.New(codec, nil)
	sweep := func(ctx context.Context) error {
		result := rec.Sweep(ctx, targets)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "finished: published %d post(s)\n", result.Promoted)
		failed := make([]string, 0, len(result.Failures))
		for name := range result.Failures {
			failed = append(failed, name)
		}
		sort.Strings(failed)
		for _, name := range failed {
			fmt.Fprintf(out, "  %s: %v\n", name, result.Failures[name])
		}

		if len(result.Failures) == len(targets) {
			return errors.New("every account failed")
		}
		return nil
	}

	if cronSpec == "" {
		return sweep(ctx)
	}

	runner := cron.New()
	if _, err := runner.AddFunc(cronSpec, func() {
		if err := sweep(ctx); err != nil {
			logutil.Errorf("sweep: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("parse --cron: %w", err)
	}

	logutil.Infof("reconciler running on schedule %q", cronSpec)
	runner.Start()
	<-ctx.Done()
	<-runner.Stop().Done()
	return nil
}
