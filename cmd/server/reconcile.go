package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"foodhub/worker"
)

var errReconcileRunning = errors.New("another reconcile is already running")

func newReconcileCommand(cc *commandContext) *cobra.Command {
	var (
		opts     worker.Options
		lockPath string
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair restaurant item lists and category sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			lock := flock.New(lockPath)
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return errReconcileRunning
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					cc.log.Warn("failed to release reconcile lock", zap.Error(err))
				}
			}()

			store, err := cc.connect(ctx)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer store.Close(ctx)

			report, err := worker.NewReconciler(store, cc.log, opts).Run(ctx)
			printReport(cmd.OutOrStdout(), report)
			if err != nil {
				return err
			}
			if n := report.Failed(); n > 0 {
				return fmt.Errorf("%d restaurant(s) could not be reconciled", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Report repairs without writing them")
	cmd.Flags().BoolVar(&opts.PruneCategories, "prune-categories", false, "Remove categories no current item uses")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", worker.WorkerPoolSize, "Restaurants reconciled in parallel")
	cmd.Flags().StringVar(&lockPath, "lock-file", filepath.Join(os.TempDir(), "foodhub-reconcile.lock"), "Lock file guarding concurrent runs")
	return cmd
}

func printReport(w io.Writer, report worker.Report) {
	verb := "repaired"
	if report.DryRun {
		verb = "would repair"
	}
	fmt.Fprintf(w, "%d restaurant(s) checked, %s %d\n", report.Restaurants, verb, len(report.Repairs))
	if len(report.Repairs) == 0 {
		return
	}

	rows := make([]table.Row, 0, len(report.Repairs))
	for _, rep := range report.Repairs {
		status := "ok"
		if rep.Err != nil {
			status = rep.Err.Error()
		}
		rows = append(rows, table.Row{
			rep.Name,
			rep.Restaurant.Hex(),
			rep.UpgradedRefs,
			rep.AddedItems,
			rep.DroppedItems,
			strings.Join(rep.AddedCategories, ", "),
			strings.Join(rep.PrunedCategories, ", "),
			status,
		})
	}
	fmt.Fprintln(w, renderTable([]column{
		{"Restaurant", false}, {"ID", false}, {"Refs", true}, {"+Items", true}, {"-Items", true},
		{"+Categories", false}, {"-Categories", false}, {"Status", false},
	}, rows...))
}
