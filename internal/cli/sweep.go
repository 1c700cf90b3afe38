package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/historylens/internal/retention"
)

// Execute implements the go-flags Commander interface for SweepCommand.
func (c *SweepCommand) Execute(args []string) error {
	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWithEnv(context.Background(), e, time.Now)
}

// executeWithEnv sweeps against a prepared env (for testing).
func (c *SweepCommand) executeWithEnv(ctx context.Context, e *env, now func() time.Time) error {
	threshold := e.cfg.UnknownRetention()
	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return fmt.Errorf("invalid --older-than value %q: %w", c.OlderThan, err)
		}
		if d <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		threshold = d
	}

	sweeper := retention.NewSweeper(e.store, e.log, retention.Options{
		Threshold: threshold,
		Audit:     e.cfg.Logging.AuditLog,
		Now:       now,
	})

	var (
		res retention.Result
		err error
	)
	if c.DryRun {
		res, err = sweeper.Preview(ctx)
	} else {
		res, err = sweeper.Sweep(ctx)
	}
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(struct {
			retention.Result
			DryRun bool `json:"dry_run"`
		}{res, c.DryRun})
	}

	verb := "Deleted"
	if c.DryRun {
		verb = "Would delete"
	}
	fmt.Printf("%s %d unknown %s not updated in %s (scanned %d up to %s)\n",
		verb, res.Deleted, pluralEntries(res.Deleted), formatDurationHuman(threshold),
		res.Scanned, res.Cutoff.Local().Format("2006-01-02 15:04"))
	return nil
}

func pluralEntries(n int) string {
	if n == 1 {
		return "entry"
	}
	return "entries"
}
