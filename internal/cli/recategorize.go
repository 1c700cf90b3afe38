package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/runnerr0/historylens/internal/recategorize"
)

// Execute implements the go-flags Commander interface for RecategorizeCommand.
func (c *RecategorizeCommand) Execute(args []string) error {
	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWithEnv(context.Background(), e)
}

// executeWithEnv recategorizes against a prepared env (for testing).
func (c *RecategorizeCommand) executeWithEnv(ctx context.Context, e *env) error {
	report, err := e.svc.RecategorizeAll(ctx)
	if err != nil && !errors.Is(err, recategorize.ErrIncomplete) {
		return fmt.Errorf("recategorize: %w", err)
	}

	if jsonOutput(c.globals) {
		if perr := printJSON(report); perr != nil {
			return perr
		}
	} else {
		printReport(report)
	}
	// Failed writes are reported above and still fail the command.
	return err
}

func printReport(r recategorize.Report) {
	fmt.Printf("Examined %d, changed %d", r.Examined, r.Changed)
	if r.Failed > 0 {
		fmt.Printf(", failed %d (run again to retry)", r.Failed)
	}
	fmt.Println()
}
