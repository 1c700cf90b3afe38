package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/historylens/internal/logger"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}

	if !c.Force {
		if err := confirmPurge(os.Stdin); err != nil {
			return err
		}
	}

	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWithEnv(context.Background(), e)
}

// confirmPurge asks the user to type PURGE.
func confirmPurge(in io.Reader) error {
	fmt.Println("⚠ WARNING: This will permanently delete ALL stored activity.")
	fmt.Println("  - All recorded pages and their categories")
	fmt.Println("  - All stored body text")
	fmt.Println()
	fmt.Println("Rules and settings are kept. This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "PURGE" to confirm: `)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "PURGE" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

// executeWithEnv purges against a prepared env (for testing).
func (c *PurgeCommand) executeWithEnv(ctx context.Context, e *env) error {
	n, err := e.store.PurgeAll(ctx)
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	if e.cfg.Logging.AuditLog {
		if err := e.store.AppendAudit(ctx, "purge", fmt.Sprintf("deleted=%d", n), time.Now()); err != nil {
			e.log.Warn("failed to record purge in audit log", logger.Error(err))
		}
	}

	if jsonOutput(c.globals) {
		return printJSON(map[string]interface{}{
			"purged":  true,
			"deleted": n,
			"message": "all activity deleted",
		})
	}

	fmt.Printf("Purged all data (%s %s deleted).\n", formatNumber(n), pluralEntries(int(n)))
	return nil
}
