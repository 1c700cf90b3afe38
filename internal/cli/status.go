package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/historylens/internal/recategorize"
	"github.com/runnerr0/historylens/internal/retention"
	"github.com/runnerr0/historylens/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string                  `json:"version"`
	DatabasePath      string                  `json:"database_path"`
	DatabaseSizeBytes int64                   `json:"database_size_bytes"`
	TotalEntries      int64                   `json:"total_entries"`
	UnknownEntries    int64                   `json:"unknown_entries"`
	OldestUpdate      string                  `json:"oldest_update,omitempty"`
	NewestUpdate      string                  `json:"newest_update,omitempty"`
	Rules             int                     `json:"rules"`
	RetentionDays     int                     `json:"retention_days"`
	LastSweep         string                  `json:"last_sweep,omitempty"`
	LastRecategorize  string                  `json:"last_recategorize,omitempty"`
	TopCategories     []storage.CategoryCount `json:"top_categories"`
	DaemonAddr        string                  `json:"daemon_addr"`
	DaemonRunning     bool                    `json:"daemon_running"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWithEnv(context.Background(), e)
}

// executeWithEnv runs status against a prepared env (for testing).
func (c *StatusCommand) executeWithEnv(ctx context.Context, e *env) error {
	stats, err := e.svc.Stats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	rs, err := e.svc.RuleSet(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	out := statusJSON{
		Version:           c.version,
		DatabasePath:      e.dbPath,
		DatabaseSizeBytes: getDatabaseSize(e.db, e.dbPath),
		TotalEntries:      stats.TotalEntries,
		UnknownEntries:    stats.UnknownCount,
		Rules:             len(rs),
		RetentionDays:     e.cfg.Retention.UnknownDays,
		TopCategories:     stats.TopCategories,
		DaemonAddr:        e.cfg.Addr(),
		DaemonRunning:     checkDaemon(e.cfg),
	}
	if out.TopCategories == nil {
		out.TopCategories = []storage.CategoryCount{}
	}
	if stats.TotalEntries > 0 {
		out.OldestUpdate = stats.OldestUpdate.UTC().Format(time.RFC3339)
		out.NewestUpdate = stats.NewestUpdate.UTC().Format(time.RFC3339)
	}
	if out.LastSweep, err = lastRun(ctx, e, retention.AuditAction); err != nil {
		return err
	}
	if out.LastRecategorize, err = lastRun(ctx, e, recategorize.AuditAction); err != nil {
		return err
	}

	if jsonOutput(c.globals) {
		return printJSON(out)
	}
	printStatusHuman(out, stats)
	return nil
}

func lastRun(ctx context.Context, e *env, action string) (string, error) {
	rec, ok, err := e.svc.LastRun(ctx, action)
	if err != nil {
		return "", fmt.Errorf("read audit log: %w", err)
	}
	if !ok {
		return "", nil
	}
	return rec.At.UTC().Format(time.RFC3339), nil
}

func printStatusHuman(out statusJSON, stats *storage.Stats) {
	fmt.Println("historylens status")
	fmt.Println("==================")
	fmt.Printf("Version:       %s\n", out.Version)
	fmt.Printf("Database:      %s (%s)\n", out.DatabasePath, formatBytes(out.DatabaseSizeBytes))
	fmt.Printf("Entries:       %s\n", formatNumber(out.TotalEntries))

	if out.TotalEntries > 0 {
		pct := float64(out.UnknownEntries) / float64(out.TotalEntries) * 100
		fmt.Printf("Unknown:       %s (%.1f%%)\n", formatNumber(out.UnknownEntries), pct)
		fmt.Printf("Oldest:        %s\n", stats.OldestUpdate.Local().Format("2006-01-02"))
		fmt.Printf("Newest:        %s\n", stats.NewestUpdate.Local().Format("2006-01-02"))
	} else {
		fmt.Printf("Unknown:       %s\n", formatNumber(out.UnknownEntries))
	}

	fmt.Printf("Rules:         %d\n", out.Rules)
	fmt.Printf("Retention:     unknown entries kept %s\n",
		formatDurationHuman(time.Duration(out.RetentionDays)*24*time.Hour))
	fmt.Printf("Last sweep:    %s\n", orNever(out.LastSweep))
	fmt.Printf("Last recat.:   %s\n", orNever(out.LastRecategorize))

	if len(out.TopCategories) > 0 {
		fmt.Println()
		fmt.Println("Top Categories:")
		for _, cc := range out.TopCategories {
			fmt.Printf("  %-28s %s\n", cc.Category, formatNumber(cc.Count))
		}
	}

	fmt.Println()
	if out.DaemonRunning {
		fmt.Printf("Daemon:        running on %s\n", out.DaemonAddr)
	} else {
		fmt.Printf("Daemon:        not running (%s)\n", out.DaemonAddr)
	}
}

func orNever(ts string) string {
	if ts == "" {
		return "never"
	}
	return ts
}

// getDatabaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. For in-memory databases,
// it queries page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}
