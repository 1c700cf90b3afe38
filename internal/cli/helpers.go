package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/runnerr0/historylens/internal/activity"
	"github.com/runnerr0/historylens/internal/config"
	"github.com/runnerr0/historylens/internal/logger"
	"github.com/runnerr0/historylens/internal/storage"
)

// env is everything a command needs to work on the local store.
type env struct {
	cfg    *config.Config
	store  *storage.SQLiteStore
	db     *sql.DB
	svc    *activity.Service
	log    logger.Logger
	dbPath string
}

// loadConfig reads --config, or the default config file, creating it with
// defaults on first use. --db-path overrides the configured location.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if globals != nil && globals.Config != "" {
		cfg, err = config.LoadOrCreateAt(globals.Config)
	} else {
		cfg, err = config.LoadOrCreate()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func resolveDBPath(globals *GlobalFlags, cfg *config.Config) (string, error) {
	if globals != nil && globals.DBPath != "" {
		return globals.DBPath, nil
	}
	return cfg.DBPath()
}

// cliLogger logs warnings only, unless --verbose asks for everything.
func cliLogger(globals *GlobalFlags, cfg *config.Config) logger.Logger {
	level := "warn"
	if globals != nil && globals.Verbose {
		level = "debug"
	}
	log, err := logger.New(level, cfg.Logging.Pretty)
	if err != nil {
		return logger.Nop()
	}
	return log
}

// openEnv loads config, opens the store with migrations applied and builds
// the activity service over it.
func openEnv(globals *GlobalFlags) (*env, error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(globals, cfg)
	if err != nil {
		return nil, err
	}

	store, db, err := storage.Open(dbPath, cfg.Storage.SQLiteJournalMode)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return newEnv(cfg, store, db, cliLogger(globals, cfg), dbPath), nil
}

func newEnv(cfg *config.Config, store *storage.SQLiteStore, db *sql.DB, log logger.Logger, dbPath string) *env {
	return &env{
		cfg:    cfg,
		store:  store,
		db:     db,
		svc:    activity.NewService(store, log, activity.OptionsFromConfig(cfg)),
		log:    log,
		dbPath: dbPath,
	}
}

func (e *env) Close() {
	_ = e.log.Sync()
	e.store.Close()
	e.db.Close()
}

func jsonOutput(globals *GlobalFlags) bool {
	return globals != nil && globals.JSON
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// daemonRequest sends a JSON request to the local daemon described by cfg.
func daemonRequest(ctx context.Context, cfg *config.Config, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, "http://"+cfg.Addr()+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Daemon.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Daemon.AuthToken)
	}

	client := &http.Client{Timeout: 2 * time.Second}
	return client.Do(req)
}

// checkDaemon reports whether the daemon answers its health check.
func checkDaemon(cfg *config.Config) bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := daemonRequest(ctx, cfg, http.MethodGet, "/healthz", nil)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]

	n, err := strconv.Atoi(numStr)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, w, or m suffix)", s)
	}
}

// formatDurationHuman formats a duration into a human-readable string like "30 days".
func formatDurationHuman(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	hours := int(d.Hours())
	if hours > 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if i > 0 {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
