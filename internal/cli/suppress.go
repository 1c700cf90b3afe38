package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/runnerr0/historylens/internal/config"
)

// Execute implements the go-flags Commander interface for SuppressCommand.
// Suppression lives in the daemon's memory, so this talks to the daemon
// rather than the database.
func (c *SuppressCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for suppress command")
	}

	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	return c.executeWithDaemon(context.Background(), cfg)
}

func (c *SuppressCommand) executeWithDaemon(ctx context.Context, cfg *config.Config) error {
	resp, err := daemonRequest(ctx, cfg, http.MethodPost, "/api/suppress", map[string]string{"url": c.URL})
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", cfg.Addr(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("suppress failed: %s %s", resp.Status, body.Error)
	}

	if jsonOutput(c.globals) {
		return printJSON(map[string]string{"status": "ok", "url": c.URL})
	}
	fmt.Printf("Suppressed %s\n", c.URL)
	return nil
}
