package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/historylens/internal/rules"
	"github.com/runnerr0/historylens/internal/storage"
)

// Execute implements the go-flags Commander interface for ListCommand.
func (c *ListCommand) Execute(args []string) error {
	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWithEnv(context.Background(), e, time.Now())
}

// executeWithEnv lists entries against a prepared env (for testing).
func (c *ListCommand) executeWithEnv(ctx context.Context, e *env, now time.Time) error {
	if c.Limit < 0 || c.Offset < 0 {
		return fmt.Errorf("--limit and --offset cannot be negative")
	}

	category := c.Category
	if c.Unknown {
		if category != "" && category != rules.Unknown {
			return fmt.Errorf("--unknown and --category are mutually exclusive")
		}
		category = rules.Unknown
	}

	entries, err := c.query(ctx, e, category, now)
	if err != nil {
		return err
	}

	if jsonOutput(c.globals) {
		return printJSON(listJSON{Count: len(entries), Entries: entries})
	}
	c.printHuman(entries)
	return nil
}

// query pages in SQL when no filter is set and in memory otherwise.
func (c *ListCommand) query(ctx context.Context, e *env, category string, now time.Time) ([]storage.ActivityEntry, error) {
	if c.Since == "" && c.Until == "" && category == "" {
		entries, err := e.svc.Recent(ctx, c.Limit, c.Offset)
		if err != nil {
			return nil, fmt.Errorf("list failed: %w", err)
		}
		return entries, nil
	}

	var (
		entries []storage.ActivityEntry
		err     error
	)
	if c.Since != "" || c.Until != "" {
		low := time.UnixMilli(0).UTC()
		if c.Since != "" {
			d, perr := parseDuration(c.Since)
			if perr != nil {
				return nil, fmt.Errorf("invalid --since value %q: %w", c.Since, perr)
			}
			low = now.Add(-d)
		}
		high := now
		if c.Until != "" {
			d, perr := parseDuration(c.Until)
			if perr != nil {
				return nil, fmt.Errorf("invalid --until value %q: %w", c.Until, perr)
			}
			high = now.Add(-d)
		}

		entries, err = e.svc.QueryRange(ctx, low, high, storage.OrderDesc)
		if err == nil && category != "" {
			entries = filterCategory(entries, category)
		}
	} else {
		entries, err = e.svc.QueryCategory(ctx, category)
	}
	if err != nil {
		return nil, fmt.Errorf("list failed: %w", err)
	}

	return page(entries, c.Limit, c.Offset), nil
}

func filterCategory(entries []storage.ActivityEntry, category string) []storage.ActivityEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

func page(entries []storage.ActivityEntry, limit, offset int) []storage.ActivityEntry {
	if offset >= len(entries) {
		return []storage.ActivityEntry{}
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

func (c *ListCommand) printHuman(entries []storage.ActivityEntry) {
	if len(entries) == 0 {
		fmt.Println("No entries found")
		return
	}

	word := "entries"
	if len(entries) == 1 {
		word = "entry"
	}
	fmt.Printf("Found %d %s\n\n", len(entries), word)

	for i, e := range entries {
		title := e.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%d. %s\n", i+1+c.Offset, truncate(title, 80))
		fmt.Printf("   %s\n", e.URL)
		fmt.Printf("   %s · %s\n", e.UpdatedAt.Local().Format("2006-01-02 15:04"), e.Category)

		if i < len(entries)-1 {
			fmt.Println()
		}
	}
}

type listJSON struct {
	Count   int                     `json:"count"`
	Entries []storage.ActivityEntry `json:"entries"`
}
