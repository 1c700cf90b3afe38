package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/runnerr0/historylens/internal/storage"
)

// Execute implements the go-flags Commander interface for ShowCommand.
func (c *ShowCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for show command")
	}

	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWithEnv(context.Background(), e)
}

// executeWithEnv prints the entry against a prepared env (for testing).
func (c *ShowCommand) executeWithEnv(ctx context.Context, e *env) error {
	entry, err := e.svc.Get(ctx, c.URL)
	if errors.Is(err, storage.ErrNotFound) {
		// Accept the URL as visited too, not only in stored form.
		res, cerr := e.svc.Categorize(ctx, c.URL)
		if cerr == nil && res.NormalizedURL != c.URL {
			entry, err = e.svc.Get(ctx, res.NormalizedURL)
		}
	}
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("entry not found: %s", c.URL)
	}
	if err != nil {
		return fmt.Errorf("get entry: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(entry)
	}

	switch c.Format {
	case "json":
		return printJSON(entry)
	case "body":
		if entry.BodyText == "" {
			fmt.Println("No body text stored")
		} else {
			fmt.Println(entry.BodyText)
		}
	case "md":
		outputMarkdown(entry)
	case "full", "":
		outputFull(entry)
	default:
		return fmt.Errorf("unknown format %q (use full, md, body or json)", c.Format)
	}
	return nil
}

func outputFull(entry *storage.ActivityEntry) {
	fmt.Printf("Title:       %s\n", entry.Title)
	fmt.Printf("URL:         %s\n", entry.URL)
	fmt.Printf("Category:    %s\n", entry.Category)
	fmt.Printf("First seen:  %s\n", entry.FirstSeenAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:     %s\n", entry.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Println()
	fmt.Println("--- Body ---")
	if entry.BodyText == "" {
		fmt.Println("No body text stored")
	} else {
		fmt.Println(entry.BodyText)
	}
}

func outputMarkdown(entry *storage.ActivityEntry) {
	fmt.Println("---")
	fmt.Printf("title: %s\n", entry.Title)
	fmt.Printf("url: %s\n", entry.URL)
	fmt.Printf("category: %s\n", entry.Category)
	fmt.Printf("first_seen: %s\n", entry.FirstSeenAt.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Printf("updated: %s\n", entry.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Println("---")
	if entry.BodyText != "" {
		fmt.Println()
		fmt.Println(entry.BodyText)
	}
}
