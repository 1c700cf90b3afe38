package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/runnerr0/historylens/internal/activity"
)

// Execute implements the go-flags Commander interface for SubmitCommand.
func (c *SubmitCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for submit command")
	}

	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWithEnv(context.Background(), e, time.Now())
}

// submission builds the request from flags. A body file ending in .html or
// .htm, or starting with a tag, is treated as page HTML.
func (c *SubmitCommand) submission() (activity.Submission, error) {
	if c.Body != "" && c.BodyFile != "" {
		return activity.Submission{}, fmt.Errorf("--body and --body-file are mutually exclusive")
	}

	sub := activity.Submission{URL: c.URL, Title: c.Title, BodyText: c.Body}
	if c.BodyFile == "" {
		return sub, nil
	}

	data, err := os.ReadFile(c.BodyFile)
	if err != nil {
		return activity.Submission{}, fmt.Errorf("reading body file: %w", err)
	}
	content := string(data)

	ext := strings.ToLower(filepath.Ext(c.BodyFile))
	if ext == ".html" || ext == ".htm" || strings.HasPrefix(strings.TrimSpace(content), "<") {
		sub.HTML = content
	} else {
		sub.BodyText = content
	}
	return sub, nil
}

// executeWithEnv records the visit against a prepared env (for testing).
func (c *SubmitCommand) executeWithEnv(ctx context.Context, e *env, now time.Time) error {
	sub, err := c.submission()
	if err != nil {
		return err
	}

	res, err := e.svc.SubmitActivity(ctx, sub, now)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(res)
	}

	if res.Status == activity.StatusSkipped {
		fmt.Printf("Skipped %s (%s)\n", c.URL, res.Reason)
		return nil
	}

	hasBody := "no"
	if res.Entry.BodyText != "" {
		hasBody = "yes"
	}
	fmt.Printf("Recorded %s (%s)\n", res.Entry.URL, res.Entry.UpdatedAt.Format(time.RFC3339))
	fmt.Printf("  Title: %s\n", res.Entry.Title)
	fmt.Printf("  Category: %s\n", res.Entry.Category)
	fmt.Printf("  Body: %s\n", hasBody)
	return nil
}
