package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/runnerr0/historylens/internal/recategorize"
	"github.com/runnerr0/historylens/internal/rules"
)

// withEnv opens the local store for a rules subcommand.
func withEnv(globals *GlobalFlags, fn func(ctx context.Context, e *env) error) error {
	e, err := openEnv(globals)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(context.Background(), e)
}

// Execute implements the go-flags Commander interface for RulesListCommand.
func (c *RulesListCommand) Execute(args []string) error {
	return withEnv(c.globals, c.executeWithEnv)
}

func (c *RulesListCommand) executeWithEnv(ctx context.Context, e *env) error {
	rs, err := e.svc.RuleSet(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(rs)
	}
	if len(rs) == 0 {
		fmt.Println("No rules configured")
		return nil
	}
	for i, r := range rs {
		fmt.Printf("%3d. %-48s %s\n", i+1, r.Pattern, r.Category)
	}
	return nil
}

// Execute implements the go-flags Commander interface for RulesAddCommand.
func (c *RulesAddCommand) Execute(args []string) error {
	if c.Pattern == "" || c.Category == "" {
		return fmt.Errorf("--pattern and --category are required for rules add")
	}
	return withEnv(c.globals, c.executeWithEnv)
}

func (c *RulesAddCommand) executeWithEnv(ctx context.Context, e *env) error {
	report, err := e.svc.AddRule(ctx, c.Pattern, c.Category)
	if err != nil && !errors.Is(err, recategorize.ErrIncomplete) {
		return fmt.Errorf("add rule: %w", err)
	}

	if jsonOutput(c.globals) {
		if perr := printJSON(report); perr != nil {
			return perr
		}
		return err
	}

	fmt.Printf("Added rule %s -> %s\n", c.Pattern, c.Category)
	printReport(report)
	return err
}

// Execute implements the go-flags Commander interface for RulesImportCommand.
func (c *RulesImportCommand) Execute(args []string) error {
	if c.File == "" {
		return fmt.Errorf("--file is required for rules import")
	}
	return withEnv(c.globals, c.executeWithEnv)
}

func (c *RulesImportCommand) executeWithEnv(ctx context.Context, e *env) error {
	rs, err := rules.LoadFile(c.File)
	if err != nil {
		return err
	}
	if err := e.svc.SetRuleSet(ctx, rs); err != nil {
		return fmt.Errorf("store rules: %w", err)
	}

	if !jsonOutput(c.globals) {
		fmt.Printf("Imported %d rules from %s\n", len(rs), c.File)
	}
	if !c.Recategorize {
		if jsonOutput(c.globals) {
			return printJSON(map[string]int{"imported": len(rs)})
		}
		return nil
	}

	report, err := e.svc.RecategorizeAll(ctx)
	if err != nil && !errors.Is(err, recategorize.ErrIncomplete) {
		return fmt.Errorf("recategorize: %w", err)
	}
	if jsonOutput(c.globals) {
		if perr := printJSON(struct {
			Imported int                 `json:"imported"`
			Report   recategorize.Report `json:"report"`
		}{len(rs), report}); perr != nil {
			return perr
		}
		return err
	}
	printReport(report)
	return err
}

// Execute implements the go-flags Commander interface for RulesExportCommand.
func (c *RulesExportCommand) Execute(args []string) error {
	return withEnv(c.globals, c.executeWithEnv)
}

func (c *RulesExportCommand) executeWithEnv(ctx context.Context, e *env) error {
	rs, err := e.svc.RuleSet(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	if c.File == "" {
		return printJSON(rs)
	}
	if err := rules.WriteFile(c.File, rs); err != nil {
		return err
	}
	if !jsonOutput(c.globals) {
		fmt.Printf("Exported %d rules to %s\n", len(rs), c.File)
	}
	return nil
}

// Execute implements the go-flags Commander interface for RulesSuggestCommand.
// It needs no store.
func (c *RulesSuggestCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for rules suggest")
	}

	pattern := rules.SuggestPattern(c.URL)
	if jsonOutput(c.globals) {
		return printJSON(map[string]string{"url": c.URL, "pattern": pattern})
	}
	fmt.Println(pattern)
	return nil
}

// Execute implements the go-flags Commander interface for RulesMergeDefaultsCommand.
func (c *RulesMergeDefaultsCommand) Execute(args []string) error {
	return withEnv(c.globals, c.executeWithEnv)
}

func (c *RulesMergeDefaultsCommand) executeWithEnv(ctx context.Context, e *env) error {
	added, err := e.svc.MergeDefaults(ctx)
	if err != nil {
		return err
	}

	if jsonOutput(c.globals) {
		return printJSON(map[string]int{"added": added})
	}
	fmt.Printf("Added %d default %s\n", added, pluralRules(added))
	return nil
}

func pluralRules(n int) string {
	if n == 1 {
		return "rule"
	}
	return "rules"
}
