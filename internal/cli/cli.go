package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Status       *StatusCommand
	List         *ListCommand
	Show         *ShowCommand
	Submit       *SubmitCommand
	Suppress     *SuppressCommand
	Sweep        *SweepCommand
	Recategorize *RecategorizeCommand
	Purge        *PurgeCommand
	Serve        *ServeCommand

	RulesList          *RulesListCommand
	RulesAdd           *RulesAddCommand
	RulesImport        *RulesImportCommand
	RulesExport        *RulesExportCommand
	RulesSuggest       *RulesSuggestCommand
	RulesMergeDefaults *RulesMergeDefaultsCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "historylens"
	parser.LongDescription = "Classify browsing activity by URL rules and keep a local, queryable history."

	cmds := &commands{
		Status:       &StatusCommand{globals: &globals, version: version},
		List:         &ListCommand{globals: &globals, version: version},
		Show:         &ShowCommand{globals: &globals, version: version},
		Submit:       &SubmitCommand{globals: &globals, version: version},
		Suppress:     &SuppressCommand{globals: &globals, version: version},
		Sweep:        &SweepCommand{globals: &globals, version: version},
		Recategorize: &RecategorizeCommand{globals: &globals, version: version},
		Purge:        &PurgeCommand{globals: &globals, version: version},
		Serve:        &ServeCommand{globals: &globals, version: version},

		RulesList:          &RulesListCommand{globals: &globals},
		RulesAdd:           &RulesAddCommand{globals: &globals},
		RulesImport:        &RulesImportCommand{globals: &globals},
		RulesExport:        &RulesExportCommand{globals: &globals},
		RulesSuggest:       &RulesSuggestCommand{globals: &globals},
		RulesMergeDefaults: &RulesMergeDefaultsCommand{globals: &globals},
	}

	parser.AddCommand("status", "Show store statistics", "Show store statistics, maintenance history and daemon state.", cmds.Status)
	parser.AddCommand("list", "List stored activity", "List stored activity, newest first, with optional filters.", cmds.List)
	parser.AddCommand("show", "Print one stored entry", "Print the stored entry for a normalized URL.", cmds.Show)
	parser.AddCommand("submit", "Record a page visit", "Categorize and record a page visit by hand.", cmds.Submit)
	parser.AddCommand("suppress", "Suppress the next visit to a URL", "Ask the running daemon to ignore visits to a URL for the suppression window.", cmds.Suppress)
	parser.AddCommand("sweep", "Delete stale unknown entries", "Delete unknown entries not updated within the retention period.", cmds.Sweep)
	parser.AddCommand("recategorize", "Recategorize stored entries", "Recompute every stored category against the current rules.", cmds.Recategorize)
	parser.AddCommand("purge", "Delete ALL stored activity", "Delete ALL stored activity. Destructive operation with safety prompt.", cmds.Purge)
	parser.AddCommand("serve", "Start the historylens daemon", "Start the local HTTP daemon and the retention scheduler.", cmds.Serve)

	rulesCmd, _ := parser.AddCommand("rules", "Manage categorization rules", "List, edit, import and export categorization rules.", &RulesCommand{})
	rulesCmd.AddCommand("list", "List rules", "List rules in priority order.", cmds.RulesList)
	rulesCmd.AddCommand("add", "Add a rule", "Append a rule and recategorize stored entries.", cmds.RulesAdd)
	rulesCmd.AddCommand("import", "Import rules", "Replace the rule set from a JSON file. Comments and trailing commas are accepted.", cmds.RulesImport)
	rulesCmd.AddCommand("export", "Export rules", "Write the rule set as JSON.", cmds.RulesExport)
	rulesCmd.AddCommand("suggest", "Suggest a pattern", "Suggest a rule pattern for a URL.", cmds.RulesSuggest)
	rulesCmd.AddCommand("merge-defaults", "Merge default rules", "Append shipped default rules whose pattern is not configured yet.", cmds.RulesMergeDefaults)

	return parser, &globals, cmds
}

// Run is the main entry point for the historylens CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// go-flags requires a subcommand, but --version is valid without one.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("historylens %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
