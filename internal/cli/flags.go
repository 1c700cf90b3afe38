package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DBPath  string `long:"db-path" description:"Override the database file path"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// StatusCommand shows store statistics, maintenance history and daemon state.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// ListCommand lists stored activity, newest first.
type ListCommand struct {
	Since    string `long:"since" description:"Only entries updated within duration (e.g., 7d, 24h, 2w)"`
	Until    string `long:"until" description:"Only entries updated before duration ago"`
	Category string `long:"category" description:"Only entries with this category"`
	Unknown  bool   `long:"unknown" description:"Only unclassified entries"`
	Limit    int    `long:"limit" description:"Maximum results" default:"20"`
	Offset   int    `long:"offset" description:"Skip first N results" default:"0"`

	globals *GlobalFlags
	version string
}

// ShowCommand prints one stored entry.
type ShowCommand struct {
	URL    string `long:"url" description:"Normalized URL of the entry (required)"`
	Format string `long:"format" description:"Output format: full | md | body | json" default:"full"`

	globals *GlobalFlags
	version string
}

// SubmitCommand records a page visit by hand.
type SubmitCommand struct {
	URL      string `long:"url" description:"URL to record (required)"`
	Title    string `long:"title" description:"Page title"`
	Body     string `long:"body" description:"Inline body text"`
	BodyFile string `long:"body-file" description:"Path to file containing body text or HTML"`

	globals *GlobalFlags
	version string
}

// SuppressCommand asks the running daemon to ignore the next visit to a URL.
type SuppressCommand struct {
	URL string `long:"url" description:"URL to suppress (required)"`

	globals *GlobalFlags
	version string
}

// SweepCommand deletes stale unknown entries.
type SweepCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 7d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be deleted without deleting"`

	globals *GlobalFlags
	version string
}

// RecategorizeCommand recomputes every stored category against the current rules.
type RecategorizeCommand struct {
	globals *GlobalFlags
	version string
}

// RulesCommand groups the rule management subcommands.
type RulesCommand struct{}

// RulesListCommand prints the rule set in priority order.
type RulesListCommand struct {
	globals *GlobalFlags
}

// RulesAddCommand appends a rule and recategorizes stored entries.
type RulesAddCommand struct {
	Pattern  string `long:"pattern" description:"Wildcard URL pattern (required)"`
	Category string `long:"category" description:"Category label (required)"`

	globals *GlobalFlags
}

// RulesImportCommand replaces the rule set from a JSON file.
type RulesImportCommand struct {
	File         string `long:"file" description:"JSON rules file (required)"`
	Recategorize bool   `long:"recategorize" description:"Recategorize stored entries after import"`

	globals *GlobalFlags
}

// RulesExportCommand writes the rule set to a JSON file or stdout.
type RulesExportCommand struct {
	File string `long:"file" description:"Output file (default stdout)"`

	globals *GlobalFlags
}

// RulesSuggestCommand proposes a pattern for a URL.
type RulesSuggestCommand struct {
	URL string `long:"url" description:"URL to derive a pattern from (required)"`

	globals *GlobalFlags
}

// RulesMergeDefaultsCommand appends shipped default rules that are missing.
type RulesMergeDefaultsCommand struct {
	globals *GlobalFlags
}

// PurgeCommand deletes all stored activity with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
}

// ServeCommand runs the local HTTP daemon and the retention scheduler.
type ServeCommand struct {
	Host     string `long:"host" description:"Override daemon host"`
	Port     int    `long:"port" description:"Override daemon port"`
	LogLevel string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
}
