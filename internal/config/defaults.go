package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Retention: RetentionConfig{
			UnknownDays:        7,
			SweepIntervalHours: 24,
		},
		Capture: CaptureConfig{
			SuppressWindowMS:   5000,
			MaxBodyChars:       100000,
			KeepBodyForUnknown: false,
			DenylistDomains:    DefaultDenylistDomains(),
		},
		Storage: StorageConfig{
			Path:              "~/.config/historylens",
			SQLiteFile:        "historylens.db",
			SQLiteJournalMode: "wal",
		},
		Daemon: DaemonConfig{
			Host:           "127.0.0.1",
			Port:           8722,
			AuthToken:      "",
			MaxRequestSize: 10485760,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Pretty:   false,
			AuditLog: true,
		},
	}
}
