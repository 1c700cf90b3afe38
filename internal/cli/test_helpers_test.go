package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runnerr0/historylens/internal/activity"
	"github.com/runnerr0/historylens/internal/config"
	"github.com/runnerr0/historylens/internal/logger"
	"github.com/runnerr0/historylens/internal/rules"
	"github.com/runnerr0/historylens/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

var testRules = rules.RuleSet{
	{Pattern: "https://github.com/*/pull/*", Category: "🔍 Reviewed PR"},
	{Pattern: "https://qiita.com/*/items/*", Category: "📝 Read Article"},
}

// newTestEnv creates an env over a migrated in-memory store with testRules
// configured.
func newTestEnv(t *testing.T) *env {
	t.Helper()

	store, db, err := storage.Open(storage.MemoryPath, "")
	require.NoError(t, err)

	e := newEnv(config.DefaultConfig(), store, db, logger.Nop(), storage.MemoryPath)
	t.Cleanup(e.Close)

	require.NoError(t, e.svc.SetRuleSet(context.Background(), testRules))
	return e
}

// seedEntry records url at the given time through the service.
func seedEntry(t *testing.T, e *env, url, title string, at time.Time) {
	t.Helper()
	_, err := e.svc.SubmitActivity(context.Background(), activity.Submission{URL: url, Title: title, BodyText: "body of " + title}, at)
	require.NoError(t, err)
}
