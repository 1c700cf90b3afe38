package cli

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/historylens/internal/retention"
	"github.com/runnerr0/historylens/internal/storage"
)

var sweepNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func seedSweep(t *testing.T) *env {
	t.Helper()
	e := newTestEnv(t)
	seedEntry(t, e, "https://example.com/stale", "stale unknown", sweepNow.Add(-8*24*time.Hour))
	seedEntry(t, e, "https://example.com/fresh", "fresh unknown", sweepNow.Add(-6*24*time.Hour))
	seedEntry(t, e, "https://qiita.com/a/items/1", "old article", sweepNow.Add(-30*24*time.Hour))
	return e
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSweep_DeletesStaleUnknownOnly(t *testing.T) {
	e := seedSweep(t)
	ctx := context.Background()

	cmd := &SweepCommand{globals: &GlobalFlags{}}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithEnv(ctx, e, fixedClock(sweepNow)))
	})
	assert.Contains(t, output, "Deleted 1 unknown entry not updated in 7 days")

	_, err := e.store.Get(ctx, "https://example.com/stale")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = e.store.Get(ctx, "https://example.com/fresh")
	assert.NoError(t, err)
	_, err = e.store.Get(ctx, "https://qiita.com/a/items/1")
	assert.NoError(t, err)

	rec, ok, err := e.svc.LastRun(ctx, retention.AuditAction)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.At.Equal(sweepNow))
}

func TestSweep_DryRun(t *testing.T) {
	e := seedSweep(t)
	ctx := context.Background()

	cmd := &SweepCommand{DryRun: true, globals: &GlobalFlags{JSON: true}}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithEnv(ctx, e, fixedClock(sweepNow)))
	})

	var out struct {
		Scanned int  `json:"scanned"`
		Deleted int  `json:"deleted"`
		DryRun  bool `json:"dry_run"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &out))
	assert.True(t, out.DryRun)
	assert.Equal(t, 1, out.Deleted)
	assert.Equal(t, 2, out.Scanned)

	all, err := e.store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSweep_OlderThanOverride(t *testing.T) {
	e := seedSweep(t)
	ctx := context.Background()

	cmd := &SweepCommand{OlderThan: "5d", globals: &GlobalFlags{}}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithEnv(ctx, e, fixedClock(sweepNow)))
	})
	assert.Contains(t, output, "Deleted 2 unknown entries not updated in 5 days")

	cmd = &SweepCommand{OlderThan: "soon", globals: &GlobalFlags{}}
	err := cmd.executeWithEnv(ctx, e, fixedClock(sweepNow))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --older-than")

	cmd = &SweepCommand{OlderThan: "0d", globals: &GlobalFlags{}}
	assert.Error(t, cmd.executeWithEnv(ctx, e, fixedClock(sweepNow)))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"24h", 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"", 0, true},
		{"d", 0, true},
		{"10x", 0, true},
		{"-1d", 0, true},
		{"abcd", 0, true},
	}

	for _, tc := range tests {
		got, err := parseDuration(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "parseDuration(%q)", tc.in)
			continue
		}
		require.NoError(t, err, "parseDuration(%q)", tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestFormatDurationHuman(t *testing.T) {
	assert.Equal(t, "1 day", formatDurationHuman(24*time.Hour))
	assert.Equal(t, "7 days", formatDurationHuman(7*24*time.Hour))
	assert.Equal(t, "1 hour", formatDurationHuman(time.Hour))
	assert.Equal(t, "5 hours", formatDurationHuman(5*time.Hour))
	assert.Equal(t, "30m0s", formatDurationHuman(30*time.Minute))
}
