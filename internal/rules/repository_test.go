package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySettings is an in-memory Settings that counts writes.
type memorySettings struct {
	values map[string]string
	puts   int
	err    error
}

func newMemorySettings() *memorySettings {
	return &memorySettings{values: map[string]string{}}
}

func (m *memorySettings) GetSetting(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memorySettings) PutSetting(_ context.Context, key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	m.puts++
	return nil
}

func TestRepository_GetMissing(t *testing.T) {
	repo := NewRepository(newMemorySettings())

	rs, ok, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rs)
}

func TestRepository_SetGetRoundtripKeepsOrder(t *testing.T) {
	repo := NewRepository(newMemorySettings())
	ctx := context.Background()

	want := RuleSet{
		{Pattern: "https://b.com/*", Category: "🅱️ B"},
		{Pattern: "https://a.com/*", Category: "A"},
	}
	require.NoError(t, repo.Set(ctx, want))

	got, ok, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestRepository_SetEmptyIsStoredAsEmpty(t *testing.T) {
	repo := NewRepository(newMemorySettings())
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, nil))

	got, ok, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, RuleSet{}, got)
}

func TestRepository_GetPropagatesErrors(t *testing.T) {
	settings := newMemorySettings()
	settings.err = errors.New("disk gone")
	repo := NewRepository(settings)

	_, _, err := repo.Get(context.Background())
	assert.ErrorIs(t, err, settings.err)
}

func TestRepository_GetCorruptDocument(t *testing.T) {
	settings := newMemorySettings()
	settings.values[SettingKey] = "{not json"
	repo := NewRepository(settings)

	_, _, err := repo.Get(context.Background())
	assert.Error(t, err)
}

func TestSyncDefaults_FirstRunSeedsDefaults(t *testing.T) {
	settings := newMemorySettings()
	repo := NewRepository(settings)
	ctx := context.Background()

	defaults := RuleSet{{Pattern: "https://a.com/*", Category: "A"}}
	rs, added, err := repo.SyncDefaults(ctx, defaults)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, defaults, rs)
	assert.Equal(t, 1, settings.puts)
}

func TestSyncDefaults_AppendsNewDefaultsOnly(t *testing.T) {
	settings := newMemorySettings()
	repo := NewRepository(settings)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, RuleSet{{Pattern: "https://a.com/*", Category: "Mine"}}))

	defaults := RuleSet{
		{Pattern: "https://a.com/*", Category: "Default"},
		{Pattern: "https://b.com/*", Category: "B"},
	}
	rs, added, err := repo.SyncDefaults(ctx, defaults)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, RuleSet{
		{Pattern: "https://a.com/*", Category: "Mine"},
		{Pattern: "https://b.com/*", Category: "B"},
	}, rs)
}

func TestSyncDefaults_NoWriteWhenNothingNew(t *testing.T) {
	settings := newMemorySettings()
	repo := NewRepository(settings)
	ctx := context.Background()

	defaults := DefaultRuleSet()
	_, _, err := repo.SyncDefaults(ctx, defaults)
	require.NoError(t, err)
	require.Equal(t, 1, settings.puts)

	_, added, err := repo.SyncDefaults(ctx, defaults)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, 1, settings.puts, "unchanged rule set must not be rewritten")
}
