package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/historylens/internal/storage"
)

func TestWeekStart_Monday(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		// Wednesday
		{time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC), time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		// Monday itself
		{time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		// Sunday belongs to the week that started six days earlier
		{time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC), time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		// Across a month boundary
		{time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range tests {
		assert.True(t, tc.want.Equal(WeekStart(tc.in)), "WeekStart(%s) = %s, want %s", tc.in, WeekStart(tc.in), tc.want)
	}
}

func TestWeekRange_Offsets(t *testing.T) {
	now := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

	start, end := WeekRange(now, 0)
	assert.True(t, start.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)))
	assert.True(t, end.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)))

	prev, _ := WeekRange(now, -1)
	assert.True(t, prev.Equal(time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC)))
}

func TestHidden(t *testing.T) {
	assert.True(t, Hidden("unknown"))
	assert.True(t, Hidden("🚫 Ignored"))
	assert.True(t, Hidden("IGNORED stuff"))
	assert.False(t, Hidden("📝 Read Article"))
}

func entry(url, category string, at time.Time) storage.ActivityEntry {
	return storage.ActivityEntry{URL: url, Category: category, UpdatedAt: at}
}

func TestBuildWeekly_GroupsByDayThenCategory(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	entries := []storage.ActivityEntry{
		entry("https://a/1", "📝 Read Article", start.Add(9*time.Hour)),
		entry("https://a/2", "🔍 Reviewed PR", start.Add(10*time.Hour)),
		entry("https://a/3", "📝 Read Article", start.Add(11*time.Hour)),
		entry("https://a/4", "unknown", start.Add(12*time.Hour)),
		entry("https://a/5", "🚫 Ignored", start.Add(13*time.Hour)),
		entry("https://a/6", "📺 Watched Video", start.Add(50*time.Hour)),
	}
	unknown := []storage.ActivityEntry{entry("https://old/", "unknown", start.AddDate(0, 0, -30))}

	w := BuildWeekly(start, end, entries, unknown)

	require.Len(t, w.Days, 7)
	assert.Equal(t, "2024-03-10", w.Days[0].Date, "newest day first")
	assert.Equal(t, "Sun", w.Days[0].Weekday)
	assert.Equal(t, "2024-03-04", w.Days[6].Date)
	assert.Equal(t, "Mon", w.Days[6].Weekday)

	monday := w.Days[6]
	require.Len(t, monday.Groups, 2)
	assert.Equal(t, "📝 Read Article", monday.Groups[0].Category)
	assert.Len(t, monday.Groups[0].Entries, 2)
	assert.Equal(t, "🔍 Reviewed PR", monday.Groups[1].Category)

	wednesday := w.Days[4]
	assert.Equal(t, "2024-03-06", wednesday.Date)
	require.Len(t, wednesday.Groups, 1)
	assert.Equal(t, "📺 Watched Video", wednesday.Groups[0].Category)

	assert.Empty(t, w.Days[0].Groups)
	assert.Equal(t, unknown, w.Unknown)
}

func TestBuildWeekly_UsesStartLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, tokyo)

	// 2024-03-04 20:00 UTC is already Tuesday in Tokyo.
	e := entry("https://a/1", "A", time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC))
	w := BuildWeekly(start, start.AddDate(0, 0, 7), []storage.ActivityEntry{e}, nil)

	assert.Equal(t, "2024-03-05", w.Days[5].Date)
	assert.Len(t, w.Days[5].Groups, 1)
	assert.NotNil(t, w.Unknown)
}
