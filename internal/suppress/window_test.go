package suppress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindow_SuppressesInsideWindow(t *testing.T) {
	w := New(5 * time.Second)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	w.Mark("https://a.com/x", base)

	assert.True(t, w.IsSuppressed("https://a.com/x", base))
	assert.True(t, w.IsSuppressed("https://a.com/x", base.Add(4999*time.Millisecond)))
}

func TestWindow_ExpiresAtWindow(t *testing.T) {
	w := New(5 * time.Second)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	w.Mark("https://a.com/x", base)

	assert.False(t, w.IsSuppressed("https://a.com/x", base.Add(5*time.Second)))
	assert.False(t, w.IsSuppressed("https://a.com/x", base.Add(5001*time.Millisecond)))
}

func TestWindow_UnmarkedURL(t *testing.T) {
	w := New(0)

	assert.Equal(t, DefaultWindow, w.Duration())
	assert.False(t, w.IsSuppressed("https://never.example/", time.Now()))
}

func TestWindow_RemarkExtends(t *testing.T) {
	w := New(5 * time.Second)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	w.Mark("u", base)
	w.Mark("u", base.Add(4*time.Second))

	assert.True(t, w.IsSuppressed("u", base.Add(8*time.Second)))
}

func TestWindow_StalenessCheckedOnlyAtCheckTime(t *testing.T) {
	w := New(5 * time.Second)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	w.Mark("a", base)
	// A later mark or an out-of-order check must not evict "a".
	w.Mark("b", base.Add(time.Minute))
	assert.False(t, w.IsSuppressed("a", base.Add(time.Minute)))

	assert.True(t, w.IsSuppressed("a", base.Add(3*time.Second)))
	assert.Equal(t, 2, w.Len())
}

func TestWindow_ConcurrentUse(t *testing.T) {
	w := New(time.Minute)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			url := "https://a.com/" + string(rune('a'+i))
			w.Mark(url, now)
			assert.True(t, w.IsSuppressed(url, now))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 16, w.Len())
}
