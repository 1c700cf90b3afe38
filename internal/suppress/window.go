// Package suppress keeps short-lived marks on URLs opened from a history
// view, so that revisiting a page from the history itself is not recorded
// as new activity.
package suppress

import (
	"sync"
	"time"
)

// DefaultWindow is how long a mark keeps a URL from being recorded.
const DefaultWindow = 5 * time.Second

// Window tracks recently marked URLs. Marks live only for the lifetime of
// the process and are not evicted; whether a mark still applies is decided
// when it is checked, so callers may pass times out of order. The zero
// value is not usable; call New.
type Window struct {
	mu     sync.Mutex
	window time.Duration
	marks  map[string]time.Time
}

// New returns a Window that suppresses a URL for d after it was marked.
// A non-positive d falls back to DefaultWindow.
func New(d time.Duration) *Window {
	if d <= 0 {
		d = DefaultWindow
	}
	return &Window{
		window: d,
		marks:  make(map[string]time.Time),
	}
}

// Duration returns the configured suppression window.
func (w *Window) Duration() time.Duration {
	return w.window
}

// Mark records that url was opened from history at now. A later mark for
// the same URL replaces the earlier one.
func (w *Window) Mark(url string, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.marks[url] = now
}

// IsSuppressed reports whether url was marked less than the window ago.
func (w *Window) IsSuppressed(url string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	marked, ok := w.marks[url]
	if !ok {
		return false
	}
	return now.Sub(marked) < w.window
}

// Len returns the number of marks currently held, expired ones included.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.marks)
}
