// Package report groups stored activity into the weekly review layout.
package report

import (
	"strings"
	"time"

	"github.com/runnerr0/historylens/internal/rules"
	"github.com/runnerr0/historylens/internal/storage"
)

const dateLayout = "2006-01-02"

// Weekly is one Monday-start week of classified activity, plus every
// unknown entry regardless of when it was seen.
type Weekly struct {
	Start   time.Time               `json:"start"`
	End     time.Time               `json:"end"`
	Days    []Day                   `json:"days"`
	Unknown []storage.ActivityEntry `json:"unknown"`
}

// Day holds one calendar day of the week.
type Day struct {
	Date    string  `json:"date"`
	Weekday string  `json:"weekday"`
	Groups  []Group `json:"groups"`
}

// Group is the entries of one category on one day.
type Group struct {
	Category string                  `json:"category"`
	Entries  []storage.ActivityEntry `json:"entries"`
}

// WeekStart returns midnight of the Monday on or before t, in t's location.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(midnight.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -offset)
}

// WeekRange returns the bounds of the week containing now shifted by
// offset weeks. Both bounds are meant to be used inclusively.
func WeekRange(now time.Time, offset int) (time.Time, time.Time) {
	start := WeekStart(now.AddDate(0, 0, 7*offset))
	return start, start.AddDate(0, 0, 7)
}

// Hidden reports whether a category is left out of the weekly view.
func Hidden(category string) bool {
	return category == rules.Unknown || strings.Contains(strings.ToLower(category), "ignored")
}

// BuildWeekly lays out entries updated within [start, end]. Days run newest
// first and always cover all seven days. Within a day, categories and their
// entries keep the order of the input. Unknown and ignored entries are
// dropped from the days; unknown is reported as given.
func BuildWeekly(start, end time.Time, entries, unknown []storage.ActivityEntry) *Weekly {
	loc := start.Location()

	byDate := make(map[string][]storage.ActivityEntry)
	for _, e := range entries {
		if Hidden(e.Category) {
			continue
		}
		key := e.UpdatedAt.In(loc).Format(dateLayout)
		byDate[key] = append(byDate[key], e)
	}

	w := &Weekly{Start: start, End: end, Days: make([]Day, 0, 7), Unknown: unknown}
	if w.Unknown == nil {
		w.Unknown = []storage.ActivityEntry{}
	}

	for i := 6; i >= 0; i-- {
		day := start.AddDate(0, 0, i)
		key := day.Format(dateLayout)
		w.Days = append(w.Days, Day{
			Date:    key,
			Weekday: day.Weekday().String()[:3],
			Groups:  group(byDate[key]),
		})
	}

	return w
}

func group(entries []storage.ActivityEntry) []Group {
	groups := []Group{}
	index := make(map[string]int)
	for _, e := range entries {
		i, ok := index[e.Category]
		if !ok {
			i = len(groups)
			index[e.Category] = i
			groups = append(groups, Group{Category: e.Category})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}
