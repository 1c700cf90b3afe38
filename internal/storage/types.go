package storage

import "time"

// ActivityEntry is one classified page, keyed by its normalized URL.
type ActivityEntry struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	BodyText    string    `json:"bodyText,omitempty"`
	FirstSeenAt time.Time `json:"firstSeenAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Order selects the direction of an updated_at scan.
type Order int

const (
	OrderAsc Order = iota
	OrderDesc
)

// ParseOrder maps "asc" and "desc" to an Order. Anything else is ascending.
func ParseOrder(s string) Order {
	if s == "desc" {
		return OrderDesc
	}
	return OrderAsc
}

func (o Order) sql() string {
	if o == OrderDesc {
		return "DESC"
	}
	return "ASC"
}

// Cursor is a keyset position in the updated_at index. The zero value
// starts from the beginning.
type Cursor struct {
	UpdatedAt time.Time
	URL       string
}

// After returns the cursor positioned just past e.
func After(e ActivityEntry) Cursor {
	return Cursor{UpdatedAt: e.UpdatedAt, URL: e.URL}
}

// AuditRecord is one row of the audit log.
type AuditRecord struct {
	ID     int64     `json:"id"`
	At     time.Time `json:"at"`
	Action string    `json:"action"`
	Detail string    `json:"detail"`
}

// Stats holds aggregate statistics about the activity store.
type Stats struct {
	TotalEntries  int64           `json:"totalEntries"`
	UnknownCount  int64           `json:"unknownCount"`
	OldestUpdate  time.Time       `json:"oldestUpdate"`
	NewestUpdate  time.Time       `json:"newestUpdate"`
	TopCategories []CategoryCount `json:"topCategories"`
}

// CategoryCount pairs a category label with its entry count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}
