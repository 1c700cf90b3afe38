package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/runnerr0/historylens/internal/rules"
)

var (
	// ErrStoreUnavailable wraps every failure of the underlying database.
	// Callers may retry; the store never does.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound is returned when a keyed lookup or delete finds no row.
	ErrNotFound = errors.New("not found")
)

const defaultListLimit = 50

// Store defines the activity store operations.
type Store interface {
	Upsert(ctx context.Context, entry *ActivityEntry, now time.Time) error
	Get(ctx context.Context, url string) (*ActivityEntry, error)
	GetByUpdatedAtRange(ctx context.Context, low, high time.Time, order Order) ([]ActivityEntry, error)
	GetByCategory(ctx context.Context, category string) ([]ActivityEntry, error)
	GetAll(ctx context.Context) ([]ActivityEntry, error)
	List(ctx context.Context, limit, offset int) ([]ActivityEntry, error)
	Delete(ctx context.Context, url string) error
	DeleteStale(ctx context.Context, url, category string, cutoff time.Time) (bool, error)
	UpdateCategory(ctx context.Context, url, category string) error
	ScanUpdatedBefore(ctx context.Context, cutoff time.Time, after Cursor, limit int) ([]ActivityEntry, error)
	ScanAll(ctx context.Context, afterURL string, limit int) ([]ActivityEntry, error)
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
	AppendAudit(ctx context.Context, action, detail string, at time.Time) error
	LastAudit(ctx context.Context, action string) (*AuditRecord, error)
	GetStats(ctx context.Context) (*Stats, error)
	PurgeAll(ctx context.Context) (int64, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
//
// Timestamps are stored as unix milliseconds. Every mutation runs as a
// single statement or a single transaction, so the table and both of its
// indices always change together.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	upsertEntry    *sql.Stmt
	getEntry       *sql.Stmt
	deleteEntry    *sql.Stmt
	deleteStale    *sql.Stmt
	updateCategory *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		s.Close()
		return nil, unavailable("prepare statements", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.upsertEntry, err = s.db.Prepare(`
		INSERT INTO activity (url, title, category, body_text, first_seen_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title     = excluded.title,
			category  = excluded.category,
			body_text = excluded.body_text,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}

	s.getEntry, err = s.db.Prepare(`
		SELECT url, title, category, body_text, first_seen_at, updated_at
		FROM activity WHERE url = ?
	`)
	if err != nil {
		return err
	}

	s.deleteEntry, err = s.db.Prepare(`DELETE FROM activity WHERE url = ?`)
	if err != nil {
		return err
	}

	s.deleteStale, err = s.db.Prepare(`DELETE FROM activity WHERE url = ? AND category = ? AND updated_at <= ?`)
	if err != nil {
		return err
	}

	s.updateCategory, err = s.db.Prepare(`UPDATE activity SET category = ? WHERE url = ?`)
	if err != nil {
		return err
	}

	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Upsert inserts entry or, when its URL is already stored, replaces title,
// category, body text and updated_at while keeping first_seen_at. On return
// entry carries the stored timestamps.
func (s *SQLiteStore) Upsert(ctx context.Context, entry *ActivityEntry, now time.Time) error {
	if now.IsZero() {
		now = time.Now()
	}
	ts := toMillis(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.StmtContext(ctx, s.upsertEntry).ExecContext(ctx,
		entry.URL, entry.Title, entry.Category, entry.BodyText, ts, ts,
	); err != nil {
		return unavailable("upsert entry", err)
	}

	var firstSeen, updated int64
	if err := tx.QueryRowContext(ctx,
		"SELECT first_seen_at, updated_at FROM activity WHERE url = ?", entry.URL,
	).Scan(&firstSeen, &updated); err != nil {
		return unavailable("read back entry", err)
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit upsert", err)
	}

	entry.FirstSeenAt = fromMillis(firstSeen)
	entry.UpdatedAt = fromMillis(updated)
	return nil
}

// Get retrieves a single entry by URL.
func (s *SQLiteStore) Get(ctx context.Context, url string) (*ActivityEntry, error) {
	var e ActivityEntry
	var firstSeen, updated int64

	err := s.getEntry.QueryRowContext(ctx, url).Scan(
		&e.URL, &e.Title, &e.Category, &e.BodyText, &firstSeen, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("entry %s: %w", url, ErrNotFound)
		}
		return nil, unavailable("get entry", err)
	}

	e.FirstSeenAt = fromMillis(firstSeen)
	e.UpdatedAt = fromMillis(updated)
	return &e, nil
}

const selectEntries = `
	SELECT url, title, category, body_text, first_seen_at, updated_at
	FROM activity
`

// GetByUpdatedAtRange returns entries whose updated_at lies in [low, high],
// ordered by updated_at in the requested direction.
func (s *SQLiteStore) GetByUpdatedAtRange(ctx context.Context, low, high time.Time, order Order) ([]ActivityEntry, error) {
	dir := order.sql()
	query := selectEntries +
		" WHERE updated_at >= ? AND updated_at <= ?" +
		" ORDER BY updated_at " + dir + ", url " + dir
	return s.scanEntries(ctx, query, toMillis(low), toMillis(high))
}

// GetByCategory returns every entry with the given category, most recently
// updated first.
func (s *SQLiteStore) GetByCategory(ctx context.Context, category string) ([]ActivityEntry, error) {
	query := selectEntries + " WHERE category = ? ORDER BY updated_at DESC, url ASC"
	return s.scanEntries(ctx, query, category)
}

// GetAll returns every stored entry ordered by URL.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]ActivityEntry, error) {
	return s.scanEntries(ctx, selectEntries+" ORDER BY url ASC")
}

// List pages through entries most recently updated first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	query := selectEntries + " ORDER BY updated_at DESC, url ASC LIMIT ? OFFSET ?"
	return s.scanEntries(ctx, query, limit, offset)
}

// ScanUpdatedBefore returns up to limit entries with updated_at <= cutoff
// that sort strictly after the cursor in (updated_at, url) order. Callers
// page through the prefix by passing After(last) of the previous chunk.
func (s *SQLiteStore) ScanUpdatedBefore(ctx context.Context, cutoff time.Time, after Cursor, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	at := toMillis(after.UpdatedAt)
	query := selectEntries + `
		WHERE updated_at <= ?
		  AND (updated_at > ? OR (updated_at = ? AND url > ?))
		ORDER BY updated_at ASC, url ASC
		LIMIT ?
	`
	return s.scanEntries(ctx, query, toMillis(cutoff), at, at, after.URL, limit)
}

// ScanAll returns up to limit entries whose URL sorts after afterURL.
func (s *SQLiteStore) ScanAll(ctx context.Context, afterURL string, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := selectEntries + " WHERE url > ? ORDER BY url ASC LIMIT ?"
	return s.scanEntries(ctx, query, afterURL, limit)
}

// scanEntries executes a query and scans results into ActivityEntry slices.
func (s *SQLiteStore) scanEntries(ctx context.Context, query string, args ...any) ([]ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query entries", err)
	}
	defer rows.Close()

	entries := []ActivityEntry{}
	for rows.Next() {
		var e ActivityEntry
		var firstSeen, updated int64
		if err := rows.Scan(&e.URL, &e.Title, &e.Category, &e.BodyText, &firstSeen, &updated); err != nil {
			return nil, unavailable("scan entry", err)
		}
		e.FirstSeenAt = fromMillis(firstSeen)
		e.UpdatedAt = fromMillis(updated)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate entries", err)
	}

	return entries, nil
}

// Delete removes an entry by URL.
func (s *SQLiteStore) Delete(ctx context.Context, url string) error {
	res, err := s.deleteEntry.ExecContext(ctx, url)
	if err != nil {
		return unavailable("delete entry", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("delete entry", err)
	}
	if n == 0 {
		return fmt.Errorf("entry %s: %w", url, ErrNotFound)
	}

	return nil
}

// DeleteStale removes the entry for url only if it still has category and
// its updated_at is at or before cutoff. It reports whether a row was
// deleted; a row revisited or reclassified since it was read is kept.
func (s *SQLiteStore) DeleteStale(ctx context.Context, url, category string, cutoff time.Time) (bool, error) {
	res, err := s.deleteStale.ExecContext(ctx, url, category, toMillis(cutoff))
	if err != nil {
		return false, unavailable("delete stale entry", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("delete stale entry", err)
	}
	return n > 0, nil
}

// UpdateCategory rewrites only the category of an entry. updated_at is left
// alone so a re-classification does not make an entry look freshly visited.
func (s *SQLiteStore) UpdateCategory(ctx context.Context, url, category string) error {
	res, err := s.updateCategory.ExecContext(ctx, category, url)
	if err != nil {
		return unavailable("update category", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("update category", err)
	}
	if n == 0 {
		return fmt.Errorf("entry %s: %w", url, ErrNotFound)
	}

	return nil
}

// GetSetting reads a configuration record. ok is false when key is unset.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, unavailable("get setting", err)
	}
	return value, true, nil
}

// PutSetting creates or replaces a configuration record.
func (s *SQLiteStore) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, toMillis(time.Now()))
	if err != nil {
		return unavailable("put setting", err)
	}
	return nil
}

// AppendAudit records a maintenance action in the audit log.
func (s *SQLiteStore) AppendAudit(ctx context.Context, action, detail string, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO audit_log (ts, action, detail) VALUES (?, ?, ?)",
		toMillis(at), action, detail,
	)
	if err != nil {
		return unavailable("append audit", err)
	}
	return nil
}

// LastAudit returns the most recent audit record for action.
func (s *SQLiteStore) LastAudit(ctx context.Context, action string) (*AuditRecord, error) {
	var rec AuditRecord
	var ts int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, ts, action, detail FROM audit_log
		WHERE action = ? ORDER BY ts DESC, id DESC LIMIT 1
	`, action).Scan(&rec.ID, &ts, &rec.Action, &rec.Detail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("audit %s: %w", action, ErrNotFound)
		}
		return nil, unavailable("last audit", err)
	}
	rec.At = fromMillis(ts)
	return &rec, nil
}

// PurgeAll deletes every activity entry. The rule set and audit log are kept.
func (s *SQLiteStore) PurgeAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM activity")
	if err != nil {
		return 0, unavailable("purge activity", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("purge activity", err)
	}
	return n, nil
}

// GetStats returns aggregate statistics about the activity table.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{TopCategories: []CategoryCount{}}

	var oldest, newest sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(updated_at), MAX(updated_at) FROM activity
	`).Scan(&stats.TotalEntries, &oldest, &newest)
	if err != nil {
		return nil, unavailable("count entries", err)
	}
	if oldest.Valid {
		stats.OldestUpdate = fromMillis(oldest.Int64)
	}
	if newest.Valid {
		stats.NewestUpdate = fromMillis(newest.Int64)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM activity WHERE category = ?", rules.Unknown,
	).Scan(&stats.UnknownCount)
	if err != nil {
		return nil, unavailable("count unknown", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) AS cnt FROM activity
		GROUP BY category ORDER BY cnt DESC, category ASC LIMIT 10
	`)
	if err != nil {
		return nil, unavailable("top categories", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, unavailable("scan category count", err)
		}
		stats.TopCategories = append(stats.TopCategories, cc)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate category counts", err)
	}
	return stats, nil
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.upsertEntry, s.getEntry, s.deleteEntry, s.deleteStale, s.updateCategory,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
