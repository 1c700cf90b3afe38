// Package retention deletes unclassified activity that has not been
// revisited for a configured period.
package retention

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/runnerr0/historylens/internal/logger"
	"github.com/runnerr0/historylens/internal/rules"
	"github.com/runnerr0/historylens/internal/storage"
)

const (
	// DefaultThreshold is how long an unknown entry survives without a visit.
	DefaultThreshold = 7 * 24 * time.Hour

	// DefaultInterval is the period between scheduled sweeps.
	DefaultInterval = 24 * time.Hour

	// DefaultChunkSize bounds how many rows one scan step loads.
	DefaultChunkSize = 500

	// AuditAction is the audit log action recorded after each sweep.
	AuditAction = "sweep"
)

// Store is the subset of the activity store the sweeper needs.
type Store interface {
	ScanUpdatedBefore(ctx context.Context, cutoff time.Time, after storage.Cursor, limit int) ([]storage.ActivityEntry, error)
	DeleteStale(ctx context.Context, url, category string, cutoff time.Time) (bool, error)
	AppendAudit(ctx context.Context, action, detail string, at time.Time) error
}

// Options configures a Sweeper. Zero fields take the package defaults.
type Options struct {
	Interval  time.Duration
	Threshold time.Duration
	ChunkSize int
	// Audit appends a record to the audit log after each sweep that deleted rows.
	Audit bool
	// Now overrides the clock.
	Now func() time.Time
}

// Result summarizes one sweep.
type Result struct {
	Cutoff  time.Time `json:"cutoff"`
	Scanned int       `json:"scanned"`
	Deleted int       `json:"deleted"`
}

// Sweeper removes unknown entries whose updated_at is at or before
// now - threshold. Classified entries are never touched, whatever their age.
type Sweeper struct {
	store     Store
	logger    logger.Logger
	interval  time.Duration
	threshold time.Duration
	chunkSize int
	audit     bool
	now       func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSweeper creates a new retention sweeper
func NewSweeper(store Store, log logger.Logger, opts Options) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Sweeper{
		store:     store,
		logger:    log,
		interval:  opts.Interval,
		threshold: opts.Threshold,
		chunkSize: opts.ChunkSize,
		audit:     opts.Audit,
		now:       opts.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start sweeps once immediately, then on every interval until Stop is
// called or ctx is done.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Warn("initial retention sweep failed", logger.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil {
					s.logger.Error("retention sweep failed", logger.Error(err))
				}
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop ends the periodic sweeps. It is safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Sweep deletes stale unknown entries.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	return s.run(ctx, false)
}

// Preview reports what Sweep would delete without deleting anything.
func (s *Sweeper) Preview(ctx context.Context) (Result, error) {
	return s.run(ctx, true)
}

// run walks the updated_at index from the oldest row up to the cutoff one
// chunk at a time, so memory stays bounded and an aborted sweep can simply
// be run again.
func (s *Sweeper) run(ctx context.Context, dryRun bool) (Result, error) {
	now := s.now()
	res := Result{Cutoff: now.Add(-s.threshold).UTC()}

	cursor := storage.Cursor{}
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		chunk, err := s.store.ScanUpdatedBefore(ctx, res.Cutoff, cursor, s.chunkSize)
		if err != nil {
			return res, fmt.Errorf("scan stale entries: %w", err)
		}
		if len(chunk) == 0 {
			break
		}

		for _, e := range chunk {
			res.Scanned++
			if e.Category != rules.Unknown {
				continue
			}
			if dryRun {
				res.Deleted++
				continue
			}
			// The row may have been revisited or reclassified since the
			// scan; the conditional delete leaves it alone then.
			deleted, err := s.store.DeleteStale(ctx, e.URL, rules.Unknown, res.Cutoff)
			if err != nil {
				return res, fmt.Errorf("delete %s: %w", e.URL, err)
			}
			if !deleted {
				continue
			}
			res.Deleted++
			s.logger.Debug("swept stale entry",
				logger.String("url", e.URL),
				logger.Time("updated_at", e.UpdatedAt))
		}

		cursor = storage.After(chunk[len(chunk)-1])
	}

	if dryRun {
		return res, nil
	}

	if res.Deleted > 0 {
		s.logger.Info("retention sweep completed",
			logger.Int("scanned", res.Scanned),
			logger.Int("deleted", res.Deleted),
			logger.Time("cutoff", res.Cutoff))
		if s.audit {
			detail := fmt.Sprintf("scanned=%d deleted=%d", res.Scanned, res.Deleted)
			if err := s.store.AppendAudit(ctx, AuditAction, detail, now); err != nil {
				s.logger.Warn("failed to record sweep in audit log", logger.Error(err))
			}
		}
	} else {
		s.logger.Debug("no stale entries to sweep", logger.Int("scanned", res.Scanned))
	}

	return res, nil
}
