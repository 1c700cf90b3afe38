// Package recategorize recomputes the category of every stored entry after
// the rule set changes.
package recategorize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runnerr0/historylens/internal/categorize"
	"github.com/runnerr0/historylens/internal/logger"
	"github.com/runnerr0/historylens/internal/rules"
	"github.com/runnerr0/historylens/internal/storage"
)

const (
	// DefaultChunkSize bounds how many rows are loaded per scan step.
	DefaultChunkSize = 200

	// AuditAction is the audit log action recorded after each run.
	AuditAction = "recategorize"
)

// ErrIncomplete is returned alongside a Report when one or more row writes
// failed. Rows that were written stay written; running again finishes the job.
var ErrIncomplete = errors.New("recategorization incomplete")

// Store is the subset of the activity store the job needs.
type Store interface {
	ScanAll(ctx context.Context, afterURL string, limit int) ([]storage.ActivityEntry, error)
	UpdateCategory(ctx context.Context, url, category string) error
	AppendAudit(ctx context.Context, action, detail string, at time.Time) error
}

// Options configures a Job. Zero fields take the package defaults.
type Options struct {
	ChunkSize int
	Audit     bool
	Now       func() time.Time
}

// Report counts what one run did.
type Report struct {
	Examined int `json:"examined"`
	Changed  int `json:"changed"`
	Failed   int `json:"failed"`
}

// Job rewrites stored categories against a rule set snapshot.
type Job struct {
	store     Store
	logger    logger.Logger
	chunkSize int
	audit     bool
	now       func() time.Time
}

// NewJob creates a recategorization job over store.
func NewJob(store Store, log logger.Logger, opts Options) *Job {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Job{
		store:     store,
		logger:    log,
		chunkSize: opts.ChunkSize,
		audit:     opts.Audit,
		now:       opts.Now,
	}
}

// Run classifies every stored URL against rs and writes back only the rows
// whose category changed. The stored URL is already normalized, so only the
// category is recomputed. A failed row write is logged and counted and the
// scan goes on; the returned error then wraps ErrIncomplete. Cancelling ctx
// stops the scan between chunks.
func (j *Job) Run(ctx context.Context, rs rules.RuleSet) (Report, error) {
	start := time.Now()
	engine := categorize.NewEngine(rs)

	var report Report
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		chunk, err := j.store.ScanAll(ctx, after, j.chunkSize)
		if err != nil {
			return report, fmt.Errorf("scan entries: %w", err)
		}
		if len(chunk) == 0 {
			break
		}

		for _, e := range chunk {
			report.Examined++

			category := rules.Unknown
			if res, err := engine.Categorize(e.URL); err == nil {
				category = res.Category
			}
			if category == e.Category {
				continue
			}

			if err := j.store.UpdateCategory(ctx, e.URL, category); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				j.logger.Error("failed to update entry category",
					logger.String("url", e.URL),
					logger.String("category", category),
					logger.Error(err))
				report.Failed++
				continue
			}
			report.Changed++
		}

		after = chunk[len(chunk)-1].URL
	}

	j.logger.Info("recategorization completed",
		logger.Int("rules", engine.Len()),
		logger.Int("examined", report.Examined),
		logger.Int("changed", report.Changed),
		logger.Int("failed", report.Failed),
		logger.Duration("duration", time.Since(start)))

	if j.audit {
		detail := fmt.Sprintf("examined=%d changed=%d failed=%d", report.Examined, report.Changed, report.Failed)
		if err := j.store.AppendAudit(ctx, AuditAction, detail, j.now()); err != nil {
			j.logger.Warn("failed to record recategorization in audit log", logger.Error(err))
		}
	}

	if report.Failed > 0 {
		return report, fmt.Errorf("%w: %d of %d writes failed", ErrIncomplete, report.Failed, report.Failed+report.Changed)
	}
	return report, nil
}
