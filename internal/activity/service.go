// Package activity is the entry point collaborators use: it records
// submitted page visits and answers queries over the stored history.
package activity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/runnerr0/historylens/internal/categorize"
	"github.com/runnerr0/historylens/internal/config"
	"github.com/runnerr0/historylens/internal/extract"
	"github.com/runnerr0/historylens/internal/logger"
	"github.com/runnerr0/historylens/internal/recategorize"
	"github.com/runnerr0/historylens/internal/report"
	"github.com/runnerr0/historylens/internal/rules"
	"github.com/runnerr0/historylens/internal/storage"
	"github.com/runnerr0/historylens/internal/suppress"
)

// Status is the outcome of a submission.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
)

// Skip reasons.
const (
	ReasonSuppressed = "suppressed"
	ReasonDenylisted = "denylisted"
)

// Submission is one page visit reported by the page instrumentation.
// HTML is only consulted when BodyText is empty.
type Submission struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	BodyText string `json:"bodyText"`
	HTML     string `json:"html"`
}

// SubmitResult tells the caller what happened to a submission.
type SubmitResult struct {
	Status Status                 `json:"status"`
	Reason string                 `json:"reason,omitempty"`
	Entry  *storage.ActivityEntry `json:"entry,omitempty"`
}

// Options configures a Service.
type Options struct {
	SuppressWindow     time.Duration
	MaxBodyChars       int
	KeepBodyForUnknown bool
	DenylistDomains    []string
	Audit              bool
}

// OptionsFromConfig maps the config file onto service options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SuppressWindow:     cfg.SuppressWindow(),
		MaxBodyChars:       cfg.Capture.MaxBodyChars,
		KeepBodyForUnknown: cfg.Capture.KeepBodyForUnknown,
		DenylistDomains:    cfg.Capture.DenylistDomains,
		Audit:              cfg.Logging.AuditLog,
	}
}

// Service records activity and serves queries over it. The rule set is read
// from the store for every operation, so edits made by another process are
// picked up without a restart.
type Service struct {
	store    storage.Store
	repo     *rules.Repository
	window   *suppress.Window
	denylist *config.Denylist
	job      *recategorize.Job
	logger   logger.Logger
	opts     Options

	// rulesMu serializes read-modify-write cycles on the stored rule set.
	rulesMu sync.Mutex

	mu       sync.Mutex
	compiled rules.RuleSet
	engine   *categorize.Engine
}

// NewService creates a Service over store.
func NewService(store storage.Store, log logger.Logger, opts Options) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:    store,
		repo:     rules.NewRepository(store),
		window:   suppress.New(opts.SuppressWindow),
		denylist: config.NewDenylist(opts.DenylistDomains),
		job:      recategorize.NewJob(store, log, recategorize.Options{Audit: opts.Audit}),
		logger:   log,
		opts:     opts,
	}
}

// Init seeds the shipped default rules on first run, or appends the ones the
// stored rule set is missing. It returns how many rules were added.
func (s *Service) Init(ctx context.Context) (int, error) {
	return s.MergeDefaults(ctx)
}

// MergeDefaults appends shipped default rules whose pattern is not yet
// configured.
func (s *Service) MergeDefaults(ctx context.Context) (int, error) {
	s.rulesMu.Lock()
	defer s.rulesMu.Unlock()

	rs, added, err := s.repo.SyncDefaults(ctx, rules.DefaultRuleSet())
	if err != nil {
		return 0, fmt.Errorf("sync default rules: %w", err)
	}
	if added > 0 {
		s.logger.Info("default rules merged",
			logger.Int("added", added),
			logger.Int("total", len(rs)))
	}
	return added, nil
}

// RuleSet returns the stored rule set, or an empty one when none is stored.
func (s *Service) RuleSet(ctx context.Context) (rules.RuleSet, error) {
	rs, _, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if rs == nil {
		rs = rules.RuleSet{}
	}
	return rs, nil
}

// SetRuleSet validates and stores rs, replacing the current rule set.
// Stored entries are not recategorized; call RecategorizeAll for that.
func (s *Service) SetRuleSet(ctx context.Context, rs rules.RuleSet) error {
	clean := make(rules.RuleSet, 0, len(rs))
	for i, r := range rs {
		valid, err := rules.Validate(r)
		if err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		clean = append(clean, valid)
	}

	s.rulesMu.Lock()
	defer s.rulesMu.Unlock()
	return s.repo.Set(ctx, clean)
}

// AddRule appends a rule, stores the rule set and recategorizes every
// stored entry against it.
func (s *Service) AddRule(ctx context.Context, pattern, category string) (recategorize.Report, error) {
	rule, err := rules.Validate(rules.UrlPattern{Pattern: pattern, Category: category})
	if err != nil {
		return recategorize.Report{}, err
	}

	rs, err := s.appendRule(ctx, rule)
	if err != nil {
		return recategorize.Report{}, err
	}

	s.logger.Info("rule added",
		logger.String("pattern", rule.Pattern),
		logger.String("category", rule.Category))

	return s.job.Run(ctx, rs)
}

func (s *Service) appendRule(ctx context.Context, rule rules.UrlPattern) (rules.RuleSet, error) {
	s.rulesMu.Lock()
	defer s.rulesMu.Unlock()

	rs, err := s.RuleSet(ctx)
	if err != nil {
		return nil, err
	}
	rs = append(rs, rule)
	if err := s.repo.Set(ctx, rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// RecategorizeAll recomputes every stored category against the current
// rule set.
func (s *Service) RecategorizeAll(ctx context.Context) (recategorize.Report, error) {
	rs, err := s.RuleSet(ctx)
	if err != nil {
		return recategorize.Report{}, err
	}
	return s.job.Run(ctx, rs)
}

// Categories lists the distinct labels of the current rule set.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	rs, err := s.RuleSet(ctx)
	if err != nil {
		return nil, err
	}
	return rules.Categories(rs), nil
}

// SuggestPattern proposes a rule pattern for url.
func (s *Service) SuggestPattern(url string) string {
	return rules.SuggestPattern(url)
}

// Categorize classifies url against the current rule set without storing
// anything.
func (s *Service) Categorize(ctx context.Context, url string) (categorize.Result, error) {
	engine, err := s.currentEngine(ctx)
	if err != nil {
		return categorize.Result{}, err
	}
	return engine.Categorize(url)
}

// currentEngine returns a compiled engine for the stored rule set, reusing
// the last one when the rules have not changed.
func (s *Service) currentEngine(ctx context.Context) (*categorize.Engine, error) {
	rs, err := s.RuleSet(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil || !slices.Equal(rs, s.compiled) {
		s.engine = categorize.NewEngine(rs)
		s.compiled = rs
	}
	return s.engine, nil
}

// Suppress keeps url from being recorded for the suppression window
// starting at now.
func (s *Service) Suppress(url string, now time.Time) {
	s.window.Mark(strings.TrimSpace(url), now)
}

// SubmitActivity records one page visit: suppression check, then
// categorization, then upsert. A URL that cannot be parsed is stored as
// unknown without normalization.
func (s *Service) SubmitActivity(ctx context.Context, sub Submission, now time.Time) (SubmitResult, error) {
	raw := strings.TrimSpace(sub.URL)
	if raw == "" {
		return SubmitResult{}, fmt.Errorf("%w: empty URL", categorize.ErrInvalidURL)
	}
	if now.IsZero() {
		now = time.Now()
	}

	if s.window.IsSuppressed(raw, now) {
		s.logger.Debug("submission suppressed", logger.String("url", raw))
		return SubmitResult{Status: StatusSkipped, Reason: ReasonSuppressed}, nil
	}
	if s.denylist.Blocks(raw) {
		s.logger.Debug("submission denylisted", logger.String("url", raw))
		return SubmitResult{Status: StatusSkipped, Reason: ReasonDenylisted}, nil
	}

	engine, err := s.currentEngine(ctx)
	if err != nil {
		return SubmitResult{}, err
	}

	res, err := engine.Categorize(raw)
	if err != nil {
		if !errors.Is(err, categorize.ErrInvalidURL) {
			return SubmitResult{}, err
		}
		s.logger.Debug("storing unparsable URL as unknown",
			logger.String("url", raw),
			logger.Error(err))
		res = categorize.Result{Category: rules.Unknown, NormalizedURL: raw}
	}

	// History views suppress the stored, normalized URL.
	if res.NormalizedURL != raw && s.window.IsSuppressed(res.NormalizedURL, now) {
		s.logger.Debug("submission suppressed", logger.String("url", res.NormalizedURL))
		return SubmitResult{Status: StatusSkipped, Reason: ReasonSuppressed}, nil
	}

	entry := &storage.ActivityEntry{
		URL:      res.NormalizedURL,
		Title:    norm.NFC.String(strings.TrimSpace(sub.Title)),
		Category: res.Category,
		BodyText: s.bodyFor(sub, res),
	}
	if err := s.store.Upsert(ctx, entry, now); err != nil {
		return SubmitResult{}, fmt.Errorf("save activity: %w", err)
	}

	s.logger.Debug("activity recorded",
		logger.String("url", entry.URL),
		logger.String("category", entry.Category))

	return SubmitResult{Status: StatusOK, Entry: entry}, nil
}

// bodyFor applies the body policy: text is kept only for classified pages
// unless configured otherwise, extracted from HTML when no text was sent,
// and cut to MaxBodyChars runes.
func (s *Service) bodyFor(sub Submission, res categorize.Result) string {
	if res.Category == rules.Unknown && !s.opts.KeepBodyForUnknown {
		return ""
	}

	body := strings.TrimSpace(sub.BodyText)
	if body == "" && sub.HTML != "" {
		text, err := extract.Text(sub.HTML, res.NormalizedURL)
		if err != nil {
			s.logger.Debug("no text extracted from submitted HTML",
				logger.String("url", res.NormalizedURL),
				logger.Error(err))
		}
		body = text
	}

	return truncateRunes(body, s.opts.MaxBodyChars)
}

// truncateRunes cuts s to at most n runes. n <= 0 means no limit.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Get returns the entry stored under url.
func (s *Service) Get(ctx context.Context, url string) (*storage.ActivityEntry, error) {
	return s.store.Get(ctx, url)
}

// QueryRange returns entries updated within [low, high].
func (s *Service) QueryRange(ctx context.Context, low, high time.Time, order storage.Order) ([]storage.ActivityEntry, error) {
	return s.store.GetByUpdatedAtRange(ctx, low, high, order)
}

// QueryCategory returns every entry with category.
func (s *Service) QueryCategory(ctx context.Context, category string) ([]storage.ActivityEntry, error) {
	return s.store.GetByCategory(ctx, category)
}

// QueryAll returns every stored entry.
func (s *Service) QueryAll(ctx context.Context) ([]storage.ActivityEntry, error) {
	return s.store.GetAll(ctx)
}

// Recent pages through entries most recently updated first.
func (s *Service) Recent(ctx context.Context, limit, offset int) ([]storage.ActivityEntry, error) {
	return s.store.List(ctx, limit, offset)
}

// Weekly builds the weekly review for the week containing now shifted by
// offset weeks. Days are computed in now's location.
func (s *Service) Weekly(ctx context.Context, now time.Time, offset int) (*report.Weekly, error) {
	start, end := report.WeekRange(now, offset)

	entries, err := s.store.GetByUpdatedAtRange(ctx, start, end, storage.OrderAsc)
	if err != nil {
		return nil, err
	}
	unknown, err := s.store.GetByCategory(ctx, rules.Unknown)
	if err != nil {
		return nil, err
	}

	return report.BuildWeekly(start, end, entries, unknown), nil
}

// Stats returns aggregate statistics about stored activity.
func (s *Service) Stats(ctx context.Context) (*storage.Stats, error) {
	return s.store.GetStats(ctx)
}

// LastRun returns when the given maintenance action last recorded itself in
// the audit log. ok is false when it never has.
func (s *Service) LastRun(ctx context.Context, action string) (*storage.AuditRecord, bool, error) {
	rec, err := s.store.LastAudit(ctx, action)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return rec, true, nil
}
