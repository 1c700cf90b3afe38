package categorize

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/runnerr0/historylens/internal/rules"
)

// ErrInvalidURL is returned when the URL to categorize cannot be parsed as
// an absolute URL.
var ErrInvalidURL = errors.New("invalid URL")

// Label markers that switch on URL normalization for a matched rule.
const (
	docMarker        = "Doc"
	pagingPath       = "/pages/viewpage.action"
	pageIDParam      = "pageId"
	pullMarker       = "PR"
	pullRequestLabel = "Pull Request"
)

// Result is the outcome of categorizing one URL.
type Result struct {
	Category      string `json:"category"`
	NormalizedURL string `json:"normalizedUrl"`
}

type compiledRule struct {
	matcher  *Matcher
	category string
}

// Engine holds a compiled snapshot of a rule set. It is immutable and safe
// for concurrent use.
type Engine struct {
	rules []compiledRule
}

// NewEngine compiles every rule in rs, keeping their order.
func NewEngine(rs rules.RuleSet) *Engine {
	compiled := make([]compiledRule, len(rs))
	for i, r := range rs {
		compiled[i] = compiledRule{matcher: Compile(r.Pattern), category: r.Category}
	}
	return &Engine{rules: compiled}
}

// Len returns the number of compiled rules.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Categorize matches rawURL against the rules in order and returns the
// first matching rule's category together with the normalized URL. When no
// rule matches the category is rules.Unknown and the URL is returned as is.
func (e *Engine) Categorize(rawURL string) (Result, error) {
	u, err := parseAbsolute(rawURL)
	if err != nil {
		return Result{}, err
	}

	for _, r := range e.rules {
		if !r.matcher.Match(rawURL) {
			continue
		}
		return Result{Category: r.category, NormalizedURL: normalize(u, rawURL, r.category)}, nil
	}

	return Result{Category: rules.Unknown, NormalizedURL: rawURL}, nil
}

// Categorize is a one-shot helper that compiles rs and categorizes rawURL.
// Callers classifying many URLs against the same rules should keep an Engine.
func Categorize(rawURL string, rs rules.RuleSet) (Result, error) {
	return NewEngine(rs).Categorize(rawURL)
}

func parseAbsolute(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidURL, rawURL, err)
	}
	if u.Scheme == "" || u.Opaque == "" && u.Host == "" && u.Path == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute URL", ErrInvalidURL, rawURL)
	}
	return u, nil
}

// normalize applies the label-driven rewrites to u. Documentation pages
// keep only their page id parameter; pull request pages lose their
// fragment. Both checks run because they touch disjoint URL components.
func normalize(u *url.URL, rawURL, category string) string {
	changed := false

	if strings.Contains(category, docMarker) && strings.Contains(u.Path, pagingPath) {
		if pageID := u.Query().Get(pageIDParam); pageID != "" {
			u.RawQuery = url.Values{pageIDParam: {pageID}}.Encode()
			u.ForceQuery = false
			changed = true
		}
	}

	isPull := strings.Contains(category, pullMarker) || strings.Contains(category, pullRequestLabel)
	if isPull && strings.Contains(rawURL, "#") {
		u.Fragment = ""
		u.RawFragment = ""
		changed = true
	}

	if !changed {
		return rawURL
	}
	return u.String()
}
