package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

// ErrInvalidRule is returned for rules with an empty pattern or category.
var ErrInvalidRule = errors.New("invalid rule")

var (
	errEmptyPattern  = fmt.Errorf("%w: pattern cannot be empty", ErrInvalidRule)
	errEmptyCategory = fmt.Errorf("%w: category cannot be empty", ErrInvalidRule)
)

// Validate trims a user-entered rule and rejects empty fields.
func Validate(r UrlPattern) (UrlPattern, error) {
	r.Pattern = strings.TrimSpace(r.Pattern)
	r.Category = strings.TrimSpace(r.Category)

	if r.Pattern == "" {
		return UrlPattern{}, errEmptyPattern
	}
	if r.Category == "" {
		return UrlPattern{}, errEmptyCategory
	}
	return r, nil
}

// LoadFile reads a rule set from a JSON file. Comments and trailing commas
// are accepted.
func LoadFile(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", path, err)
	}

	var rs RuleSet
	if err := json.Unmarshal(standardized, &rs); err != nil {
		return nil, fmt.Errorf("decoding rules file %s: %w", path, err)
	}

	for i, r := range rs {
		valid, err := Validate(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d in %s: %w", i, path, err)
		}
		rs[i] = valid
	}
	if rs == nil {
		rs = RuleSet{}
	}
	return rs, nil
}

// WriteFile writes rs as indented JSON. The file is replaced atomically so
// an interrupted export never leaves a truncated file behind.
func WriteFile(path string, rs RuleSet) error {
	if rs == nil {
		rs = RuleSet{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rs); err != nil {
		return fmt.Errorf("encoding rules: %w", err)
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("writing rules file: %w", err)
	}
	return nil
}
