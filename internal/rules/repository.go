package rules

import (
	"context"
	"encoding/json"
	"fmt"
)

// SettingKey is the config record that holds the user's rule set.
const SettingKey = "domain_config"

// Settings is the key-value record store the rule set lives in.
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Repository reads and writes the rule set as a JSON document in Settings.
type Repository struct {
	settings Settings
}

// NewRepository creates a Repository backed by settings.
func NewRepository(settings Settings) *Repository {
	return &Repository{settings: settings}
}

// Get returns the stored rule set. ok is false when none has been saved yet.
func (r *Repository) Get(ctx context.Context) (RuleSet, bool, error) {
	raw, ok, err := r.settings.GetSetting(ctx, SettingKey)
	if err != nil {
		return nil, false, fmt.Errorf("read rule set: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var rs RuleSet
	if err := json.Unmarshal([]byte(raw), &rs); err != nil {
		return nil, false, fmt.Errorf("decode rule set: %w", err)
	}
	if rs == nil {
		rs = RuleSet{}
	}
	return rs, true, nil
}

// Set replaces the stored rule set.
func (r *Repository) Set(ctx context.Context, rs RuleSet) error {
	if rs == nil {
		rs = RuleSet{}
	}
	data, err := json.Marshal(rs)
	if err != nil {
		return fmt.Errorf("encode rule set: %w", err)
	}
	if err := r.settings.PutSetting(ctx, SettingKey, string(data)); err != nil {
		return fmt.Errorf("write rule set: %w", err)
	}
	return nil
}

// SyncDefaults seeds the shipped defaults on first run, or appends any
// default rules the stored set is missing. The stored set is rewritten only
// when it changes. It returns the effective rule set and how many rules were
// added.
func (r *Repository) SyncDefaults(ctx context.Context, defaults RuleSet) (RuleSet, int, error) {
	stored, ok, err := r.Get(ctx)
	if err != nil {
		return nil, 0, err
	}

	if !ok {
		if err := r.Set(ctx, defaults); err != nil {
			return nil, 0, err
		}
		return defaults.Clone(), len(defaults), nil
	}

	merged := Merge(stored, defaults)
	added := len(merged) - len(stored)
	if added == 0 {
		return stored, 0, nil
	}
	if err := r.Set(ctx, merged); err != nil {
		return nil, 0, err
	}
	return merged, added, nil
}
