package rules

// Merge returns existing followed by every rule in incoming whose pattern
// string does not already appear in existing. The relative order of both
// inputs is kept, so configured rules keep their priority and new rules land
// at the end. Neither input is modified.
func Merge(existing, incoming RuleSet) RuleSet {
	seen := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		seen[r.Pattern] = struct{}{}
	}

	merged := make(RuleSet, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	for _, r := range incoming {
		if _, ok := seen[r.Pattern]; ok {
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// Categories returns the distinct category labels of rs in the order they
// first appear.
func Categories(rs RuleSet) []string {
	seen := make(map[string]struct{}, len(rs))
	out := []string{}
	for _, r := range rs {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	return out
}
