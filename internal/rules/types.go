package rules

// Unknown is the category assigned when no rule matches a URL.
const Unknown = "unknown"

// UrlPattern pairs a wildcard pattern with the category label it assigns.
// In Pattern, `*` matches any run of characters; everything else is literal.
type UrlPattern struct {
	Pattern  string `json:"pattern" yaml:"pattern"`
	Category string `json:"category" yaml:"category"`
}

// RuleSet is an ordered list of rules. Position is priority: the first
// matching rule wins. Duplicate patterns are allowed but only the first one
// is ever reachable.
type RuleSet []UrlPattern

// Clone returns a copy that callers may modify without affecting rs.
func (rs RuleSet) Clone() RuleSet {
	if rs == nil {
		return nil
	}
	out := make(RuleSet, len(rs))
	copy(out, rs)
	return out
}
