package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

type fileFormat struct {
	Rules []*Rule `json:"rules"`
}

// Load reads and validates a rule set file. An empty path loads the embedded
// default CFS rule set. Malformed rules are configuration errors and abort
// the run before any patient is processed.
func Load(path string) (*RuleSet, error) {
	data := defaultRules
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rules file: %w", err)
		}
	}
	return Parse(data)
}

// Parse builds a validated RuleSet from raw JSON.
func Parse(data []byte) (*RuleSet, error) {
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rules: rule set is empty")
	}

	seen := make(map[int]string, len(f.Rules))
	for i, r := range f.Rules {
		if r.Name == "" {
			return nil, fmt.Errorf("rules: rule %d has no name", i)
		}
		if r.Score < 1 || r.Score > 9 {
			return nil, fmt.Errorf("rules: rule %q has score %d outside 1-9", r.Name, r.Score)
		}
		if prev, dup := seen[r.Priority]; dup {
			return nil, fmt.Errorf("rules: rules %q and %q share priority %d", prev, r.Name, r.Priority)
		}
		seen[r.Priority] = r.Name
		if r.Condition != nil {
			if err := validateCondition(r.Condition); err != nil {
				return nil, fmt.Errorf("rules: rule %q: %w", r.Name, err)
			}
		}
	}

	sorted := make([]*Rule, len(f.Rules))
	copy(sorted, f.Rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	// The last rule must be the always-true default so evaluation is total
	// over any fact set, including the empty one.
	last := sorted[len(sorted)-1]
	if !last.IsDefault() {
		return nil, fmt.Errorf("rules: highest-priority rule %q is not an always-true default", last.Name)
	}
	for _, r := range sorted[:len(sorted)-1] {
		if r.IsDefault() {
			return nil, fmt.Errorf("rules: default rule %q shadows later rules (priority %d is not the highest)", r.Name, r.Priority)
		}
	}

	return &RuleSet{rules: sorted}, nil
}

func validateCondition(c *Condition) error {
	switch c.Op {
	case OpAnd, OpOr:
		if len(c.Children) == 0 {
			return fmt.Errorf("operator %q requires children", c.Op)
		}
		for _, child := range c.Children {
			if err := validateCondition(child); err != nil {
				return err
			}
		}
	case OpNot:
		if len(c.Children) != 1 {
			return fmt.Errorf("operator %q requires exactly one child", c.Op)
		}
		return validateCondition(c.Children[0])
	case OpEquals, OpSetContains:
		if c.Fact == "" || c.Value == "" {
			return fmt.Errorf("operator %q requires fact and value", c.Op)
		}
	case OpMemberOf, OpSetContainsAll, OpSetContainsAny:
		if c.Fact == "" || len(c.Values) == 0 {
			return fmt.Errorf("operator %q requires fact and a non-empty value list", c.Op)
		}
	case OpNumericGTE:
		if c.Fact == "" {
			return fmt.Errorf("operator %q requires fact", c.Op)
		}
		if c.Threshold < 0 {
			return fmt.Errorf("operator %q requires a non-negative threshold", c.Op)
		}
	case OpBooleanTrue:
		if c.Fact == "" {
			return fmt.Errorf("operator %q requires fact", c.Op)
		}
	default:
		return fmt.Errorf("unknown operator %q", c.Op)
	}
	return nil
}
