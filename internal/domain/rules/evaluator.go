package rules

import (
	"github.com/MatanKJaffe/CFSCalculator/internal/domain/facts"
)

// Match is the outcome of evaluating a fact set: the first rule, in
// ascending priority order, whose condition held.
type Match struct {
	RulePriority int    `json:"rule_priority"`
	RuleName     string `json:"rule_name"`
	Score        int    `json:"score"`
	Description  string `json:"description"`
	Default      bool   `json:"-"`
}

// Evaluator evaluates fact sets against a validated rule set. Safe for
// concurrent use; the rule set is never mutated.
type Evaluator struct {
	rs *RuleSet
}

func NewEvaluator(rs *RuleSet) *Evaluator {
	return &Evaluator{rs: rs}
}

// Evaluate returns the outcome of the first matching rule. Because the rule
// set validation guarantees a trailing always-true default, exactly one rule
// matches for any fact set, including the empty one.
func (e *Evaluator) Evaluate(fs *facts.FactSet) Match {
	for _, r := range e.rs.rules {
		if r.IsDefault() || evalCondition(r.Condition, fs) {
			return Match{
				RulePriority: r.Priority,
				RuleName:     r.Name,
				Score:        r.Score,
				Description:  r.Description,
				Default:      r.IsDefault(),
			}
		}
	}
	// Unreachable for a RuleSet built by Parse; kept so the zero value of a
	// hand-built RuleSet fails loudly in tests rather than silently.
	panic("rules: no rule matched; rule set has no default")
}

func evalCondition(c *Condition, fs *facts.FactSet) bool {
	switch c.Op {
	case OpAnd:
		for _, child := range c.Children {
			if !evalCondition(child, fs) {
				return false
			}
		}
		return true
	case OpOr:
		for _, child := range c.Children {
			if evalCondition(child, fs) {
				return true
			}
		}
		return false
	case OpNot:
		return !evalCondition(c.Children[0], fs)
	case OpEquals:
		v, ok := fs.Scalar(c.Fact)
		return ok && v == c.Value
	case OpMemberOf:
		v, ok := fs.Scalar(c.Fact)
		if !ok {
			return false
		}
		for _, candidate := range c.Values {
			if v == candidate {
				return true
			}
		}
		return false
	case OpSetContains:
		return fs.HasTag(c.Fact, c.Value)
	case OpSetContainsAll:
		for _, tag := range c.Values {
			if !fs.HasTag(c.Fact, tag) {
				return false
			}
		}
		return true
	case OpSetContainsAny:
		for _, tag := range c.Values {
			if fs.HasTag(c.Fact, tag) {
				return true
			}
		}
		return false
	case OpNumericGTE:
		n, ok := fs.Count(c.Fact)
		return ok && n >= c.Threshold
	case OpBooleanTrue:
		return fs.Bool(c.Fact)
	}
	// Unknown operators are rejected at load time.
	return false
}
