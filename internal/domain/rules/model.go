package rules

// Op is the closed vocabulary of condition operators. Conditions are data,
// not an expression language; the evaluator dispatches on this tag.
type Op string

const (
	OpEquals         Op = "equals"
	OpMemberOf       Op = "member_of"
	OpSetContains    Op = "set_contains"
	OpSetContainsAll Op = "set_contains_all"
	OpSetContainsAny Op = "set_contains_any"
	OpNumericGTE     Op = "numeric_gte"
	OpBooleanTrue    Op = "boolean_true"
	OpAnd            Op = "and"
	OpOr             Op = "or"
	OpNot            Op = "not"
)

// Condition is one node of a rule's predicate tree. Leaf nodes reference a
// fact by name; a reference to a fact absent from the fact set evaluates to
// false, never an error.
type Condition struct {
	Op        Op           `json:"op"`
	Fact      string       `json:"fact,omitempty"`
	Value     string       `json:"value,omitempty"`
	Values    []string     `json:"values,omitempty"`
	Threshold int          `json:"threshold,omitempty"`
	Children  []*Condition `json:"children,omitempty"`
}

// Rule is one declarative scoring rule. A nil Condition is always true and
// marks the sentinel default rule, which must carry the highest priority
// number in the set.
type Rule struct {
	Priority    int        `json:"priority"`
	Name        string     `json:"name"`
	Score       int        `json:"score"`
	Description string     `json:"description"`
	Condition   *Condition `json:"condition,omitempty"`
}

// IsDefault reports whether the rule is the always-true sentinel.
func (r *Rule) IsDefault() bool {
	return r.Condition == nil
}

// RuleSet is an ordered, validated collection of rules. Construction goes
// through Parse/Load so an instance in hand is already sorted by ascending
// priority and guaranteed to terminate evaluation with a match. Immutable
// and safe for concurrent readers.
type RuleSet struct {
	rules []*Rule
}

// Rules returns the rules in evaluation order.
func (rs *RuleSet) Rules() []*Rule {
	return rs.rules
}

// Len reports the number of rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}
