package dictionary

import "sort"

// FactKind describes how a canonical fact stores its values.
type FactKind string

const (
	// KindScalar facts hold a single categorical value; the first
	// observation to set one wins.
	KindScalar FactKind = "scalar"
	// KindSet facts accumulate string tags across observations.
	KindSet FactKind = "set"
	// KindBool facts hold a boolean and default to false.
	KindBool FactKind = "bool"
)

// ObservationKey identifies one raw assessment triple. All three parts are
// free text and may be in a non-Latin script.
type ObservationKey struct {
	Category string
	Question string
	Answer   string
}

// Assignment is the canonical (fact, value) pair produced by a matching triple.
type Assignment struct {
	Fact  string
	Value string
}

// Dictionary translates raw observation triples into canonical fact
// assignments and holds the keyword tables used by the diagnosis classifier.
// It is immutable after Load and safe for concurrent readers.
type Dictionary struct {
	kinds             map[string]FactKind
	mappings          map[ObservationKey]Assignment
	conditionKeywords map[string][]string
	conditionFacts    []string
	terminalKeywords  []string
	acuteKeywords     []string
}

// Lookup resolves an observation triple. The second return value is false
// when the triple is not mapped; callers drop such observations silently.
func (d *Dictionary) Lookup(category, question, answer string) (Assignment, bool) {
	a, ok := d.mappings[ObservationKey{Category: category, Question: question, Answer: answer}]
	return a, ok
}

// Kind reports the declared cardinality of a fact name.
func (d *Dictionary) Kind(fact string) (FactKind, bool) {
	k, ok := d.kinds[fact]
	return k, ok
}

// ConditionFacts returns the chronic-condition boolean fact names in a
// stable order, so classification and counting are deterministic.
func (d *Dictionary) ConditionFacts() []string {
	out := make([]string, len(d.conditionFacts))
	copy(out, d.conditionFacts)
	return out
}

// ConditionKeywords returns the lowercased keyword substrings for one
// chronic-condition fact.
func (d *Dictionary) ConditionKeywords(fact string) []string {
	return d.conditionKeywords[fact]
}

// TerminalKeywords returns the lowercased terminal-illness keyword list.
func (d *Dictionary) TerminalKeywords() []string {
	return d.terminalKeywords
}

// AcuteKeywords returns the lowercased acute-diagnosis keyword list used by
// tier-2 health-status inference.
func (d *Dictionary) AcuteKeywords() []string {
	return d.acuteKeywords
}

// MappingCount reports how many observation triples are mapped.
func (d *Dictionary) MappingCount() int {
	return len(d.mappings)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
