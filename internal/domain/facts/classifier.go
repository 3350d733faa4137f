package facts

import (
	"strings"

	"github.com/MatanKJaffe/CFSCalculator/internal/domain/dictionary"
)

// Classifier derives boolean condition facts and the chronic-condition count
// from a patient's diagnosis rows. Matching is case-insensitive substring
// matching against each diagnosis text. Safe for concurrent use.
type Classifier struct {
	dict *dictionary.Dictionary
}

func NewClassifier(dict *dictionary.Dictionary) *Classifier {
	return &Classifier{dict: dict}
}

// Classify merges diagnosis-derived facts into the fact set. Every condition
// category is counted at most once no matter how many diagnosis rows match
// it: three "CHF" rows are still one heart-failure category. Empty diagnosis
// data yields all-false booleans and a count of zero.
func (c *Classifier) Classify(diagnoses []Diagnosis, fs *FactSet) {
	texts := make([]string, 0, len(diagnoses))
	for _, d := range diagnoses {
		texts = append(texts, strings.ToLower(d.Text))
	}

	matched := 0
	for _, fact := range c.dict.ConditionFacts() {
		hit := anyContainsAny(texts, c.dict.ConditionKeywords(fact))
		fs.SetBool(fact, hit)
		if hit {
			matched++
		}
	}
	fs.SetCount(FactChronicConditionCount, matched)

	fs.SetBool(FactTerminallyIll, anyContainsAny(texts, c.dict.TerminalKeywords()))
}

func anyContainsAny(texts, keywords []string) bool {
	for _, t := range texts {
		for _, kw := range keywords {
			if strings.Contains(t, kw) {
				return true
			}
		}
	}
	return false
}
