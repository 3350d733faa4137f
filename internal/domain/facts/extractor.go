package facts

import (
	"strings"

	"github.com/MatanKJaffe/CFSCalculator/internal/domain/dictionary"
)

// Extractor turns one patient's raw assessment observations into canonical
// facts using the dictionary. The dictionary is read-only and shared; an
// Extractor is safe for concurrent use.
type Extractor struct {
	dict *dictionary.Dictionary
}

func NewExtractor(dict *dictionary.Dictionary) *Extractor {
	return &Extractor{dict: dict}
}

// Extract walks all observations for a single patient and merges every
// mapped triple into a fresh FactSet. Unmapped triples are dropped silently:
// the dictionary is partial by construction and must fail open. Scalar and
// boolean facts keep the first value observed; set facts accumulate.
func (e *Extractor) Extract(observations []Observation) *FactSet {
	fs := NewFactSet()
	for _, obs := range observations {
		a, ok := e.dict.Lookup(obs.Category, obs.Question, obs.Answer)
		if !ok {
			continue
		}
		kind, ok := e.dict.Kind(a.Fact)
		if !ok {
			continue
		}
		switch kind {
		case dictionary.KindSet:
			fs.AddTag(a.Fact, a.Value)
		case dictionary.KindScalar:
			fs.SetScalar(a.Fact, a.Value)
		case dictionary.KindBool:
			if _, seen := fs.bools[a.Fact]; !seen {
				fs.bools[a.Fact] = a.Value == "true"
			}
		}
	}
	return fs
}

// InferHealthStatus fills health_status from progressively less direct
// evidence when no assessment row set it explicitly:
//
//	tier 2: an acute diagnosis keyword implies very_poor
//	tier 3: shortness of breath implies poor, otherwise pain implies fair
//
// An explicitly observed health_status is never overridden; with no matching
// evidence the fact stays unset.
func (e *Extractor) InferHealthStatus(fs *FactSet, diagnoses []Diagnosis) {
	if _, ok := fs.Scalar(FactHealthStatus); ok {
		return
	}

	for _, d := range diagnoses {
		text := strings.ToLower(d.Text)
		for _, kw := range e.dict.AcuteKeywords() {
			if strings.Contains(text, kw) {
				fs.SetScalar(FactHealthStatus, "very_poor")
				return
			}
		}
	}

	if fs.HasTag(FactSymptoms, "shortness_of_breath") {
		fs.SetScalar(FactHealthStatus, "poor")
		return
	}
	if fs.HasTag(FactSymptoms, "has_pain") {
		fs.SetScalar(FactHealthStatus, "fair")
	}
}
