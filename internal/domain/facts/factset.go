package facts

import "sort"

// Well-known fact names shared between the extractor, the classifier, and
// the default rule set.
const (
	FactFunctionalStatus      = "functional_status"
	FactCognitiveStatus       = "cognitive_status"
	FactSymptoms              = "symptoms"
	FactHealthStatus          = "health_status"
	FactTerminallyIll         = "is_terminally_ill"
	FactChronicConditionCount = "chronic_condition_count"
)

// Observation is one raw assessment row for a patient. All fields are free
// text, possibly in a non-Latin script.
type Observation struct {
	Category string `json:"category"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Diagnosis is one raw diagnosis row for a patient.
type Diagnosis struct {
	Text string `json:"text"`
}

// FactSet is the canonical fact mapping for a single patient. Set-valued,
// scalar, boolean, and numeric facts get distinct storage so a scalar can
// never silently become a set. A FactSet is built fresh per patient; absence
// of a key means the fact is unknown, never an empty value.
type FactSet struct {
	scalars map[string]string
	sets    map[string]map[string]struct{}
	bools   map[string]bool
	counts  map[string]int
}

// NewFactSet returns an empty fact set.
func NewFactSet() *FactSet {
	return &FactSet{
		scalars: make(map[string]string),
		sets:    make(map[string]map[string]struct{}),
		bools:   make(map[string]bool),
		counts:  make(map[string]int),
	}
}

// SetScalar assigns a scalar fact. The first assignment wins; later
// assignments are ignored so tiered inference never overrides an explicit
// observation. Reports whether the value was stored.
func (f *FactSet) SetScalar(name, value string) bool {
	if _, ok := f.scalars[name]; ok {
		return false
	}
	f.scalars[name] = value
	return true
}

// Scalar returns a scalar fact value, with ok=false when unset.
func (f *FactSet) Scalar(name string) (string, bool) {
	v, ok := f.scalars[name]
	return v, ok
}

// AddTag adds a tag to a set-valued fact, creating the set on first use.
func (f *FactSet) AddTag(name, tag string) {
	set, ok := f.sets[name]
	if !ok {
		set = make(map[string]struct{})
		f.sets[name] = set
	}
	set[tag] = struct{}{}
}

// HasTag reports whether a set-valued fact contains the tag. A missing fact
// contains nothing.
func (f *FactSet) HasTag(name, tag string) bool {
	_, ok := f.sets[name][tag]
	return ok
}

// Tags returns the sorted tags of a set-valued fact, with ok=false when the
// fact is absent.
func (f *FactSet) Tags(name string) ([]string, bool) {
	set, ok := f.sets[name]
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out, true
}

// SetBool assigns a boolean fact, overwriting any previous value.
func (f *FactSet) SetBool(name string, value bool) {
	f.bools[name] = value
}

// Bool returns a boolean fact, defaulting to false when unset.
func (f *FactSet) Bool(name string) bool {
	return f.bools[name]
}

// SetCount assigns a numeric fact.
func (f *FactSet) SetCount(name string, n int) {
	f.counts[name] = n
}

// Count returns a numeric fact, with ok=false when unset.
func (f *FactSet) Count(name string) (int, bool) {
	n, ok := f.counts[name]
	return n, ok
}

// Snapshot flattens every fact into a plain map for the audit record. Set
// values come out as sorted slices so output is deterministic.
func (f *FactSet) Snapshot() map[string]interface{} {
	out := make(map[string]interface{}, len(f.scalars)+len(f.sets)+len(f.bools)+len(f.counts))
	for name, v := range f.scalars {
		out[name] = v
	}
	for name := range f.sets {
		tags, _ := f.Tags(name)
		out[name] = tags
	}
	for name, v := range f.bools {
		out[name] = v
	}
	for name, v := range f.counts {
		out[name] = v
	}
	return out
}

// Len reports the number of distinct fact keys.
func (f *FactSet) Len() int {
	return len(f.scalars) + len(f.sets) + len(f.bools) + len(f.counts)
}
