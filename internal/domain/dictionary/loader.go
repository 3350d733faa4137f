package dictionary

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// fileFormat mirrors the on-disk dictionary JSON.
type fileFormat struct {
	Facts              map[string]string   `json:"facts"`
	AssessmentMappings []mappingEntry      `json:"assessment_mappings"`
	ConditionKeywords  map[string][]string `json:"condition_keywords"`
	TerminalKeywords   []string            `json:"terminal_keywords"`
	AcuteKeywords      []string            `json:"acute_keywords"`
}

type mappingEntry struct {
	Category string `json:"category"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Fact     string `json:"fact"`
	Value    string `json:"value"`
}

// Load reads and validates a dictionary file. An empty path loads the
// embedded default dictionary. Any malformed entry is a configuration error
// and aborts the run before patients are processed.
func Load(path string) (*Dictionary, error) {
	data := defaultDictionary
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read dictionary file: %w", err)
		}
	}
	return Parse(data)
}

// Parse builds a Dictionary from raw JSON.
func Parse(data []byte) (*Dictionary, error) {
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse dictionary: %w", err)
	}

	d := &Dictionary{
		kinds:             make(map[string]FactKind, len(f.Facts)),
		mappings:          make(map[ObservationKey]Assignment, len(f.AssessmentMappings)),
		conditionKeywords: make(map[string][]string, len(f.ConditionKeywords)),
	}

	for fact, kind := range f.Facts {
		switch FactKind(kind) {
		case KindScalar, KindSet, KindBool:
			d.kinds[fact] = FactKind(kind)
		default:
			return nil, fmt.Errorf("dictionary: fact %q has unknown kind %q", fact, kind)
		}
	}

	for i, m := range f.AssessmentMappings {
		if m.Category == "" || m.Question == "" || m.Answer == "" {
			return nil, fmt.Errorf("dictionary: mapping %d has an empty triple component", i)
		}
		kind, ok := d.kinds[m.Fact]
		if !ok {
			return nil, fmt.Errorf("dictionary: mapping %d assigns undeclared fact %q", i, m.Fact)
		}
		if m.Value == "" {
			return nil, fmt.Errorf("dictionary: mapping %d for fact %q has an empty value", i, m.Fact)
		}
		if kind == KindBool && m.Value != "true" && m.Value != "false" {
			return nil, fmt.Errorf("dictionary: mapping %d assigns %q to boolean fact %q", i, m.Value, m.Fact)
		}
		key := ObservationKey{Category: m.Category, Question: m.Question, Answer: m.Answer}
		if _, dup := d.mappings[key]; dup {
			return nil, fmt.Errorf("dictionary: duplicate mapping for triple (%s, %s, %s)", m.Category, m.Question, m.Answer)
		}
		d.mappings[key] = Assignment{Fact: m.Fact, Value: m.Value}
	}

	for fact, keywords := range f.ConditionKeywords {
		if len(keywords) == 0 {
			return nil, fmt.Errorf("dictionary: condition fact %q has no keywords", fact)
		}
		d.conditionKeywords[fact] = lowerAll(keywords)
	}
	d.conditionFacts = sortedKeys(d.conditionKeywords)

	d.terminalKeywords = lowerAll(f.TerminalKeywords)
	// Acute keywords feed health_status inference, which runs only when no
	// assessment mapping assigned health_status directly.
	d.acuteKeywords = lowerAll(f.AcuteKeywords)

	return d, nil
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
