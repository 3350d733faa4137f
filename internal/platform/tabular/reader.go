package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/MatanKJaffe/CFSCalculator/internal/domain/facts"
	"github.com/MatanKJaffe/CFSCalculator/internal/domain/scoring"
)

// Column names expected in exported assessment and diagnosis files. Files
// may carry extra columns; they are ignored.
const (
	colPatientNum = "PatientNum"
	colCategory   = "Description"
	colQuestion   = "Question_Name"
	colAnswer     = "Answer_Text"
	colDiagnosis  = "Name"
)

type header map[string]int

func readHeader(rec []string, required ...string) (header, error) {
	h := make(header, len(rec))
	for i, name := range rec {
		h[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := h[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return h, nil
}

func (h header) get(rec []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// ReadAssessments parses an assessment export and returns observation rows
// grouped by patient number. Row order within a patient is preserved; it
// drives first-wins scalar extraction downstream.
func ReadAssessments(r io.Reader) (map[string][]facts.Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read assessment header: %w", err)
	}
	h, err := readHeader(first, colPatientNum, colCategory, colQuestion, colAnswer)
	if err != nil {
		return nil, fmt.Errorf("assessment file: %w", err)
	}

	byPatient := make(map[string][]facts.Observation)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("assessment file line %d: %w", line, err)
		}

		patientNum := h.get(rec, colPatientNum)
		if patientNum == "" {
			continue
		}
		byPatient[patientNum] = append(byPatient[patientNum], facts.Observation{
			Category: h.get(rec, colCategory),
			Question: h.get(rec, colQuestion),
			Answer:   h.get(rec, colAnswer),
		})
	}
	return byPatient, nil
}

// ReadDiagnoses parses a diagnosis export and returns free-text diagnosis
// rows grouped by patient number.
func ReadDiagnoses(r io.Reader) (map[string][]facts.Diagnosis, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read diagnosis header: %w", err)
	}
	h, err := readHeader(first, colPatientNum, colDiagnosis)
	if err != nil {
		return nil, fmt.Errorf("diagnosis file: %w", err)
	}

	byPatient := make(map[string][]facts.Diagnosis)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("diagnosis file line %d: %w", line, err)
		}

		patientNum := h.get(rec, colPatientNum)
		if patientNum == "" {
			continue
		}
		text := h.get(rec, colDiagnosis)
		if text == "" {
			continue
		}
		byPatient[patientNum] = append(byPatient[patientNum], facts.Diagnosis{Text: text})
	}
	return byPatient, nil
}

// MergeRecords joins assessment and diagnosis rows into per-patient records,
// sorted by patient number. A patient present in either input gets a record;
// patients with diagnoses but no assessments still flow through scoring.
func MergeRecords(assessments map[string][]facts.Observation, diagnoses map[string][]facts.Diagnosis) []scoring.PatientRecord {
	nums := make(map[string]bool, len(assessments))
	for num := range assessments {
		nums[num] = true
	}
	for num := range diagnoses {
		nums[num] = true
	}

	sorted := make([]string, 0, len(nums))
	for num := range nums {
		sorted = append(sorted, num)
	}
	sort.Strings(sorted)

	records := make([]scoring.PatientRecord, 0, len(sorted))
	for _, num := range sorted {
		records = append(records, scoring.PatientRecord{
			PatientNum:  num,
			Assessments: assessments[num],
			Diagnoses:   diagnoses[num],
		})
	}
	return records
}
