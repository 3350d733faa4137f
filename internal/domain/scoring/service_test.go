package scoring

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/MatanKJaffe/CFSCalculator/internal/domain/dictionary"
	"github.com/MatanKJaffe/CFSCalculator/internal/domain/facts"
	"github.com/MatanKJaffe/CFSCalculator/internal/domain/rules"
)

// mockResultRepo is an in-memory ResultRepository for tests.
type mockResultRepo struct {
	results []*Result
	failAll bool
}

func (m *mockResultRepo) Create(ctx context.Context, r *Result) error {
	if m.failAll {
		return fmt.Errorf("storage unavailable")
	}
	m.results = append(m.results, r)
	return nil
}

func (m *mockResultRepo) CreateBatch(ctx context.Context, results []*Result) error {
	if m.failAll {
		return fmt.Errorf("storage unavailable")
	}
	m.results = append(m.results, results...)
	return nil
}

func (m *mockResultRepo) GetLatestByPatient(ctx context.Context, patientNum string) (*Result, error) {
	for i := len(m.results) - 1; i >= 0; i-- {
		if m.results[i].PatientNum == patientNum {
			return m.results[i], nil
		}
	}
	return nil, fmt.Errorf("no results for %s", patientNum)
}

func (m *mockResultRepo) ListByPatient(ctx context.Context, patientNum string, limit, offset int) ([]*Result, int, error) {
	var matched []*Result
	for _, r := range m.results {
		if r.PatientNum == patientNum {
			matched = append(matched, r)
		}
	}
	return paginate(matched, limit, offset), len(matched), nil
}

func (m *mockResultRepo) List(ctx context.Context, limit, offset int) ([]*Result, int, error) {
	return paginate(m.results, limit, offset), len(m.results), nil
}

func paginate(items []*Result, limit, offset int) []*Result {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func newTestService(t *testing.T, repo ResultRepository) *Service {
	t.Helper()
	dict, err := dictionary.Load("")
	if err != nil {
		t.Fatalf("load dictionary: %v", err)
	}
	rs, err := rules.Load("")
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	return NewService(dict, rs, repo, 4, zerolog.Nop())
}

func TestScorePatient_TerminalDiagnosis(t *testing.T) {
	svc := newTestService(t, nil)

	res, err := svc.ScorePatient(context.Background(), PatientRecord{
		PatientNum: "p-1",
		Diagnoses:  []facts.Diagnosis{{Text: "Metastatic lung cancer, palliative care"}},
	})
	if err != nil {
		t.Fatalf("ScorePatient() error: %v", err)
	}

	if res.Score != 9 {
		t.Errorf("score = %d, want 9", res.Score)
	}
	if res.PatientNum != "p-1" {
		t.Errorf("patient_num = %q, want p-1", res.PatientNum)
	}
	if res.Facts["is_terminally_ill"] != true {
		t.Errorf("expected is_terminally_ill in fact snapshot, got %v", res.Facts)
	}
}

func TestScorePatient_NoData_DefaultRule(t *testing.T) {
	svc := newTestService(t, nil)

	res, err := svc.ScorePatient(context.Background(), PatientRecord{PatientNum: "p-2"})
	if err != nil {
		t.Fatalf("ScorePatient() error: %v", err)
	}

	if res.Score != 1 {
		t.Errorf("score = %d, want 1 (default rule)", res.Score)
	}
	if res.RulePriority != 99 {
		t.Errorf("rule_priority = %d, want 99", res.RulePriority)
	}
}

func TestScorePatient_MissingPatientNum(t *testing.T) {
	svc := newTestService(t, nil)
	if _, err := svc.ScorePatient(context.Background(), PatientRecord{}); err == nil {
		t.Error("expected error for missing patient_num")
	}
}

func TestScoreFacts(t *testing.T) {
	svc := newTestService(t, nil)

	res, err := svc.ScoreFacts(context.Background(), "p-3", map[string]interface{}{
		"functional_status": []interface{}{"independent"},
		"health_status":     "good",
	})
	if err != nil {
		t.Fatalf("ScoreFacts() error: %v", err)
	}
	if res.Score != 2 {
		t.Errorf("score = %d, want 2", res.Score)
	}
	if res.RuleName != "CFS 2: Fit" {
		t.Errorf("rule_name = %q, want CFS 2: Fit", res.RuleName)
	}
}

func TestScoreFacts_HighConditionCount(t *testing.T) {
	svc := newTestService(t, nil)

	res, err := svc.ScoreFacts(context.Background(), "p-4", map[string]interface{}{
		"chronic_condition_count": float64(12),
	})
	if err != nil {
		t.Fatalf("ScoreFacts() error: %v", err)
	}
	if res.Score != 4 {
		t.Errorf("score = %d, want 4", res.Score)
	}
}

func TestScoreFacts_InvalidSnapshot(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.ScoreFacts(context.Background(), "p-5", map[string]interface{}{
		"chronic_condition_count": float64(-4),
	})
	if err == nil {
		t.Error("expected error for negative count")
	}
}

func TestScoreBatch_OrderAndSummary(t *testing.T) {
	svc := newTestService(t, nil)

	recs := []PatientRecord{
		{PatientNum: "a", Diagnoses: []facts.Diagnosis{{Text: "hospice care"}}},
		{PatientNum: "b"}, // no data: default rule
		{PatientNum: "c", Assessments: []facts.Observation{
			{Category: "תפקוד", Question: "מצב תפקודי", Answer: "תלות ברחצה"},
		}},
	}

	results, summary := svc.ScoreBatch(context.Background(), recs)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// Results come back in input order regardless of worker scheduling.
	for i, want := range []string{"a", "b", "c"} {
		if results[i].PatientNum != want {
			t.Errorf("results[%d].PatientNum = %q, want %q", i, results[i].PatientNum, want)
		}
	}

	if results[0].Score != 9 {
		t.Errorf("patient a score = %d, want 9", results[0].Score)
	}
	if results[1].Score != 1 {
		t.Errorf("patient b score = %d, want 1", results[1].Score)
	}
	if results[2].Score != 7 {
		t.Errorf("patient c score = %d, want 7", results[2].Score)
	}

	if summary.Patients != 3 {
		t.Errorf("summary.Patients = %d, want 3", summary.Patients)
	}
	if summary.Defaulted != 1 {
		t.Errorf("summary.Defaulted = %d, want 1", summary.Defaulted)
	}
	if summary.ByScore[9] != 1 || summary.ByScore[1] != 1 || summary.ByScore[7] != 1 {
		t.Errorf("unexpected score distribution: %v", summary.ByScore)
	}

	// All results carry the same run ID.
	for _, r := range results {
		if r.RunID != summary.RunID {
			t.Errorf("result run_id %s != summary run_id %s", r.RunID, summary.RunID)
		}
	}
}

func TestScoreBatch_Deterministic(t *testing.T) {
	svc := newTestService(t, nil)

	recs := make([]PatientRecord, 50)
	for i := range recs {
		recs[i] = PatientRecord{PatientNum: fmt.Sprintf("p-%03d", i)}
		if i%3 == 0 {
			recs[i].Diagnoses = []facts.Diagnosis{{Text: "end-stage renal disease"}}
		}
	}

	first, _ := svc.ScoreBatch(context.Background(), recs)
	for run := 0; run < 5; run++ {
		again, _ := svc.ScoreBatch(context.Background(), recs)
		for i := range first {
			if first[i].Score != again[i].Score || first[i].PatientNum != again[i].PatientNum {
				t.Fatalf("run %d: result %d differs: %v vs %v", run, i, first[i], again[i])
			}
		}
	}
}

func TestSaveBatch_NoRepo(t *testing.T) {
	svc := newTestService(t, nil)
	if err := svc.SaveBatch(context.Background(), nil); err == nil {
		t.Error("expected error when persistence is not configured")
	}
	if svc.Persistent() {
		t.Error("Persistent() should be false without a repo")
	}
}

func TestSaveBatch_WithRepo(t *testing.T) {
	repo := &mockResultRepo{}
	svc := newTestService(t, repo)

	results, _ := svc.ScoreBatch(context.Background(), []PatientRecord{
		{PatientNum: "a"}, {PatientNum: "b"},
	})
	if err := svc.SaveBatch(context.Background(), results); err != nil {
		t.Fatalf("SaveBatch() error: %v", err)
	}
	if len(repo.results) != 2 {
		t.Errorf("expected 2 persisted results, got %d", len(repo.results))
	}

	latest, err := svc.GetLatestByPatient(context.Background(), "a")
	if err != nil {
		t.Fatalf("GetLatestByPatient() error: %v", err)
	}
	if latest.PatientNum != "a" {
		t.Errorf("latest.PatientNum = %q, want a", latest.PatientNum)
	}
}

func TestRules_Exposed(t *testing.T) {
	svc := newTestService(t, nil)
	all := svc.Rules()
	if len(all) == 0 {
		t.Fatal("expected rules to be exposed")
	}
	last := all[len(all)-1]
	if !last.IsDefault() {
		t.Error("expected last rule to be the default")
	}
}
