package scoring

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MatanKJaffe/CFSCalculator/internal/domain/dictionary"
	"github.com/MatanKJaffe/CFSCalculator/internal/domain/facts"
	"github.com/MatanKJaffe/CFSCalculator/internal/domain/rules"
)

// Service orchestrates the scoring pipeline: extract facts from assessment
// rows, classify diagnoses, infer health status, then evaluate the rule set.
// The repo is optional; when nil, results are computed but not persisted.
type Service struct {
	extractor  *facts.Extractor
	classifier *facts.Classifier
	evaluator  *rules.Evaluator
	ruleSet    *rules.RuleSet
	results    ResultRepository
	workers    int
	log        zerolog.Logger
}

func NewService(dict *dictionary.Dictionary, rs *rules.RuleSet, results ResultRepository, workers int, log zerolog.Logger) *Service {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Service{
		extractor:  facts.NewExtractor(dict),
		classifier: facts.NewClassifier(dict),
		evaluator:  rules.NewEvaluator(rs),
		ruleSet:    rs,
		results:    results,
		workers:    workers,
		log:        log,
	}
}

// ScorePatient runs the full pipeline for a single patient record.
func (s *Service) ScorePatient(ctx context.Context, rec PatientRecord) (*Result, error) {
	if rec.PatientNum == "" {
		return nil, fmt.Errorf("patient_num is required")
	}
	return s.score(uuid.New(), rec), nil
}

// ScoreFacts evaluates an already-assembled fact snapshot, bypassing
// extraction and classification. Used when the caller holds precomputed
// facts rather than raw assessment rows.
func (s *Service) ScoreFacts(ctx context.Context, patientNum string, snapshot map[string]interface{}) (*Result, error) {
	if patientNum == "" {
		return nil, fmt.Errorf("patient_num is required")
	}
	fs, err := facts.FromSnapshot(snapshot)
	if err != nil {
		return nil, err
	}
	return s.assemble(uuid.New(), patientNum, fs), nil
}

// ScoreBatch scores every record concurrently and returns results in input
// order. Scoring a patient never fails: missing data falls through to the
// default rule.
func (s *Service) ScoreBatch(ctx context.Context, recs []PatientRecord) ([]*Result, *BatchSummary) {
	runID := uuid.New()
	results := make([]*Result, len(recs))

	workers := s.workers
	if workers > len(recs) {
		workers = len(recs)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.score(runID, recs[i])
			}
		}()
	}

	for i := range recs {
		select {
		case jobs <- i:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	summary := &BatchSummary{
		RunID:   runID,
		ByScore: make(map[int]int),
	}
	for _, res := range results {
		if res == nil {
			continue // cancelled before this record was scored
		}
		summary.Patients++
		summary.ByScore[res.Score]++
		if res.RulePriority == s.defaultPriority() {
			summary.Defaulted++
		}
	}

	s.log.Info().
		Str("run_id", runID.String()).
		Int("patients", summary.Patients).
		Int("defaulted", summary.Defaulted).
		Msg("scoring run complete")

	return results, summary
}

// Save persists a single result.
func (s *Service) Save(ctx context.Context, res *Result) error {
	if s.results == nil {
		return fmt.Errorf("result persistence is not configured")
	}
	return s.results.Create(ctx, res)
}

// SaveBatch persists a full run atomically.
func (s *Service) SaveBatch(ctx context.Context, results []*Result) error {
	if s.results == nil {
		return fmt.Errorf("result persistence is not configured")
	}
	return s.results.CreateBatch(ctx, results)
}

func (s *Service) GetLatestByPatient(ctx context.Context, patientNum string) (*Result, error) {
	if s.results == nil {
		return nil, fmt.Errorf("result persistence is not configured")
	}
	return s.results.GetLatestByPatient(ctx, patientNum)
}

func (s *Service) ListResults(ctx context.Context, limit, offset int) ([]*Result, int, error) {
	if s.results == nil {
		return nil, 0, fmt.Errorf("result persistence is not configured")
	}
	return s.results.List(ctx, limit, offset)
}

func (s *Service) ListResultsByPatient(ctx context.Context, patientNum string, limit, offset int) ([]*Result, int, error) {
	if s.results == nil {
		return nil, 0, fmt.Errorf("result persistence is not configured")
	}
	return s.results.ListByPatient(ctx, patientNum, limit, offset)
}

// Rules exposes the loaded rule set in evaluation order.
func (s *Service) Rules() []*rules.Rule {
	return s.ruleSet.Rules()
}

// Persistent reports whether a result repository is wired.
func (s *Service) Persistent() bool {
	return s.results != nil
}

func (s *Service) score(runID uuid.UUID, rec PatientRecord) *Result {
	fs := s.extractor.Extract(rec.Assessments)
	s.classifier.Classify(rec.Diagnoses, fs)
	s.extractor.InferHealthStatus(fs, rec.Diagnoses)
	return s.assemble(runID, rec.PatientNum, fs)
}

func (s *Service) assemble(runID uuid.UUID, patientNum string, fs *facts.FactSet) *Result {
	match := s.evaluator.Evaluate(fs)
	return &Result{
		ID:           uuid.New(),
		RunID:        runID,
		PatientNum:   patientNum,
		Score:        match.Score,
		Description:  match.Description,
		RulePriority: match.RulePriority,
		RuleName:     match.RuleName,
		Facts:        fs.Snapshot(),
		CreatedAt:    time.Now().UTC(),
	}
}

func (s *Service) defaultPriority() int {
	all := s.ruleSet.Rules()
	return all[len(all)-1].Priority
}
