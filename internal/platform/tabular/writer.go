package tabular

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/MatanKJaffe/CFSCalculator/internal/domain/scoring"
)

// WriteResultsCSV writes one row per scored patient. The fact snapshot is
// serialized as JSON in the final column so the output stays a flat table.
func WriteResultsCSV(w io.Writer, results []*scoring.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"PatientNum", "Score", "Description", "RulePriority", "RuleName", "Facts"}); err != nil {
		return fmt.Errorf("write results header: %w", err)
	}

	for _, res := range results {
		factsJSON, err := json.Marshal(res.Facts)
		if err != nil {
			return fmt.Errorf("marshal facts for %s: %w", res.PatientNum, err)
		}
		row := []string{
			res.PatientNum,
			strconv.Itoa(res.Score),
			res.Description,
			strconv.Itoa(res.RulePriority),
			res.RuleName,
			string(factsJSON),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write result row for %s: %w", res.PatientNum, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteResultsJSON writes the results and run summary as a single indented
// JSON document.
func WriteResultsJSON(w io.Writer, results []*scoring.Result, summary *scoring.BatchSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"results": results,
		"summary": summary,
	})
}
