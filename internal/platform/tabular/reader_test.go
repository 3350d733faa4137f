package tabular

import (
	"strings"
	"testing"
)

const assessmentCSV = `PatientNum,fFolder,Description,Question_Name,Answer_Text
1001,77,תפקוד,מצב תפקודי,תלות ברחצה
1001,77,מצב פיזי,מצב בריאותי,טוב
1002,81,תפקוד,מצב תפקודי,עצמאי
,9,תפקוד,מצב תפקודי,עצמאי
`

const diagnosisCSV = `PatientNum,Name
1001,Congestive Heart Failure
1001,COPD exacerbation
1003,Metastatic carcinoma - palliative
1003,
`

func TestReadAssessments(t *testing.T) {
	byPatient, err := ReadAssessments(strings.NewReader(assessmentCSV))
	if err != nil {
		t.Fatalf("ReadAssessments() error: %v", err)
	}

	if len(byPatient) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(byPatient))
	}
	if len(byPatient["1001"]) != 2 {
		t.Errorf("patient 1001: expected 2 observations, got %d", len(byPatient["1001"]))
	}

	first := byPatient["1001"][0]
	if first.Category != "תפקוד" || first.Question != "מצב תפקודי" || first.Answer != "תלות ברחצה" {
		t.Errorf("unexpected first observation: %+v", first)
	}
}

func TestReadAssessments_MissingColumn(t *testing.T) {
	_, err := ReadAssessments(strings.NewReader("PatientNum,Description\n1,a\n"))
	if err == nil {
		t.Error("expected error for missing required column")
	}
}

func TestReadDiagnoses(t *testing.T) {
	byPatient, err := ReadDiagnoses(strings.NewReader(diagnosisCSV))
	if err != nil {
		t.Fatalf("ReadDiagnoses() error: %v", err)
	}

	if len(byPatient["1001"]) != 2 {
		t.Errorf("patient 1001: expected 2 diagnoses, got %d", len(byPatient["1001"]))
	}
	// Empty diagnosis text rows are dropped.
	if len(byPatient["1003"]) != 1 {
		t.Errorf("patient 1003: expected 1 diagnosis, got %d", len(byPatient["1003"]))
	}
}

func TestMergeRecords(t *testing.T) {
	assessments, err := ReadAssessments(strings.NewReader(assessmentCSV))
	if err != nil {
		t.Fatalf("ReadAssessments() error: %v", err)
	}
	diagnoses, err := ReadDiagnoses(strings.NewReader(diagnosisCSV))
	if err != nil {
		t.Fatalf("ReadDiagnoses() error: %v", err)
	}

	records := MergeRecords(assessments, diagnoses)
	if len(records) != 3 {
		t.Fatalf("expected 3 patients, got %d", len(records))
	}

	// Sorted by patient number; diagnosis-only patients included.
	wantNums := []string{"1001", "1002", "1003"}
	for i, want := range wantNums {
		if records[i].PatientNum != want {
			t.Errorf("records[%d].PatientNum = %q, want %q", i, records[i].PatientNum, want)
		}
	}

	if len(records[0].Assessments) != 2 || len(records[0].Diagnoses) != 2 {
		t.Errorf("patient 1001: got %d assessments, %d diagnoses",
			len(records[0].Assessments), len(records[0].Diagnoses))
	}
	if len(records[2].Assessments) != 0 || len(records[2].Diagnoses) != 1 {
		t.Errorf("patient 1003: got %d assessments, %d diagnoses",
			len(records[2].Assessments), len(records[2].Diagnoses))
	}
}
