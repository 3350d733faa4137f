package facts

import (
	"reflect"
	"testing"
)

func TestFactSet_ScalarFirstWins(t *testing.T) {
	fs := NewFactSet()
	if !fs.SetScalar("health_status", "good") {
		t.Fatal("expected first assignment to be stored")
	}
	if fs.SetScalar("health_status", "poor") {
		t.Error("expected second assignment to be ignored")
	}

	v, ok := fs.Scalar("health_status")
	if !ok || v != "good" {
		t.Errorf("expected good, got %q (ok=%v)", v, ok)
	}
}

func TestFactSet_SetAccumulates(t *testing.T) {
	fs := NewFactSet()
	fs.AddTag("functional_status", "dependent_bathing")
	fs.AddTag("functional_status", "dependent_eating")
	fs.AddTag("functional_status", "dependent_bathing")

	tags, ok := fs.Tags("functional_status")
	if !ok {
		t.Fatal("expected functional_status to be present")
	}
	want := []string{"dependent_bathing", "dependent_eating"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("expected %v, got %v", want, tags)
	}
}

func TestFactSet_AbsentMeansOmitted(t *testing.T) {
	fs := NewFactSet()

	if _, ok := fs.Scalar("health_status"); ok {
		t.Error("expected absent scalar to report ok=false")
	}
	if _, ok := fs.Tags("functional_status"); ok {
		t.Error("expected absent set to report ok=false")
	}
	if _, ok := fs.Count("chronic_condition_count"); ok {
		t.Error("expected absent count to report ok=false")
	}
	if fs.HasTag("functional_status", "independent") {
		t.Error("expected missing set to contain nothing")
	}
	if fs.Len() != 0 {
		t.Errorf("expected empty fact set, got %d keys", fs.Len())
	}
}

func TestFactSet_BoolDefaultsFalse(t *testing.T) {
	fs := NewFactSet()
	if fs.Bool("is_terminally_ill") {
		t.Error("expected unset boolean to be false")
	}
	fs.SetBool("is_terminally_ill", true)
	if !fs.Bool("is_terminally_ill") {
		t.Error("expected boolean to be true after set")
	}
}

func TestFactSet_Snapshot(t *testing.T) {
	fs := NewFactSet()
	fs.SetScalar("health_status", "good")
	fs.AddTag("functional_status", "independent")
	fs.SetBool("is_terminally_ill", false)
	fs.SetCount("chronic_condition_count", 2)

	snap := fs.Snapshot()
	if snap["health_status"] != "good" {
		t.Errorf("expected scalar in snapshot, got %v", snap["health_status"])
	}
	if !reflect.DeepEqual(snap["functional_status"], []string{"independent"}) {
		t.Errorf("expected sorted tag slice, got %v", snap["functional_status"])
	}
	if snap["is_terminally_ill"] != false {
		t.Errorf("expected boolean in snapshot, got %v", snap["is_terminally_ill"])
	}
	if snap["chronic_condition_count"] != 2 {
		t.Errorf("expected count in snapshot, got %v", snap["chronic_condition_count"])
	}
}
