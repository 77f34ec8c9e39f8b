package models

import (
	"testing"
)

// TestIsValidProjectStatus tests accepted and rejected project statuses
func TestIsValidProjectStatus(t *testing.T) {
	for _, s := range []string{ProjectActive, ProjectPaused, ProjectCompleted, ProjectFailed} {
		if !IsValidProjectStatus(s) {
			t.Errorf("Expected %q to be valid project status", s)
		}
	}
	for _, s := range []string{"", "archived", "done", "ACTIVE"} {
		if IsValidProjectStatus(s) {
			t.Errorf("Expected %q to be invalid project status", s)
		}
	}
}

// TestIsValidHypothesisStatus tests the hypothesis status vocabulary
func TestIsValidHypothesisStatus(t *testing.T) {
	for _, s := range []string{HypothesisOpen, HypothesisAccepted, HypothesisRejected, HypothesisArchived} {
		if !IsValidHypothesisStatus(s) {
			t.Errorf("Expected %q to be valid hypothesis status", s)
		}
	}
	if IsValidHypothesisStatus("confirmed") {
		t.Error("Expected 'confirmed' to be invalid hypothesis status")
	}
}

// TestIsValidMissionStatus tests the mission status vocabulary
func TestIsValidMissionStatus(t *testing.T) {
	for _, s := range []string{MissionOpen, MissionInProgress, MissionDone, MissionBlocked, MissionCancelled} {
		if !IsValidMissionStatus(s) {
			t.Errorf("Expected %q to be valid mission status", s)
		}
	}
	if IsValidMissionStatus("failed") {
		t.Error("Expected 'failed' to be invalid mission status")
	}
}

// TestIsValidConfidence tests the [0,1] confidence range
func TestIsValidConfidence(t *testing.T) {
	valid := []float64{0.0, 0.5, 1.0}
	for _, c := range valid {
		if !IsValidConfidence(c) {
			t.Errorf("Expected %v to be valid confidence", c)
		}
	}
	invalid := []float64{-0.01, 1.01, 2.0}
	for _, c := range invalid {
		if IsValidConfidence(c) {
			t.Errorf("Expected %v to be invalid confidence", c)
		}
	}
}
