package timing

import (
	"testing"
	"time"
)

func TestCompute(t *testing.T) {
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	prep := 60 * time.Second
	rec := 300 * time.Second

	tests := []struct {
		name      string
		start     *time.Time
		completed bool
		at        time.Duration
		wantPhase Phase
		wantPrep  int
		wantRec   int
		wantTotal int
	}{
		{name: "not started", start: nil, wantPhase: PhaseWaiting},
		{name: "prep begins", start: &base, at: 0, wantPhase: PhasePreparation, wantPrep: 60, wantRec: 300, wantTotal: 360},
		{name: "mid prep", start: &base, at: 30 * time.Second, wantPhase: PhasePreparation, wantPrep: 30, wantRec: 300, wantTotal: 330},
		{name: "last prep second", start: &base, at: 59 * time.Second, wantPhase: PhasePreparation, wantPrep: 1, wantRec: 300, wantTotal: 301},
		{name: "recording begins", start: &base, at: 60 * time.Second, wantPhase: PhaseRecording, wantRec: 300, wantTotal: 300},
		{name: "mid recording", start: &base, at: 70 * time.Second, wantPhase: PhaseRecording, wantRec: 290, wantTotal: 290},
		{name: "last recording second", start: &base, at: 359 * time.Second, wantPhase: PhaseRecording, wantRec: 1, wantTotal: 1},
		{name: "window elapsed", start: &base, at: 360 * time.Second, wantPhase: PhaseExpired},
		{name: "long after expiry", start: &base, at: time.Hour, wantPhase: PhaseExpired},
		{name: "submitted overrides clock", start: &base, completed: true, at: 30 * time.Second, wantPhase: PhaseCompleted},
		{name: "submitted overrides expiry", start: &base, completed: true, at: time.Hour, wantPhase: PhaseCompleted},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := Compute(tc.start, prep, rec, tc.completed, base.Add(tc.at))
			if snap.Phase != tc.wantPhase {
				t.Fatalf("phase: expected %s, got %s", tc.wantPhase, snap.Phase)
			}
			if snap.PreparationRemaining != tc.wantPrep {
				t.Errorf("preparation remaining: expected %d, got %d", tc.wantPrep, snap.PreparationRemaining)
			}
			if snap.RecordingRemaining != tc.wantRec {
				t.Errorf("recording remaining: expected %d, got %d", tc.wantRec, snap.RecordingRemaining)
			}
			if snap.TotalRemaining != tc.wantTotal {
				t.Errorf("total remaining: expected %d, got %d", tc.wantTotal, snap.TotalRemaining)
			}
		})
	}
}

func TestComputeRoundsPartialSecondsUp(t *testing.T) {
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	snap := Compute(&base, 60*time.Second, 300*time.Second, false, base.Add(29500*time.Millisecond))
	if snap.Phase != PhasePreparation {
		t.Fatalf("expected preparation, got %s", snap.Phase)
	}
	// 30.5s remain; the countdown must not show 30 while more than 30s are left.
	if snap.PreparationRemaining != 31 {
		t.Errorf("expected 31, got %d", snap.PreparationRemaining)
	}
}

func TestComputeClockSkew(t *testing.T) {
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	future := base.Add(5 * time.Second)
	snap := Compute(&future, 60*time.Second, 300*time.Second, false, base)
	if snap.Phase != PhasePreparation {
		t.Fatalf("expected preparation, got %s", snap.Phase)
	}
	if snap.PreparationRemaining != 60 {
		t.Errorf("expected full preparation window, got %d", snap.PreparationRemaining)
	}
}

func TestExpired(t *testing.T) {
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	prep := 60 * time.Second
	rec := 300 * time.Second

	if Expired(nil, prep, rec, false, base) {
		t.Error("unstarted attempt must never expire")
	}
	if Expired(&base, prep, rec, false, base.Add(359*time.Second)) {
		t.Error("attempt inside the window must not expire")
	}
	if !Expired(&base, prep, rec, false, base.Add(360*time.Second)) {
		t.Error("attempt past the window must expire")
	}
	if Expired(&base, prep, rec, true, base.Add(time.Hour)) {
		t.Error("completed attempt must not report expired")
	}
}

func TestEarlyStartAnchor(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 10, 0, 0, time.UTC)
	prep := 90 * time.Second

	anchor := EarlyStartAnchor(prep, now)
	snap := Compute(&anchor, prep, 300*time.Second, false, now)

	if snap.Phase != PhaseRecording {
		t.Fatalf("expected recording, got %s", snap.Phase)
	}
	// Skipping preparation must grant the entire recording window.
	if snap.RecordingRemaining != 300 {
		t.Errorf("expected 300, got %d", snap.RecordingRemaining)
	}
}
