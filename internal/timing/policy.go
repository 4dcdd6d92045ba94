// Package timing implements the attempt phase policy. All functions are pure:
// phase and remaining time are derived from the persisted start timestamp and
// the exam's configured durations, never from server-side tickers. This keeps
// the computation identical across process restarts and across replicas.
package timing

import (
	"time"
)

// Phase describes where a participant currently is inside their attempt
// window.
type Phase string

const (
	// PhaseWaiting means the attempt has not been started yet. The
	// participant may or may not have drawn a question.
	PhaseWaiting Phase = "waiting"
	// PhasePreparation means the attempt started and the participant is
	// inside the silent preparation countdown.
	PhasePreparation Phase = "preparation"
	// PhaseRecording means the preparation countdown elapsed and the
	// participant is inside the answer recording window.
	PhaseRecording Phase = "recording"
	// PhaseExpired means the full window (preparation plus recording)
	// elapsed without a submission.
	PhaseExpired Phase = "expired"
	// PhaseCompleted means the attempt was submitted or finalized.
	PhaseCompleted Phase = "completed"
)

// Snapshot is the result of a phase computation at one instant.
type Snapshot struct {
	Phase Phase `json:"phase"`
	// PreparationRemaining is the whole seconds left in the preparation
	// countdown. Zero outside the preparation phase.
	PreparationRemaining int `json:"preparation_remaining"`
	// RecordingRemaining is the whole seconds left in the recording
	// window. During preparation it reports the full recording duration,
	// since none of it has been consumed yet.
	RecordingRemaining int `json:"recording_remaining"`
	// TotalRemaining is the whole seconds left until the attempt expires.
	TotalRemaining int `json:"total_remaining"`
}

// Compute derives the attempt phase at instant now.
//
//	startTime nil            -> waiting
//	elapsed < prep           -> preparation
//	elapsed < prep+recording -> recording
//	otherwise                -> expired
//
// The completed flag short-circuits everything: a submitted attempt stays
// completed no matter what the clock says.
func Compute(startTime *time.Time, preparation, recording time.Duration, completed bool, now time.Time) Snapshot {
	if completed {
		return Snapshot{Phase: PhaseCompleted}
	}
	if startTime == nil {
		return Snapshot{Phase: PhaseWaiting}
	}

	elapsed := now.Sub(*startTime)
	total := preparation + recording

	if elapsed < 0 {
		// Clock skew between writer and reader. Treat the attempt as
		// freshly started rather than inventing extra time.
		elapsed = 0
	}

	switch {
	case elapsed < preparation:
		return Snapshot{
			Phase:                PhasePreparation,
			PreparationRemaining: ceilSeconds(preparation - elapsed),
			RecordingRemaining:   ceilSeconds(recording),
			TotalRemaining:       ceilSeconds(total - elapsed),
		}
	case elapsed < total:
		return Snapshot{
			Phase:              PhaseRecording,
			RecordingRemaining: ceilSeconds(total - elapsed),
			TotalRemaining:     ceilSeconds(total - elapsed),
		}
	default:
		return Snapshot{Phase: PhaseExpired}
	}
}

// Expired reports whether the full attempt window has elapsed.
func Expired(startTime *time.Time, preparation, recording time.Duration, completed bool, now time.Time) bool {
	return Compute(startTime, preparation, recording, completed, now).Phase == PhaseExpired
}

// EarlyStartAnchor returns the start timestamp to persist when a participant
// skips the remainder of their preparation countdown. Anchoring the start at
// now minus the full preparation duration places the attempt exactly at the
// beginning of the recording window, so the participant keeps the entire
// recording duration and the phase stays derivable from one timestamp.
func EarlyStartAnchor(preparation time.Duration, now time.Time) time.Time {
	return now.Add(-preparation)
}

// ceilSeconds rounds a duration up to whole seconds so a countdown never
// displays zero while time actually remains.
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
