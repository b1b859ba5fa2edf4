package lifecycle

import (
	"time"

	"github.com/harentsoaR/medibook-api/internal/models"
)

type Action int

const (
	NoAction Action = iota
	// MarkCompletedAndCount: set status completed, set the patient-counted
	// flag, then increment the doctor's patient counter once.
	MarkCompletedAndCount
	// MarkCompletedOnly: set status completed, the counter was already bumped.
	MarkCompletedOnly
)

func (a Action) String() string {
	switch a {
	case MarkCompletedAndCount:
		return "mark_completed_and_count"
	case MarkCompletedOnly:
		return "mark_completed_only"
	default:
		return "no_action"
	}
}

// EvaluateTransition decides what should happen to an approved appointment
// whose scheduled time has passed. The decision comes from the snapshot
// alone; two callers holding the same stale snapshot get the same answer, so
// the store must apply the counting step conditionally.
func EvaluateTransition(apt *models.Appointment, now time.Time) Action {
	if apt == nil || apt.Status != models.StatusApproved {
		return NoAction
	}
	at, ok := ScheduledTime(apt, now)
	if !ok || !at.Before(now) {
		return NoAction
	}
	if apt.PatientCounted {
		return MarkCompletedOnly
	}
	return MarkCompletedAndCount
}

// ShouldPromptRating reports whether the patient viewing a finished
// appointment should be asked for a rating.
func ShouldPromptRating(apt *models.Appointment, viewerIsPatient bool) bool {
	return apt != nil && viewerIsPatient && apt.Status == models.StatusCompleted && !apt.RatingGiven
}
