package reconcile

import (
	"time"

	"notioncal/internal/service"
)

// Outcome is what processing one record did.
type Outcome int

const (
	// OutcomeUnchanged means there was nothing to do.
	OutcomeUnchanged Outcome = iota
	// OutcomeUnscheduled means the record has no due date yet.
	OutcomeUnscheduled
	// OutcomeSkipped means the record lacks required properties.
	OutcomeSkipped
	OutcomeCreated
	OutcomeUpdated
	OutcomeDeleted
	// OutcomeHealed means the stored event id pointed at a missing event
	// and was cleared so the next run recreates it.
	OutcomeHealed
	OutcomeFailed
)

var outcomeNames = [...]string{
	OutcomeUnchanged:   "unchanged",
	OutcomeUnscheduled: "unscheduled",
	OutcomeSkipped:     "skipped",
	OutcomeCreated:     "created",
	OutcomeUpdated:     "updated",
	OutcomeDeleted:     "deleted",
	OutcomeHealed:      "healed",
	OutcomeFailed:      "failed",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// Outcomes lists every outcome in display order.
func Outcomes() []Outcome {
	return []Outcome{
		OutcomeCreated, OutcomeUpdated, OutcomeDeleted, OutcomeHealed,
		OutcomeUnchanged, OutcomeUnscheduled, OutcomeSkipped, OutcomeFailed,
	}
}

// TargetResult summarizes one target.
type TargetResult struct {
	Target     service.SyncTarget
	CalendarID string
	Records    int
	Outcomes   map[Outcome]int
	// Err is set when the target was abandoned.
	Err error
}

// Report summarizes a run.
type Report struct {
	Started  time.Time
	Finished time.Time
	// Since is the delta threshold, zero when every record was queried.
	Since   time.Time
	Targets []TargetResult
	// Critical is set when the run ended early.
	Critical error
}

// Count sums an outcome over all targets.
func (r Report) Count(o Outcome) int {
	n := 0
	for _, t := range r.Targets {
		n += t.Outcomes[o]
	}
	return n
}

// OK reports whether every target completed and no record failed.
func (r Report) OK() bool {
	if r.Critical != nil || r.Count(OutcomeFailed) > 0 || r.Count(OutcomeSkipped) > 0 {
		return false
	}
	for _, t := range r.Targets {
		if t.Err != nil {
			return false
		}
	}
	return true
}
