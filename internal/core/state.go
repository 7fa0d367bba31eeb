package core

import "time"

// The schedule machine is stored as two nullable columns (is_active,
// next_occurrence) but handled in code as an explicit three-state variant so
// invalid combinations cannot be produced. Expiry keeps the last computed
// next occurrence around, which is what makes Completed distinguishable from
// Paused on load:
//
//	active                      -> Active (next set)
//	inactive, next cleared      -> Paused
//	inactive, next still set    -> Completed
type ScheduleStatus string

const (
	StatusActive    ScheduleStatus = "active"
	StatusPaused    ScheduleStatus = "paused"
	StatusCompleted ScheduleStatus = "completed"
)

// ScheduleState is the explicit form of a definition's schedule. Build values
// with the constructors; they enforce the per-status field shape.
type ScheduleState struct {
	Status ScheduleStatus
	Next   *time.Time
	Last   *time.Time
}

func ActiveState(next time.Time, last *time.Time) ScheduleState {
	return ScheduleState{Status: StatusActive, Next: &next, Last: last}
}

func PausedState(last *time.Time) ScheduleState {
	return ScheduleState{Status: StatusPaused, Last: last}
}

// CompletedState keeps the stale next occurrence for inspection. Due-selection
// filters on the active flag, so the value is never picked up again.
func CompletedState(next, last *time.Time) ScheduleState {
	return ScheduleState{Status: StatusCompleted, Next: next, Last: last}
}

// State derives the explicit schedule state from the persisted fields.
func (d *RecurringDefinition) State() ScheduleState {
	switch {
	case d.IsActive:
		return ScheduleState{Status: StatusActive, Next: d.NextOccurrence, Last: d.LastOccurrence}
	case d.NextOccurrence != nil:
		return CompletedState(d.NextOccurrence, d.LastOccurrence)
	default:
		return PausedState(d.LastOccurrence)
	}
}

// ApplyState projects an explicit state back onto the persisted fields.
func (d *RecurringDefinition) ApplyState(s ScheduleState) {
	d.IsActive = s.Status == StatusActive
	d.NextOccurrence = s.Next
	d.LastOccurrence = s.Last
}
