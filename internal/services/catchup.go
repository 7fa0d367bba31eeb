package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budgetwise/internal/core"
)

// DefaultMaxOccurrences bounds how many occurrences one catch-up run expands
// per definition. A definition left behind for longer finishes over several
// runs instead of monopolizing one.
const DefaultMaxOccurrences = 100

// CatchUp replays every occurrence a definition missed while the scheduled
// pass was not running (downtime, paused deployments). It is idempotent: the
// per-day occurrence check and the unique index make a rerun a no-op.
type CatchUp struct {
	defs           DefinitionStore
	txs            TransactionStore
	tagger         TagExtractor
	maxOccurrences int
}

func NewCatchUp(defs DefinitionStore, txs TransactionStore, tagger TagExtractor, maxOccurrences int) *CatchUp {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	return &CatchUp{defs: defs, txs: txs, tagger: tagger, maxOccurrences: maxOccurrences}
}

// DefinitionOutcome is the per-definition result of a catch-up run.
type DefinitionOutcome struct {
	DefinitionID int64 `json:"definitionId"`
	Created      int   `json:"created"`
	Skipped      int   `json:"skipped"`
	Failed       int   `json:"failed"`
	Expired      bool  `json:"expired"`
}

// CatchUpSummary aggregates a whole run.
type CatchUpSummary struct {
	Processed int                 `json:"processed"`
	Created   int                 `json:"created"`
	Skipped   int                 `json:"skipped"`
	Failed    int                 `json:"failed"`
	Expired   int                 `json:"expired"`
	Outcomes  []DefinitionOutcome `json:"outcomes,omitempty"`
}

// Run synchronizes every active definition whose next occurrence falls on or
// before today. Each definition is handled in isolation; a failure inside one
// never aborts the others.
func (c *CatchUp) Run(ctx context.Context, now time.Time) (CatchUpSummary, error) {
	var sum CatchUpSummary

	// The zero endAfter keeps definitions whose end date passed during the
	// outage in scope: they still need their final occurrences and the expiry.
	horizon := core.EndOfDay(now)
	defs, err := c.defs.FindDueDefinitions(ctx, horizon, time.Time{})
	if err != nil {
		return sum, fmt.Errorf("find due definitions: %w", err)
	}

	slog.InfoContext(ctx, "Catch-up started",
		"total", len(defs), "as_of", now.Format(time.RFC3339))

	for i := range defs {
		out := c.syncDefinition(ctx, &defs[i], horizon, now)
		sum.Processed++
		sum.Created += out.Created
		sum.Skipped += out.Skipped
		sum.Failed += out.Failed
		if out.Expired {
			sum.Expired++
		}
		sum.Outcomes = append(sum.Outcomes, out)
	}

	slog.InfoContext(ctx, "Catch-up finished",
		"processed", sum.Processed,
		"created", sum.Created,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"expired", sum.Expired)
	return sum, nil
}

// syncDefinition replays the missed occurrences of one definition up to the
// horizon, then advances its schedule past the last replayed date. Tags are
// resolved at most once per run, and only when a date actually needs a new
// transaction.
func (c *CatchUp) syncDefinition(ctx context.Context, def *core.RecurringDefinition, horizon, now time.Time) DefinitionOutcome {
	out := DefinitionOutcome{DefinitionID: def.ID}
	if def.NextOccurrence == nil {
		return out
	}

	missed := core.MissedOccurrences(def.Frequency, *def.NextOccurrence, horizon, def.EndDate, c.maxOccurrences)
	if len(missed) == 0 {
		// The next occurrence lies beyond the end date: nothing left to produce.
		if def.EndDate != nil && def.NextOccurrence.After(*def.EndDate) {
			if err := c.defs.UpdateSchedule(ctx, def.ID, def.UserID, core.CompletedState(def.NextOccurrence, def.LastOccurrence), now); err != nil {
				slog.ErrorContext(ctx, "Failed to expire definition",
					"definition_id", def.ID, "error", err)
				out.Failed++
				return out
			}
			out.Expired = true
		}
		return out
	}

	var tags []string
	tagsResolved := false

	// The schedule may only advance past dates that were handled. firstFailed
	// marks where the next run has to resume so no date is ever lost.
	firstFailed := -1

	for i, date := range missed {
		exists, err := c.txs.OccurrenceExists(ctx, def.ID, date)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to check occurrence",
				"definition_id", def.ID, "date", core.DayKey(date), "error", err)
			out.Failed++
			if firstFailed < 0 {
				firstFailed = i
			}
			continue
		}
		if exists {
			out.Skipped++
			continue
		}

		if !tagsResolved {
			tags = resolveTags(ctx, c.tagger, c.defs, def, now)
			tagsResolved = true
		}

		_, err = c.txs.CreateTransaction(ctx, transactionFor(def, date, tags, now))
		switch {
		case errors.Is(err, core.ErrDuplicateOccurrence):
			// Raced with another writer for the same day.
			out.Skipped++
		case err != nil:
			slog.ErrorContext(ctx, "Failed to create transaction",
				"definition_id", def.ID, "date", core.DayKey(date), "error", err)
			out.Failed++
			if firstFailed < 0 {
				firstFailed = i
			}
		default:
			out.Created++
		}
	}

	var state core.ScheduleState
	expired := false
	switch {
	case firstFailed == 0:
		// Nothing before the failure was handled; leave the schedule alone.
		return out
	case firstFailed > 0:
		// Resume at the failed date; dates created after it are covered by
		// the occurrence check on the next run.
		state = core.ActiveState(missed[firstFailed], &missed[firstFailed-1])
	default:
		state, expired = advanceState(def, missed[len(missed)-1])
	}

	if err := c.defs.UpdateSchedule(ctx, def.ID, def.UserID, state, now); err != nil {
		// Records are in place; the unique index keeps a rerun harmless.
		slog.ErrorContext(ctx, "Failed to advance schedule after catch-up",
			"definition_id", def.ID, "error", err)
		out.Failed++
		return out
	}
	out.Expired = expired
	return out
}
