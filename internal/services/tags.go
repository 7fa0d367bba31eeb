package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"budgetwise/internal/core"
)

// resolveTags returns the tags to stamp on materialized transactions. Tags
// already on the definition win; otherwise the extractor is asked once and a
// non-empty result is persisted back so later runs skip the call. An empty
// note never reaches the extractor.
func resolveTags(ctx context.Context, tagger TagExtractor, defs DefinitionStore, def *core.RecurringDefinition, now time.Time) []string {
	if len(def.Tags) > 0 {
		return def.Tags
	}
	if tagger == nil || strings.TrimSpace(def.Note) == "" {
		return nil
	}

	extracted, err := tagger.ExtractTags(ctx, def.Note)
	if err != nil {
		slog.WarnContext(ctx, "Tag extraction failed, materializing without tags",
			"definition_id", def.ID, "error", err)
		return nil
	}
	if len(extracted) == 0 {
		return nil
	}

	if err := defs.UpdateDefinitionTags(ctx, def.ID, extracted, now); err != nil {
		// The transaction still gets the tags; only the cache write failed.
		slog.WarnContext(ctx, "Failed to persist extracted tags",
			"definition_id", def.ID, "error", err)
	}
	def.Tags = extracted
	return extracted
}

// transactionFor builds the transaction row one occurrence of a definition
// materializes into.
func transactionFor(def *core.RecurringDefinition, date time.Time, tags []string, now time.Time) core.Transaction {
	id := def.ID
	return core.Transaction{
		UserID:                def.UserID,
		Type:                  def.Type,
		Amount:                def.Amount,
		Category:              def.Category,
		Note:                  def.Note,
		Date:                  date,
		Tags:                  tags,
		IsRecurring:           true,
		Frequency:             def.Frequency,
		RecurringDefinitionID: &id,
		CreatedBy:             def.UserID,
		UpdatedBy:             def.UserID,
		CreatedAt:             now,
	}
}

// advanceState computes the schedule state after materializing up to and
// including last. The definition completes when the frequency does not recur
// or the following occurrence would fall past the end date; completion keeps
// the stale next occurrence so the state survives a reload.
func advanceState(def *core.RecurringDefinition, last time.Time) (state core.ScheduleState, expired bool) {
	next, ok := core.NextOccurrence(def.Frequency, last)
	switch {
	case !ok:
		return core.CompletedState(nil, &last), true
	case def.EndDate != nil && next.After(*def.EndDate):
		return core.CompletedState(&next, &last), true
	default:
		return core.ActiveState(next, &last), false
	}
}
