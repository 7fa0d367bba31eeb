package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budgetwise/internal/cache"
	"budgetwise/internal/core"
)

// Materializer runs the daily scheduled pass: it reminds users about
// definitions firing tomorrow, then turns every due definition into a
// transaction row and advances its schedule.
type Materializer struct {
	defs     DefinitionStore
	txs      TransactionStore
	users    UserDirectory
	tagger   TagExtractor
	notifier ReminderSender

	emailCache *cache.LRUCache[string]
}

// NewMaterializer wires the daily pass. tagger and notifier may be nil, which
// disables tag extraction and reminders respectively.
func NewMaterializer(defs DefinitionStore, txs TransactionStore, users UserDirectory, tagger TagExtractor, notifier ReminderSender) *Materializer {
	return &Materializer{
		defs:       defs,
		txs:        txs,
		users:      users,
		tagger:     tagger,
		notifier:   notifier,
		emailCache: cache.NewLRUCache[string](256, time.Hour),
	}
}

func (m *Materializer) userEmail(ctx context.Context, userID string) (string, error) {
	if email, ok := m.emailCache.Get(userID); ok {
		return email, nil
	}
	email, err := m.users.GetUserEmail(ctx, userID)
	if err != nil {
		return "", err
	}
	m.emailCache.Set(userID, email)
	return email, nil
}

// ScheduledSummary counts what one scheduled pass did.
type ScheduledSummary struct {
	Reminded int `json:"reminded"`
	Created  int `json:"created"`
	Skipped  int `json:"skipped"`
	Expired  int `json:"expired"`
	Failed   int `json:"failed"`
}

// RunScheduledPass executes one daily pass at the supplied time. Reminder
// failures never block materialization, and one broken definition never
// aborts the rest of the batch.
func (m *Materializer) RunScheduledPass(ctx context.Context, now time.Time) (ScheduledSummary, error) {
	var sum ScheduledSummary

	m.sendReminders(ctx, now, &sum)

	if err := m.materializeDue(ctx, now, &sum); err != nil {
		return sum, err
	}

	slog.InfoContext(ctx, "Scheduled pass finished",
		"reminded", sum.Reminded,
		"created", sum.Created,
		"skipped", sum.Skipped,
		"expired", sum.Expired,
		"failed", sum.Failed)
	return sum, nil
}

// sendReminders notifies owners of definitions whose next occurrence falls on
// tomorrow's calendar day. Best effort: every failure is logged and skipped.
func (m *Materializer) sendReminders(ctx context.Context, now time.Time, sum *ScheduledSummary) {
	if m.notifier == nil {
		return
	}

	from := core.StartOfDay(now).Add(24 * time.Hour)
	to := from.Add(24 * time.Hour)
	defs, err := m.defs.FindDefinitionsInWindow(ctx, from, to)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load definitions for reminders", "error", err)
		return
	}

	for i := range defs {
		def := &defs[i]
		email, err := m.userEmail(ctx, def.UserID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to resolve reminder recipient",
				"definition_id", def.ID, "user_id", def.UserID, "error", err)
			continue
		}
		reminder := core.Reminder{
			Email:       email,
			AmountCents: def.Amount.Cents,
			Category:    def.Category,
			Note:        def.Note,
			Date:        *def.NextOccurrence,
		}
		if err := m.notifier.SendReminder(ctx, reminder); err != nil {
			slog.ErrorContext(ctx, "Failed to send reminder",
				"definition_id", def.ID, "error", err)
			continue
		}
		sum.Reminded++
	}
}

func (m *Materializer) materializeDue(ctx context.Context, now time.Time, sum *ScheduledSummary) error {
	// The start-of-day lower bound keeps definitions whose end date passed
	// earlier today in scope so they get expired instead of lingering active.
	defs, err := m.defs.FindDueDefinitions(ctx, now, core.StartOfDay(now))
	if err != nil {
		return fmt.Errorf("find due definitions: %w", err)
	}

	slog.InfoContext(ctx, "Materializing due definitions",
		"total", len(defs), "as_of", now.Format(time.RFC3339))

	for i := range defs {
		if err := m.materializeOne(ctx, &defs[i], now, sum); err != nil {
			sum.Failed++
			slog.ErrorContext(ctx, "Failed to materialize definition",
				"definition_id", defs[i].ID, "error", err)
		}
	}
	return nil
}

// materializeOne turns the single due occurrence of def into a transaction
// and advances the schedule. A definition whose due date already slipped past
// its end date is expired without producing a record. When the occurrence was
// already materialized (the unique index fired) the schedule still advances,
// so a crashed earlier pass cannot wedge the definition.
func (m *Materializer) materializeOne(ctx context.Context, def *core.RecurringDefinition, now time.Time, sum *ScheduledSummary) error {
	if def.NextOccurrence == nil {
		return errors.New("active definition without next occurrence")
	}
	due := *def.NextOccurrence

	if def.EndDate != nil && due.After(*def.EndDate) {
		if err := m.defs.UpdateSchedule(ctx, def.ID, def.UserID, core.CompletedState(&due, def.LastOccurrence), now); err != nil {
			return fmt.Errorf("expire definition: %w", err)
		}
		sum.Expired++
		slog.InfoContext(ctx, "Expired recurring definition", "definition_id", def.ID)
		return nil
	}

	tags := resolveTags(ctx, m.tagger, m.defs, def, now)

	_, err := m.txs.CreateTransaction(ctx, transactionFor(def, due, tags, now))
	switch {
	case errors.Is(err, core.ErrDuplicateOccurrence):
		sum.Skipped++
		slog.InfoContext(ctx, "Occurrence already materialized",
			"definition_id", def.ID, "date", core.DayKey(due))
	case err != nil:
		// Schedule stays put so the next pass or a catch-up retries the date.
		return fmt.Errorf("create transaction: %w", err)
	default:
		sum.Created++
	}

	state, expired := advanceState(def, due)
	if err := m.defs.UpdateSchedule(ctx, def.ID, def.UserID, state, now); err != nil {
		return fmt.Errorf("advance schedule: %w", err)
	}
	if expired {
		sum.Expired++
		slog.InfoContext(ctx, "Recurring definition completed", "definition_id", def.ID)
	}
	return nil
}
