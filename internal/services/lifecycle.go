package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetwise/internal/core"
)

// Lifecycle is the control surface over recurring definitions: create, list,
// pause, resume. Every operation is scoped to the calling user; a definition
// owned by someone else behaves exactly like a missing one.
type Lifecycle struct {
	defs DefinitionStore
}

func NewLifecycle(defs DefinitionStore) *Lifecycle {
	return &Lifecycle{defs: defs}
}

// CreateDefinitionInput carries the caller-supplied fields of a new
// definition. Ownership and audit fields come from the authenticated user.
type CreateDefinitionInput struct {
	Type                     core.TransactionType
	AmountCents              int64
	Category                 core.Category
	Note                     string
	Tags                     []string
	Frequency                core.Frequency
	StartDate                time.Time
	EndDate                  *time.Time
	OriginatingTransactionID *int64
}

// Create validates and stores a new definition. New definitions start active
// with the next occurrence computed from the start date, even when that first
// occurrence already lies beyond the end date; the first materialization pass
// expires such a definition without producing a record.
func (l *Lifecycle) Create(ctx context.Context, userID string, in CreateDefinitionInput, now time.Time) (*core.RecurringDefinition, error) {
	def := core.RecurringDefinition{
		UserID:                   userID,
		Type:                     in.Type,
		Amount:                   core.Money{Cents: in.AmountCents},
		Category:                 in.Category,
		Note:                     in.Note,
		Tags:                     core.NormalizeTags(in.Tags, 0),
		Frequency:                in.Frequency,
		StartDate:                in.StartDate,
		EndDate:                  in.EndDate,
		OriginatingTransactionID: in.OriginatingTransactionID,
		CreatedBy:                userID,
		UpdatedBy:                userID,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := def.Validate(now); err != nil {
		return nil, err
	}

	next, ok := core.NextOccurrence(def.Frequency, def.StartDate)
	if !ok {
		return nil, &core.ValidationError{Field: "frequency", Message: "frequency does not recur"}
	}
	def.ApplyState(core.ActiveState(next, nil))

	created, err := l.defs.CreateDefinition(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("create definition: %w", err)
	}

	slog.InfoContext(ctx, "Created recurring definition",
		"definition_id", created.ID,
		"user_id", userID,
		"frequency", created.Frequency,
		"next_occurrence", next.Format(time.RFC3339))
	return &created, nil
}

// Pause deactivates an active definition, clearing the next occurrence while
// keeping the last one so a later resume can pick up from it.
func (l *Lifecycle) Pause(ctx context.Context, id int64, userID string, now time.Time) (*core.RecurringDefinition, error) {
	def, err := l.ownedDefinition(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	state := def.State()
	switch state.Status {
	case core.StatusCompleted:
		return nil, core.ErrExpired
	case core.StatusPaused:
		return nil, core.ErrAlreadyPaused
	}

	def.ApplyState(core.PausedState(state.Last))
	def.UpdatedBy = userID
	def.UpdatedAt = now
	if err := l.defs.UpdateSchedule(ctx, def.ID, userID, def.State(), now); err != nil {
		return nil, fmt.Errorf("pause definition %d: %w", def.ID, err)
	}

	slog.InfoContext(ctx, "Paused recurring definition", "definition_id", def.ID, "user_id", userID)
	return def, nil
}

// Resume reactivates a paused definition. The next occurrence is recomputed
// from the last materialized occurrence, or from the start date when nothing
// was ever materialized. A definition whose recomputed next occurrence falls
// past its end date has nothing left to produce and cannot be resumed.
func (l *Lifecycle) Resume(ctx context.Context, id int64, userID string, now time.Time) (*core.RecurringDefinition, error) {
	def, err := l.ownedDefinition(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	state := def.State()
	switch state.Status {
	case core.StatusActive:
		return nil, core.ErrAlreadyActive
	case core.StatusCompleted:
		return nil, core.ErrExpired
	}

	base := def.StartDate
	if state.Last != nil {
		base = *state.Last
	}
	next, ok := core.NextOccurrence(def.Frequency, base)
	if !ok {
		return nil, core.ErrExpired
	}
	if def.EndDate != nil && next.After(*def.EndDate) {
		return nil, core.ErrExpired
	}

	def.ApplyState(core.ActiveState(next, state.Last))
	def.UpdatedBy = userID
	def.UpdatedAt = now
	if err := l.defs.UpdateSchedule(ctx, def.ID, userID, def.State(), now); err != nil {
		return nil, fmt.Errorf("resume definition %d: %w", def.ID, err)
	}

	slog.InfoContext(ctx, "Resumed recurring definition",
		"definition_id", def.ID,
		"user_id", userID,
		"next_occurrence", next.Format(time.RFC3339))
	return def, nil
}

// Get returns a single definition owned by the calling user.
func (l *Lifecycle) Get(ctx context.Context, id int64, userID string) (*core.RecurringDefinition, error) {
	return l.ownedDefinition(ctx, id, userID)
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Pagination describes the position of a page within a user's definitions.
type Pagination struct {
	TotalCount      int64 `json:"totalCount"`
	TotalPages      int   `json:"totalPages"`
	CurrentPage     int   `json:"currentPage"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
	NextPage        *int  `json:"nextPage"`
	PreviousPage    *int  `json:"previousPage"`
}

type DefinitionPage struct {
	Items      []core.RecurringDefinition
	Pagination Pagination
}

// List returns one page of the user's definitions, newest first. Page and
// limit are clamped to sane bounds rather than rejected.
func (l *Lifecycle) List(ctx context.Context, userID string, page, limit int) (*DefinitionPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	items, total, err := l.defs.ListDefinitions(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	p := Pagination{
		TotalCount:      total,
		TotalPages:      totalPages,
		CurrentPage:     page,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
	if p.HasNextPage {
		next := page + 1
		p.NextPage = &next
	}
	if p.HasPreviousPage {
		prev := page - 1
		p.PreviousPage = &prev
	}
	return &DefinitionPage{Items: items, Pagination: p}, nil
}

func (l *Lifecycle) ownedDefinition(ctx context.Context, id int64, userID string) (*core.RecurringDefinition, error) {
	def, err := l.defs.GetDefinition(ctx, id)
	if err != nil {
		return nil, err
	}
	if def.UserID != userID {
		// Ownership mismatches are indistinguishable from missing rows.
		return nil, core.ErrNotFound
	}
	return def, nil
}
