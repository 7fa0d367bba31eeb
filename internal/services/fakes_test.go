package services

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"budgetwise/internal/core"
)

// memStore implements DefinitionStore, TransactionStore and UserDirectory in
// memory, mirroring the SQLite repository's behavior including the
// per-(definition, calendar day) uniqueness of materialized transactions.
type memStore struct {
	nextDefID int64
	defs      map[int64]core.RecurringDefinition

	nextTxID    int64
	txs         []core.Transaction
	occurrences map[string]bool

	emails map[string]string

	createTxErr       error
	updateScheduleErr error
	updateTagsErr     error
}

func newMemStore() *memStore {
	return &memStore{
		defs:        make(map[int64]core.RecurringDefinition),
		occurrences: make(map[string]bool),
		emails:      make(map[string]string),
	}
}

func occurrenceKey(defID int64, day time.Time) string {
	return fmt.Sprintf("%d|%s", defID, core.DayKey(day))
}

func (s *memStore) CreateDefinition(_ context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error) {
	s.nextDefID++
	def.ID = s.nextDefID
	s.defs[def.ID] = def
	return def, nil
}

func (s *memStore) GetDefinition(_ context.Context, id int64) (*core.RecurringDefinition, error) {
	def, ok := s.defs[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := def
	return &cp, nil
}

func (s *memStore) ListDefinitions(_ context.Context, userID string, offset, limit int) ([]core.RecurringDefinition, int64, error) {
	var all []core.RecurringDefinition
	for _, def := range s.defs {
		if def.UserID == userID {
			all = append(all, def)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *memStore) FindDueDefinitions(_ context.Context, dueBy, endAfter time.Time) ([]core.RecurringDefinition, error) {
	var out []core.RecurringDefinition
	for _, def := range s.defs {
		if !def.IsActive || def.NextOccurrence == nil || def.NextOccurrence.After(dueBy) {
			continue
		}
		if def.EndDate != nil && def.EndDate.Before(endAfter) {
			continue
		}
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) FindDefinitionsInWindow(_ context.Context, from, to time.Time) ([]core.RecurringDefinition, error) {
	var out []core.RecurringDefinition
	for _, def := range s.defs {
		if !def.IsActive || def.NextOccurrence == nil {
			continue
		}
		if def.NextOccurrence.Before(from) || !def.NextOccurrence.Before(to) {
			continue
		}
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) UpdateSchedule(_ context.Context, id int64, updatedBy string, state core.ScheduleState, updatedAt time.Time) error {
	if s.updateScheduleErr != nil {
		return s.updateScheduleErr
	}
	def, ok := s.defs[id]
	if !ok {
		return core.ErrNotFound
	}
	def.ApplyState(state)
	def.UpdatedBy = updatedBy
	def.UpdatedAt = updatedAt
	s.defs[id] = def
	return nil
}

func (s *memStore) UpdateDefinitionTags(_ context.Context, id int64, tags []string, updatedAt time.Time) error {
	if s.updateTagsErr != nil {
		return s.updateTagsErr
	}
	def, ok := s.defs[id]
	if !ok {
		return core.ErrNotFound
	}
	def.Tags = tags
	def.UpdatedAt = updatedAt
	s.defs[id] = def
	return nil
}

func (s *memStore) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if s.createTxErr != nil {
		return core.Transaction{}, s.createTxErr
	}
	if tx.RecurringDefinitionID != nil {
		key := occurrenceKey(*tx.RecurringDefinitionID, tx.Date)
		if s.occurrences[key] {
			return core.Transaction{}, core.ErrDuplicateOccurrence
		}
		s.occurrences[key] = true
	}
	s.nextTxID++
	tx.ID = s.nextTxID
	s.txs = append(s.txs, tx)
	return tx, nil
}

func (s *memStore) OccurrenceExists(_ context.Context, definitionID int64, day time.Time) (bool, error) {
	return s.occurrences[occurrenceKey(definitionID, day)], nil
}

func (s *memStore) GetUserEmail(_ context.Context, userID string) (string, error) {
	email, ok := s.emails[userID]
	if !ok {
		return "", fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
	}
	return email, nil
}

// txsFor returns the stored transactions of one definition in creation order.
func (s *memStore) txsFor(defID int64) []core.Transaction {
	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.RecurringDefinitionID != nil && *tx.RecurringDefinitionID == defID {
			out = append(out, tx)
		}
	}
	return out
}

func (s *memStore) mustGet(t *testing.T, id int64) core.RecurringDefinition {
	t.Helper()
	def, ok := s.defs[id]
	if !ok {
		t.Fatalf("definition %d not in store", id)
	}
	return def
}

type fakeTagger struct {
	tags  []string
	err   error
	calls int
}

func (f *fakeTagger) ExtractTags(context.Context, string) ([]string, error) {
	f.calls++
	return f.tags, f.err
}

type fakeNotifier struct {
	sent []core.Reminder
	err  error
}

func (f *fakeNotifier) SendReminder(_ context.Context, r core.Reminder) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, r)
	return nil
}

// seedDefinition stores a definition directly, bypassing the lifecycle, so
// tests can set up arbitrary schedule states.
func seedDefinition(t *testing.T, s *memStore, def core.RecurringDefinition) core.RecurringDefinition {
	t.Helper()
	created, err := s.CreateDefinition(context.Background(), def)
	if err != nil {
		t.Fatalf("seed definition: %v", err)
	}
	return created
}

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func timePtr(t time.Time) *time.Time { return &t }
