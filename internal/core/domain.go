package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Need       Category = "need"
	Want       Category = "want"
	Investment Category = "investment"
	Other      Category = "other"
)

const (
	Minutely Frequency = "minutely"
	Daily    Frequency = "daily"
	Weekly   Frequency = "weekly"
	Monthly  Frequency = "monthly"
	Yearly   Frequency = "yearly"
)

const (
	// MaxNoteLength bounds the free-text note on definitions and transactions.
	MaxNoteLength = 200
	// MaxTagLength bounds each individual tag.
	MaxTagLength = 20
)

type (
	TransactionType string
	Category        string
	Frequency       string

	Money struct {
		Cents int64
	}

	// RecurringDefinition is one recurrence rule owned by a user. The engine
	// materializes it into Transaction rows over time and keeps the schedule
	// fields (IsActive, NextOccurrence, LastOccurrence) consistent.
	RecurringDefinition struct {
		ID        int64
		UserID    string
		Type      TransactionType
		Amount    Money
		Category  Category
		Note      string
		Tags      []string
		Frequency Frequency

		StartDate      time.Time
		EndDate        *time.Time
		IsActive       bool
		NextOccurrence *time.Time
		LastOccurrence *time.Time

		CreatedBy                string
		UpdatedBy                string
		OriginatingTransactionID *int64

		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Transaction is one realized income/expense record. Rows created by the
	// engine carry the back-reference to their definition and are never edited
	// by the engine afterwards.
	Transaction struct {
		ID       int64
		UserID   string
		Type     TransactionType
		Amount   Money
		Category Category
		Note     string
		Date     time.Time
		Tags     []string

		IsRecurring           bool
		Frequency             Frequency
		RecurringDefinitionID *int64

		CreatedBy string
		UpdatedBy string
		CreatedAt time.Time
	}

	// Reminder is the payload handed to the Notification Service for a
	// definition that fires within the next day.
	Reminder struct {
		Email       string
		AmountCents int64
		Category    Category
		Note        string
		Date        time.Time
	}
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (c Category) Valid() bool {
	switch c {
	case Need, Want, Investment, Other:
		return true
	}
	return false
}

func (f Frequency) Valid() bool {
	switch f {
	case Minutely, Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return &ValidationError{Field: "amount", Message: "amount must not be negative"}
	}
	return nil
}

// Validate checks the rule and schedule constraints of a definition against
// the supplied wall-clock time. It returns a *ValidationError on the first
// violation.
func (d RecurringDefinition) Validate(now time.Time) error {
	if d.UserID == "" {
		return &ValidationError{Field: "userId", Message: "owner is required"}
	}
	if !d.Type.Valid() {
		return &ValidationError{Field: "type", Message: "type must be income or expense"}
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if !d.Category.Valid() {
		return &ValidationError{Field: "category", Message: "category must be one of need, want, investment, other"}
	}
	if utf8.RuneCountInString(d.Note) > MaxNoteLength {
		return &ValidationError{Field: "note", Message: "note must be at most 200 characters"}
	}
	for _, tag := range d.Tags {
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return &ValidationError{Field: "tags", Message: "each tag must be at most 20 characters"}
		}
	}
	if !d.Frequency.Valid() {
		return &ValidationError{Field: "frequency", Message: "frequency must be one of minutely, daily, weekly, monthly, yearly"}
	}
	if d.StartDate.IsZero() {
		return &ValidationError{Field: "startDate", Message: "start date is required"}
	}
	if d.StartDate.After(now) {
		return &ValidationError{Field: "startDate", Message: "start date cannot be in the future"}
	}
	if d.EndDate != nil && d.EndDate.Before(d.StartDate) {
		return &ValidationError{Field: "endDate", Message: "end date must not be before start date"}
	}
	return nil
}

// NormalizeTags lowercases, trims and dedupes tags, dropping empty or
// over-long entries. At most max tags are kept; max <= 0 means no bound.
func NormalizeTags(tags []string, max int) []string {
	var out []string
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || utf8.RuneCountInString(tag) > MaxTagLength {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}
