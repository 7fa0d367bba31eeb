// Package services holds the recurring-transaction engine: the lifecycle
// controller for definitions, the scheduled materializer that runs once per
// day, and the on-demand catch-up synchronizer.
package services

import (
	"context"
	"time"

	"budgetwise/internal/core"
)

// The engine depends on narrow consumer-side interfaces so production wiring
// (SQLite, OpenAI, RabbitMQ) and test fakes are interchangeable.

type DefinitionStore interface {
	CreateDefinition(ctx context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error)
	GetDefinition(ctx context.Context, id int64) (*core.RecurringDefinition, error)
	ListDefinitions(ctx context.Context, userID string, offset, limit int) ([]core.RecurringDefinition, int64, error)
	FindDueDefinitions(ctx context.Context, dueBy, endAfter time.Time) ([]core.RecurringDefinition, error)
	FindDefinitionsInWindow(ctx context.Context, from, to time.Time) ([]core.RecurringDefinition, error)
	UpdateSchedule(ctx context.Context, id int64, updatedBy string, state core.ScheduleState, updatedAt time.Time) error
	UpdateDefinitionTags(ctx context.Context, id int64, tags []string, updatedAt time.Time) error
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	OccurrenceExists(ctx context.Context, definitionID int64, day time.Time) (bool, error)
}

type UserDirectory interface {
	GetUserEmail(ctx context.Context, userID string) (string, error)
}

type TagExtractor interface {
	ExtractTags(ctx context.Context, note string) ([]string, error)
}

type ReminderSender interface {
	SendReminder(ctx context.Context, reminder core.Reminder) error
}
