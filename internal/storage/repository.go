package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budgetwise/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists recurrence definitions and transaction records.
// It backs both the control surface and the two materialization paths.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const definitionColumns = `id, user_id, type, amount_cents, category, note, tags, frequency,
	start_date, end_date, is_active, next_occurrence, last_occurrence,
	created_by, updated_by, originating_transaction_id, created_at, updated_at`

// CreateDefinition inserts a definition and returns it with its assigned id.
func (r *SQLiteRepository) CreateDefinition(ctx context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error) {
	tags, err := marshalTags(def.Tags)
	if err != nil {
		return def, fmt.Errorf("marshal tags: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_definitions
			(user_id, type, amount_cents, category, note, tags, frequency,
			 start_date, end_date, is_active, next_occurrence, last_occurrence,
			 created_by, updated_by, originating_transaction_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.UserID, string(def.Type), def.Amount.Cents, string(def.Category), def.Note, tags,
		string(def.Frequency), toUnix(def.StartDate), toNullUnix(def.EndDate),
		boolToInt(def.IsActive), toNullUnix(def.NextOccurrence), toNullUnix(def.LastOccurrence),
		def.CreatedBy, def.UpdatedBy, nullInt64(def.OriginatingTransactionID),
		toUnix(def.CreatedAt), toUnix(def.UpdatedAt))
	if err != nil {
		return def, fmt.Errorf("create recurring definition: %w", err)
	}

	def.ID, err = res.LastInsertId()
	if err != nil {
		return def, fmt.Errorf("read definition id: %w", err)
	}

	slog.InfoContext(ctx, "Recurring definition saved",
		"definition_id", def.ID,
		"user_id", def.UserID,
		"frequency", def.Frequency,
		"amount_cents", def.Amount.Cents)
	return def, nil
}

// GetDefinition loads one definition by id. Returns core.ErrNotFound when the
// row does not exist.
func (r *SQLiteRepository) GetDefinition(ctx context.Context, id int64) (*core.RecurringDefinition, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+definitionColumns+` FROM recurring_definitions WHERE id = ?`, id)

	def, err := scanDefinition(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recurring definition: %w", err)
	}
	return def, nil
}

// ListDefinitions returns one page of a user's definitions, newest first,
// together with the total count for pagination.
func (r *SQLiteRepository) ListDefinitions(ctx context.Context, userID string, offset, limit int) ([]core.RecurringDefinition, int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+definitionColumns+` FROM recurring_definitions
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list recurring definitions: %w", err)
	}
	defer rows.Close()

	defs, err := collectDefinitions(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recurring_definitions WHERE user_id = ?`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count recurring definitions: %w", err)
	}
	return defs, total, nil
}

// FindDueDefinitions returns active definitions whose next occurrence is at or
// before dueBy and whose end date, if set, has not passed endAfter.
func (r *SQLiteRepository) FindDueDefinitions(ctx context.Context, dueBy, endAfter time.Time) ([]core.RecurringDefinition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+definitionColumns+` FROM recurring_definitions
		 WHERE is_active = 1
		   AND next_occurrence IS NOT NULL
		   AND next_occurrence <= ?
		   AND (end_date IS NULL OR end_date >= ?)
		 ORDER BY next_occurrence ASC, id ASC`,
		toUnix(dueBy), toUnix(endAfter))
	if err != nil {
		return nil, fmt.Errorf("find due definitions: %w", err)
	}
	defer rows.Close()

	return collectDefinitions(rows)
}

// FindDefinitionsInWindow returns active definitions whose next occurrence
// falls in [from, to). Used by the next-day reminder pass.
func (r *SQLiteRepository) FindDefinitionsInWindow(ctx context.Context, from, to time.Time) ([]core.RecurringDefinition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+definitionColumns+` FROM recurring_definitions
		 WHERE is_active = 1
		   AND next_occurrence IS NOT NULL
		   AND next_occurrence >= ?
		   AND next_occurrence < ?
		 ORDER BY next_occurrence ASC, id ASC`,
		toUnix(from), toUnix(to))
	if err != nil {
		return nil, fmt.Errorf("find definitions in window: %w", err)
	}
	defer rows.Close()

	return collectDefinitions(rows)
}

// UpdateSchedule projects an explicit schedule state onto the persisted
// is_active/next_occurrence/last_occurrence columns.
func (r *SQLiteRepository) UpdateSchedule(ctx context.Context, id int64, updatedBy string, state core.ScheduleState, updatedAt time.Time) error {
	active := state.Status == core.StatusActive

	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_definitions
		SET is_active = ?, next_occurrence = ?, last_occurrence = ?, updated_by = ?, updated_at = ?
		WHERE id = ?`,
		boolToInt(active), toNullUnix(state.Next), toNullUnix(state.Last),
		updatedBy, toUnix(updatedAt), id)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// UpdateDefinitionTags persists extracted tags so later occurrences reuse them.
func (r *SQLiteRepository) UpdateDefinitionTags(ctx context.Context, id int64, tags []string, updatedAt time.Time) error {
	encoded, err := marshalTags(tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_definitions SET tags = ?, updated_at = ? WHERE id = ?`,
		encoded, toUnix(updatedAt), id)
	if err != nil {
		return fmt.Errorf("update definition tags: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// CreateTransaction inserts one transaction record. For recurring rows the
// occurrence day is derived from the transaction date; a second insert for the
// same (definition, day) pair hits the unique index and is reported as
// core.ErrDuplicateOccurrence.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tags, err := marshalTags(tx.Tags)
	if err != nil {
		return tx, fmt.Errorf("marshal tags: %w", err)
	}

	var occurrenceDay sql.NullString
	if tx.RecurringDefinitionID != nil {
		occurrenceDay = sql.NullString{String: core.DayKey(tx.Date), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions
			(user_id, type, amount_cents, category, note, date, tags,
			 is_recurring, frequency, recurring_definition_id, occurrence_day,
			 created_by, updated_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, string(tx.Type), tx.Amount.Cents, string(tx.Category), tx.Note,
		toUnix(tx.Date), tags, boolToInt(tx.IsRecurring), string(tx.Frequency),
		nullInt64(tx.RecurringDefinitionID), occurrenceDay,
		tx.CreatedBy, tx.UpdatedBy, toUnix(tx.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return tx, fmt.Errorf("create transaction: %w", core.ErrDuplicateOccurrence)
		}
		return tx, fmt.Errorf("create transaction: %w", err)
	}

	tx.ID, err = res.LastInsertId()
	if err != nil {
		return tx, fmt.Errorf("read transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", tx.ID,
		"user_id", tx.UserID,
		"amount_cents", tx.Amount.Cents,
		"date", tx.Date.Format("2006-01-02"),
		"recurring", tx.IsRecurring)
	return tx, nil
}

// OccurrenceExists reports whether a transaction already exists for the
// definition on the given calendar day.
func (r *SQLiteRepository) OccurrenceExists(ctx context.Context, definitionID int64, day time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE recurring_definition_id = ? AND occurrence_day = ?
		)`, definitionID, core.DayKey(day)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check occurrence exists: %w", err)
	}
	return exists, nil
}

// GetUserEmail resolves a user's email for reminder delivery.
func (r *SQLiteRepository) GetUserEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := r.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id = ?`, userID).Scan(&email)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get user email: %w", err)
	}
	return email, nil
}

// UpsertUser writes a user row. The auth subsystem owns users in production;
// this is the shared data-access hook it goes through.
func (r *SQLiteRepository) UpsertUser(ctx context.Context, id, email string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET email = excluded.email`, id, email)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*core.RecurringDefinition, error) {
	var (
		def          core.RecurringDefinition
		typ, cat     string
		freq, tags   string
		startDate    int64
		endDate      sql.NullInt64
		isActive     int64
		next, last   sql.NullInt64
		originating  sql.NullInt64
		created, mod int64
	)

	err := row.Scan(&def.ID, &def.UserID, &typ, &def.Amount.Cents, &cat, &def.Note, &tags,
		&freq, &startDate, &endDate, &isActive, &next, &last,
		&def.CreatedBy, &def.UpdatedBy, &originating, &created, &mod)
	if err != nil {
		return nil, err
	}

	def.Type = core.TransactionType(typ)
	def.Category = core.Category(cat)
	def.Frequency = core.Frequency(freq)
	def.StartDate = fromUnix(startDate)
	def.EndDate = fromNullUnix(endDate)
	def.IsActive = isActive != 0
	def.NextOccurrence = fromNullUnix(next)
	def.LastOccurrence = fromNullUnix(last)
	def.CreatedAt = fromUnix(created)
	def.UpdatedAt = fromUnix(mod)
	if originating.Valid {
		def.OriginatingTransactionID = &originating.Int64
	}
	if def.Tags, err = unmarshalTags(tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags for definition %d: %w", def.ID, err)
	}
	return &def, nil
}

func collectDefinitions(rows *sql.Rows) ([]core.RecurringDefinition, error) {
	var defs []core.RecurringDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring definition: %w", err)
		}
		defs = append(defs, *def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring definitions: %w", err)
	}
	return defs, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func marshalTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalTags(encoded string) ([]string, error) {
	if encoded == "" || encoded == "[]" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(encoded), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func toUnix(t time.Time) int64 {
	return t.UTC().Unix()
}

func toNullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toUnix(*t), Valid: true}
}

func fromUnix(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}

func fromNullUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromUnix(v.Int64)
	return &t
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
