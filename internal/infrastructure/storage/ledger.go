package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"TopicScribe/internal/domain"
	"TopicScribe/internal/ports"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	outcomesTable   = "topic_outcomes"
	categoriesTable = "categories"
)

//go:embed schema.sql
var schema string

var outcomeColumns = []string{
	"id", "run_id", "topic_id", "title", "category", "link",
	"processed_on", "status", "error", "cost", "recorded_at",
}

// SQLLedger persists topic outcomes and coined categories in Postgres or SQLite.
type SQLLedger struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

var _ ports.Ledger = (*SQLLedger)(nil)

// Open connects to the ledger database and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*SQLLedger, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "postgresql" || driver == "pg" {
		driver = DriverPostgres
	}
	if driver == "sqlite" {
		driver = DriverSQLite
	}
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported ledger driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// in-memory databases exist per connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	ledger := NewSQLLedger(db, driver)
	if err := ledger.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ledger, nil
}

// NewSQLLedger wraps an open database. The driver picks the placeholder format.
func NewSQLLedger(db *sql.DB, driver string) *SQLLedger {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}
	return &SQLLedger{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(placeholder),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates the ledger tables when missing.
func (l *SQLLedger) Migrate(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply ledger schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (l *SQLLedger) Close() error {
	return l.db.Close()
}

// RecordOutcome stores one topic outcome.
func (l *SQLLedger) RecordOutcome(ctx context.Context, o domain.Outcome) error {
	recordedAt := o.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = l.now()
	}
	var processedOn any
	if !o.ProcessedOn.IsZero() {
		processedOn = o.ProcessedOn.UTC()
	}

	query, args, err := l.sb.Insert(outcomesTable).
		Columns(outcomeColumns...).
		Values(o.ID, o.RunID, o.TopicID, o.Title, o.Category, o.Link,
			processedOn, string(o.Status), o.Error, o.Cost, recordedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert outcome: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// PendingCommits lists outcomes whose artifact was stored but never committed.
func (l *SQLLedger) PendingCommits(ctx context.Context) ([]domain.Outcome, error) {
	query, args, err := l.sb.Select(outcomeColumns...).
		From(outcomesTable).
		Where(sq.Eq{"status": string(domain.OutcomeCommitFailed)}).
		// a later success for the same topic supersedes the failed commit
		Where(sq.Expr("NOT EXISTS (SELECT 1 FROM "+outcomesTable+" later WHERE later.topic_id = "+outcomesTable+".topic_id"+
			" AND later.status = ? AND later.recorded_at > "+outcomesTable+".recorded_at)", string(domain.OutcomeSucceeded))).
		OrderBy("recorded_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending query: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}

	var result []domain.Outcome
	for rows.Next() {
		var (
			o           domain.Outcome
			status      string
			processedOn sql.NullTime
		)
		if err := rows.Scan(&o.ID, &o.RunID, &o.TopicID, &o.Title, &o.Category, &o.Link,
			&processedOn, &status, &o.Error, &o.Cost, &o.RecordedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Status = domain.OutcomeStatus(status)
		if processedOn.Valid {
			o.ProcessedOn = processedOn.Time
		}
		result = append(result, o)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// ResolveOutcome marks a pending commit as replayed.
func (l *SQLLedger) ResolveOutcome(ctx context.Context, outcomeID string) error {
	query, args, err := l.sb.Update(outcomesTable).
		Set("status", string(domain.OutcomeResolved)).
		Set("resolved_at", l.now()).
		Where(sq.Eq{"id": outcomeID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build resolve outcome: %w", err)
	}

	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("resolve outcome %s: %w", outcomeID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("resolve outcome %s: %w", outcomeID, sql.ErrNoRows)
	}
	return nil
}

// SaveCategory stores a coined label. Existing labels are left untouched.
func (l *SQLLedger) SaveCategory(ctx context.Context, label string) error {
	query, args, err := l.sb.Insert(categoriesTable).
		Columns("label", "created_at").
		Values(label, l.now()).
		Suffix("ON CONFLICT (label) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert category: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// Categories returns every stored label in creation order.
func (l *SQLLedger) Categories(ctx context.Context) ([]string, error) {
	query, args, err := l.sb.Select("label").
		From(categoriesTable).
		OrderBy("created_at", "label").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build categories query: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, label)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return labels, nil
}
