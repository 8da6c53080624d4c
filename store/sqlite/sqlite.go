/*
Package sqlite provides a SQLite-backed implementation of ledger.TxStore.

PURPOSE:
  Persists imported incomes, tax payments, reconciliation entries and
  income tax schedules. Every query runs either on the database handle or
  on an open transaction through the same querier, so WithTx exposes the
  full ledger.Store inside one transaction.

KEY TABLES:
  incomes:          Imported receipts, unique by (instant, amount)
  tax_payments:     Recorded payments with the applied marker
  reconciliations:  Immutable settlement entries (uuid v7 ids)
  income_taxes:     Named tax schedules
  income_tax_rates: Rate changes, one per tax and day

STORED FORMATS:
  Amounts and rates are decimal strings, never REAL. Income instants keep
  their original offset in occurred_at (fixed-width RFC3339) and are ordered and
  deduplicated by occurred_unix (nanoseconds). Year and quarter columns are
  computed at insert time so criteria translate to plain comparisons.

APPEND-ONLY ENFORCEMENT:
  Reconciliation entries are never updated. Undoing a payment deletes all
  of its entries in one statement and clears the applied marker. A partial
  unique index allows at most one full entry per income.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection so that
  ":memory:" databases are shared by every query.

USAGE:
  store, err := sqlite.New("./monotax.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/monotax/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	// Clock resolves "current year/quarter" criteria. Nil means time.Now.
	Clock ledger.Clock
}

var _ ledger.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Incomes (deduplicated on import)
	CREATE TABLE IF NOT EXISTS incomes (
		no INTEGER PRIMARY KEY AUTOINCREMENT,
		occurred_at TEXT NOT NULL,
		occurred_unix INTEGER NOT NULL,
		amount TEXT NOT NULL,
		comment TEXT,
		year INTEGER NOT NULL,
		quarter INTEGER NOT NULL CHECK (quarter BETWEEN 1 AND 4),
		created_at TEXT NOT NULL,
		UNIQUE(occurred_unix, amount)
	);

	CREATE INDEX IF NOT EXISTS idx_incomes_period
		ON incomes(year, quarter);

	-- Tax payments
	CREATE TABLE IF NOT EXISTS tax_payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		amount TEXT NOT NULL,
		paid_at TEXT NOT NULL,
		applied BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	-- Reconciliation entries (insert and bulk delete only)
	CREATE TABLE IF NOT EXISTS reconciliations (
		id TEXT PRIMARY KEY,
		income_no INTEGER NOT NULL REFERENCES incomes(no),
		payment_id INTEGER NOT NULL REFERENCES tax_payments(id),
		amount TEXT NOT NULL,
		reconciled_at TEXT NOT NULL,
		completeness TEXT NOT NULL CHECK (completeness IN ('full', 'partial'))
	);

	CREATE INDEX IF NOT EXISTS idx_reconciliations_income
		ON reconciliations(income_no);
	CREATE INDEX IF NOT EXISTS idx_reconciliations_payment
		ON reconciliations(payment_id);

	-- An income is settled at most once
	CREATE UNIQUE INDEX IF NOT EXISTS idx_reconciliations_full
		ON reconciliations(income_no) WHERE completeness = 'full';

	-- Income tax schedules
	CREATE TABLE IF NOT EXISTS income_taxes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS income_tax_rates (
		tax_id TEXT NOT NULL REFERENCES income_taxes(id),
		starts_on TEXT NOT NULL,
		rate TEXT NOT NULL,
		PRIMARY KEY (tax_id, starts_on)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *Store) queries(db querier) queries {
	return queries{db: db, now: s.now}
}

// =============================================================================
// STORE METHODS - Lock, then delegate to queries on the shared handle
// =============================================================================

// SaveIncomes inserts the batch atomically, skipping stored duplicates.
func (s *Store) SaveIncomes(ctx context.Context, incomes []ledger.Income) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var saved int
	err := s.inTx(ctx, func(q queries) error {
		var err error
		saved, err = q.SaveIncomes(ctx, incomes)
		return err
	})
	return saved, err
}

func (s *Store) FindIncomes(ctx context.Context, criteria ledger.Criteria) ([]ledger.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queries(s.db).FindIncomes(ctx, criteria)
}

func (s *Store) PendingIncomes(ctx context.Context) ([]ledger.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queries(s.db).PendingIncomes(ctx)
}

func (s *Store) AddPayment(ctx context.Context, p ledger.TaxPayment) (ledger.TaxPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries(s.db).AddPayment(ctx, p)
}

func (s *Store) Payment(ctx context.Context, id int64) (ledger.TaxPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queries(s.db).Payment(ctx, id)
}

func (s *Store) Payments(ctx context.Context) ([]ledger.TaxPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queries(s.db).Payments(ctx)
}

func (s *Store) PartialReconciliations(ctx context.Context) ([]ledger.Reconciliation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queries(s.db).PartialReconciliations(ctx)
}

func (s *Store) Reconciliations(ctx context.Context) ([]ledger.Reconciliation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queries(s.db).Reconciliations(ctx)
}

// RecordReconciliations inserts the entries and marks the payment applied atomically.
func (s *Store) RecordReconciliations(ctx context.Context, paymentID int64, entries []ledger.Reconciliation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q queries) error {
		return q.RecordReconciliations(ctx, paymentID, entries)
	})
}

func (s *Store) UndoPayment(ctx context.Context, paymentID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int
	err := s.inTx(ctx, func(q queries) error {
		var err error
		deleted, err = q.UndoPayment(ctx, paymentID)
		return err
	})
	return deleted, err
}

func (s *Store) AddIncomeTax(ctx context.Context, id uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries(s.db).AddIncomeTax(ctx, id, name)
}

func (s *Store) AddRateChange(ctx context.Context, taxID uuid.UUID, change ledger.RateChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries(s.db).AddRateChange(ctx, taxID, change)
}

func (s *Store) IncomeTaxes(ctx context.Context) ([]*ledger.IncomeTax, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queries(s.db).IncomeTaxes(ctx)
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(q queries) error { return fn(q) })
}

// inTx runs fn on a fresh transaction. Callers hold the write lock.
func (s *Store) inTx(ctx context.Context, fn func(q queries) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(s.queries(sqlTx)); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// =============================================================================
// QUERIES - ledger.Store on either *sql.DB or *sql.Tx
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db  querier
	now func() time.Time
}

var _ ledger.Store = queries{}

// --- incomes ---

func (q queries) SaveIncomes(ctx context.Context, incomes []ledger.Income) (int, error) {
	query := `
		INSERT OR IGNORE INTO incomes
		(occurred_at, occurred_unix, amount, comment, year, quarter, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := q.now().UTC().Format(time.RFC3339)
	saved := 0
	for _, in := range incomes {
		res, err := q.db.ExecContext(ctx, query,
			in.Time.Format(timeLayout),
			in.Time.UnixNano(),
			in.Amount.String(),
			nullString(in.Comment),
			in.Time.Year(),
			int(ledger.QuarterOf(in.Time)),
			createdAt,
		)
		if err != nil {
			return saved, fmt.Errorf("failed to insert income: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return saved, err
		}
		saved += int(n)
	}
	return saved, nil
}

const incomeColumns = `no, occurred_at, amount, comment`

func (q queries) FindIncomes(ctx context.Context, criteria ledger.Criteria) ([]ledger.Income, error) {
	where, args := criteriaSQL(criteria, q.now())
	query := `SELECT ` + incomeColumns + ` FROM incomes WHERE ` + where + ` ORDER BY occurred_unix ASC, no ASC`
	return q.queryIncomes(ctx, query, args...)
}

func (q queries) PendingIncomes(ctx context.Context) ([]ledger.Income, error) {
	query := `
		SELECT ` + incomeColumns + `
		FROM incomes i
		WHERE NOT EXISTS (
			SELECT 1 FROM reconciliations r
			WHERE r.income_no = i.no AND r.completeness = 'full'
		)
		ORDER BY occurred_unix ASC, no ASC
	`
	return q.queryIncomes(ctx, query)
}

func (q queries) queryIncomes(ctx context.Context, query string, args ...any) ([]ledger.Income, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query incomes: %w", err)
	}
	defer rows.Close()

	var incomes []ledger.Income
	for rows.Next() {
		var (
			in         ledger.Income
			occurredAt string
			amount     string
			comment    sql.NullString
		)
		if err := rows.Scan(&in.No, &occurredAt, &amount, &comment); err != nil {
			return nil, fmt.Errorf("failed to scan income: %w", err)
		}
		if in.Time, err = time.Parse(time.RFC3339Nano, occurredAt); err != nil {
			return nil, fmt.Errorf("income %d: %w", in.No, err)
		}
		if in.Amount, err = ledger.ParseAmount(amount); err != nil {
			return nil, fmt.Errorf("income %d: %w", in.No, err)
		}
		in.Comment = comment.String
		incomes = append(incomes, in)
	}

	return incomes, rows.Err()
}

// criteriaSQL translates criteria to a WHERE clause over the year and
// quarter columns. Unknown kinds match nothing, as in Criterion.Match.
func criteriaSQL(criteria ledger.Criteria, now time.Time) (string, []any) {
	clauses := []string{"1 = 1"}
	var args []any
	for _, c := range criteria {
		switch c.Kind {
		case ledger.CriterionYear:
			if year, ok := c.Year.Resolve(now); ok {
				clauses = append(clauses, "year = ?")
				args = append(args, year)
			}
		case ledger.CriterionQuarter:
			quarter, toDate, ok := c.Quarter.Resolve(now)
			if !ok {
				continue
			}
			op := "="
			if toDate {
				op = "<="
			}
			clauses = append(clauses, "quarter "+op+" ?")
			args = append(args, int(quarter))
		default:
			clauses = append(clauses, "1 = 0")
		}
	}
	return strings.Join(clauses, " AND "), args
}

// --- payments ---

func (q queries) AddPayment(ctx context.Context, p ledger.TaxPayment) (ledger.TaxPayment, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO tax_payments (amount, paid_at, applied, created_at) VALUES (?, ?, ?, ?)`,
		p.Amount.String(),
		p.PaidAt.Format(timeLayout),
		p.Applied,
		q.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return ledger.TaxPayment{}, fmt.Errorf("failed to insert payment: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return ledger.TaxPayment{}, err
	}
	return p, nil
}

const paymentColumns = `id, amount, paid_at, applied`

func (q queries) Payment(ctx context.Context, id int64) (ledger.TaxPayment, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM tax_payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.TaxPayment{}, ledger.ErrPaymentNotFound
	}
	return p, err
}

func (q queries) Payments(ctx context.Context) ([]ledger.TaxPayment, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM tax_payments ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []ledger.TaxPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(row scanner) (ledger.TaxPayment, error) {
	var (
		p      ledger.TaxPayment
		amount string
		paidAt string
	)
	if err := row.Scan(&p.ID, &amount, &paidAt, &p.Applied); err != nil {
		return p, err
	}
	var err error
	if p.Amount, err = ledger.ParseAmount(amount); err != nil {
		return p, fmt.Errorf("payment %d: %w", p.ID, err)
	}
	if p.PaidAt, err = time.Parse(time.RFC3339Nano, paidAt); err != nil {
		return p, fmt.Errorf("payment %d: %w", p.ID, err)
	}
	return p, nil
}

// --- reconciliations ---

const reconciliationColumns = `id, income_no, payment_id, amount, reconciled_at, completeness`

func (q queries) PartialReconciliations(ctx context.Context) ([]ledger.Reconciliation, error) {
	query := `
		SELECT ` + reconciliationColumns + `
		FROM reconciliations r
		WHERE r.completeness = 'partial'
		  AND NOT EXISTS (
			SELECT 1 FROM reconciliations f
			WHERE f.income_no = r.income_no AND f.completeness = 'full'
		  )
		ORDER BY r.reconciled_at ASC, r.rowid ASC
	`
	return q.queryReconciliations(ctx, query)
}

func (q queries) Reconciliations(ctx context.Context) ([]ledger.Reconciliation, error) {
	query := `SELECT ` + reconciliationColumns + ` FROM reconciliations ORDER BY reconciled_at ASC, rowid ASC`
	return q.queryReconciliations(ctx, query)
}

func (q queries) queryReconciliations(ctx context.Context, query string, args ...any) ([]ledger.Reconciliation, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reconciliations: %w", err)
	}
	defer rows.Close()

	var recs []ledger.Reconciliation
	for rows.Next() {
		var (
			r            ledger.Reconciliation
			id           string
			amount       string
			reconciledAt string
			completeness string
		)
		if err := rows.Scan(&id, &r.IncomeNo, &r.PaymentID, &amount, &reconciledAt, &completeness); err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("reconciliation %s: %w", id, err)
		}
		if r.Amount, err = ledger.ParseAmount(amount); err != nil {
			return nil, fmt.Errorf("reconciliation %s: %w", id, err)
		}
		if r.ReconciledAt, err = time.Parse(time.RFC3339Nano, reconciledAt); err != nil {
			return nil, fmt.Errorf("reconciliation %s: %w", id, err)
		}
		var ok bool
		if r.Completeness, ok = ledger.ParseCompleteness(completeness); !ok {
			return nil, fmt.Errorf("reconciliation %s: unknown completeness %q", id, completeness)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (q queries) RecordReconciliations(ctx context.Context, paymentID int64, entries []ledger.Reconciliation) error {
	res, err := q.db.ExecContext(ctx, `UPDATE tax_payments SET applied = TRUE WHERE id = ?`, paymentID)
	if err != nil {
		return fmt.Errorf("failed to mark payment applied: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ledger.ErrPaymentNotFound
	}

	query := `
		INSERT INTO reconciliations
		(id, income_no, payment_id, amount, reconciled_at, completeness)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, e := range entries {
		_, err := q.db.ExecContext(ctx, query,
			e.ID.String(),
			e.IncomeNo,
			paymentID,
			e.Amount.String(),
			e.ReconciledAt.UTC().Format(timeLayout),
			string(e.Completeness),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("income %d already settled: %w", e.IncomeNo, ledger.ErrPreconditionViolated)
			}
			return fmt.Errorf("failed to insert reconciliation: %w", err)
		}
	}
	return nil
}

func (q queries) UndoPayment(ctx context.Context, paymentID int64) (int, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE tax_payments SET applied = FALSE WHERE id = ?`, paymentID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear applied marker: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, ledger.ErrPaymentNotFound
	}

	res, err = q.db.ExecContext(ctx, `DELETE FROM reconciliations WHERE payment_id = ?`, paymentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reconciliations: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// --- income taxes ---

func (q queries) AddIncomeTax(ctx context.Context, id uuid.UUID, name string) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO income_taxes (id, name, created_at) VALUES (?, ?, ?)`,
		id.String(), name, q.now().UTC().Format(time.RFC3339),
	)
	if isUniqueConstraintError(err) {
		return ledger.ErrTaxExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert income tax: %w", err)
	}
	return nil
}

func (q queries) AddRateChange(ctx context.Context, taxID uuid.UUID, change ledger.RateChange) error {
	var exists int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM income_taxes WHERE id = ?`, taxID.String()).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return ledger.ErrTaxNotFound
	}

	startsOn := ledger.FormatDate(ledger.DateOf(change.Start))
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO income_tax_rates (tax_id, starts_on, rate) VALUES (?, ?, ?)`,
		taxID.String(), startsOn, change.Rate.String(),
	)
	if isUniqueConstraintError(err) {
		return &ledger.RatePeriodError{Start: startsOn, Reason: "rate change already recorded for this day"}
	}
	if err != nil {
		return fmt.Errorf("failed to insert rate change: %w", err)
	}
	return nil
}

func (q queries) IncomeTaxes(ctx context.Context) ([]*ledger.IncomeTax, error) {
	query := `
		SELECT t.id, t.name, r.starts_on, r.rate
		FROM income_taxes t
		LEFT JOIN income_tax_rates r ON r.tax_id = t.id
		ORDER BY t.created_at ASC, t.rowid ASC, r.starts_on ASC
	`
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query income taxes: %w", err)
	}
	defer rows.Close()

	type taxRows struct {
		id      uuid.UUID
		name    string
		changes []ledger.RateChange
	}
	var ordered []*taxRows
	byID := make(map[string]*taxRows)

	for rows.Next() {
		var (
			id, name       string
			startsOn, rate sql.NullString
		)
		if err := rows.Scan(&id, &name, &startsOn, &rate); err != nil {
			return nil, fmt.Errorf("failed to scan income tax: %w", err)
		}
		t, ok := byID[id]
		if !ok {
			parsed, err := uuid.Parse(id)
			if err != nil {
				return nil, fmt.Errorf("income tax %s: %w", id, err)
			}
			t = &taxRows{id: parsed, name: name}
			byID[id] = t
			ordered = append(ordered, t)
		}
		if !startsOn.Valid {
			continue
		}
		change, err := parseRateChange(startsOn.String, rate.String)
		if err != nil {
			return nil, fmt.Errorf("income tax %s: %w", name, err)
		}
		t.changes = append(t.changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	taxes := make([]*ledger.IncomeTax, 0, len(ordered))
	for _, t := range ordered {
		tax, err := ledger.BuildIncomeTax(t.id, t.name, t.changes)
		if err != nil {
			return nil, fmt.Errorf("income tax %s: %w", t.name, err)
		}
		taxes = append(taxes, tax)
	}
	return taxes, nil
}

func parseRateChange(startsOn, rate string) (ledger.RateChange, error) {
	start, err := ledger.ParseDate(startsOn)
	if err != nil {
		return ledger.RateChange{}, err
	}
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return ledger.RateChange{}, err
	}
	r, err := ledger.NewTaxRateFromDecimal(d)
	if err != nil {
		return ledger.RateChange{}, err
	}
	return ledger.RateChange{Start: start, Rate: r}, nil
}

// Helper functions

// timeLayout keeps every fraction digit so stored instants sort as text.
// time.RFC3339Nano parses it back.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
