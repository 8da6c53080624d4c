/*
store.go - Persistence interfaces for incomes, payments and reconciliations

PURPOSE:
  Defines the boundary between the ledger logic and the database. The
  engines in this package never call a store; the app package loads
  inputs through these interfaces and persists results back.

KEY INTERFACES:
  IncomeStore:         Imported incomes, deduplicated by (time, amount)
  PaymentStore:        Recorded tax payments
  ReconciliationStore: Reconciliation entries plus the payment's applied marker
  TaxStore:            Income taxes as sequences of rate changes
  TxStore:             All of the above inside one transaction

IMMUTABLE ENTRIES:
  Reconciliation entries are inserted, never updated. Undoing a payment
  deletes the payment's entries as a whole and clears its applied marker;
  app refuses it while a later payment has reconciled the same incomes.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - ledger/store/memory.go: In-memory for tests and dry runs
*/
package ledger

import (
	"context"

	"github.com/google/uuid"
)

type IncomeStore interface {
	// SaveIncomes inserts incomes whose (time, amount) is not stored yet,
	// assigning sequence numbers. Returns how many were inserted.
	SaveIncomes(ctx context.Context, incomes []Income) (int, error)

	// FindIncomes returns matching incomes ordered by time.
	FindIncomes(ctx context.Context, criteria Criteria) ([]Income, error)

	// PendingIncomes returns incomes without a Full reconciliation, ordered by time.
	PendingIncomes(ctx context.Context) ([]Income, error)
}

type PaymentStore interface {
	// AddPayment stores a payment and returns it with its assigned ID.
	AddPayment(ctx context.Context, p TaxPayment) (TaxPayment, error)

	// Payment returns ErrPaymentNotFound for unknown ids.
	Payment(ctx context.Context, id int64) (TaxPayment, error)

	Payments(ctx context.Context) ([]TaxPayment, error)
}

type ReconciliationStore interface {
	// PartialReconciliations returns Partial entries of incomes that have
	// no Full entry, ordered by reconciliation time.
	PartialReconciliations(ctx context.Context) ([]Reconciliation, error)

	// Reconciliations returns every entry in the order it was recorded.
	Reconciliations(ctx context.Context) ([]Reconciliation, error)

	// RecordReconciliations inserts entries and marks the payment applied.
	RecordReconciliations(ctx context.Context, paymentID int64, entries []Reconciliation) error

	// UndoPayment deletes the payment's entries and clears the applied
	// marker. Returns the number of deleted entries.
	UndoPayment(ctx context.Context, paymentID int64) (int, error)
}

type TaxStore interface {
	AddIncomeTax(ctx context.Context, id uuid.UUID, name string) error

	// AddRateChange returns ErrTaxNotFound for unknown taxes.
	AddRateChange(ctx context.Context, taxID uuid.UUID, change RateChange) error

	// IncomeTaxes builds every stored tax with BuildIncomeTax.
	IncomeTaxes(ctx context.Context) ([]*IncomeTax, error)
}

type Store interface {
	IncomeStore
	PaymentStore
	ReconciliationStore
	TaxStore
}

// TxStore wraps Store with transaction support.
// If fn returns an error, every write made through the passed Store is rolled back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
