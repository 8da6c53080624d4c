/*
Package app coordinates the ledger engines with storage.

PURPOSE:
  The ledger package computes; this package loads inputs from a
  ledger.TxStore, runs the engines and persists their results. CLI
  commands and HTTP handlers both go through Service.

SETTLEMENT SOURCE:
  Payments are reconciled against one ObligationSource:
  - the stored income tax named in Options.Schedule, when set
  - otherwise the flat rate Options.FlatRate (config default 5%)

ATOMICITY:
  Applying a payment reads pending incomes and partial reconciliations,
  runs the Reconciler and writes the entries in a single WithTx call. A
  failure anywhere leaves the store untouched.

SEE ALSO:
  - ledger/reconcile.go: FIFO allocation
  - ledger/store.go: Store contracts
*/
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/warp/monotax/ledger"
)

// Options configure a Service. A nil Clock or Logger selects the default.
type Options struct {
	FlatRate ledger.TaxRate
	Schedule string
	Clock    ledger.Clock
	Logger   *slog.Logger
}

type Service struct {
	store    ledger.TxStore
	flatRate ledger.TaxRate
	schedule string
	clock    ledger.Clock
	log      *slog.Logger
}

func New(store ledger.TxStore, opts Options) *Service {
	s := &Service{
		store:    store,
		flatRate: opts.FlatRate,
		schedule: opts.Schedule,
		clock:    opts.Clock,
		log:      opts.Logger,
	}
	if s.clock == nil {
		s.clock = ledger.SystemClock
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time { return s.clock() }

// =============================================================================
// INCOMES
// =============================================================================

type ImportResult struct {
	Read       int // incomes offered
	Imported   int // newly stored
	Duplicates int // already stored or repeated in the batch
}

// ImportIncomes stores incomes not seen before. Duplicates are detected by
// (time, amount) within the batch and against the store.
func (s *Service) ImportIncomes(ctx context.Context, incomes []ledger.Income) (ImportResult, error) {
	seen := make(map[ledger.IncomeKey]bool, len(incomes))
	batch := make([]ledger.Income, 0, len(incomes))
	for _, in := range incomes {
		key := in.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		batch = append(batch, in)
	}

	imported, err := s.store.SaveIncomes(ctx, batch)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import incomes: %w", err)
	}

	res := ImportResult{Read: len(incomes), Imported: imported, Duplicates: len(incomes) - imported}
	s.log.Info("imported incomes", "read", res.Read, "imported", res.Imported, "duplicates", res.Duplicates)
	return res, nil
}

func (s *Service) Incomes(ctx context.Context, criteria ledger.Criteria) ([]ledger.Income, error) {
	return s.store.FindIncomes(ctx, criteria)
}

// =============================================================================
// PAYMENTS
// =============================================================================

// RecordPayment stores a payment without applying it.
func (s *Service) RecordPayment(ctx context.Context, amount ledger.Amount, paidAt time.Time) (ledger.TaxPayment, error) {
	p, err := s.store.AddPayment(ctx, ledger.NewTaxPayment(0, amount, paidAt))
	if err != nil {
		return ledger.TaxPayment{}, fmt.Errorf("record payment: %w", err)
	}
	s.log.Info("recorded payment", "payment", p.ID, "amount", p.Amount.String())
	return p, nil
}

// Pay records a payment and applies it in one transaction.
func (s *Service) Pay(ctx context.Context, amount ledger.Amount, paidAt time.Time) (ledger.TaxPayment, ledger.ReconcileResult, error) {
	var (
		payment ledger.TaxPayment
		result  ledger.ReconcileResult
	)
	err := s.store.WithTx(ctx, func(tx ledger.Store) error {
		var err error
		payment, err = tx.AddPayment(ctx, ledger.NewTaxPayment(0, amount, paidAt))
		if err != nil {
			return err
		}
		result, err = s.apply(ctx, tx, payment)
		return err
	})
	if err != nil {
		return ledger.TaxPayment{}, ledger.ReconcileResult{}, fmt.Errorf("pay: %w", err)
	}
	payment.Applied = true
	s.logApplied(payment, result)
	return payment, result, nil
}

// ApplyPayment reconciles a recorded payment against pending incomes.
func (s *Service) ApplyPayment(ctx context.Context, paymentID int64) (ledger.ReconcileResult, error) {
	var (
		payment ledger.TaxPayment
		result  ledger.ReconcileResult
	)
	err := s.store.WithTx(ctx, func(tx ledger.Store) error {
		var err error
		payment, err = tx.Payment(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Applied {
			return ledger.ErrPaymentApplied
		}
		result, err = s.apply(ctx, tx, payment)
		return err
	})
	if err != nil {
		return ledger.ReconcileResult{}, fmt.Errorf("apply payment %d: %w", paymentID, err)
	}
	s.logApplied(payment, result)
	return result, nil
}

// ApplyPending applies every recorded, unapplied payment in id order and
// returns how many were applied. Payments applied concurrently by another
// caller are skipped; any other failure stops the run.
func (s *Service) ApplyPending(ctx context.Context) (int, error) {
	payments, err := s.store.Payments(ctx)
	if err != nil {
		return 0, err
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })

	applied := 0
	for _, p := range payments {
		if p.Applied {
			continue
		}
		_, err := s.ApplyPayment(ctx, p.ID)
		if errors.Is(err, ledger.ErrPaymentApplied) {
			s.log.Debug("payment already applied", "payment", p.ID)
			continue
		}
		if err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func (s *Service) apply(ctx context.Context, tx ledger.Store, payment ledger.TaxPayment) (ledger.ReconcileResult, error) {
	source, err := s.settlement(ctx, tx)
	if err != nil {
		return ledger.ReconcileResult{}, err
	}
	pending, err := tx.PendingIncomes(ctx)
	if err != nil {
		return ledger.ReconcileResult{}, err
	}
	partials, err := tx.PartialReconciliations(ctx)
	if err != nil {
		return ledger.ReconcileResult{}, err
	}

	reconciler := &ledger.Reconciler{Obligations: source, Clock: s.clock}
	result, err := reconciler.Reconcile(ledger.ReconcileInput{
		Pending:  pending,
		Partials: partials,
		Payment:  payment,
	})
	if err != nil {
		return ledger.ReconcileResult{}, err
	}

	if err := tx.RecordReconciliations(ctx, payment.ID, result.Entries); err != nil {
		return ledger.ReconcileResult{}, err
	}
	return result, nil
}

func (s *Service) logApplied(p ledger.TaxPayment, r ledger.ReconcileResult) {
	s.log.Info("applied payment",
		"payment", p.ID,
		"amount", p.Amount.String(),
		"entries", len(r.Entries),
		"reconciled", r.Reconciled().String(),
		"balance", r.Balance.String(),
	)
}

// UndoPayment removes the payment's reconciliations so it can be applied again.
// It fails with ErrPaymentSuperseded while a later payment has reconciled one
// of the same incomes; that payment has to be undone first.
func (s *Service) UndoPayment(ctx context.Context, paymentID int64) (int, error) {
	var deleted int
	err := s.store.WithTx(ctx, func(tx ledger.Store) error {
		p, err := tx.Payment(ctx, paymentID)
		if err != nil {
			return err
		}
		if !p.Applied {
			return ledger.ErrPaymentNotApplied
		}
		recs, err := tx.Reconciliations(ctx)
		if err != nil {
			return err
		}
		if err := checkUndo(recs, paymentID); err != nil {
			return err
		}
		deleted, err = tx.UndoPayment(ctx, paymentID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("undo payment %d: %w", paymentID, err)
	}
	s.log.Info("undid payment", "payment", paymentID, "entries", deleted)
	return deleted, nil
}

// checkUndo walks entries in recorded order and reports the first entry of
// another payment on an income paymentID reconciled before it.
func checkUndo(recs []ledger.Reconciliation, paymentID int64) error {
	touched := make(map[int64]bool)
	for _, r := range recs {
		if r.PaymentID == paymentID {
			touched[r.IncomeNo] = true
			continue
		}
		if touched[r.IncomeNo] {
			return fmt.Errorf("%w: payment %d reconciled income %d afterwards",
				ledger.ErrPaymentSuperseded, r.PaymentID, r.IncomeNo)
		}
	}
	return nil
}

func (s *Service) Payments(ctx context.Context) ([]ledger.TaxPayment, error) {
	return s.store.Payments(ctx)
}

func (s *Service) Reconciliations(ctx context.Context) ([]ledger.Reconciliation, error) {
	return s.store.Reconciliations(ctx)
}

// =============================================================================
// REPORTS
// =============================================================================

func (s *Service) QuarterlyReport(ctx context.Context, criteria ledger.Criteria) (ledger.QuarterlyReport, error) {
	incomes, err := s.store.FindIncomes(ctx, criteria)
	if err != nil {
		return ledger.QuarterlyReport{}, err
	}
	source, err := s.settlement(ctx, s.store)
	if err != nil {
		return ledger.QuarterlyReport{}, err
	}
	return ledger.BuildQuarterlyReport(incomes, source), nil
}

func (s *Service) BalanceReport(ctx context.Context, criteria ledger.Criteria) (ledger.BalanceReport, error) {
	incomes, err := s.store.FindIncomes(ctx, criteria)
	if err != nil {
		return ledger.BalanceReport{}, err
	}
	taxes, err := s.store.IncomeTaxes(ctx)
	if err != nil {
		return ledger.BalanceReport{}, err
	}
	source, err := s.settlement(ctx, s.store)
	if err != nil {
		return ledger.BalanceReport{}, err
	}
	recs, err := s.store.Reconciliations(ctx)
	if err != nil {
		return ledger.BalanceReport{}, err
	}
	return ledger.BuildBalanceReport(incomes, taxes, source, recs), nil
}

// settlement picks the obligation source payments are reconciled against.
func (s *Service) settlement(ctx context.Context, st ledger.TaxStore) (ledger.ObligationSource, error) {
	if s.schedule == "" {
		return ledger.FlatRate(s.flatRate), nil
	}
	tax, err := findTax(ctx, st, s.schedule)
	if err != nil {
		return nil, fmt.Errorf("settlement schedule: %w", err)
	}
	return tax, nil
}

// =============================================================================
// INCOME TAXES
// =============================================================================

// CreateTax stores a named schedule. The changes are validated as a whole
// before anything is written.
func (s *Service) CreateTax(ctx context.Context, name string, changes []ledger.RateChange) (*ledger.IncomeTax, error) {
	id := ledger.NewTaxID()
	sorted := sortedChanges(changes)
	tax, err := ledger.BuildIncomeTax(id, name, sorted)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx ledger.Store) error {
		if err := tx.AddIncomeTax(ctx, id, name); err != nil {
			return err
		}
		for _, ch := range sorted {
			if err := tx.AddRateChange(ctx, id, ch); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create tax %q: %w", name, err)
	}
	s.log.Info("created income tax", "tax", name, "id", id, "changes", len(sorted))
	return tax, nil
}

// AddRateChange records a new rate for the named tax from change.Start on.
func (s *Service) AddRateChange(ctx context.Context, name string, change ledger.RateChange) (*ledger.IncomeTax, error) {
	var updated *ledger.IncomeTax
	err := s.store.WithTx(ctx, func(tx ledger.Store) error {
		tax, err := findTax(ctx, tx, name)
		if err != nil {
			return err
		}
		if err := checkRateChange(ctx, tx, change); err != nil {
			return err
		}
		if err := tx.AddRateChange(ctx, tax.ID, change); err != nil {
			return err
		}
		updated, err = findTax(ctx, tx, name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add rate to %q: %w", name, err)
	}
	s.log.Info("added rate change", "tax", name, "start", ledger.FormatDate(change.Start), "rate", change.Rate.String())
	return updated, nil
}

// checkRateChange rejects a change starting on or before the day of an
// income that already has reconciliation entries, since those entries were
// sized against the old rate.
func checkRateChange(ctx context.Context, tx ledger.Store, change ledger.RateChange) error {
	recs, err := tx.Reconciliations(ctx)
	if err != nil || len(recs) == 0 {
		return err
	}
	reconciled := make(map[int64]bool, len(recs))
	for _, r := range recs {
		reconciled[r.IncomeNo] = true
	}

	incomes, err := tx.FindIncomes(ctx, nil)
	if err != nil {
		return err
	}
	start := ledger.DateOf(change.Start)
	for _, in := range incomes {
		if reconciled[in.No] && !in.Date().Before(start) {
			return &ledger.RatePeriodError{
				Start:  ledger.FormatDate(start),
				End:    "...",
				Reason: fmt.Sprintf("income %d of %s is already reconciled", in.No, ledger.FormatDate(in.Date())),
			}
		}
	}
	return nil
}

func (s *Service) Taxes(ctx context.Context) ([]*ledger.IncomeTax, error) {
	return s.store.IncomeTaxes(ctx)
}

func (s *Service) Tax(ctx context.Context, name string) (*ledger.IncomeTax, error) {
	return findTax(ctx, s.store, name)
}

// TaxByID finds a stored schedule by id.
func (s *Service) TaxByID(ctx context.Context, id uuid.UUID) (*ledger.IncomeTax, error) {
	taxes, err := s.store.IncomeTaxes(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range taxes {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, ledger.ErrTaxNotFound
}

func findTax(ctx context.Context, st ledger.TaxStore, name string) (*ledger.IncomeTax, error) {
	taxes, err := st.IncomeTaxes(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range taxes {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ledger.ErrTaxNotFound)
}

func sortedChanges(changes []ledger.RateChange) []ledger.RateChange {
	out := make([]ledger.RateChange, len(changes))
	for i, ch := range changes {
		out[i] = ledger.RateChange{Start: ledger.DateOf(ch.Start), Rate: ch.Rate}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
