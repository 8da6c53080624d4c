// Package store provides in-memory ledger.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/monotax/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	state memoryState

	// Clock resolves "current year/quarter" criteria. Nil means time.Now.
	Clock ledger.Clock
}

type memoryState struct {
	incomes         []ledger.Income // sorted by time
	keys            map[ledger.IncomeKey]bool
	nextIncomeNo    int64
	payments        []ledger.TaxPayment
	reconciliations []ledger.Reconciliation
	taxes           []taxRecord
}

type taxRecord struct {
	id      uuid.UUID
	name    string
	changes []ledger.RateChange
}

func NewMemory() *Memory {
	return &Memory{state: memoryState{keys: make(map[ledger.IncomeKey]bool)}}
}

// =============================================================================
// INCOMES
// =============================================================================

func (m *Memory) SaveIncomes(_ context.Context, incomes []ledger.Income) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.saveIncomes(incomes), nil
}

func (s *memoryState) saveIncomes(incomes []ledger.Income) int {
	saved := 0
	for _, in := range incomes {
		key := in.DedupKey()
		if s.keys[key] {
			continue
		}
		s.keys[key] = true
		s.nextIncomeNo++
		in.No = s.nextIncomeNo

		// Binary search for insertion point keeps incomes sorted by time
		i := sort.Search(len(s.incomes), func(i int) bool {
			return s.incomes[i].Time.After(in.Time)
		})
		s.incomes = append(s.incomes, ledger.Income{})
		copy(s.incomes[i+1:], s.incomes[i:])
		s.incomes[i] = in
		saved++
	}
	return saved
}

func (m *Memory) FindIncomes(_ context.Context, criteria ledger.Criteria) ([]ledger.Income, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return criteria.Filter(m.state.incomes, m.now()), nil
}

func (m *Memory) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now()
}

func (m *Memory) PendingIncomes(_ context.Context) ([]ledger.Income, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.pendingIncomes(), nil
}

func (s *memoryState) pendingIncomes() []ledger.Income {
	full := s.fullyReconciled()
	var out []ledger.Income
	for _, in := range s.incomes {
		if !full[in.No] {
			out = append(out, in)
		}
	}
	return out
}

func (s *memoryState) fullyReconciled() map[int64]bool {
	full := make(map[int64]bool)
	for _, r := range s.reconciliations {
		if r.Completeness == ledger.Full {
			full[r.IncomeNo] = true
		}
	}
	return full
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) AddPayment(_ context.Context, p ledger.TaxPayment) (ledger.TaxPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.addPayment(p), nil
}

func (s *memoryState) addPayment(p ledger.TaxPayment) ledger.TaxPayment {
	p.ID = int64(len(s.payments) + 1)
	s.payments = append(s.payments, p)
	return p
}

func (m *Memory) Payment(_ context.Context, id int64) (ledger.TaxPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.payment(id)
}

func (s *memoryState) payment(id int64) (ledger.TaxPayment, error) {
	if id < 1 || id > int64(len(s.payments)) {
		return ledger.TaxPayment{}, ledger.ErrPaymentNotFound
	}
	return s.payments[id-1], nil
}

func (m *Memory) Payments(_ context.Context) ([]ledger.TaxPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.TaxPayment, len(m.state.payments))
	copy(out, m.state.payments)
	return out, nil
}

// =============================================================================
// RECONCILIATIONS
// =============================================================================

func (m *Memory) PartialReconciliations(_ context.Context) ([]ledger.Reconciliation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.partials(), nil
}

func (s *memoryState) partials() []ledger.Reconciliation {
	full := s.fullyReconciled()
	var out []ledger.Reconciliation
	for _, r := range s.reconciliations {
		if r.Completeness == ledger.Partial && !full[r.IncomeNo] {
			out = append(out, r)
		}
	}
	return out
}

func (m *Memory) Reconciliations(_ context.Context) ([]ledger.Reconciliation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Reconciliation, len(m.state.reconciliations))
	copy(out, m.state.reconciliations)
	return out, nil
}

func (m *Memory) RecordReconciliations(_ context.Context, paymentID int64, entries []ledger.Reconciliation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.record(paymentID, entries)
}

func (s *memoryState) record(paymentID int64, entries []ledger.Reconciliation) error {
	if _, err := s.payment(paymentID); err != nil {
		return err
	}
	s.reconciliations = append(s.reconciliations, entries...)
	s.payments[paymentID-1].Applied = true
	return nil
}

func (m *Memory) UndoPayment(_ context.Context, paymentID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.undo(paymentID)
}

func (s *memoryState) undo(paymentID int64) (int, error) {
	if _, err := s.payment(paymentID); err != nil {
		return 0, err
	}
	kept := s.reconciliations[:0]
	deleted := 0
	for _, r := range s.reconciliations {
		if r.PaymentID == paymentID {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.reconciliations = kept
	s.payments[paymentID-1].Applied = false
	return deleted, nil
}

// =============================================================================
// TAXES
// =============================================================================

func (m *Memory) AddIncomeTax(_ context.Context, id uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.addIncomeTax(id, name)
}

func (s *memoryState) addIncomeTax(id uuid.UUID, name string) error {
	for _, t := range s.taxes {
		if t.name == name {
			return ledger.ErrTaxExists
		}
	}
	s.taxes = append(s.taxes, taxRecord{id: id, name: name})
	return nil
}

func (m *Memory) AddRateChange(_ context.Context, taxID uuid.UUID, change ledger.RateChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.addRateChange(taxID, change)
}

func (s *memoryState) addRateChange(taxID uuid.UUID, change ledger.RateChange) error {
	for i := range s.taxes {
		if s.taxes[i].id != taxID {
			continue
		}
		start := ledger.DateOf(change.Start)
		for _, ch := range s.taxes[i].changes {
			if ch.Start.Equal(start) {
				return &ledger.RatePeriodError{Start: ledger.FormatDate(start), Reason: "rate change already recorded for this day"}
			}
		}
		change.Start = start
		changes := append(s.taxes[i].changes, change)
		sort.SliceStable(changes, func(a, b int) bool { return changes[a].Start.Before(changes[b].Start) })
		s.taxes[i].changes = changes
		return nil
	}
	return ledger.ErrTaxNotFound
}

func (m *Memory) IncomeTaxes(_ context.Context) ([]*ledger.IncomeTax, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.incomeTaxes()
}

func (s *memoryState) incomeTaxes() ([]*ledger.IncomeTax, error) {
	taxes := make([]*ledger.IncomeTax, 0, len(s.taxes))
	for _, rec := range s.taxes {
		tax, err := ledger.BuildIncomeTax(rec.id, rec.name, rec.changes)
		if err != nil {
			return nil, err
		}
		taxes = append(taxes, tax)
	}
	return taxes, nil
}

// =============================================================================
// TRANSACTIONAL VIEW
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&txView{state: &m.state, now: m.now}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (s *memoryState) clone() memoryState {
	keys := make(map[ledger.IncomeKey]bool, len(s.keys))
	for k, v := range s.keys {
		keys[k] = v
	}
	taxes := make([]taxRecord, len(s.taxes))
	for i, t := range s.taxes {
		taxes[i] = taxRecord{id: t.id, name: t.name, changes: append([]ledger.RateChange(nil), t.changes...)}
	}
	return memoryState{
		incomes:         append([]ledger.Income(nil), s.incomes...),
		keys:            keys,
		nextIncomeNo:    s.nextIncomeNo,
		payments:        append([]ledger.TaxPayment(nil), s.payments...),
		reconciliations: append([]ledger.Reconciliation(nil), s.reconciliations...),
		taxes:           taxes,
	}
}

// txView operates on the locked state without re-acquiring the mutex.
type txView struct {
	state *memoryState
	now   func() time.Time
}

func (v *txView) SaveIncomes(_ context.Context, incomes []ledger.Income) (int, error) {
	return v.state.saveIncomes(incomes), nil
}

func (v *txView) FindIncomes(_ context.Context, criteria ledger.Criteria) ([]ledger.Income, error) {
	return criteria.Filter(v.state.incomes, v.now()), nil
}

func (v *txView) PendingIncomes(_ context.Context) ([]ledger.Income, error) {
	return v.state.pendingIncomes(), nil
}

func (v *txView) AddPayment(_ context.Context, p ledger.TaxPayment) (ledger.TaxPayment, error) {
	return v.state.addPayment(p), nil
}

func (v *txView) Payment(_ context.Context, id int64) (ledger.TaxPayment, error) {
	return v.state.payment(id)
}

func (v *txView) Payments(_ context.Context) ([]ledger.TaxPayment, error) {
	return append([]ledger.TaxPayment(nil), v.state.payments...), nil
}

func (v *txView) PartialReconciliations(_ context.Context) ([]ledger.Reconciliation, error) {
	return v.state.partials(), nil
}

func (v *txView) Reconciliations(_ context.Context) ([]ledger.Reconciliation, error) {
	return append([]ledger.Reconciliation(nil), v.state.reconciliations...), nil
}

func (v *txView) RecordReconciliations(_ context.Context, paymentID int64, entries []ledger.Reconciliation) error {
	return v.state.record(paymentID, entries)
}

func (v *txView) UndoPayment(_ context.Context, paymentID int64) (int, error) {
	return v.state.undo(paymentID)
}

func (v *txView) AddIncomeTax(_ context.Context, id uuid.UUID, name string) error {
	return v.state.addIncomeTax(id, name)
}

func (v *txView) AddRateChange(_ context.Context, taxID uuid.UUID, change ledger.RateChange) error {
	return v.state.addRateChange(taxID, change)
}

func (v *txView) IncomeTaxes(_ context.Context) ([]*ledger.IncomeTax, error) {
	return v.state.incomeTaxes()
}
