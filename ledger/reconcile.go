/*
reconcile.go - Allocate a tax payment across outstanding obligations

PURPOSE:
  A tax payment is not tied to any income. The Reconciler settles it
  against pending incomes, oldest first, producing one Reconciliation per
  income it touches and returning whatever the payment did not consume.

ALGORITHM (FIFO by income date):
  balance = payment
  for each pending income, oldest first, while balance > 0:
      outstanding = obligation(income) - sum(partials of income)
      balance >= outstanding  -> Full entry for outstanding
      otherwise               -> Partial entry for balance, balance = 0

GUARANTEES:
  - At most one entry per pending income, emitted in input order
  - sum(entries) + balance == payment amount
  - Only the last entry can be Partial
  - An overpayment is not an error: the leftover is returned
  - Incomes with nothing outstanding get no entry

PRECONDITIONS (checked once, before any allocation):
  - Pending incomes are non-decreasing by timestamp
  - Every existing reconciliation passed in is Partial
  - No income is already reconciled above its obligation
  A violation returns a *PreconditionError. Inputs are never re-sorted or
  filtered: fixing a caller's mistake silently would corrupt the ledger.

CONCURRENCY:
  Reconcile is a pure function of its inputs. Two calls must not treat the
  same income as pending at once; the store transaction around the call
  provides that exclusivity.

SEE ALSO:
  - schedule.go: ObligationSource implementations
  - store.go: ReconciliationStore persists the entries
*/
package ledger

import "fmt"

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

type ReconcileInput struct {
	// Pending are incomes with unsettled obligation, oldest first.
	Pending []Income

	// Partials are the existing Partial entries for the pending incomes.
	Partials []Reconciliation

	Payment TaxPayment
}

type ReconcileResult struct {
	Entries []Reconciliation
	Balance Amount
}

// Reconciled returns the total allocated by the entries.
func (r ReconcileResult) Reconciled() Amount {
	total := ZeroAmount
	for _, e := range r.Entries {
		total = total.Add(e.Amount)
	}
	return total
}

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler allocates payments using an obligation source.
type Reconciler struct {
	Obligations ObligationSource
	Clock       Clock
}

func NewReconciler(obligations ObligationSource) *Reconciler {
	return &Reconciler{Obligations: obligations, Clock: SystemClock}
}

// Reconcile applies in.Payment to in.Pending. See the file header for the contract.
func (r *Reconciler) Reconcile(in ReconcileInput) (ReconcileResult, error) {
	if r.Obligations == nil {
		return ReconcileResult{}, &PreconditionError{Reason: "no obligation source"}
	}
	settled, err := checkPreconditions(in)
	if err != nil {
		return ReconcileResult{}, err
	}

	// Validate every outstanding obligation up front so a bad income later in
	// the list cannot leave a half-built result.
	outstanding := make([]Amount, len(in.Pending))
	for i, income := range in.Pending {
		owed := ObligationOf(r.Obligations, income)
		rest, err := owed.Sub(settled[income.No])
		if err != nil {
			return ReconcileResult{}, &PreconditionError{
				Reason: fmt.Sprintf("income %d reconciled %s above obligation %s", income.No, settled[income.No], owed),
			}
		}
		outstanding[i] = rest
	}

	now := r.Clock.now()
	balance := in.Payment.Amount
	var entries []Reconciliation

	for i, income := range in.Pending {
		if balance.IsZero() {
			break
		}
		expected := outstanding[i]
		if expected.IsZero() {
			continue
		}

		if balance.GreaterThanOrEqual(expected) {
			entries = append(entries, NewReconciliation(income.No, in.Payment.ID, expected, now, Full))
			balance, _ = balance.Sub(expected)
			continue
		}

		entries = append(entries, NewReconciliation(income.No, in.Payment.ID, balance, now, Partial))
		balance = ZeroAmount
	}

	return ReconcileResult{Entries: entries, Balance: balance}, nil
}

// checkPreconditions returns the already reconciled amount per income.
func checkPreconditions(in ReconcileInput) (map[int64]Amount, error) {
	for i := 1; i < len(in.Pending); i++ {
		if in.Pending[i].Time.Before(in.Pending[i-1].Time) {
			return nil, &PreconditionError{
				Reason: fmt.Sprintf("pending incomes not sorted by time at index %d", i),
			}
		}
	}

	settled := make(map[int64]Amount)
	for _, rec := range in.Partials {
		if rec.Completeness != Partial {
			return nil, &PreconditionError{
				Reason: fmt.Sprintf("reconciliation %s for income %d is %s, want partial", rec.ID, rec.IncomeNo, rec.Completeness),
			}
		}
		sum, err := settled[rec.IncomeNo].CheckedAdd(rec.Amount)
		if err != nil {
			return nil, &PreconditionError{Reason: fmt.Sprintf("partials of income %d overflow", rec.IncomeNo)}
		}
		settled[rec.IncomeNo] = sum
	}
	return settled, nil
}
