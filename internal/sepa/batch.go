// =============================================================================
// SEPA Export - Batch Partitioner
// =============================================================================
//
// Groups eligible payment snapshots by originating journal and computes the
// per-batch aggregates (member count, control sum). One message file is
// later produced per batch.
//
// Partitioning is a pure function over immutable snapshots: the grouping
// key is the journal's numeric identity, never a derived string, so two
// payments on the same journal are always co-batched even if other journal
// attributes were to differ between snapshots.
//
// =============================================================================

package sepa

import (
	"github.com/shopspring/decimal"

	"github.com/finbatch/sepa-export/internal/payment"
)

// Batch is the set of payments sharing one originating journal within a
// single export run. Batches are transient: they exist only between
// partitioning and the persistence of their artifact.
type Batch struct {
	Journal  payment.Journal
	Company  payment.Company
	Payments []payment.Payment

	// Count and Total are the aggregates rendered into the message header
	// (NbOfTxs, CtrlSum).
	Count int
	Total decimal.Decimal
}

// Partition groups payments by journal identity. Within a batch the
// original selection order is preserved; batches themselves appear in
// first-seen journal order. The company of a batch is taken from its first
// payment.
func Partition(payments []payment.Payment) []Batch {
	groups := groupByJournal(payments)

	var order []int64
	seen := make(map[int64]bool, len(groups))
	for _, p := range payments {
		if !seen[p.Journal.ID] {
			seen[p.Journal.ID] = true
			order = append(order, p.Journal.ID)
		}
	}

	batches := make([]Batch, 0, len(order))
	for _, journalID := range order {
		indices := groups[journalID]
		first := payments[indices[0]]
		b := Batch{
			Journal:  first.Journal,
			Company:  first.Company,
			Payments: make([]payment.Payment, 0, len(indices)),
			Total:    decimal.Zero,
		}
		for _, i := range indices {
			b.Payments = append(b.Payments, payments[i])
			b.Total = b.Total.Add(payments[i].Amount)
		}
		b.Count = len(b.Payments)
		batches = append(batches, b)
	}
	return batches
}

// groupByJournal maps each journal id to the ordered indices of its
// payments in the input slice.
func groupByJournal(payments []payment.Payment) map[int64][]int {
	groups := make(map[int64][]int)
	for i, p := range payments {
		groups[p.Journal.ID] = append(groups[p.Journal.ID], i)
	}
	return groups
}
