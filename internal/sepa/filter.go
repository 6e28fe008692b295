// =============================================================================
// SEPA Export - Eligibility Filter
// =============================================================================
//
// Selects, from an arbitrary payment selection, the subset that qualifies
// for SEPA export, and verifies export-wide preconditions. Ineligible
// records are silently excluded (selecting a draft payment is not an
// error); an empty eligible subset aborts the run.
//
// The BIC precondition is deliberately global: every selected payment's
// creditor bank and journal bank are checked before any batch is touched,
// so a single bad account can never leave a subset already exported.
//
// =============================================================================

package sepa

import "github.com/finbatch/sepa-export/internal/payment"

// Filter returns the payments eligible for SEPA export: outbound, posted,
// method SEPA. Order is preserved. If nothing qualifies it returns
// ErrNoEligiblePayments.
func Filter(payments []payment.Payment) ([]payment.Payment, error) {
	var eligible []payment.Payment
	for _, p := range payments {
		if p.Eligible() {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligiblePayments
	}
	return eligible, nil
}

// EnsureBIC verifies that the creditor bank account and the journal bank
// account of every payment carry a non-empty BIC. It returns a
// *MissingBICError for the first offending account.
func EnsureBIC(payments []payment.Payment) error {
	for _, p := range payments {
		for _, acct := range []payment.BankAccount{p.CreditorBank, p.Journal.BankAccount} {
			if acct.BIC == "" {
				return &MissingBICError{AccountNumber: acct.AccountNumber, HolderName: acct.HolderName}
			}
		}
	}
	return nil
}
