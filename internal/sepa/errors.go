package sepa

import (
	"errors"
	"fmt"
)

// ErrNoEligiblePayments is returned when the selection contains no payment
// that is outbound, posted, and paid with the SEPA method. The run aborts
// with no side effects.
var ErrNoEligiblePayments = errors.New("no SEPA payments to export")

// ErrReferenceOverflow is returned when more than 999 files would be needed
// for the same journal and day; the three-digit sequence space is exhausted.
var ErrReferenceOverflow = errors.New("sepa reference sequence exhausted for journal/day")

// MissingBICError reports a bank account involved in the export that carries
// no BIC. The check runs over every selected payment before any batch is
// processed, so this error always means nothing was exported.
type MissingBICError struct {
	AccountNumber string
	HolderName    string
}

func (e *MissingBICError) Error() string {
	holder := e.HolderName
	if holder == "" {
		holder = "no holder"
	}
	return fmt.Sprintf("the bank account %s (%s) has no BIC code", e.AccountNumber, holder)
}

// ReferenceTooLongError reports a generated reference that exceeds the
// 35-character limit of the message format. References are rejected rather
// than truncated: a truncated reference would silently break the per-prefix
// uniqueness counting.
type ReferenceTooLongError struct {
	Reference string
}

func (e *ReferenceTooLongError) Error() string {
	return fmt.Sprintf("sepa reference %q exceeds %d characters", e.Reference, maxReferenceLen)
}
