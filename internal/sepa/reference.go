// =============================================================================
// SEPA Export - Reference Generator
// =============================================================================
//
// Builds the unique, human-traceable identifier of one SEPA file:
//
//   {journal code}/{YYYYMMDD}/{three-digit sequence}
//
// The identifier doubles as the message id (MsgId) of the generated
// document, so it is bounded by the format's 35-character limit. The
// sequence is per journal and day, starting at 001; counting the
// previously issued references for the prefix is the caller's job (it must
// happen inside the commit transaction, see the orchestrator).
//
// =============================================================================

package sepa

import (
	"fmt"
	"time"
)

// maxReferenceLen is the message format's hard limit on MsgId length.
const maxReferenceLen = 35

// maxSequence is the last sequence number the three-digit suffix can carry.
const maxSequence = 999

// Prefix returns the per-journal, per-day reference prefix, trailing slash
// included: "BNK1/20240501/".
func Prefix(journalCode string, date time.Time) string {
	return fmt.Sprintf("%s/%s/", journalCode, date.Format("20060102"))
}

// Reference builds the next reference for a prefix given the number of
// references already issued with that exact prefix. The sequence component
// is existing+1, zero-padded to three digits.
//
// It returns ErrReferenceOverflow when the sequence space is exhausted and
// a *ReferenceTooLongError when the journal code is long enough to push the
// result past 35 characters.
func Reference(prefix string, existing int) (string, error) {
	if existing >= maxSequence {
		return "", ErrReferenceOverflow
	}
	ref := fmt.Sprintf("%s%03d", prefix, existing+1)
	if len(ref) > maxReferenceLen {
		return "", &ReferenceTooLongError{Reference: ref}
	}
	return ref, nil
}
