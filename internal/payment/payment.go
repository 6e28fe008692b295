// =============================================================================
// SEPA Export - Payment Domain Model
// =============================================================================
//
// This package defines the payment snapshot types consumed by the export
// engine. The engine never works on live store records: the store resolves
// a selection of ids into immutable Payment snapshots, and every later stage
// (filtering, partitioning, rendering) operates on those value types only.
//
// =============================================================================

package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the money-flow direction of a payment.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// State is the lifecycle state of a payment.
//
// Payments move draft -> posted -> sent. Only posted payments are eligible
// for export; the export run itself transitions them to sent.
type State string

const (
	StateDraft  State = "draft"
	StatePosted State = "posted"
	StateSent   State = "sent"
)

// Method is the payment method code.
type Method string

const (
	MethodSEPA   Method = "SEPA"
	MethodManual Method = "manual"
)

// BankAccount identifies a bank account on either side of a transfer.
type BankAccount struct {
	// AccountNumber is the raw account number (typically an IBAN). It may
	// contain formatting characters; the sanitizer normalizes it before it
	// reaches the message.
	AccountNumber string

	// BIC routes the transfer to the account's bank. Required for every
	// account involved in a SEPA export.
	BIC string

	// HolderName is the name of the account holder, used in error messages
	// when the account is rejected.
	HolderName string
}

// Journal is the originating account a batch of payments is debited from.
// It is the partitioning key of the export: one message file is produced
// per journal.
type Journal struct {
	ID          int64
	Code        string
	BankAccount BankAccount
}

// Company is the initiating party of the generated messages.
type Company struct {
	ID   int64
	Name string
	VAT  string
}

// Payment is an immutable snapshot of one outbound payment record.
type Payment struct {
	ID            int64
	Direction     Direction
	State         State
	Method        Method
	Amount        decimal.Decimal
	CreditorName  string
	CreditorBank  BankAccount
	Communication string
	Journal       Journal
	Company       Company
}

// Eligible reports whether the payment qualifies for SEPA export:
// outbound, posted, and paid with the SEPA method.
func (p Payment) Eligible() bool {
	return p.Direction == DirectionOutbound && p.State == StatePosted && p.Method == MethodSEPA
}

// Artifact is one persisted SEPA file: the rendered, validated XML for a
// single batch. It is created exactly once per batch and immutable after
// the run commits.
type Artifact struct {
	ID         int64
	Name       string
	CreatedAt  time.Time
	XML        []byte
	PaymentIDs []int64
}
