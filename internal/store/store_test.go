package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbatch/sepa-export/internal/payment"
)

// testStore opens a fresh database in a temp directory.
func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sepa-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedPayment inserts a company, journal, and one posted SEPA payment, and
// returns the payment id.
func seedPayment(t *testing.T, s *Store, journalCode, amount string) int64 {
	t.Helper()
	ctx := context.Background()

	companyID, err := s.InsertCompany(ctx, payment.Company{Name: "Finbatch NV", VAT: "BE0123456789"})
	require.NoError(t, err)
	journalID, err := s.InsertJournal(ctx, payment.Journal{
		Code: journalCode,
		BankAccount: payment.BankAccount{
			AccountNumber: "BE71096123456769",
			BIC:           "KREDBEBB",
			HolderName:    "Finbatch NV",
		},
	})
	require.NoError(t, err)

	id, err := s.InsertPayment(ctx, payment.Payment{
		Direction:    payment.DirectionOutbound,
		State:        payment.StatePosted,
		Method:       payment.MethodSEPA,
		Amount:       decimal.RequireFromString(amount),
		CreditorName: "Acme Supplies",
		CreditorBank: payment.BankAccount{
			AccountNumber: "BE68539007547034",
			BIC:           "GKCCBEBB",
			HolderName:    "Acme Supplies",
		},
		Communication: "invoice 42",
		Journal:       payment.Journal{ID: journalID},
		Company:       payment.Company{ID: companyID},
	})
	require.NoError(t, err)
	return id
}

func TestOpenMigratesAndReopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sepa.db")

	s, err := Open(path)
	require.NoError(t, err)
	id := seedPayment(t, s, "BNK1", "100.00")
	require.NoError(t, s.Close())

	// Reopening an up-to-date database must not disturb existing rows.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.PaymentsByIDs(context.Background(), []int64{id})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100", got[0].Amount.String())
}

func TestPaymentsByIDs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	a := seedPayment(t, s, "BNK1", "100.00")
	b := seedPayment(t, s, "BNK2", "50.50")

	got, err := s.PaymentsByIDs(ctx, []int64{b, a})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Selection order, not insertion order.
	assert.Equal(t, b, got[0].ID)
	assert.Equal(t, a, got[1].ID)

	assert.Equal(t, payment.DirectionOutbound, got[1].Direction)
	assert.Equal(t, payment.StatePosted, got[1].State)
	assert.Equal(t, payment.MethodSEPA, got[1].Method)
	assert.Equal(t, "100.00", got[1].Amount.StringFixed(2))
	assert.Equal(t, "Acme Supplies", got[1].CreditorName)
	assert.Equal(t, "GKCCBEBB", got[1].CreditorBank.BIC)
	assert.Equal(t, "BNK1", got[1].Journal.Code)
	assert.Equal(t, "KREDBEBB", got[1].Journal.BankAccount.BIC)
	assert.Equal(t, "Finbatch NV", got[1].Company.Name)
}

func TestPaymentsByIDsUnknownID(t *testing.T) {
	s := testStore(t)
	a := seedPayment(t, s, "BNK1", "100.00")

	_, err := s.PaymentsByIDs(context.Background(), []int64{a, 9999})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment 9999 not found")
}

func TestPaymentsByIDsDuplicateSelection(t *testing.T) {
	s := testStore(t)
	a := seedPayment(t, s, "BNK1", "100.00")
	b := seedPayment(t, s, "BNK2", "50.00")

	got, err := s.PaymentsByIDs(context.Background(), []int64{a, b, a, a})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].ID)
	assert.Equal(t, b, got[1].ID)
}

func TestPaymentsByIDsEmpty(t *testing.T) {
	s := testStore(t)
	got, err := s.PaymentsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCountReferencesCaseSensitive(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)

	for _, name := range []string{"J1/20240501/001", "J1/20240501/002", "j1/20240501/001", "J1/20240502/001"} {
		err := s.RunExport(ctx, func(tx *ExportTx) error {
			return tx.CreateArtifact(&payment.Artifact{Name: name, CreatedAt: now, XML: []byte("<x/>")})
		})
		require.NoError(t, err)
	}

	err := s.RunExport(ctx, func(tx *ExportTx) error {
		n, err := tx.CountReferences("J1/20240501/")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = tx.CountReferences("j1/20240501/")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = tx.CountReferences("J2/20240501/")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		return nil
	})
	require.NoError(t, err)
}

func TestCountReferencesMultibytePrefix(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)

	// substr() counts characters, so a prefix with a multibyte journal
	// code must still match its own references.
	for _, name := range []string{"ÉJ1/20240501/001", "ÉJ1/20240501/002"} {
		err := s.RunExport(ctx, func(tx *ExportTx) error {
			return tx.CreateArtifact(&payment.Artifact{Name: name, CreatedAt: now, XML: []byte("<x/>")})
		})
		require.NoError(t, err)
	}

	err := s.RunExport(ctx, func(tx *ExportTx) error {
		n, err := tx.CountReferences("ÉJ1/20240501/")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		return nil
	})
	require.NoError(t, err)
}

func TestRunExportCommit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	id := seedPayment(t, s, "BNK1", "100.00")
	now := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)

	var artifact payment.Artifact
	err := s.RunExport(ctx, func(tx *ExportTx) error {
		artifact = payment.Artifact{
			Name:       "BNK1/20240501/001",
			CreatedAt:  now,
			XML:        []byte("<Document/>"),
			PaymentIDs: []int64{id},
		}
		if err := tx.CreateArtifact(&artifact); err != nil {
			return err
		}
		return tx.MarkSent([]int64{id})
	})
	require.NoError(t, err)
	assert.NotZero(t, artifact.ID)

	got, err := s.PaymentsByIDs(ctx, []int64{id})
	require.NoError(t, err)
	assert.Equal(t, payment.StateSent, got[0].State)

	list, err := s.ListArtifacts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "BNK1/20240501/001", list[0].Name)
	assert.Equal(t, []byte("<Document/>"), list[0].XML)
	assert.Equal(t, []int64{id}, list[0].PaymentIDs)
	assert.True(t, list[0].CreatedAt.Equal(now))
}

func TestRunExportRollback(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	id := seedPayment(t, s, "BNK1", "100.00")
	boom := errors.New("boom")

	err := s.RunExport(ctx, func(tx *ExportTx) error {
		if err := tx.CreateArtifact(&payment.Artifact{
			Name:       "BNK1/20240501/001",
			CreatedAt:  time.Now(),
			XML:        []byte("<Document/>"),
			PaymentIDs: []int64{id},
		}); err != nil {
			return err
		}
		if err := tx.MarkSent([]int64{id}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing of the failed run survives.
	list, err := s.ListArtifacts(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := s.PaymentsByIDs(ctx, []int64{id})
	require.NoError(t, err)
	assert.Equal(t, payment.StatePosted, got[0].State)
}

func TestCreateArtifactDuplicateName(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now()

	create := func() error {
		return s.RunExport(ctx, func(tx *ExportTx) error {
			return tx.CreateArtifact(&payment.Artifact{Name: "BNK1/20240501/001", CreatedAt: now, XML: []byte("<x/>")})
		})
	}
	require.NoError(t, create())
	require.Error(t, create())
}

func TestMarkSentUnknownPayment(t *testing.T) {
	s := testStore(t)
	err := s.RunExport(context.Background(), func(tx *ExportTx) error {
		return tx.MarkSent([]int64{12345})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such payment")
}

func TestListArtifactsMostRecentFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	times := []time.Time{
		time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
	}
	names := []string{"BNK1/20240501/001", "BNK1/20240503/001", "BNK1/20240502/001"}
	for i := range times {
		err := s.RunExport(ctx, func(tx *ExportTx) error {
			return tx.CreateArtifact(&payment.Artifact{Name: names[i], CreatedAt: times[i], XML: []byte("<x/>")})
		})
		require.NoError(t, err)
	}

	list, err := s.ListArtifacts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "BNK1/20240503/001", list[0].Name)
	assert.Equal(t, "BNK1/20240502/001", list[1].Name)
	assert.Equal(t, "BNK1/20240501/001", list[2].Name)
}
