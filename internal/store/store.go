// =============================================================================
// SEPA Export - Record Store
// =============================================================================
//
// SQLite-backed store for the host records the engine reads (companies,
// journals, payments) and the artifacts it writes (sepa_files). The export
// commit runs inside a single immediate write transaction: reference
// counting, artifact inserts, and payment state transitions either all
// land or none do, and SQLite's single-writer lock serializes concurrent
// runs over the same journal/day reference prefix.
//
// =============================================================================

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/finbatch/sepa-export/internal/payment"
)

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

const schemaVersion = 1

const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS companies (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	name  TEXT NOT NULL,
	vat   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS journals (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	code            TEXT NOT NULL UNIQUE,
	account_number  TEXT NOT NULL,
	bic             TEXT NOT NULL DEFAULT '',
	holder          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS payments (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	direction         TEXT NOT NULL,
	state             TEXT NOT NULL,
	method            TEXT NOT NULL,
	amount            TEXT NOT NULL,
	creditor_name     TEXT NOT NULL,
	creditor_account  TEXT NOT NULL,
	creditor_bic      TEXT NOT NULL DEFAULT '',
	creditor_holder   TEXT NOT NULL DEFAULT '',
	communication     TEXT NOT NULL DEFAULT '',
	journal_id        INTEGER NOT NULL REFERENCES journals(id),
	company_id        INTEGER NOT NULL REFERENCES companies(id)
);

CREATE TABLE IF NOT EXISTS sepa_files (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	created_at  TEXT NOT NULL,
	xml_file    BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS sepa_file_payments (
	sepa_file_id  INTEGER NOT NULL REFERENCES sepa_files(id) ON DELETE CASCADE,
	payment_id    INTEGER NOT NULL REFERENCES payments(id),
	PRIMARY KEY (sepa_file_id, payment_id)
);

CREATE INDEX IF NOT EXISTS idx_payments_state ON payments(state);
CREATE INDEX IF NOT EXISTS idx_sepa_files_created ON sepa_files(created_at);
`

// ---------------------------------------------------------------------------
// Open / migrate
// ---------------------------------------------------------------------------

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema is at
// the current version. Transactions are opened in immediate mode so that
// write transactions take the database lock up front.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func migrate(db *sql.DB) error {
	ver, err := currentSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}
	if ver >= schemaVersion {
		return nil
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.Exec("DELETE FROM schema_meta"); err != nil {
		return err
	}
	if _, err := db.Exec("INSERT INTO schema_meta (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("insert schema version: %w", err)
	}
	return nil
}

func currentSchemaVersion(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_meta'
	`).Scan(&count)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	var ver int
	err = db.QueryRow("SELECT version FROM schema_meta LIMIT 1").Scan(&ver)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return ver, err
}

// ---------------------------------------------------------------------------
// Host record writes (seeding / integration surface)
// ---------------------------------------------------------------------------

// InsertCompany inserts a company and returns its id.
func (s *Store) InsertCompany(ctx context.Context, c payment.Company) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO companies (name, vat) VALUES (?, ?)", c.Name, c.VAT)
	if err != nil {
		return 0, fmt.Errorf("insert company: %w", err)
	}
	return res.LastInsertId()
}

// InsertJournal inserts a journal and returns its id.
func (s *Store) InsertJournal(ctx context.Context, j payment.Journal) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO journals (code, account_number, bic, holder) VALUES (?, ?, ?, ?)",
		j.Code, j.BankAccount.AccountNumber, j.BankAccount.BIC, j.BankAccount.HolderName)
	if err != nil {
		return 0, fmt.Errorf("insert journal: %w", err)
	}
	return res.LastInsertId()
}

// InsertPayment inserts a payment referencing an existing journal and
// company, and returns its id.
func (s *Store) InsertPayment(ctx context.Context, p payment.Payment) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (direction, state, method, amount, creditor_name,
			creditor_account, creditor_bic, creditor_holder, communication,
			journal_id, company_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(p.Direction), string(p.State), string(p.Method), p.Amount.String(),
		p.CreditorName, p.CreditorBank.AccountNumber, p.CreditorBank.BIC,
		p.CreditorBank.HolderName, p.Communication, p.Journal.ID, p.Company.ID)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return res.LastInsertId()
}

// ---------------------------------------------------------------------------
// Payment reads
// ---------------------------------------------------------------------------

const paymentSelect = `
	SELECT p.id, p.direction, p.state, p.method, p.amount,
	       p.creditor_name, p.creditor_account, p.creditor_bic,
	       p.creditor_holder, p.communication,
	       j.id, j.code, j.account_number, j.bic, j.holder,
	       c.id, c.name, c.vat
	FROM payments p
	JOIN journals j ON j.id = p.journal_id
	JOIN companies c ON c.id = p.company_id
`

// PaymentsByIDs resolves ids into payment snapshots, preserving the
// selection order. A repeated id resolves once, at its first position: a
// selection is a set, and a duplicate must not double-count a payment into
// a batch. An unknown id is an error: a selection that names a record that
// does not exist is a caller bug, not an empty filter result.
func (s *Store) PaymentsByIDs(ctx context.Context, ids []int64) ([]payment.Payment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	query := paymentSelect + " WHERE p.id IN (" + placeholders[:len(placeholders)-1] + ")"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]payment.Payment, len(ids))
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]payment.Payment, 0, len(ids))
	taken := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if taken[id] {
			continue
		}
		taken[id] = true
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("payment %d not found", id)
		}
		out = append(out, p)
	}
	return out, nil
}

func scanPayment(rows *sql.Rows) (payment.Payment, error) {
	var p payment.Payment
	var direction, state, method, amount string
	err := rows.Scan(&p.ID, &direction, &state, &method, &amount,
		&p.CreditorName, &p.CreditorBank.AccountNumber, &p.CreditorBank.BIC,
		&p.CreditorBank.HolderName, &p.Communication,
		&p.Journal.ID, &p.Journal.Code, &p.Journal.BankAccount.AccountNumber,
		&p.Journal.BankAccount.BIC, &p.Journal.BankAccount.HolderName,
		&p.Company.ID, &p.Company.Name, &p.Company.VAT)
	if err != nil {
		return payment.Payment{}, fmt.Errorf("scan payment: %w", err)
	}
	p.Direction = payment.Direction(direction)
	p.State = payment.State(state)
	p.Method = payment.Method(method)
	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return payment.Payment{}, fmt.Errorf("payment %d: bad amount %q: %w", p.ID, amount, err)
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// Export transaction
// ---------------------------------------------------------------------------

// ExportTx is the write surface of one export run. All of its effects are
// applied atomically by RunExport or not at all.
type ExportTx struct {
	ctx context.Context
	tx  *sql.Tx
}

// RunExport runs fn inside a single write transaction. If fn returns an
// error the transaction rolls back and nothing of the run survives.
func (s *Store) RunExport(ctx context.Context, fn func(*ExportTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export tx: %w", err)
	}
	if err := fn(&ExportTx{ctx: ctx, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}
	return nil
}

// CountReferences counts previously issued references whose name starts
// with exactly prefix. The comparison is case-sensitive, which LIKE is not
// under SQLite's default collation. substr counts characters, not bytes,
// so the prefix length must be a rune count.
func (t *ExportTx) CountReferences(prefix string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(t.ctx,
		"SELECT COUNT(*) FROM sepa_files WHERE substr(name, 1, ?) = ?",
		utf8.RuneCountInString(prefix), prefix).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count references: %w", err)
	}
	return n, nil
}

// CreateArtifact inserts a sepa_files row and its payment back-references,
// and fills in the artifact's id.
func (t *ExportTx) CreateArtifact(a *payment.Artifact) error {
	res, err := t.tx.ExecContext(t.ctx,
		"INSERT INTO sepa_files (name, created_at, xml_file) VALUES (?, ?, ?)",
		a.Name, a.CreatedAt.UTC().Format(time.RFC3339), a.XML)
	if err != nil {
		return fmt.Errorf("insert sepa file %q: %w", a.Name, err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	for _, pid := range a.PaymentIDs {
		if _, err := t.tx.ExecContext(t.ctx,
			"INSERT INTO sepa_file_payments (sepa_file_id, payment_id) VALUES (?, ?)",
			a.ID, pid); err != nil {
			return fmt.Errorf("link payment %d to %q: %w", pid, a.Name, err)
		}
	}
	return nil
}

// MarkSent transitions the given payments to state 'sent'.
func (t *ExportTx) MarkSent(ids []int64) error {
	for _, id := range ids {
		res, err := t.tx.ExecContext(t.ctx,
			"UPDATE payments SET state = ? WHERE id = ?", string(payment.StateSent), id)
		if err != nil {
			return fmt.Errorf("mark payment %d sent: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("mark payment %d sent: no such payment", id)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Artifact reads
// ---------------------------------------------------------------------------

// ListArtifacts returns all persisted SEPA files, most recent first,
// payment back-references included.
func (s *Store) ListArtifacts(ctx context.Context) ([]payment.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at, xml_file
		FROM sepa_files
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sepa files: %w", err)
	}
	defer rows.Close()

	var out []payment.Artifact
	for rows.Next() {
		var a payment.Artifact
		var created string
		if err := rows.Scan(&a.ID, &a.Name, &created, &a.XML); err != nil {
			return nil, fmt.Errorf("scan sepa file: %w", err)
		}
		a.CreatedAt, err = time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, fmt.Errorf("sepa file %q: bad timestamp %q: %w", a.Name, created, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		ids, err := s.artifactPaymentIDs(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].PaymentIDs = ids
	}
	return out, nil
}

func (s *Store) artifactPaymentIDs(ctx context.Context, fileID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payment_id FROM sepa_file_payments WHERE sepa_file_id = ? ORDER BY payment_id", fileID)
	if err != nil {
		return nil, fmt.Errorf("query file payments: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
