// =============================================================================
// SEPA Export - Document Renderer
// =============================================================================
//
// Renders one batch into a pain.001.001.03 credit transfer initiation
// document. Rendering is template-driven: the XML structure lives in
// sepa_template.xml, which is loaded once from the template directory and
// parameterized with the batch header and one block per transaction.
//
// Every user-controlled string (company name, creditor name, remittance
// text) passes through the xml escape func before it reaches the document.
// The renderer itself is pure: same batch, reference, and timestamp always
// produce the same bytes, and nothing is written anywhere.
//
// =============================================================================

package sepa

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbatch/sepa-export/internal/sanitize"
)

// TemplateName is the file name the renderer resolves inside the template
// directory.
const TemplateName = "sepa_template.xml"

// Renderer renders batches into SEPA documents.
type Renderer struct {
	tmpl     *template.Template
	currency string
}

// NewRenderer loads sepa_template.xml from dir. currency is the ISO code
// stamped on every instructed amount (the engine is single-currency).
func NewRenderer(dir, currency string) (*Renderer, error) {
	tmpl, err := template.New(TemplateName).Funcs(templateFuncs()).ParseFiles(filepath.Join(dir, TemplateName))
	if err != nil {
		return nil, fmt.Errorf("load sepa template: %w", err)
	}
	return &Renderer{tmpl: tmpl, currency: currency}, nil
}

// documentData is the root template context.
type documentData struct {
	Reference     string
	CreatedAt     string
	ExecutionDate string
	Count         int
	Total         decimal.Decimal
	CompanyName   string
	CompanyVAT    string
	DebtorIBAN    string
	DebtorBIC     string
	Currency      string
	Transactions  []transactionData
}

// transactionData is the per-payment template context.
type transactionData struct {
	EndToEndID   string
	Amount       decimal.Decimal
	CreditorName string
	IBAN         string
	BIC          string
	Remittance   string
}

// Render produces the document for one batch under the given reference and
// creation time. Account numbers are sanitized here; a malformed one fails
// the render (and with it the whole run).
func (r *Renderer) Render(b Batch, reference string, now time.Time) ([]byte, error) {
	debtorIBAN, err := sanitize.AccountNumber(b.Journal.BankAccount.AccountNumber)
	if err != nil {
		return nil, err
	}

	data := documentData{
		Reference:     reference,
		CreatedAt:     now.Format("2006-01-02T15:04:05"),
		ExecutionDate: now.Format("2006-01-02"),
		Count:         b.Count,
		Total:         b.Total,
		CompanyName:   b.Company.Name,
		CompanyVAT:    sanitize.Digits(b.Company.VAT),
		DebtorIBAN:    debtorIBAN,
		DebtorBIC:     b.Journal.BankAccount.BIC,
		Currency:      r.currency,
	}

	for _, p := range b.Payments {
		iban, err := sanitize.AccountNumber(p.CreditorBank.AccountNumber)
		if err != nil {
			return nil, err
		}
		data.Transactions = append(data.Transactions, transactionData{
			EndToEndID:   fmt.Sprintf("PMT/%d", p.ID),
			Amount:       p.Amount,
			CreditorName: p.CreditorName,
			IBAN:         iban,
			BIC:          p.CreditorBank.BIC,
			Remittance:   p.Communication,
		})
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, TemplateName, data); err != nil {
		return nil, fmt.Errorf("render sepa template: %w", err)
	}
	return buf.Bytes(), nil
}

// templateFuncs returns the func map available inside sepa_template.xml.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"xml": escapeXML,
		"amt": func(d decimal.Decimal) string { return d.StringFixed(2) },
	}
}

// escapeXML escapes the five XML special characters in user-controlled text.
func escapeXML(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
