package sepa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbatch/sepa-export/internal/payment"
	"github.com/finbatch/sepa-export/internal/sanitize"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer("../../templates", "EUR")
	require.NoError(t, err)
	return r
}

func renderTime() time.Time {
	return time.Date(2024, 5, 1, 14, 30, 15, 0, time.UTC)
}

func TestRenderDocument(t *testing.T) {
	r := testRenderer(t)
	j := testJournal(1, "BNK1")
	batches := Partition([]payment.Payment{
		eligiblePayment(1, j, "100.00"),
		eligiblePayment(2, j, "200.00"),
	})
	require.Len(t, batches, 1)

	out, err := r.Render(batches[0], "BNK1/20240501/001", renderTime())
	require.NoError(t, err)

	xml := string(out)
	assert.Contains(t, xml, `<Document xmlns="urn:iso:std:iso:20022:tech:xsd:pain.001.001.03">`)
	assert.Contains(t, xml, "<MsgId>BNK1/20240501/001</MsgId>")
	assert.Contains(t, xml, "<PmtInfId>BNK1/20240501/001</PmtInfId>")
	assert.Contains(t, xml, "<CreDtTm>2024-05-01T14:30:15</CreDtTm>")
	assert.Contains(t, xml, "<ReqdExctnDt>2024-05-01</ReqdExctnDt>")
	assert.Contains(t, xml, "<NbOfTxs>2</NbOfTxs>")
	assert.Contains(t, xml, "<CtrlSum>300.00</CtrlSum>")
	assert.Contains(t, xml, "<PmtMtd>TRF</PmtMtd>")
	assert.Contains(t, xml, "<IBAN>BE71096123456769</IBAN>")
	assert.Contains(t, xml, "<BIC>KREDBEBB</BIC>")
	assert.Contains(t, xml, `<InstdAmt Ccy="EUR">100.00</InstdAmt>`)
	assert.Contains(t, xml, `<InstdAmt Ccy="EUR">200.00</InstdAmt>`)
	assert.Contains(t, xml, "<EndToEndId>PMT/1</EndToEndId>")
	assert.Contains(t, xml, "<EndToEndId>PMT/2</EndToEndId>")
}

func TestRenderEscapesUserText(t *testing.T) {
	r := testRenderer(t)
	j := testJournal(1, "BNK1")
	p := eligiblePayment(1, j, "10.00")
	p.CreditorName = `Müller & Söhne <GmbH> "quoted"`
	p.Communication = "invoice 42 & 43"
	p.Company.Name = "Smith & Wesson's"

	out, err := r.Render(Partition([]payment.Payment{p})[0], "BNK1/20240501/001", renderTime())
	require.NoError(t, err)

	xml := string(out)
	assert.Contains(t, xml, "Müller &amp; Söhne &lt;GmbH&gt; &quot;quoted&quot;")
	assert.Contains(t, xml, "<Ustrd>invoice 42 &amp; 43</Ustrd>")
	assert.Contains(t, xml, "Smith &amp; Wesson&apos;s")
	assert.NotContains(t, xml, "Müller & Söhne")
}

func TestRenderEscapesBICs(t *testing.T) {
	r := testRenderer(t)
	j := testJournal(1, "BNK1")
	j.BankAccount.BIC = "KRED&BEBB"
	p := eligiblePayment(1, j, "10.00")
	p.CreditorBank.BIC = "GKCC<BEBB"

	out, err := r.Render(Partition([]payment.Payment{p})[0], "BNK1/20240501/001", renderTime())
	require.NoError(t, err)

	xml := string(out)
	assert.Contains(t, xml, "<BIC>KRED&amp;BEBB</BIC>")
	assert.Contains(t, xml, "<BIC>GKCC&lt;BEBB</BIC>")
}

func TestRenderSanitizesAccountNumbers(t *testing.T) {
	r := testRenderer(t)
	j := testJournal(1, "BNK1")
	j.BankAccount.AccountNumber = "be71 0961 2345 6769"
	p := eligiblePayment(1, j, "10.00")
	p.CreditorBank.AccountNumber = "be68-5390.0754-7034"

	out, err := r.Render(Partition([]payment.Payment{p})[0], "BNK1/20240501/001", renderTime())
	require.NoError(t, err)

	xml := string(out)
	assert.Contains(t, xml, "<IBAN>BE71096123456769</IBAN>")
	assert.Contains(t, xml, "<IBAN>BE68539007547034</IBAN>")
}

func TestRenderRejectsMalformedAccountNumber(t *testing.T) {
	r := testRenderer(t)
	j := testJournal(1, "BNK1")
	p := eligiblePayment(1, j, "10.00")
	p.CreditorBank.AccountNumber = "BE68/5390"

	_, err := r.Render(Partition([]payment.Payment{p})[0], "BNK1/20240501/001", renderTime())
	var invalid *sanitize.InvalidAccountNumberError
	require.ErrorAs(t, err, &invalid)
}

func TestRenderCompanyVAT(t *testing.T) {
	r := testRenderer(t)
	j := testJournal(1, "BNK1")

	withVAT := eligiblePayment(1, j, "10.00")
	withVAT.Company.VAT = "BE 0123.456.789"
	out, err := r.Render(Partition([]payment.Payment{withVAT})[0], "BNK1/20240501/001", renderTime())
	require.NoError(t, err)
	assert.Contains(t, string(out), "<Id>0123456789</Id>")

	withoutVAT := eligiblePayment(2, j, "10.00")
	withoutVAT.Company.VAT = ""
	out, err = r.Render(Partition([]payment.Payment{withoutVAT})[0], "BNK1/20240501/002", renderTime())
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<OrgId>")
}

func TestRenderOmitsEmptyRemittance(t *testing.T) {
	r := testRenderer(t)
	j := testJournal(1, "BNK1")
	p := eligiblePayment(1, j, "10.00")
	p.Communication = ""

	out, err := r.Render(Partition([]payment.Payment{p})[0], "BNK1/20240501/001", renderTime())
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<RmtInf>")
}

func TestRenderDeterministic(t *testing.T) {
	r := testRenderer(t)
	j := testJournal(1, "BNK1")
	b := Partition([]payment.Payment{
		eligiblePayment(1, j, "100.00"),
		eligiblePayment(2, j, "200.00"),
	})[0]

	first, err := r.Render(b, "BNK1/20240501/001", renderTime())
	require.NoError(t, err)
	second, err := r.Render(b, "BNK1/20240501/001", renderTime())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNewRendererMissingTemplate(t *testing.T) {
	_, err := NewRenderer(t.TempDir(), "EUR")
	require.Error(t, err)
}
