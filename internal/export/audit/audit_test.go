package audit_test

import (
	"errors"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fiscal-engine/internal/export"
	"github.com/rezonia/fiscal-engine/internal/export/audit"
	"github.com/rezonia/fiscal-engine/internal/export/exporttest"
	"github.com/rezonia/fiscal-engine/internal/model"
)

var march = audit.Period{
	Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
}

func newEncoder() *audit.Encoder {
	return audit.New(audit.Options{
		SoftwareCompany: "Rezonia",
		SoftwareID:      "fiscal-engine",
		SoftwareVersion: "1.0.0",
	}, nil)
}

func parse(t *testing.T, data []byte) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(data))
	require.NotNil(t, doc.Root())
	return doc.Root()
}

func text(t *testing.T, root *etree.Element, path string) string {
	t.Helper()
	el := root.FindElement(path)
	require.NotNil(t, el, "missing %s", path)
	return el.Text()
}

func TestEncode_SingleDocument(t *testing.T) {
	data, err := newEncoder().Encode(exporttest.Invoice(1))
	require.NoError(t, err)

	root := parse(t, data)
	assert.Equal(t, "AuditFile", root.Tag)
	assert.Equal(t, export.NamespaceAudit, root.NamespaceURI())

	assert.Equal(t, "2.01", text(t, root, "Header/AuditFileVersion"))
	assert.Equal(t, "LU", text(t, root, "Header/AuditFileCountry"))
	assert.Equal(t, "2026-03-15", text(t, root, "Header/AuditFileDateCreated"))
	assert.Equal(t, "Rezonia", text(t, root, "Header/SoftwareCompanyName"))
	assert.Equal(t, "Atelier Lumière SARL", text(t, root, "Header/Company/Name"))
	assert.Equal(t, "LU12345678", text(t, root, "Header/Company/TaxRegistration/TaxRegistrationNumber"))
	assert.Equal(t, "2026-03-15", text(t, root, "Header/SelectionCriteria/SelectionStartDate"))
	assert.Equal(t, "2026-03-15", text(t, root, "Header/SelectionCriteria/SelectionEndDate"))

	assert.Equal(t, "1", text(t, root, "SourceDocuments/SalesInvoices/NumberOfEntries"))
	assert.Equal(t, "237.50", text(t, root, "SourceDocuments/SalesInvoices/TotalCredit"))
	assert.Equal(t, "0.00", text(t, root, "SourceDocuments/SalesInvoices/TotalDebit"))

	inv := root.FindElement("SourceDocuments/SalesInvoices/Invoice")
	require.NotNil(t, inv)
	assert.Equal(t, "F-2026-001", inv.FindElement("InvoiceNo").Text())
	assert.Equal(t, "380", inv.FindElement("InvoiceType").Text())
	assert.Equal(t, exporttest.ClientID.String(), inv.FindElement("CustomerInfo/CustomerID").Text())
	assert.Equal(t, "274.50", inv.FindElement("DocumentTotals/GrossTotal").Text())
	assert.Nil(t, inv.FindElement("References"))
}

func TestEncode_RejectsDraft(t *testing.T) {
	_, err := newEncoder().Encode(exporttest.Draft())
	var encErr *model.EncodeError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, "status", encErr.Field)
	assert.Equal(t, "faia", encErr.Format)
}

func TestEncodePeriod_SignedAmountsAndSummary(t *testing.T) {
	inv1 := exporttest.Invoice(1)
	inv2 := exporttest.ReverseCharge(2)
	cn := exporttest.CreditNote(inv1, 1)
	draft := exporttest.Draft()

	data, summary, err := newEncoder().EncodePeriod(nil, []*model.Document{cn, inv2, draft, inv1}, march)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Documents)
	assert.Equal(t, 2, summary.Invoices)
	assert.Equal(t, 1, summary.CreditNotes)
	assert.Equal(t, "1200.00", summary.TotalNet.StringFixed(2))
	assert.Equal(t, "0.00", summary.TotalTax.StringFixed(2))
	assert.Equal(t, "1200.00", summary.TotalGross.StringFixed(2))
	assert.True(t, summary.SequenceValid)
	assert.Empty(t, summary.Gaps)
	assert.Equal(t, "2026-03-01", summary.Start)
	assert.Equal(t, "2026-03-31", summary.End)

	root := parse(t, data)
	assert.Equal(t, "2026-03-31", text(t, root, "Header/AuditFileDateCreated"))
	assert.Equal(t, "3", text(t, root, "SourceDocuments/SalesInvoices/NumberOfEntries"))
	assert.Equal(t, "237.50", text(t, root, "SourceDocuments/SalesInvoices/TotalDebit"))
	assert.Equal(t, "1437.50", text(t, root, "SourceDocuments/SalesInvoices/TotalCredit"))

	invoices := root.FindElements("SourceDocuments/SalesInvoices/Invoice")
	require.Len(t, invoices, 3)
	assert.Equal(t, "AV-2026-001", invoices[0].FindElement("InvoiceNo").Text())
	assert.Equal(t, "381", invoices[0].FindElement("InvoiceType").Text())
	assert.Equal(t, "-274.50", invoices[0].FindElement("DocumentTotals/GrossTotal").Text())
	assert.Equal(t, "-37.00", invoices[0].FindElement("DocumentTotals/TaxPayable").Text())
	assert.Equal(t, "F-2026-001", invoices[0].FindElement("References/Reference").Text())
	assert.Equal(t, "F-2026-001", invoices[1].FindElement("InvoiceNo").Text())
	assert.Equal(t, "F-2026-002", invoices[2].FindElement("InvoiceNo").Text())

	// customers are keyed by client id
	assert.Len(t, root.FindElements("MasterFiles/Customers/Customer"), 1)
}

func TestEncodePeriod_ReportsGaps(t *testing.T) {
	docs := []*model.Document{exporttest.Invoice(1), exporttest.Invoice(3)}

	_, summary, err := newEncoder().EncodePeriod(exporttest.Seller(), docs, march)
	require.NoError(t, err)
	assert.False(t, summary.SequenceValid)
	assert.Equal(t, []string{"F-2026-002"}, summary.Gaps)
}

func TestEncodePeriod_OrdersBySequence(t *testing.T) {
	docs := []*model.Document{exporttest.Invoice(1000), exporttest.Invoice(999), exporttest.Invoice(1001)}

	data, summary, err := newEncoder().EncodePeriod(exporttest.Seller(), docs, march)
	require.NoError(t, err)
	assert.True(t, summary.SequenceValid)

	var numbers []string
	for _, inv := range parse(t, data).FindElements("SourceDocuments/SalesInvoices/Invoice") {
		numbers = append(numbers, inv.FindElement("InvoiceNo").Text())
	}
	assert.Equal(t, []string{"F-2026-999", "F-2026-1000", "F-2026-1001"}, numbers)
}

func TestEncodePeriod_Deterministic(t *testing.T) {
	docs := []*model.Document{exporttest.Invoice(2), exporttest.Invoice(1)}
	enc := newEncoder()

	first, _, err := enc.EncodePeriod(nil, docs, march)
	require.NoError(t, err)
	second, _, err := enc.EncodePeriod(nil, []*model.Document{docs[1], docs[0]}, march)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEncodePeriod_Empty(t *testing.T) {
	data, summary, err := newEncoder().EncodePeriod(exporttest.Seller(), nil, march)
	require.NoError(t, err)
	assert.Zero(t, summary.Documents)
	assert.True(t, summary.SequenceValid)

	root := parse(t, data)
	assert.Equal(t, "0", text(t, root, "SourceDocuments/SalesInvoices/NumberOfEntries"))
	assert.Equal(t, "EUR", text(t, root, "Header/DefaultCurrencyCode"))
}

func TestEncodePeriod_Rejects(t *testing.T) {
	t.Run("no company", func(t *testing.T) {
		_, _, err := newEncoder().EncodePeriod(nil, nil, march)
		var encErr *model.EncodeError
		require.True(t, errors.As(err, &encErr))
		assert.Equal(t, "company", encErr.Field)
	})

	t.Run("credit note without reference", func(t *testing.T) {
		cn := exporttest.CreditNote(exporttest.Invoice(1), 1)
		cn.CreditedNumber = ""
		_, _, err := newEncoder().EncodePeriod(nil, []*model.Document{cn}, march)
		var encErr *model.EncodeError
		require.True(t, errors.As(err, &encErr))
		assert.Equal(t, "credited_number", encErr.Field)
	})

	t.Run("buyer without name", func(t *testing.T) {
		inv := exporttest.Invoice(1)
		inv.BuyerSnapshot.Name = ""
		_, _, err := newEncoder().EncodePeriod(nil, []*model.Document{inv}, march)
		var encErr *model.EncodeError
		require.True(t, errors.As(err, &encErr))
		assert.Equal(t, "buyer.name", encErr.Field)
	})
}

func TestPeriodContains(t *testing.T) {
	assert.True(t, march.Contains(time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC)))
	assert.True(t, march.Contains(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, march.Contains(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, march.Contains(time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)))
}
