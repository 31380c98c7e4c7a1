package cii_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fiscal-engine/internal/export"
	"github.com/rezonia/fiscal-engine/internal/export/cii"
	"github.com/rezonia/fiscal-engine/internal/export/exporttest"
	"github.com/rezonia/fiscal-engine/internal/model"
)

const (
	agreement  = "rsm:SupplyChainTradeTransaction/ram:ApplicableHeaderTradeAgreement"
	settlement = "rsm:SupplyChainTradeTransaction/ram:ApplicableHeaderTradeSettlement"
	summation  = settlement + "/ram:SpecifiedTradeSettlementHeaderMonetarySummation"
)

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

func TestEncode_Invoice(t *testing.T) {
	data, err := cii.New("").Encode(exporttest.Invoice(1))
	require.NoError(t, err)

	root := parse(t, data)
	assert.Equal(t, "CrossIndustryInvoice", root.Tag)
	assert.Equal(t, export.NamespaceCII, root.NamespaceURI())

	assert.Equal(t, cii.GuidelineEN16931,
		text(t, root, "rsm:ExchangedDocumentContext/ram:GuidelineSpecifiedDocumentContextParameter/ram:ID"))
	assert.Equal(t, "F-2026-001", text(t, root, "rsm:ExchangedDocument/ram:ID"))
	assert.Equal(t, "380", text(t, root, "rsm:ExchangedDocument/ram:TypeCode"))

	issue := root.FindElement("rsm:ExchangedDocument/ram:IssueDateTime/udt:DateTimeString")
	require.NotNil(t, issue)
	assert.Equal(t, "20260315", issue.Text())
	assert.Equal(t, "102", issue.SelectAttrValue("format", ""))

	assert.Equal(t, "Atelier Lumière SARL", text(t, root, agreement+"/ram:SellerTradeParty/ram:Name"))
	assert.Equal(t, "LU12345678", text(t, root, agreement+"/ram:SellerTradeParty/ram:SpecifiedTaxRegistration/ram:ID"))
	assert.Equal(t, "B123456", text(t, root, agreement+"/ram:SellerTradeParty/ram:SpecifiedLegalOrganization/ram:ID"))
	assert.Equal(t, "Acme Luxembourg SA", text(t, root, agreement+"/ram:BuyerTradeParty/ram:Name"))

	assert.Equal(t, "EUR", text(t, root, settlement+"/ram:InvoiceCurrencyCode"))
	assert.Equal(t, "LU280019400644750000",
		text(t, root, settlement+"/ram:SpecifiedTradeSettlementPaymentMeans/ram:PayeePartyCreditorFinancialAccount/ram:IBANID"))
	assert.Equal(t, "20260414",
		text(t, root, settlement+"/ram:SpecifiedTradePaymentTerms/ram:DueDateDateTime/udt:DateTimeString"))

	taxes := root.FindElements(settlement + "/ram:ApplicableTradeTax")
	require.Len(t, taxes, 2)
	assert.Equal(t, "34.00", taxes[0].FindElement("ram:CalculatedAmount").Text())
	assert.Equal(t, "S", taxes[0].FindElement("ram:CategoryCode").Text())
	assert.Equal(t, "8", taxes[1].FindElement("ram:RateApplicablePercent").Text())

	assert.Equal(t, "237.50", text(t, root, summation+"/ram:TaxBasisTotalAmount"))
	assert.Equal(t, "37.00", text(t, root, summation+"/ram:TaxTotalAmount"))
	assert.Equal(t, "274.50", text(t, root, summation+"/ram:GrandTotalAmount"))
	assert.Equal(t, "274.50", text(t, root, summation+"/ram:DuePayableAmount"))
	assert.Equal(t, "EUR", root.FindElement(summation+"/ram:GrandTotalAmount").SelectAttrValue("currencyID", ""))
	assert.Nil(t, root.FindElement(settlement+"/ram:InvoiceReferencedDocument"))

	lines := root.FindElements("rsm:SupplyChainTradeTransaction/ram:IncludedSupplyChainTradeLineItem")
	require.Len(t, lines, 2)
	assert.Equal(t, "1", lines[0].FindElement("ram:AssociatedDocumentLineDocument/ram:LineID").Text())
	assert.Equal(t, "Consulting", lines[0].FindElement("ram:SpecifiedTradeProduct/ram:Name").Text())
	qty := lines[0].FindElement("ram:SpecifiedLineTradeDelivery/ram:BilledQuantity")
	require.NotNil(t, qty)
	assert.Equal(t, "2", qty.Text())
	assert.Equal(t, "HUR", qty.SelectAttrValue("unitCode", ""))
	assert.Equal(t, "37.50",
		lines[1].FindElement("ram:SpecifiedLineTradeSettlement/ram:SpecifiedTradeSettlementLineMonetarySummation/ram:LineTotalAmount").Text())
}

func value(t *testing.T, el *etree.Element) decimal.Decimal {
	t.Helper()
	require.NotNil(t, el)
	d, err := decimal.NewFromString(el.Text())
	require.NoError(t, err)
	return d
}

func TestEncode_TotalsReconcile(t *testing.T) {
	tests := []struct {
		name     string
		doc      *model.Document
		taxTotal string
		lineSum  string
	}{
		{"mixed rates", exporttest.MixedRates(1), "1.73", "10.53"},
		{"fractional quantity", exporttest.FractionalQuantity(1), "1.70", "10.02"},
		{"credit note of fractional quantity", exporttest.CreditNote(exporttest.FractionalQuantity(1), 1), "1.70", "10.02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := cii.New("").Encode(tt.doc)
			require.NoError(t, err)
			root := parse(t, data)

			lineSum := decimal.Zero
			for _, l := range root.FindElements("rsm:SupplyChainTradeTransaction/ram:IncludedSupplyChainTradeLineItem") {
				lineSum = lineSum.Add(value(t, l.FindElement(
					"ram:SpecifiedLineTradeSettlement/ram:SpecifiedTradeSettlementLineMonetarySummation/ram:LineTotalAmount")))
			}
			taxSum, baseSum := decimal.Zero, decimal.Zero
			for _, tax := range root.FindElements(settlement + "/ram:ApplicableTradeTax") {
				taxSum = taxSum.Add(value(t, tax.FindElement("ram:CalculatedAmount")))
				baseSum = baseSum.Add(value(t, tax.FindElement("ram:BasisAmount")))
			}

			lineTotal := value(t, root.FindElement(summation+"/ram:LineTotalAmount"))
			basis := value(t, root.FindElement(summation+"/ram:TaxBasisTotalAmount"))
			taxTotal := value(t, root.FindElement(summation+"/ram:TaxTotalAmount"))
			grand := value(t, root.FindElement(summation+"/ram:GrandTotalAmount"))

			assert.Equal(t, tt.lineSum, lineSum.StringFixed(2))
			assert.True(t, lineTotal.Equal(lineSum), "line total %s, lines sum to %s", lineTotal, lineSum)
			assert.True(t, baseSum.Equal(basis), "basis amounts %s, tax basis total %s", baseSum, basis)
			assert.Equal(t, tt.taxTotal, taxTotal.StringFixed(2))
			assert.True(t, taxTotal.Equal(taxSum), "tax total %s, taxes sum to %s", taxTotal, taxSum)
			assert.True(t, grand.Equal(basis.Add(taxTotal)), "grand total %s != %s + %s", grand, basis, taxTotal)
		})
	}
}

func TestEncode_Deterministic(t *testing.T) {
	doc := exporttest.ReverseCharge(3)
	enc := cii.New("")

	first, err := enc.Encode(doc)
	require.NoError(t, err)
	second, err := enc.Encode(doc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEncode_CreditNote(t *testing.T) {
	inv := exporttest.Invoice(1)
	data, err := cii.New("").Encode(exporttest.CreditNote(inv, 1))
	require.NoError(t, err)

	root := parse(t, data)
	assert.Equal(t, "381", text(t, root, "rsm:ExchangedDocument/ram:TypeCode"))
	assert.Equal(t, "F-2026-001", text(t, root, settlement+"/ram:InvoiceReferencedDocument/ram:IssuerAssignedID"))
	assert.Equal(t, "274.50", text(t, root, summation+"/ram:GrandTotalAmount"))
	assert.Nil(t, root.FindElement(settlement+"/ram:SpecifiedTradePaymentTerms"))
	assert.NotContains(t, string(data), ">-")
}

func TestEncode_ReverseCharge(t *testing.T) {
	data, err := cii.New("").Encode(exporttest.ReverseCharge(2))
	require.NoError(t, err)

	root := parse(t, data)
	note := root.FindElement("rsm:ExchangedDocument/ram:IncludedNote")
	require.NotNil(t, note)
	assert.Equal(t, "AAK", note.FindElement("ram:SubjectCode").Text())
	assert.Contains(t, note.FindElement("ram:Content").Text(), "Autoliquidation")

	tax := root.FindElement(settlement + "/ram:ApplicableTradeTax")
	require.NotNil(t, tax)
	assert.Equal(t, "AE", tax.FindElement("ram:CategoryCode").Text())
	assert.Equal(t, "VATEX-EU-AE", tax.FindElement("ram:ExemptionReasonCode").Text())
	assert.Equal(t, "0.00", tax.FindElement("ram:CalculatedAmount").Text())
	assert.Equal(t, "DE123456789", text(t, root, agreement+"/ram:BuyerTradeParty/ram:SpecifiedTaxRegistration/ram:ID"))
}

func TestEncode_Guideline(t *testing.T) {
	data, err := cii.New("urn:factur-x.eu:1p0:basic").Encode(exporttest.Invoice(1))
	require.NoError(t, err)
	assert.Equal(t, "urn:factur-x.eu:1p0:basic",
		text(t, parse(t, data), "rsm:ExchangedDocumentContext/ram:GuidelineSpecifiedDocumentContextParameter/ram:ID"))
}

func TestEncode_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		doc   func() *model.Document
		field string
	}{
		{"draft", exporttest.Draft, "status"},
		{"no lines", func() *model.Document {
			d := exporttest.Invoice(1)
			d.Items = nil
			return d
		}, "items"},
		{"buyer without country", func() *model.Document {
			d := exporttest.Invoice(1)
			d.BuyerSnapshot.Address.CountryCode = ""
			return d
		}, "buyer.address.country_code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cii.New("").Encode(tt.doc())
			var encErr *model.EncodeError
			require.True(t, errors.As(err, &encErr), "got %v", err)
			assert.Equal(t, tt.field, encErr.Field)
			assert.Equal(t, "facturx", encErr.Format)
		})
	}
}

func TestEmbedPDF_RoundTrip(t *testing.T) {
	xmlData, err := cii.New("").Encode(exporttest.Invoice(1))
	require.NoError(t, err)

	var hybrid bytes.Buffer
	require.NoError(t, cii.EmbedPDF(bytes.NewReader(exporttest.MinimalPDF()), xmlData, &hybrid))
	assert.True(t, bytes.HasPrefix(hybrid.Bytes(), []byte("%PDF")))

	extracted, err := cii.ExtractXML(bytes.NewReader(hybrid.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, xmlData, extracted)
}

func TestExtractXML_NoAttachment(t *testing.T) {
	_, err := cii.ExtractXML(bytes.NewReader(exporttest.MinimalPDF()))
	assert.Error(t, err)
}

func TestEmbedPDF_RejectsNonPDF(t *testing.T) {
	var out bytes.Buffer
	err := cii.EmbedPDF(bytes.NewReader([]byte("not a pdf")), []byte("<x/>"), &out)
	assert.Error(t, err)
}

func TestExtractXML_RejectsNonPDF(t *testing.T) {
	_, err := cii.ExtractXML(bytes.NewReader([]byte("not a pdf")))
	assert.Error(t, err)
}
