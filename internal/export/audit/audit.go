// Package audit encodes finalized documents into the national audit file
// (FAIA, built on the OECD SAF-T 2.0 schema). Amounts keep their sign:
// credit notes appear with negative totals.
package audit

import (
	"encoding/xml"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/fiscal-engine/internal/codelist"
	money "github.com/rezonia/fiscal-engine/internal/decimal"
	"github.com/rezonia/fiscal-engine/internal/export"
	"github.com/rezonia/fiscal-engine/internal/model"
	"github.com/rezonia/fiscal-engine/internal/validator"
)

const (
	auditFileVersion   = "2.01"
	taxAccountingBasis = "Invoice"
	format             = string(export.FormatAudit)
)

// Options fills the audit file header
type Options struct {
	SoftwareCompany string
	SoftwareID      string
	SoftwareVersion string
	// Country defaults to the seller's country
	Country string
}

// Period bounds a period export. Both dates are inclusive days.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls on a day of the period
func (p Period) Contains(t time.Time) bool {
	day := t.Format("2006-01-02")
	return day >= p.Start.Format("2006-01-02") && day <= p.End.Format("2006-01-02")
}

// PeriodSummary accompanies a period export
type PeriodSummary struct {
	Start         string          `json:"start"`
	End           string          `json:"end"`
	Documents     int             `json:"documents"`
	Invoices      int             `json:"invoices"`
	CreditNotes   int             `json:"credit_notes"`
	TotalNet      decimal.Decimal `json:"total_net"`
	TotalTax      decimal.Decimal `json:"total_tax"`
	TotalGross    decimal.Decimal `json:"total_gross"`
	SequenceValid bool            `json:"sequence_valid"`
	Gaps          []string        `json:"gaps,omitempty"`
	Duplicates    []string        `json:"duplicates,omitempty"`
}

// Encoder produces audit files
type Encoder struct {
	opts    Options
	checker *validator.Validator
}

// New creates an encoder. A nil checker uses the default numbering format
// for the sequence check of period exports.
func New(opts Options, checker *validator.Validator) *Encoder {
	if checker == nil {
		checker = validator.New()
	}
	return &Encoder{opts: opts, checker: checker}
}

// Format returns export.FormatAudit
func (e *Encoder) Format() export.Format {
	return export.FormatAudit
}

// Encode wraps a single document in an audit envelope covering its issue day
func (e *Encoder) Encode(doc *model.Document) ([]byte, error) {
	if err := export.RequireFinalized(doc, export.FormatAudit); err != nil {
		return nil, err
	}
	day := *doc.IssuedAt
	data, _, err := e.EncodePeriod(doc.SellerSnapshot, []*model.Document{doc}, Period{Start: day, End: day})
	return data, err
}

// EncodePeriod produces the envelope for every finalized document in docs.
// company is the header identity; nil takes the seller of the first document.
// Drafts are skipped. The summary carries the counts, the signed totals and
// whether the numbering of the included documents is gapless.
func (e *Encoder) EncodePeriod(company *model.Party, docs []*model.Document, period Period) ([]byte, *PeriodSummary, error) {
	included := make([]*model.Document, 0, len(docs))
	for _, doc := range docs {
		if !doc.IsFinalized() {
			continue
		}
		if err := export.RequireFinalized(doc, export.FormatAudit); err != nil {
			return nil, nil, err
		}
		included = append(included, doc)
	}
	numbers := e.checker.NumberFormat()
	sort.SliceStable(included, func(i, j int) bool {
		if included[i].Type != included[j].Type {
			return included[i].Type < included[j].Type
		}
		return numbers.Compare(included[i].Number, included[j].Number) < 0
	})

	if company == nil && len(included) > 0 {
		company = included[0].SellerSnapshot
	}
	if company == nil {
		return nil, nil, model.NewEncodeError(format, "company", "no company identity for the header")
	}
	if strings.TrimSpace(company.DisplayName()) == "" {
		return nil, nil, model.NewEncodeError(format, "company.name", "company name is mandatory")
	}

	summary := &PeriodSummary{
		Start:      export.Date(&period.Start),
		End:        export.Date(&period.End),
		TotalNet:   money.Zero,
		TotalTax:   money.Zero,
		TotalGross: money.Zero,
	}

	currency := "EUR"
	if len(included) > 0 {
		currency = included[0].Currency
	}

	out := xmlAuditFile{
		Xmlns:  export.NamespaceAudit,
		Header: e.header(company, currency, period),
	}

	totalDebit, totalCredit := money.Zero, money.Zero
	customers := make(map[string]xmlCustomer)
	for _, doc := range included {
		inv, err := invoice(doc)
		if err != nil {
			return nil, nil, err
		}
		out.SourceDocuments.SalesInvoices.Invoices = append(out.SourceDocuments.SalesInvoices.Invoices, inv)

		if _, seen := customers[inv.CustomerID]; !seen {
			customers[inv.CustomerID] = customer(inv.CustomerID, doc.BuyerSnapshot)
		}

		summary.Documents++
		if doc.IsCreditNote() {
			summary.CreditNotes++
			totalDebit = totalDebit.Add(doc.TotalNet.Abs())
		} else {
			summary.Invoices++
			totalCredit = totalCredit.Add(doc.TotalNet)
		}
		summary.TotalNet = summary.TotalNet.Add(doc.TotalNet)
		summary.TotalTax = summary.TotalTax.Add(doc.TotalTax)
		summary.TotalGross = summary.TotalGross.Add(doc.TotalGross)
	}

	ids := make([]string, 0, len(customers))
	for id := range customers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out.MasterFiles.Customers = append(out.MasterFiles.Customers, customers[id])
	}

	sales := &out.SourceDocuments.SalesInvoices
	sales.NumberOfEntries = len(included)
	sales.TotalDebit = money.Format2(totalDebit)
	sales.TotalCredit = money.Format2(totalCredit)

	report := e.checker.Sequence(included)
	summary.SequenceValid = report.Valid()
	summary.Gaps = report.Gaps
	summary.Duplicates = report.Duplicates

	output, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, nil, model.NewEncodeError(format, "document", err.Error())
	}
	return []byte(xml.Header + string(output) + "\n"), summary, nil
}

func (e *Encoder) header(company *model.Party, currency string, period Period) xmlHeader {
	country := e.opts.Country
	if country == "" {
		country = company.Country()
	}

	h := xmlHeader{
		AuditFileVersion:     auditFileVersion,
		AuditFileCountry:     country,
		AuditFileDateCreated: export.Date(&period.End),
		SoftwareCompanyName:  e.opts.SoftwareCompany,
		SoftwareID:           e.opts.SoftwareID,
		SoftwareVersion:      e.opts.SoftwareVersion,
		Company: xmlCompany{
			RegistrationNumber: company.RegistrationID,
			Name:               company.DisplayName(),
			Address:            address(company),
		},
		DefaultCurrencyCode: currency,
		SelectionCriteria: xmlSelection{
			SelectionStartDate: export.Date(&period.Start),
			SelectionEndDate:   export.Date(&period.End),
		},
		TaxAccountingBasis: taxAccountingBasis,
	}
	if company.HasTaxID() {
		h.Company.TaxRegistration = &xmlTaxRegistration{TaxRegistrationNumber: company.VATID}
	}
	if company.IBAN != "" {
		h.Company.BankAccount = &xmlBankAccount{IBANNumber: company.IBAN}
	}
	return h
}

func invoice(doc *model.Document) (xmlInvoice, error) {
	if doc.BuyerSnapshot == nil || strings.TrimSpace(doc.BuyerSnapshot.Name) == "" {
		return xmlInvoice{}, model.NewEncodeError(format, "buyer.name", doc.Number+": buyer name is mandatory")
	}

	inv := xmlInvoice{
		InvoiceNo:   doc.Number,
		CustomerID:  doc.ClientID.String(),
		InvoiceDate: export.Date(doc.IssuedAt),
		InvoiceType: codelist.DocumentTypeCode(doc.Type),
		DocumentTotals: xmlTotals{
			TaxPayable: money.Format2(doc.TotalTax),
			NetTotal:   money.Format2(doc.TotalNet),
			GrossTotal: money.Format2(doc.TotalGross),
			Currency: xmlCurrency{
				CurrencyCode:   doc.Currency,
				CurrencyAmount: money.Format2(doc.TotalGross),
			},
		},
	}

	if doc.IsCreditNote() {
		if doc.CreditedNumber == "" {
			return xmlInvoice{}, model.NewEncodeError(format, "credited_number", doc.Number+": credit note does not reference an invoice")
		}
		inv.References = &xmlReferences{Reference: doc.CreditedNumber}
	}
	return inv, nil
}

func customer(id string, p *model.Party) xmlCustomer {
	c := xmlCustomer{
		CustomerID:     id,
		Name:           p.DisplayName(),
		BillingAddress: address(p),
	}
	if p.HasTaxID() {
		c.TaxRegistration = &xmlTaxRegistration{TaxRegistrationNumber: p.VATID}
	}
	return c
}

func address(p *model.Party) xmlAddress {
	return xmlAddress{
		StreetName: p.Address.Street,
		City:       p.Address.City,
		PostalCode: p.Address.PostalCode,
		Country:    p.Country(),
	}
}
