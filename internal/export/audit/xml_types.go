package audit

import "encoding/xml"

type xmlAuditFile struct {
	XMLName         xml.Name           `xml:"AuditFile"`
	Xmlns           string             `xml:"xmlns,attr"`
	Header          xmlHeader          `xml:"Header"`
	MasterFiles     xmlMasterFiles     `xml:"MasterFiles"`
	SourceDocuments xmlSourceDocuments `xml:"SourceDocuments"`
}

type xmlHeader struct {
	AuditFileVersion     string       `xml:"AuditFileVersion"`
	AuditFileCountry     string       `xml:"AuditFileCountry"`
	AuditFileDateCreated string       `xml:"AuditFileDateCreated"`
	SoftwareCompanyName  string       `xml:"SoftwareCompanyName"`
	SoftwareID           string       `xml:"SoftwareID"`
	SoftwareVersion      string       `xml:"SoftwareVersion"`
	Company              xmlCompany   `xml:"Company"`
	DefaultCurrencyCode  string       `xml:"DefaultCurrencyCode"`
	SelectionCriteria    xmlSelection `xml:"SelectionCriteria"`
	TaxAccountingBasis   string       `xml:"TaxAccountingBasis"`
}

type xmlCompany struct {
	RegistrationNumber string              `xml:"RegistrationNumber,omitempty"`
	Name               string              `xml:"Name"`
	Address            xmlAddress          `xml:"Address"`
	TaxRegistration    *xmlTaxRegistration `xml:"TaxRegistration,omitempty"`
	BankAccount        *xmlBankAccount     `xml:"BankAccount,omitempty"`
}

type xmlAddress struct {
	StreetName string `xml:"StreetName,omitempty"`
	City       string `xml:"City,omitempty"`
	PostalCode string `xml:"PostalCode,omitempty"`
	Country    string `xml:"Country"`
}

type xmlTaxRegistration struct {
	TaxRegistrationNumber string `xml:"TaxRegistrationNumber"`
}

type xmlBankAccount struct {
	IBANNumber string `xml:"IBANNumber"`
}

type xmlSelection struct {
	SelectionStartDate string `xml:"SelectionStartDate"`
	SelectionEndDate   string `xml:"SelectionEndDate"`
}

type xmlMasterFiles struct {
	Customers []xmlCustomer `xml:"Customers>Customer"`
}

type xmlCustomer struct {
	CustomerID      string              `xml:"CustomerID"`
	Name            string              `xml:"Name"`
	BillingAddress  xmlAddress          `xml:"BillingAddress"`
	TaxRegistration *xmlTaxRegistration `xml:"TaxRegistration,omitempty"`
}

type xmlSourceDocuments struct {
	SalesInvoices xmlSalesInvoices `xml:"SalesInvoices"`
}

type xmlSalesInvoices struct {
	NumberOfEntries int          `xml:"NumberOfEntries"`
	TotalDebit      string       `xml:"TotalDebit"`
	TotalCredit     string       `xml:"TotalCredit"`
	Invoices        []xmlInvoice `xml:"Invoice"`
}

type xmlInvoice struct {
	InvoiceNo      string         `xml:"InvoiceNo"`
	CustomerID     string         `xml:"CustomerInfo>CustomerID"`
	InvoiceDate    string         `xml:"InvoiceDate"`
	InvoiceType    string         `xml:"InvoiceType"`
	References     *xmlReferences `xml:"References,omitempty"`
	DocumentTotals xmlTotals      `xml:"DocumentTotals"`
}

type xmlReferences struct {
	Reference string `xml:"Reference"`
	Reason    string `xml:"Reason,omitempty"`
}

type xmlTotals struct {
	TaxPayable string      `xml:"TaxPayable"`
	NetTotal   string      `xml:"NetTotal"`
	GrossTotal string      `xml:"GrossTotal"`
	Currency   xmlCurrency `xml:"Currency"`
}

type xmlCurrency struct {
	CurrencyCode   string `xml:"CurrencyCode"`
	CurrencyAmount string `xml:"CurrencyAmount"`
}
