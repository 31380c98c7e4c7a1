package ubl

import "encoding/xml"

// xmlDocument serves both roots. XMLName is set at encode time and the
// type-specific fields of the other root stay empty.
type xmlDocument struct {
	XMLName            xml.Name
	Xmlns              string               `xml:"xmlns,attr"`
	Cac                string               `xml:"xmlns:cac,attr"`
	Cbc                string               `xml:"xmlns:cbc,attr"`
	CustomizationID    string               `xml:"cbc:CustomizationID"`
	ProfileID          string               `xml:"cbc:ProfileID"`
	ID                 string               `xml:"cbc:ID"`
	IssueDate          string               `xml:"cbc:IssueDate"`
	DueDate            string               `xml:"cbc:DueDate,omitempty"`
	InvoiceTypeCode    string               `xml:"cbc:InvoiceTypeCode,omitempty"`
	CreditNoteTypeCode string               `xml:"cbc:CreditNoteTypeCode,omitempty"`
	Notes              []string             `xml:"cbc:Note,omitempty"`
	DocumentCurrency   string               `xml:"cbc:DocumentCurrencyCode"`
	BuyerReference     string               `xml:"cbc:BuyerReference,omitempty"`
	BillingReference   *xmlBillingReference `xml:"cac:BillingReference,omitempty"`
	SupplierParty      xmlPartyWrapper      `xml:"cac:AccountingSupplierParty"`
	CustomerParty      xmlPartyWrapper      `xml:"cac:AccountingCustomerParty"`
	PaymentMeans       *xmlPaymentMeans     `xml:"cac:PaymentMeans,omitempty"`
	PaymentTerms       *xmlPaymentTerms     `xml:"cac:PaymentTerms,omitempty"`
	TaxTotal           xmlTaxTotal          `xml:"cac:TaxTotal"`
	LegalMonetaryTotal xmlMonetaryTotal     `xml:"cac:LegalMonetaryTotal"`
	InvoiceLines       []xmlLine            `xml:"cac:InvoiceLine,omitempty"`
	CreditNoteLines    []xmlLine            `xml:"cac:CreditNoteLine,omitempty"`
}

type xmlBillingReference struct {
	InvoiceDocumentReference xmlDocumentReference `xml:"cac:InvoiceDocumentReference"`
}

type xmlDocumentReference struct {
	ID        string `xml:"cbc:ID"`
	IssueDate string `xml:"cbc:IssueDate,omitempty"`
}

type xmlPartyWrapper struct {
	Party xmlParty `xml:"cac:Party"`
}

type xmlIdentifier struct {
	Value    string `xml:",chardata"`
	SchemeID string `xml:"schemeID,attr,omitempty"`
}

type xmlParty struct {
	EndpointID       *xmlIdentifier     `xml:"cbc:EndpointID,omitempty"`
	PartyName        string             `xml:"cac:PartyName>cbc:Name,omitempty"`
	PostalAddress    xmlPostalAddress   `xml:"cac:PostalAddress"`
	PartyTaxScheme   *xmlPartyTaxScheme `xml:"cac:PartyTaxScheme,omitempty"`
	PartyLegalEntity xmlLegalEntity     `xml:"cac:PartyLegalEntity"`
	Contact          *xmlContact        `xml:"cac:Contact,omitempty"`
}

type xmlPostalAddress struct {
	StreetName string     `xml:"cbc:StreetName,omitempty"`
	CityName   string     `xml:"cbc:CityName,omitempty"`
	PostalZone string     `xml:"cbc:PostalZone,omitempty"`
	Country    xmlCountry `xml:"cac:Country"`
}

type xmlCountry struct {
	IdentificationCode string `xml:"cbc:IdentificationCode"`
}

type xmlPartyTaxScheme struct {
	CompanyID string       `xml:"cbc:CompanyID"`
	TaxScheme xmlTaxScheme `xml:"cac:TaxScheme"`
}

type xmlLegalEntity struct {
	RegistrationName string `xml:"cbc:RegistrationName"`
	CompanyID        string `xml:"cbc:CompanyID,omitempty"`
}

type xmlContact struct {
	ElectronicMail string `xml:"cbc:ElectronicMail,omitempty"`
}

type xmlPaymentMeans struct {
	PaymentMeansCode      string               `xml:"cbc:PaymentMeansCode"`
	PaymentDueDate        string               `xml:"cbc:PaymentDueDate,omitempty"`
	PaymentID             string               `xml:"cbc:PaymentID,omitempty"`
	PayeeFinancialAccount *xmlFinancialAccount `xml:"cac:PayeeFinancialAccount,omitempty"`
}

type xmlFinancialAccount struct {
	ID                         string                         `xml:"cbc:ID"`
	FinancialInstitutionBranch *xmlFinancialInstitutionBranch `xml:"cac:FinancialInstitutionBranch,omitempty"`
}

type xmlFinancialInstitutionBranch struct {
	ID string `xml:"cbc:ID"`
}

type xmlPaymentTerms struct {
	Note string `xml:"cbc:Note"`
}

type xmlTaxTotal struct {
	TaxAmount   xmlAmount        `xml:"cbc:TaxAmount"`
	TaxSubtotal []xmlTaxSubtotal `xml:"cac:TaxSubtotal"`
}

type xmlTaxSubtotal struct {
	TaxableAmount xmlAmount      `xml:"cbc:TaxableAmount"`
	TaxAmount     xmlAmount      `xml:"cbc:TaxAmount"`
	TaxCategory   xmlTaxCategory `xml:"cac:TaxCategory"`
}

type xmlMonetaryTotal struct {
	LineExtensionAmount xmlAmount `xml:"cbc:LineExtensionAmount"`
	TaxExclusiveAmount  xmlAmount `xml:"cbc:TaxExclusiveAmount"`
	TaxInclusiveAmount  xmlAmount `xml:"cbc:TaxInclusiveAmount"`
	PayableAmount       xmlAmount `xml:"cbc:PayableAmount"`
}

type xmlAmount struct {
	Value      string `xml:",chardata"`
	CurrencyID string `xml:"currencyID,attr"`
}

// Possible values for the unit code:
// https://docs.peppol.eu/poacc/billing/3.0/codelist/UNECERec20/
type xmlQuantity struct {
	Value    string `xml:",chardata"`
	UnitCode string `xml:"unitCode,attr"`
}

type xmlLine struct {
	ID                  string       `xml:"cbc:ID"`
	InvoicedQuantity    *xmlQuantity `xml:"cbc:InvoicedQuantity,omitempty"`
	CreditedQuantity    *xmlQuantity `xml:"cbc:CreditedQuantity,omitempty"`
	LineExtensionAmount xmlAmount    `xml:"cbc:LineExtensionAmount"`
	Item                xmlItem      `xml:"cac:Item"`
	Price               xmlPrice     `xml:"cac:Price"`
}

type xmlItem struct {
	Description           string         `xml:"cbc:Description,omitempty"`
	Name                  string         `xml:"cbc:Name"`
	ClassifiedTaxCategory xmlTaxCategory `xml:"cac:ClassifiedTaxCategory"`
}

type xmlTaxCategory struct {
	ID                     string       `xml:"cbc:ID"`
	Percent                string       `xml:"cbc:Percent,omitempty"`
	TaxExemptionReasonCode string       `xml:"cbc:TaxExemptionReasonCode,omitempty"`
	TaxExemptionReason     string       `xml:"cbc:TaxExemptionReason,omitempty"`
	TaxScheme              xmlTaxScheme `xml:"cac:TaxScheme"`
}

type xmlTaxScheme struct {
	ID string `xml:"cbc:ID"`
}

type xmlPrice struct {
	PriceAmount xmlAmount `xml:"cbc:PriceAmount"`
}
