package cii

import "encoding/xml"

type xmlInvoice struct {
	XMLName     xml.Name       `xml:"rsm:CrossIndustryInvoice"`
	Rsm         string         `xml:"xmlns:rsm,attr"`
	Ram         string         `xml:"xmlns:ram,attr"`
	Udt         string         `xml:"xmlns:udt,attr"`
	Qdt         string         `xml:"xmlns:qdt,attr"`
	Context     xmlContext     `xml:"rsm:ExchangedDocumentContext"`
	Document    xmlExchanged   `xml:"rsm:ExchangedDocument"`
	Transaction xmlTransaction `xml:"rsm:SupplyChainTradeTransaction"`
}

type xmlContext struct {
	GuidelineID string `xml:"ram:GuidelineSpecifiedDocumentContextParameter>ram:ID"`
}

type xmlExchanged struct {
	ID            string    `xml:"ram:ID"`
	TypeCode      string    `xml:"ram:TypeCode"`
	IssueDateTime xmlDate   `xml:"ram:IssueDateTime"`
	Notes         []xmlNote `xml:"ram:IncludedNote,omitempty"`
}

type xmlNote struct {
	Content     string `xml:"ram:Content"`
	SubjectCode string `xml:"ram:SubjectCode,omitempty"`
}

type xmlDate struct {
	DateTimeString xmlDateString `xml:"udt:DateTimeString"`
}

type xmlDateString struct {
	Value  string `xml:",chardata"`
	Format string `xml:"format,attr"`
}

type xmlTransaction struct {
	Lines      []xmlLine           `xml:"ram:IncludedSupplyChainTradeLineItem"`
	Agreement  xmlHeaderAgreement  `xml:"ram:ApplicableHeaderTradeAgreement"`
	Delivery   xmlHeaderDelivery   `xml:"ram:ApplicableHeaderTradeDelivery"`
	Settlement xmlHeaderSettlement `xml:"ram:ApplicableHeaderTradeSettlement"`
}

type xmlLine struct {
	LineID     string            `xml:"ram:AssociatedDocumentLineDocument>ram:LineID"`
	Product    xmlProduct        `xml:"ram:SpecifiedTradeProduct"`
	Agreement  xmlLineAgreement  `xml:"ram:SpecifiedLineTradeAgreement"`
	Delivery   xmlLineDelivery   `xml:"ram:SpecifiedLineTradeDelivery"`
	Settlement xmlLineSettlement `xml:"ram:SpecifiedLineTradeSettlement"`
}

type xmlProduct struct {
	Name        string `xml:"ram:Name"`
	Description string `xml:"ram:Description,omitempty"`
}

type xmlLineAgreement struct {
	NetPrice xmlAmount `xml:"ram:NetPriceProductTradePrice>ram:ChargeAmount"`
}

type xmlLineDelivery struct {
	BilledQuantity xmlQuantity `xml:"ram:BilledQuantity"`
}

type xmlQuantity struct {
	Value    string `xml:",chardata"`
	UnitCode string `xml:"unitCode,attr"`
}

type xmlLineSettlement struct {
	Tax       xmlLineTax `xml:"ram:ApplicableTradeTax"`
	LineTotal xmlAmount  `xml:"ram:SpecifiedTradeSettlementLineMonetarySummation>ram:LineTotalAmount"`
}

type xmlLineTax struct {
	TypeCode     string `xml:"ram:TypeCode"`
	CategoryCode string `xml:"ram:CategoryCode"`
	Rate         string `xml:"ram:RateApplicablePercent,omitempty"`
}

type xmlHeaderAgreement struct {
	BuyerReference string   `xml:"ram:BuyerReference,omitempty"`
	Seller         xmlParty `xml:"ram:SellerTradeParty"`
	Buyer          xmlParty `xml:"ram:BuyerTradeParty"`
}

type xmlParty struct {
	Name              string             `xml:"ram:Name"`
	LegalOrganization *xmlLegalOrg       `xml:"ram:SpecifiedLegalOrganization,omitempty"`
	Address           xmlAddress         `xml:"ram:PostalTradeAddress"`
	Email             *xmlURI            `xml:"ram:URIUniversalCommunication,omitempty"`
	TaxRegistrations  []xmlTaxRegistered `xml:"ram:SpecifiedTaxRegistration,omitempty"`
}

type xmlLegalOrg struct {
	ID *xmlIdentifier `xml:"ram:ID,omitempty"`
}

type xmlIdentifier struct {
	Value    string `xml:",chardata"`
	SchemeID string `xml:"schemeID,attr,omitempty"`
}

type xmlAddress struct {
	PostcodeCode string `xml:"ram:PostcodeCode,omitempty"`
	LineOne      string `xml:"ram:LineOne,omitempty"`
	CityName     string `xml:"ram:CityName,omitempty"`
	CountryID    string `xml:"ram:CountryID"`
}

type xmlURI struct {
	URIID xmlIdentifier `xml:"ram:URIID"`
}

type xmlTaxRegistered struct {
	ID xmlIdentifier `xml:"ram:ID"`
}

// the header delivery is mandatory even when empty
type xmlHeaderDelivery struct {
	OccurrenceDate *xmlDate `xml:"ram:ActualDeliverySupplyChainEvent>ram:OccurrenceDateTime,omitempty"`
}

type xmlHeaderSettlement struct {
	PaymentReference   string            `xml:"ram:PaymentReference,omitempty"`
	Currency           string            `xml:"ram:InvoiceCurrencyCode"`
	PaymentMeans       *xmlPaymentMeans  `xml:"ram:SpecifiedTradeSettlementPaymentMeans,omitempty"`
	Taxes              []xmlHeaderTax    `xml:"ram:ApplicableTradeTax"`
	PaymentTerms       *xmlPaymentTerms  `xml:"ram:SpecifiedTradePaymentTerms,omitempty"`
	Summation          xmlSummation      `xml:"ram:SpecifiedTradeSettlementHeaderMonetarySummation"`
	ReferencedDocument *xmlReferencedDoc `xml:"ram:InvoiceReferencedDocument,omitempty"`
}

type xmlPaymentMeans struct {
	TypeCode string      `xml:"ram:TypeCode"`
	Account  *xmlAccount `xml:"ram:PayeePartyCreditorFinancialAccount,omitempty"`
	Bank     *xmlBank    `xml:"ram:PayeeSpecifiedCreditorFinancialInstitution,omitempty"`
}

type xmlAccount struct {
	IBAN string `xml:"ram:IBANID"`
}

type xmlBank struct {
	BIC string `xml:"ram:BICID"`
}

type xmlHeaderTax struct {
	Calculated          xmlAmount `xml:"ram:CalculatedAmount"`
	TypeCode            string    `xml:"ram:TypeCode"`
	ExemptionReason     string    `xml:"ram:ExemptionReason,omitempty"`
	Basis               xmlAmount `xml:"ram:BasisAmount"`
	CategoryCode        string    `xml:"ram:CategoryCode"`
	ExemptionReasonCode string    `xml:"ram:ExemptionReasonCode,omitempty"`
	Rate                string    `xml:"ram:RateApplicablePercent,omitempty"`
}

type xmlPaymentTerms struct {
	DueDate xmlDate `xml:"ram:DueDateDateTime"`
}

type xmlSummation struct {
	LineTotal     xmlAmount `xml:"ram:LineTotalAmount"`
	TaxBasisTotal xmlAmount `xml:"ram:TaxBasisTotalAmount"`
	TaxTotal      xmlAmount `xml:"ram:TaxTotalAmount"`
	GrandTotal    xmlAmount `xml:"ram:GrandTotalAmount"`
	DuePayable    xmlAmount `xml:"ram:DuePayableAmount"`
}

type xmlReferencedDoc struct {
	IssuerAssignedID string `xml:"ram:IssuerAssignedID"`
}

type xmlAmount struct {
	Value      string `xml:",chardata"`
	CurrencyID string `xml:"currencyID,attr"`
}
