package validator

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/rezonia/fiscal-engine/internal/export"
)

// rules lists what a well-formed file of a format must contain
type rules struct {
	roots      map[string]string // root local name -> namespace
	required   []string          // slash-separated local-name paths below the root
	recommends []string          // missing ones yield a warning
	lines      []string          // at least one of these root children
	currency   bool              // every *Amount element carries currencyID
}

var formatRules = map[export.Format]rules{
	export.FormatAudit: {
		roots: map[string]string{"AuditFile": export.NamespaceAudit},
		required: []string{
			"Header/AuditFileVersion",
			"Header/Company/Name",
			"Header/DefaultCurrencyCode",
			"Header/SelectionCriteria/SelectionStartDate",
			"Header/SelectionCriteria/SelectionEndDate",
			"SourceDocuments/SalesInvoices/NumberOfEntries",
		},
		recommends: []string{
			"Header/Company/TaxRegistration/TaxRegistrationNumber",
			"MasterFiles/Customers",
		},
	},
	export.FormatHybrid: {
		roots: map[string]string{"CrossIndustryInvoice": export.NamespaceCII},
		required: []string{
			"ExchangedDocumentContext/GuidelineSpecifiedDocumentContextParameter/ID",
			"ExchangedDocument/ID",
			"ExchangedDocument/TypeCode",
			"ExchangedDocument/IssueDateTime/DateTimeString",
			"SupplyChainTradeTransaction/ApplicableHeaderTradeAgreement/SellerTradeParty/Name",
			"SupplyChainTradeTransaction/ApplicableHeaderTradeAgreement/SellerTradeParty/PostalTradeAddress/CountryID",
			"SupplyChainTradeTransaction/ApplicableHeaderTradeAgreement/BuyerTradeParty/Name",
			"SupplyChainTradeTransaction/ApplicableHeaderTradeDelivery",
			"SupplyChainTradeTransaction/ApplicableHeaderTradeSettlement/InvoiceCurrencyCode",
			"SupplyChainTradeTransaction/ApplicableHeaderTradeSettlement/ApplicableTradeTax/CategoryCode",
			"SupplyChainTradeTransaction/ApplicableHeaderTradeSettlement/SpecifiedTradeSettlementHeaderMonetarySummation/TaxBasisTotalAmount",
			"SupplyChainTradeTransaction/ApplicableHeaderTradeSettlement/SpecifiedTradeSettlementHeaderMonetarySummation/GrandTotalAmount",
			"SupplyChainTradeTransaction/ApplicableHeaderTradeSettlement/SpecifiedTradeSettlementHeaderMonetarySummation/DuePayableAmount",
		},
		recommends: []string{
			"SupplyChainTradeTransaction/ApplicableHeaderTradeAgreement/SellerTradeParty/SpecifiedTaxRegistration/ID",
		},
		lines:    []string{"SupplyChainTradeTransaction/IncludedSupplyChainTradeLineItem"},
		currency: true,
	},
	export.FormatNetwork: {
		roots: map[string]string{
			"Invoice":    export.NamespaceUBLInvoice,
			"CreditNote": export.NamespaceUBLCredit,
		},
		required: []string{
			"CustomizationID",
			"ProfileID",
			"ID",
			"IssueDate",
			"DocumentCurrencyCode",
			"AccountingSupplierParty/Party/PostalAddress/Country/IdentificationCode",
			"AccountingSupplierParty/Party/PartyLegalEntity/RegistrationName",
			"AccountingCustomerParty/Party/PostalAddress/Country/IdentificationCode",
			"AccountingCustomerParty/Party/PartyLegalEntity/RegistrationName",
			"TaxTotal/TaxAmount",
			"TaxTotal/TaxSubtotal/TaxCategory/ID",
			"LegalMonetaryTotal/TaxExclusiveAmount",
			"LegalMonetaryTotal/TaxInclusiveAmount",
			"LegalMonetaryTotal/PayableAmount",
		},
		recommends: []string{
			"BuyerReference",
			"AccountingSupplierParty/Party/EndpointID",
			"AccountingCustomerParty/Party/EndpointID",
		},
		lines:    []string{"InvoiceLine", "CreditNoteLine"},
		currency: true,
	},
}

// Structural checks one encoded file: well-formedness, root element and
// namespace, mandatory elements, and the XSD when one is configured for
// the format.
func (v *Validator) Structural(data []byte, format export.Format) *Report {
	report := NewReport()
	defer report.Finish()

	r, ok := formatRules[format]
	if !ok {
		report.AddError("format.unknown", fmt.Sprintf("no structural rules for format %q", format))
		return report
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		report.AddError("xml.malformed", fmt.Sprintf("document is not well-formed: %v", err))
		return report
	}
	root := doc.Root()
	if root == nil {
		report.AddError("xml.empty", "document has no root element")
		return report
	}

	wantNS, ok := r.roots[root.Tag]
	if !ok {
		report.AddError("xml.root", fmt.Sprintf("unexpected root element %q for %s", root.Tag, format))
		return report
	}
	if ns := root.NamespaceURI(); ns != wantNS {
		report.AddError("xml.namespace", fmt.Sprintf("root %s is in namespace %q, expected %q", root.Tag, ns, wantNS))
	}

	for _, path := range r.required {
		if el := findPath(root, path); el == nil || (isEmpty(el) && !isContainer(path)) {
			report.AddError("element.missing", fmt.Sprintf("mandatory element %s is missing or empty", path))
		}
	}
	for _, path := range r.recommends {
		if findPath(root, path) == nil {
			report.AddWarning("element.recommended", fmt.Sprintf("recommended element %s is missing", path))
		}
	}

	if len(r.lines) > 0 {
		found := 0
		for _, path := range r.lines {
			found += len(findAll(root, path))
		}
		if found == 0 {
			report.AddError("lines.missing", "document has no line items")
		}
	}

	if r.currency {
		for _, el := range amountsWithoutCurrency(root) {
			report.AddWarning("amount.currency", fmt.Sprintf("%s has no currencyID attribute", el.Tag))
		}
	}

	if path, ok := v.schemas[format]; ok {
		problems, err := validateSchema(path, data)
		if err != nil {
			report.AddWarning("xsd.unavailable", err.Error())
		}
		for _, p := range problems {
			report.AddError("xsd.invalid", p)
		}
	} else {
		report.AddInfo("xsd.skipped", fmt.Sprintf("no schema configured for %s", format))
	}

	return report
}

// findPath follows a slash-separated path of local names, ignoring prefixes
func findPath(root *etree.Element, path string) *etree.Element {
	el := root
	for _, name := range strings.Split(path, "/") {
		el = childByLocalName(el, name)
		if el == nil {
			return nil
		}
	}
	return el
}

func findAll(root *etree.Element, path string) []*etree.Element {
	parts := strings.Split(path, "/")
	parent := root
	if len(parts) > 1 {
		parent = findPath(root, strings.Join(parts[:len(parts)-1], "/"))
		if parent == nil {
			return nil
		}
	}
	var out []*etree.Element
	for _, child := range parent.ChildElements() {
		if hasLocalName(child, parts[len(parts)-1]) {
			out = append(out, child)
		}
	}
	return out
}

func childByLocalName(elem *etree.Element, localName string) *etree.Element {
	for _, child := range elem.ChildElements() {
		if hasLocalName(child, localName) {
			return child
		}
	}
	return nil
}

// hasLocalName checks the tag ignoring its namespace prefix
func hasLocalName(elem *etree.Element, localName string) bool {
	tag := elem.Tag
	if idx := strings.IndexByte(tag, ':'); idx >= 0 {
		tag = tag[idx+1:]
	}
	return tag == localName
}

func isEmpty(el *etree.Element) bool {
	return strings.TrimSpace(el.Text()) == "" && len(el.ChildElements()) == 0
}

// container elements may legitimately be empty
func isContainer(path string) bool {
	return strings.HasSuffix(path, "ApplicableHeaderTradeDelivery")
}

func amountsWithoutCurrency(root *etree.Element) []*etree.Element {
	var missing []*etree.Element
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		if strings.HasSuffix(el.Tag, "Amount") && len(el.ChildElements()) == 0 && el.SelectAttr("currencyID") == nil {
			missing = append(missing, el)
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(root)
	return missing
}
