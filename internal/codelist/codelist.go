// Package codelist holds the code tables shared by the CII and UBL encoders:
// tax categories (UNCL 5305), exemption reasons (VATEX), units of measure
// (UN/ECE Rec 20) and document type codes (UNCL 1001).
package codelist

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rezonia/fiscal-engine/internal/model"
)

// TaxCategory is a UNCL 5305 duty/tax/fee category code
type TaxCategory string

const (
	CategoryStandard       TaxCategory = "S"
	CategoryZeroRated      TaxCategory = "Z"
	CategoryExempt         TaxCategory = "E"
	CategoryReverseCharge  TaxCategory = "AE"
	CategoryIntraCommunity TaxCategory = "K"
	CategoryExport         TaxCategory = "G"
	CategoryOutOfScope     TaxCategory = "O"
)

// TaxSchemeVAT is the only tax scheme emitted
const TaxSchemeVAT = "VAT"

var scenarioCategories = map[model.ScenarioKey]TaxCategory{
	model.ScenarioDomesticStandard:      CategoryStandard,
	model.ScenarioDomesticExempt:        CategoryExempt,
	model.ScenarioIntraB2BReverseCharge: CategoryReverseCharge,
	model.ScenarioIntraB2CStandard:      CategoryStandard,
	model.ScenarioExport:                CategoryExport,
}

// CategoryFor returns the document-level category of a resolved scenario.
// An unknown or empty key maps to S.
func CategoryFor(scenario model.ScenarioKey) TaxCategory {
	if c, ok := scenarioCategories[scenario]; ok {
		return c
	}
	return CategoryStandard
}

// LineCategory narrows the scenario category for one rate: a standard-rated
// scenario with a zero-rate line yields Z.
func LineCategory(base TaxCategory, rate decimal.Decimal) TaxCategory {
	if base == CategoryStandard && rate.IsZero() {
		return CategoryZeroRated
	}
	return base
}

// NeedsExemptionReason reports whether EN 16931 requires a reason for the category
func NeedsExemptionReason(c TaxCategory) bool {
	switch c {
	case CategoryExempt, CategoryReverseCharge, CategoryIntraCommunity, CategoryExport, CategoryOutOfScope:
		return true
	}
	return false
}

// RequiresBuyerVATID reports whether the buyer must carry a VAT number
func RequiresBuyerVATID(c TaxCategory) bool {
	return c == CategoryReverseCharge || c == CategoryIntraCommunity
}

// ExemptionReasonCode returns the VATEX code for the category, or "" if none applies
func ExemptionReasonCode(c TaxCategory) string {
	switch c {
	case CategoryReverseCharge:
		return "VATEX-EU-AE"
	case CategoryIntraCommunity:
		return "VATEX-EU-IC"
	case CategoryExport:
		return "VATEX-EU-G"
	case CategoryOutOfScope:
		return "VATEX-EU-O"
	}
	return ""
}

// Legal mention keys stored on documents
const (
	MentionFranchise     = "vat_franchise_art57"
	MentionReverseCharge = "vat_reverse_charge_art196"
	MentionExport        = "vat_export_art43"
)

var mentionTexts = map[string]string{
	MentionFranchise:     "TVA non applicable, article 57 de la loi modifiée du 12 février 1979 concernant la taxe sur la valeur ajoutée",
	MentionReverseCharge: "Autoliquidation, article 196 de la directive 2006/112/CE",
	MentionExport:        "Exonération de TVA, article 43 de la loi modifiée du 12 février 1979 (livraison hors UE)",
}

// ExemptionReason returns the legal text for a mention key. Unknown keys are
// returned unchanged.
func ExemptionReason(mention string) string {
	if text, ok := mentionTexts[mention]; ok {
		return text
	}
	return mention
}

// DocumentTypeCode returns the UNCL 1001 code: 380 commercial invoice, 381 credit note
func DocumentTypeCode(t model.DocumentType) string {
	if t == model.DocumentTypeCreditNote {
		return "381"
	}
	return "380"
}

// PaymentMeansCreditTransfer is UNCL 4461 code 58 (SEPA credit transfer)
const PaymentMeansCreditTransfer = "58"

// UnitDefault is "one" (C62), used for pieces and unknown units
const UnitDefault = "C62"

var units = map[string]string{
	"h": "HUR", "hr": "HUR", "hrs": "HUR", "hour": "HUR", "hours": "HUR", "heure": "HUR", "heures": "HUR", "stunde": "HUR", "stunden": "HUR",
	"d": "DAY", "day": "DAY", "days": "DAY", "jour": "DAY", "jours": "DAY", "tag": "DAY", "tage": "DAY",
	"week": "WEE", "weeks": "WEE", "semaine": "WEE", "semaines": "WEE", "woche": "WEE",
	"month": "MON", "months": "MON", "mois": "MON", "monat": "MON",
	"year": "ANN", "years": "ANN", "an": "ANN", "ans": "ANN", "année": "ANN", "jahr": "ANN",
	"min": "MIN", "minute": "MIN", "minutes": "MIN",
	"kg": "KGM", "kilogram": "KGM", "kilogramme": "KGM",
	"m": "MTR", "meter": "MTR", "metre": "MTR", "mètre": "MTR",
	"l": "LTR", "liter": "LTR", "litre": "LTR",
	"kwh": "KWH",
	"set": "SET", "lot": "SET", "forfait": "SET", "pauschal": "SET",
	"": UnitDefault, "pc": UnitDefault, "pcs": UnitDefault, "piece": UnitDefault, "pieces": UnitDefault,
	"pièce": UnitDefault, "pièces": UnitDefault, "unit": UnitDefault, "units": UnitDefault, "unité": UnitDefault,
	"stück": UnitDefault, "x": UnitDefault,
}

// UnitCode maps a free-text unit to a UN/ECE Rec 20 code. Values that are
// already Rec 20 codes pass through.
func UnitCode(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if code, ok := units[u]; ok {
		return code
	}
	upper := strings.ToUpper(u)
	for _, code := range units {
		if code == upper {
			return code
		}
	}
	return UnitDefault
}
