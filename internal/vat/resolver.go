// Package vat resolves the VAT scenario of a document from the seller's
// regime and the buyer's jurisdiction and type.
package vat

import (
	"github.com/shopspring/decimal"

	"github.com/rezonia/fiscal-engine/internal/codelist"
	money "github.com/rezonia/fiscal-engine/internal/decimal"
	"github.com/rezonia/fiscal-engine/internal/model"
)

// Scenario is the outcome of resolution
type Scenario struct {
	Key      model.ScenarioKey
	Rate     decimal.Decimal
	Mention  string
	Category codelist.TaxCategory

	// Fallback is set when the buyer country was empty or unknown and the
	// export scenario was chosen for lack of a better answer
	Fallback bool
}

// ZeroRated reports whether every line must carry a zero rate
func (s Scenario) ZeroRated() bool {
	return s.Rate.IsZero()
}

// Input is everything resolution depends on
type Input struct {
	SellerRegime  model.VATRegime
	BuyerCountry  string
	BuyerKind     model.PartyKind
	BuyerHasTaxID bool
}

// InputFor builds the resolution input from seller and buyer snapshots
func InputFor(seller, buyer *model.Party) Input {
	in := Input{}
	if seller != nil {
		in.SellerRegime = seller.Regime
	}
	if buyer != nil {
		in.BuyerCountry = buyer.Country()
		in.BuyerKind = buyer.Kind
		in.BuyerHasTaxID = buyer.HasTaxID()
	}
	return in
}

// Resolver holds the jurisdiction parameters
type Resolver struct {
	StandardRate decimal.Decimal
	HomeCountry  string
	region       map[string]bool
}

// NewResolver creates a resolver for the home country and its VAT region
func NewResolver(standardRate decimal.Decimal, homeCountry string, region []string) *Resolver {
	r := &Resolver{
		StandardRate: standardRate,
		HomeCountry:  codelist.NormalizeCountry(homeCountry),
		region:       make(map[string]bool, len(region)),
	}
	for _, c := range region {
		r.region[codelist.NormalizeCountry(c)] = true
	}
	return r
}

// InRegion reports whether country belongs to the VAT region
func (r *Resolver) InRegion(country string) bool {
	return r.region[codelist.NormalizeCountry(country)]
}

// Resolve picks exactly one scenario. A franchise seller always wins over any
// buyer-side rule. An empty or unknown buyer country resolves to export with
// Fallback set.
func (r *Resolver) Resolve(in Input) Scenario {
	if in.SellerRegime == model.RegimeFranchise {
		return r.scenario(model.ScenarioDomesticExempt, money.Zero, codelist.MentionFranchise)
	}

	country := codelist.NormalizeCountry(in.BuyerCountry)
	if country == "" || !codelist.KnownCountry(country) {
		s := r.scenario(model.ScenarioExport, money.Zero, codelist.MentionExport)
		s.Fallback = true
		return s
	}

	if country == r.HomeCountry {
		return r.scenario(model.ScenarioDomesticStandard, r.StandardRate, "")
	}

	if r.InRegion(country) {
		if in.BuyerKind != model.KindConsumer && in.BuyerHasTaxID {
			return r.scenario(model.ScenarioIntraB2BReverseCharge, money.Zero, codelist.MentionReverseCharge)
		}
		return r.scenario(model.ScenarioIntraB2CStandard, r.StandardRate, "")
	}

	return r.scenario(model.ScenarioExport, money.Zero, codelist.MentionExport)
}

func (r *Resolver) scenario(key model.ScenarioKey, rate decimal.Decimal, mention string) Scenario {
	return Scenario{
		Key:      key,
		Rate:     rate,
		Mention:  mention,
		Category: codelist.CategoryFor(key),
	}
}

// MentionText returns the legal text printed for a mention key
func MentionText(key string) string {
	return codelist.ExemptionReason(key)
}
