package validator

import (
	"fmt"

	money "github.com/rezonia/fiscal-engine/internal/decimal"
	"github.com/rezonia/fiscal-engine/internal/model"
)

// Balance cross-checks the stored totals of every finalized document:
// net + tax must equal gross within the tolerance, the per-rate breakdown
// must reproduce the totals and the finalization fields must be complete.
func (v *Validator) Balance(docs []*model.Document) *Report {
	report := v.balance(docs)
	report.Counts = count(docs)
	return report.Finish()
}

func (v *Validator) balance(docs []*model.Document) *Report {
	report := NewReport()
	for _, doc := range docs {
		if !doc.IsFinalized() {
			continue
		}
		v.checkDocument(report, doc)
	}
	return report
}

func (v *Validator) checkDocument(report *Report, doc *model.Document) {
	label := doc.Number
	if label == "" {
		label = doc.ID.String()
	}

	if err := doc.CheckFinalizedInvariant(); err != nil {
		report.AddError("document.invariant", fmt.Sprintf("%s: %v", label, err))
	}

	sum := doc.TotalNet.Add(doc.TotalTax)
	switch {
	case sum.Equal(doc.TotalGross):
	case money.WithinTolerance(sum, doc.TotalGross, v.tolerance):
		report.AddInfo("totals.rounding",
			fmt.Sprintf("%s: net %s + tax %s differs from gross %s within tolerance",
				label, doc.TotalNet, doc.TotalTax, doc.TotalGross))
	default:
		report.AddError("totals.unbalanced",
			fmt.Sprintf("%s: net %s + tax %s does not match gross %s",
				label, doc.TotalNet, doc.TotalTax, doc.TotalGross))
	}

	if len(doc.Items) > 0 {
		base, tax := money.Zero, money.Zero
		for _, line := range doc.VATBreakdown() {
			base = base.Add(line.Base)
			tax = tax.Add(line.Amount)
		}
		if !money.WithinTolerance(base, doc.TotalNet, v.tolerance) {
			report.AddWarning("totals.breakdown_net",
				fmt.Sprintf("%s: lines sum to %s but total net is %s", label, base, doc.TotalNet))
		}
		if !money.WithinTolerance(tax, doc.TotalTax, v.tolerance) {
			report.AddWarning("totals.breakdown_tax",
				fmt.Sprintf("%s: VAT breakdown sums to %s but total tax is %s", label, tax, doc.TotalTax))
		}
	}

	if doc.IsCreditNote() {
		if doc.TotalGross.IsPositive() {
			report.AddWarning("credit_note.sign", fmt.Sprintf("%s: credit note has a positive total", label))
		}
		if doc.CreditedNumber == "" {
			report.AddWarning("credit_note.reference", fmt.Sprintf("%s: credit note does not reference an invoice", label))
		}
	}
}
