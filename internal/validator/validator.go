// Package validator checks exported XML and document periods. Structural
// checks inspect one encoded file; business-rule checks run over a set of
// finalized documents. Both produce a Report.
package validator

import (
	"github.com/shopspring/decimal"

	"github.com/rezonia/fiscal-engine/internal/export"
	"github.com/rezonia/fiscal-engine/internal/model"
	"github.com/rezonia/fiscal-engine/internal/numbering"
)

// DefaultTolerance absorbs legacy rows whose tax was stored at lower precision
var DefaultTolerance = decimal.RequireFromString("0.01")

// Validator runs structural and business-rule checks
type Validator struct {
	format    numbering.Format
	tolerance decimal.Decimal
	schemas   map[export.Format]string
}

// Option configures a Validator
type Option func(*Validator)

// WithNumberFormat sets the numbering format used to parse document numbers
func WithNumberFormat(f numbering.Format) Option {
	return func(v *Validator) {
		v.format = f
	}
}

// WithTolerance sets the net + tax = gross tolerance
func WithTolerance(t decimal.Decimal) Option {
	return func(v *Validator) {
		v.tolerance = t
	}
}

// WithSchema enables XSD validation of a format against the schema at path
func WithSchema(f export.Format, path string) Option {
	return func(v *Validator) {
		if path != "" {
			v.schemas[f] = path
		}
	}
}

// NumberFormat returns the format used to parse document numbers
func (v *Validator) NumberFormat() numbering.Format {
	return v.format
}

// New creates a validator with the default numbering format and tolerance
func New(opts ...Option) *Validator {
	v := &Validator{
		format:    numbering.DefaultFormat(),
		tolerance: DefaultTolerance,
		schemas:   make(map[export.Format]string),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Period runs the sequence and balance checks over a set of documents
func (v *Validator) Period(docs []*model.Document) *Report {
	report := NewReport()
	report.Merge(v.sequence(docs))
	report.Merge(v.balance(docs))
	report.Counts = count(docs)
	return report.Finish()
}

func count(docs []*model.Document) Counts {
	var c Counts
	partitions := make(map[model.SequenceKey]bool)
	for _, doc := range docs {
		if !doc.IsFinalized() {
			c.Drafts++
			continue
		}
		c.Documents++
		if doc.IsCreditNote() {
			c.CreditNotes++
		} else {
			c.Invoices++
		}
		partitions[doc.SequenceKey()] = true
	}
	c.Partitions = len(partitions)
	return c
}
