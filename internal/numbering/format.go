package numbering

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rezonia/fiscal-engine/internal/model"
)

// ErrMalformed is wrapped by every Parse failure
var ErrMalformed = errors.New("malformed document number")

// Format renders and parses PREFIX-YYYY-SEQ numbers
type Format struct {
	InvoicePrefix    string
	CreditNotePrefix string
	Width            int
}

// DefaultFormat returns F / AV with three-digit sequences
func DefaultFormat() Format {
	return Format{InvoicePrefix: "F", CreditNotePrefix: "AV", Width: 3}
}

// Prefix returns the prefix for a document type
func (f Format) Prefix(t model.DocumentType) string {
	if t == model.DocumentTypeCreditNote {
		return f.CreditNotePrefix
	}
	return f.InvoicePrefix
}

// Render formats a number. Sequences wider than Width are never truncated.
func (f Format) Render(t model.DocumentType, year, seq int) string {
	return fmt.Sprintf("%s-%04d-%0*d", f.Prefix(t), year, f.Width, seq)
}

// Parsed is a decomposed document number
type Parsed struct {
	Prefix string
	Type   model.DocumentType
	Year   int
	Seq    int
}

// Parse splits a number into its parts. The sequence is read as an integer,
// so "F-2026-7", "F-2026-007" and "F-2026-0007" all yield 7.
func (f Format) Parse(number string) (Parsed, error) {
	parts := strings.Split(strings.TrimSpace(number), "-")
	if len(parts) < 3 {
		return Parsed{}, fmt.Errorf("%w: %q", ErrMalformed, number)
	}

	seqPart := parts[len(parts)-1]
	yearPart := parts[len(parts)-2]
	prefix := strings.Join(parts[:len(parts)-2], "-")

	if !allDigits(seqPart) || !allDigits(yearPart) || len(yearPart) != 4 {
		return Parsed{}, fmt.Errorf("%w: %q", ErrMalformed, number)
	}
	seq, err := strconv.Atoi(seqPart)
	if err != nil || seq < 1 {
		return Parsed{}, fmt.Errorf("%w: %q", ErrMalformed, number)
	}
	year, _ := strconv.Atoi(yearPart)

	p := Parsed{Prefix: prefix, Year: year, Seq: seq}
	switch prefix {
	case f.InvoicePrefix:
		p.Type = model.DocumentTypeInvoice
	case f.CreditNotePrefix:
		p.Type = model.DocumentTypeCreditNote
	default:
		return p, fmt.Errorf("%w: unknown prefix %q in %q", ErrMalformed, prefix, number)
	}
	return p, nil
}

// Compare orders two numbers by prefix, year and then sequence as an
// integer, so F-2026-999 comes before F-2026-1000. Numbers that do not
// parse sort after those that do, by their text.
func (f Format) Compare(a, b string) int {
	pa, errA := f.Parse(a)
	pb, errB := f.Parse(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	}
	if c := strings.Compare(pa.Prefix, pb.Prefix); c != 0 {
		return c
	}
	if c := cmp.Compare(pa.Year, pb.Year); c != 0 {
		return c
	}
	return cmp.Compare(pa.Seq, pb.Seq)
}

// Validate checks the format itself
func (f Format) Validate() error {
	if f.Width < 1 || f.Width > 9 {
		return fmt.Errorf("numbering width must be between 1 and 9, got %d", f.Width)
	}
	if f.InvoicePrefix == "" || f.CreditNotePrefix == "" {
		return fmt.Errorf("numbering prefixes must not be empty")
	}
	if f.InvoicePrefix == f.CreditNotePrefix {
		return fmt.Errorf("invoice and credit note prefixes must differ, both are %q", f.InvoicePrefix)
	}
	return nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
