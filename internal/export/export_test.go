package export_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fiscal-engine/internal/codelist"
	money "github.com/rezonia/fiscal-engine/internal/decimal"
	"github.com/rezonia/fiscal-engine/internal/export"
	"github.com/rezonia/fiscal-engine/internal/export/exporttest"
	"github.com/rezonia/fiscal-engine/internal/model"
)

type stubEncoder struct{ format export.Format }

func (s stubEncoder) Format() export.Format { return s.format }

func (s stubEncoder) Encode(*model.Document) ([]byte, error) { return []byte(s.format), nil }

func TestRegistry(t *testing.T) {
	r := export.NewRegistry(stubEncoder{export.FormatNetwork}, stubEncoder{export.FormatAudit})

	assert.Equal(t, []export.Format{export.FormatAudit, export.FormatNetwork}, r.Formats())

	e, err := r.Get(export.FormatAudit)
	require.NoError(t, err)
	assert.Equal(t, export.FormatAudit, e.Format())

	_, err = r.Get(export.FormatHybrid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "faia, peppol")

	r.Register(stubEncoder{export.FormatHybrid})
	assert.Len(t, r.Formats(), 3)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    export.Format
		wantErr bool
	}{
		{"faia", export.FormatAudit, false},
		{"SAFT", export.FormatAudit, false},
		{" facturx ", export.FormatHybrid, false},
		{"zugferd", export.FormatHybrid, false},
		{"cii", export.FormatHybrid, false},
		{"peppol", export.FormatNetwork, false},
		{"ubl", export.FormatNetwork, false},
		{"pdf", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := export.ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilename(t *testing.T) {
	doc := exporttest.Invoice(7)
	assert.Equal(t, "invoice-F-2026-007-peppol.xml", export.Filename(export.FormatNetwork, doc))

	draft := exporttest.Draft()
	assert.Equal(t, "invoice-"+draft.ID.String()+"-faia.xml", export.Filename(export.FormatAudit, draft))
}

func TestRequireFinalized(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Document) *model.Document
		field  string
	}{
		{"nil document", func(*model.Document) *model.Document { return nil }, "document"},
		{"draft", func(d *model.Document) *model.Document { d.Status = model.StatusDraft; return d }, "status"},
		{"no number", func(d *model.Document) *model.Document { d.Number = ""; return d }, "number"},
		{"no issue date", func(d *model.Document) *model.Document { d.IssuedAt = nil; return d }, "issued_at"},
		{"no items", func(d *model.Document) *model.Document { d.Items = nil; return d }, "items"},
		{"no currency", func(d *model.Document) *model.Document { d.Currency = ""; return d }, "currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := export.RequireFinalized(tt.mutate(exporttest.Invoice(1)), export.FormatHybrid)
			var encErr *model.EncodeError
			require.True(t, errors.As(err, &encErr), "got %v", err)
			assert.Equal(t, tt.field, encErr.Field)
			assert.Equal(t, "facturx", encErr.Format)
		})
	}

	assert.NoError(t, export.RequireFinalized(exporttest.Invoice(1), export.FormatHybrid))

	sent := exporttest.Invoice(1)
	sent.Status = model.StatusPaid
	assert.NoError(t, export.RequireFinalized(sent, export.FormatHybrid))
}

func TestView_CreditNoteSign(t *testing.T) {
	inv := exporttest.Invoice(1)
	cn := exporttest.CreditNote(inv, 1)
	require.True(t, cn.TotalGross.IsNegative())

	unsigned, err := export.NewView(cn, export.FormatNetwork, true)
	require.NoError(t, err)
	assert.Equal(t, "274.50", unsigned.Amount(cn.TotalGross))
	assert.Equal(t, "2", unsigned.Quantity(cn.Items[0].Quantity))

	signed, err := export.NewView(cn, export.FormatAudit, false)
	require.NoError(t, err)
	assert.Equal(t, "-274.50", signed.Amount(cn.TotalGross))

	invView, err := export.NewView(inv, export.FormatNetwork, true)
	require.NoError(t, err)
	assert.Equal(t, "274.50", invView.Amount(inv.TotalGross))
}

func TestView_Categories(t *testing.T) {
	v, err := export.NewView(exporttest.Invoice(1), export.FormatHybrid, true)
	require.NoError(t, err)
	assert.Equal(t, codelist.CategoryStandard, v.Category)
	assert.Equal(t, codelist.CategoryZeroRated, v.LineCategory(money.Zero))
	assert.Empty(t, v.ExemptionReason())
	require.Len(t, v.Breakdown, 2)
	assert.Equal(t, "17", money.FormatRate(v.Breakdown[0].Rate))

	rc, err := export.NewView(exporttest.ReverseCharge(2), export.FormatHybrid, true)
	require.NoError(t, err)
	assert.Equal(t, codelist.CategoryReverseCharge, rc.Category)
	assert.Equal(t, codelist.CategoryReverseCharge, rc.LineCategory(money.Zero))
	assert.Contains(t, rc.ExemptionReason(), "Autoliquidation")
}

func TestView_ExportTotals(t *testing.T) {
	tests := []struct {
		name      string
		doc       *model.Document
		lines     []string
		taxes     []string
		lineTotal string
		taxTotal  string
		grand     string
	}{
		{"mixed rates", exporttest.MixedRates(1), []string{"10.03", "0.50"}, []string{"1.71", "0.02"}, "10.53", "1.73", "12.26"},
		{"fractional quantity", exporttest.FractionalQuantity(1), []string{"5.01", "5.01"}, []string{"1.70"}, "10.02", "1.70", "11.72"},
		{"two rates", exporttest.Invoice(1), []string{"200.00", "37.50"}, []string{"34.00", "3.00"}, "237.50", "37.00", "274.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := export.NewView(tt.doc, export.FormatNetwork, true)
			require.NoError(t, err)

			require.Len(t, v.Lines, len(tt.lines))
			for i, want := range tt.lines {
				assert.Equal(t, want, v.Amount(v.Lines[i]))
			}
			require.Len(t, v.Breakdown, len(tt.taxes))
			base := money.Zero
			for i, want := range tt.taxes {
				assert.Equal(t, want, v.Amount(v.Breakdown[i].Amount))
				base = base.Add(v.Breakdown[i].Base)
			}
			assert.True(t, base.Equal(v.LineTotal), "bases %s, line total %s", base, v.LineTotal)
			assert.Equal(t, tt.lineTotal, v.Amount(v.LineTotal))
			assert.Equal(t, tt.taxTotal, v.Amount(v.TaxTotal))
			assert.Equal(t, tt.grand, v.Amount(v.GrandTotal))
		})
	}
}

func TestView_ExportTotalsOfCreditNote(t *testing.T) {
	cn := exporttest.CreditNote(exporttest.MixedRates(1), 1)

	unsigned, err := export.NewView(cn, export.FormatNetwork, true)
	require.NoError(t, err)
	assert.Equal(t, "1.73", unsigned.Amount(unsigned.TaxTotal))
	assert.Equal(t, "12.26", unsigned.Amount(unsigned.GrandTotal))

	signed, err := export.NewView(cn, export.FormatAudit, false)
	require.NoError(t, err)
	assert.Equal(t, "-12.26", signed.Amount(signed.GrandTotal))
}

func TestRequireParties(t *testing.T) {
	tests := []struct {
		name  string
		doc   func() *model.Document
		field string
	}{
		{"missing seller", func() *model.Document {
			d := exporttest.Invoice(1)
			d.SellerSnapshot = nil
			return d
		}, "seller"},
		{"seller without legal name", func() *model.Document {
			d := exporttest.Invoice(1)
			d.SellerSnapshot.LegalName = ""
			return d
		}, "seller.legal_name"},
		{"seller without country", func() *model.Document {
			d := exporttest.Invoice(1)
			d.SellerSnapshot.Address.CountryCode = ""
			return d
		}, "seller.address.country_code"},
		{"standard rated seller without VAT number", func() *model.Document {
			d := exporttest.Invoice(1)
			d.SellerSnapshot.VATID = ""
			return d
		}, "seller.vat_id"},
		{"buyer without name", func() *model.Document {
			d := exporttest.Invoice(1)
			d.BuyerSnapshot.Name = ""
			return d
		}, "buyer.name"},
		{"buyer without country", func() *model.Document {
			d := exporttest.Invoice(1)
			d.BuyerSnapshot.Address.CountryCode = ""
			return d
		}, "buyer.address.country_code"},
		{"reverse charge buyer without VAT number", func() *model.Document {
			d := exporttest.ReverseCharge(1)
			d.BuyerSnapshot.VATID = ""
			return d
		}, "buyer.vat_id"},
		{"credit note without reference", func() *model.Document {
			d := exporttest.CreditNote(exporttest.Invoice(1), 1)
			d.CreditedNumber = ""
			return d
		}, "credited_number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := export.NewView(tt.doc(), export.FormatNetwork, true)
			require.NoError(t, err)

			var encErr *model.EncodeError
			require.True(t, errors.As(v.RequireParties(), &encErr))
			assert.Equal(t, tt.field, encErr.Field)
		})
	}

	t.Run("exempt seller needs no VAT number", func(t *testing.T) {
		d := exporttest.Invoice(1)
		d.Scenario = model.ScenarioDomesticExempt
		d.SellerSnapshot.VATID = ""
		v, err := export.NewView(d, export.FormatNetwork, true)
		require.NoError(t, err)
		assert.NoError(t, v.RequireParties())
	})
}

func TestPrice(t *testing.T) {
	assert.Equal(t, "100.00", export.Price(money.MustFromString("100")))
	assert.Equal(t, "12.50", export.Price(money.MustFromString("12.5")))
	assert.Equal(t, "0.1234", export.Price(money.MustFromString("0.1234")))
	assert.Equal(t, "0.125", export.Price(money.MustFromString("0.125")))
}

func TestDates(t *testing.T) {
	assert.Equal(t, "2026-03-15", export.Date(&exporttest.IssuedAt))
	assert.Equal(t, "20260315", export.CompactDate(&exporttest.IssuedAt))
	assert.Empty(t, export.Date(nil))
	assert.Empty(t, export.CompactDate(nil))
}
