package fiscal_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fiscal-engine/pkg/fiscal"
)

func newEngine(t *testing.T) (*fiscal.Engine, uuid.UUID, uuid.UUID) {
	t.Helper()
	cfg, err := fiscal.LoadConfig()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	eng := fiscal.NewEngine(cfg, fiscal.NewMemoryStore(), logger,
		fiscal.WithClock(fiscal.FixedClock(time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC))))
	t.Cleanup(func() { eng.Close() })

	ctx := context.Background()
	tenant := uuid.New()
	require.NoError(t, eng.Store().SaveBusiness(ctx, &fiscal.BusinessIdentity{
		ID:       uuid.New(),
		TenantID: tenant,
		Party: fiscal.Party{
			Name:      "Atelier Lumière",
			LegalName: "Atelier Lumière SARL",
			Address:   fiscal.Address{Street: "12 rue de la Gare", PostalCode: "L-1611", City: "Luxembourg", CountryCode: "LU"},
			VATID:     "LU12345678",
		},
	}))
	client := &fiscal.Client{
		ID:       uuid.New(),
		TenantID: tenant,
		Party: fiscal.Party{
			Name:    "Acme Luxembourg SA",
			Address: fiscal.Address{City: "Luxembourg", CountryCode: "LU"},
			VATID:   "LU87654321",
			Kind:    fiscal.KindBusiness,
		},
	}
	require.NoError(t, eng.Store().SaveClient(ctx, client))
	return eng, tenant, client.ID
}

func TestDefaultConfig(t *testing.T) {
	cfg, err := fiscal.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "F", cfg.Numbering.InvoicePrefix)
	assert.Equal(t, "AV", cfg.Numbering.CreditNotePrefix)
	assert.Equal(t, 3, cfg.Numbering.Width)
	assert.False(t, cfg.UsePostgres())
}

func TestEngineFinalizeAndExport(t *testing.T) {
	eng, tenant, client := newEngine(t)
	ctx := context.Background()

	draft, err := eng.Documents().CreateDraft(ctx, fiscal.DraftInput{
		TenantID: tenant,
		ClientID: client,
		Items: []fiscal.ItemInput{{
			Title:     "Consulting",
			Quantity:  decimal.NewFromInt(3),
			UnitPrice: decimal.RequireFromString("80.00"),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, fiscal.StatusDraft, draft.Status)

	doc, err := eng.Documents().Finalize(ctx, draft.ID, fiscal.FinalizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "F-2026-001", doc.Number)
	assert.Equal(t, "280.80", doc.TotalGross.StringFixed(2))

	format, err := fiscal.ParseFormat("PEPPOL")
	require.NoError(t, err)
	assert.Equal(t, fiscal.FormatNetwork, format)

	result, err := eng.Export(ctx, doc.ID, format)
	require.NoError(t, err)
	assert.Contains(t, string(result.Data), "<cbc:ID>F-2026-001</cbc:ID>")
	assert.True(t, eng.ValidateXML(result.Data, format).Valid())
}

func TestEngineErrors(t *testing.T) {
	eng, tenant, client := newEngine(t)
	ctx := context.Background()

	_, err := eng.Documents().Get(ctx, uuid.New())
	assert.True(t, errors.Is(err, fiscal.ErrNotFound))

	draft, err := eng.Documents().CreateDraft(ctx, fiscal.DraftInput{TenantID: tenant, ClientID: client})
	require.NoError(t, err)

	_, err = eng.Documents().Finalize(ctx, draft.ID, fiscal.FinalizeOptions{})
	var precondition *fiscal.PreconditionError
	require.True(t, errors.As(err, &precondition))
	assert.Equal(t, "items", precondition.Field)

	_, err = eng.Export(ctx, draft.ID, fiscal.FormatAudit)
	var encode *fiscal.EncodeError
	assert.True(t, errors.As(err, &encode))
}
