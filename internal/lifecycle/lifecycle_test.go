package lifecycle_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fiscal-engine/internal/codelist"
	"github.com/rezonia/fiscal-engine/internal/lifecycle"
	"github.com/rezonia/fiscal-engine/internal/model"
	"github.com/rezonia/fiscal-engine/internal/numbering"
	"github.com/rezonia/fiscal-engine/internal/store"
	"github.com/rezonia/fiscal-engine/internal/store/memory"
	"github.com/rezonia/fiscal-engine/internal/vat"
)

var clockTime = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	svc      *lifecycle.Service
	tenant   uuid.UUID
	business *model.BusinessIdentity
	client   *model.Client
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T, opts ...memory.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New(opts...)
	tenant := uuid.New()

	business := &model.BusinessIdentity{
		ID:       uuid.New(),
		TenantID: tenant,
		Party: model.Party{
			Name:      "Atelier Lumière",
			LegalName: "Atelier Lumière SARL",
			Address:   model.Address{Street: "12 rue de la Gare", PostalCode: "L-1611", City: "Luxembourg", CountryCode: "LU"},
			VATID:     "LU12345678",
			IBAN:      "LU280019400644750000",
			Regime:    model.RegimeStandard,
		},
		PaymentTermDays: 30,
	}
	require.NoError(t, st.SaveBusiness(ctx, business))

	client := &model.Client{
		ID:       uuid.New(),
		TenantID: tenant,
		Party: model.Party{
			Name:    "Acme Luxembourg SA",
			Address: model.Address{Street: "1 avenue Kennedy", PostalCode: "L-1855", City: "Luxembourg", CountryCode: "LU"},
			VATID:   "LU87654321",
			Kind:    model.KindBusiness,
		},
	}
	require.NoError(t, st.SaveClient(ctx, client))

	svc := lifecycle.NewService(
		st,
		numbering.NewAuthority(numbering.DefaultFormat(), quietLogger()),
		vat.NewResolver(decimal.NewFromInt(17), "LU", codelist.EU27),
		quietLogger(),
		lifecycle.WithClock(lifecycle.FixedClock(clockTime)),
	)

	return &fixture{store: st, svc: svc, tenant: tenant, business: business, client: client}
}

func rate(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func (f *fixture) draft(t *testing.T, items ...lifecycle.ItemInput) *model.Document {
	t.Helper()
	doc, err := f.svc.CreateDraft(context.Background(), lifecycle.DraftInput{
		TenantID: f.tenant,
		ClientID: f.client.ID,
		Items:    items,
	})
	require.NoError(t, err)
	return doc
}

func consulting() lifecycle.ItemInput {
	return lifecycle.ItemInput{
		Title:     "Consulting",
		Unit:      "hour",
		Quantity:  decimal.NewFromInt(2),
		UnitPrice: decimal.RequireFromString("100.00"),
		VATRate:   rate(17),
	}
}

func (f *fixture) sequence(t *testing.T, docType model.DocumentType) int {
	t.Helper()
	last, err := f.store.Sequence(context.Background(), model.SequenceKey{Type: docType, Year: 2026})
	require.NoError(t, err)
	return last
}

func TestFinalize_NumbersAndTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.draft(t, consulting())
	doc, err := f.svc.Finalize(ctx, first.ID, lifecycle.FinalizeOptions{})
	require.NoError(t, err)

	assert.Equal(t, "F-2026-001", doc.Number)
	assert.Equal(t, model.StatusFinalized, doc.Status)
	assert.Equal(t, "200.00", doc.TotalNet.StringFixed(2))
	assert.Equal(t, "34.00", doc.TotalTax.StringFixed(2))
	assert.Equal(t, "234.00", doc.TotalGross.StringFixed(2))
	assert.Equal(t, model.ScenarioDomesticStandard, doc.Scenario)
	assert.Empty(t, doc.VATMention)
	require.NotNil(t, doc.FinalizedAt)
	assert.True(t, doc.FinalizedAt.Equal(clockTime))
	assert.True(t, doc.IssuedAt.Equal(clockTime))
	assert.True(t, doc.DueAt.Equal(clockTime.AddDate(0, 0, 30)))
	assert.NoError(t, doc.CheckFinalizedInvariant())

	second := f.draft(t, consulting())
	doc, err = f.svc.Finalize(ctx, second.ID, lifecycle.FinalizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "F-2026-002", doc.Number)

	stored, err := f.store.Document(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "F-2026-002", stored.Number)
	assert.Equal(t, 2, f.sequence(t, model.DocumentTypeInvoice))
}

func TestFinalize_ConcurrentIsGapless(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 50
	ids := make([]uuid.UUID, workers)
	for i := range ids {
		ids[i] = f.draft(t, consulting()).ID
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
		errs    []error
	)
	start := make(chan struct{})
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			<-start
			doc, err := f.svc.Finalize(ctx, id, lifecycle.FinalizeOptions{})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, doc.Number)
		}(id)
	}
	close(start)
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, numbers, workers)

	format := numbering.DefaultFormat()
	seqs := make([]int, 0, workers)
	for _, n := range numbers {
		p, err := format.Parse(n)
		require.NoError(t, err)
		seqs = append(seqs, p.Seq)
	}
	sort.Ints(seqs)
	for i, seq := range seqs {
		assert.Equal(t, i+1, seq)
	}
	assert.Equal(t, workers, f.sequence(t, model.DocumentTypeInvoice))
}

func TestFinalize_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("no items", func(t *testing.T) {
		f := newFixture(t)
		doc := f.draft(t)
		_, err := f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})

		var pErr *model.PreconditionError
		require.True(t, errors.As(err, &pErr))
		assert.Equal(t, "items", pErr.Field)
		assert.Zero(t, f.sequence(t, model.DocumentTypeInvoice))
	})

	t.Run("already finalized", func(t *testing.T) {
		f := newFixture(t)
		doc := f.draft(t, consulting())
		_, err := f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
		require.NoError(t, err)

		_, err = f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
		var pErr *model.PreconditionError
		require.True(t, errors.As(err, &pErr))
		assert.Equal(t, "status", pErr.Field)
		assert.Equal(t, 1, f.sequence(t, model.DocumentTypeInvoice))
	})

	t.Run("incomplete seller", func(t *testing.T) {
		f := newFixture(t)
		doc := f.draft(t, consulting())

		f.business.LegalName = ""
		require.NoError(t, f.store.SaveBusiness(ctx, f.business))

		_, err := f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
		var pErr *model.PreconditionError
		require.True(t, errors.As(err, &pErr))
		assert.Equal(t, "seller.legal_name", pErr.Field)

		stored, err := f.store.Document(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusDraft, stored.Status)
		assert.Empty(t, stored.Number)
		assert.Zero(t, f.sequence(t, model.DocumentTypeInvoice))
	})

	t.Run("missing seller", func(t *testing.T) {
		f := newFixture(t)
		other := uuid.New()
		client := &model.Client{ID: uuid.New(), TenantID: other, Party: f.client.Party}
		require.NoError(t, f.store.SaveClient(ctx, client))
		doc, err := f.svc.CreateDraft(ctx, lifecycle.DraftInput{
			TenantID: other,
			ClientID: client.ID,
			Items:    []lifecycle.ItemInput{consulting()},
		})
		require.NoError(t, err)

		_, err = f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
		var pErr *model.PreconditionError
		require.True(t, errors.As(err, &pErr))
		assert.Equal(t, "seller", pErr.Field)
	})

	t.Run("due before issue", func(t *testing.T) {
		f := newFixture(t)
		doc := f.draft(t, consulting())
		issued := clockTime
		due := clockTime.AddDate(0, 0, -1)

		_, err := f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{IssuedAt: &issued, DueAt: &due})
		var pErr *model.PreconditionError
		require.True(t, errors.As(err, &pErr))
		assert.Equal(t, "due_at", pErr.Field)
		assert.Zero(t, f.sequence(t, model.DocumentTypeInvoice))
	})

	t.Run("unknown document", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Finalize(ctx, uuid.New(), lifecycle.FinalizeOptions{})
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})
}

func TestFinalize_DateOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draftIssued := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	doc, err := f.svc.CreateDraft(ctx, lifecycle.DraftInput{
		TenantID: f.tenant,
		ClientID: f.client.ID,
		IssuedAt: &draftIssued,
		Items:    []lifecycle.ItemInput{consulting()},
	})
	require.NoError(t, err)

	doc, err = f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
	require.NoError(t, err)
	assert.True(t, doc.IssuedAt.Equal(draftIssued))
	assert.True(t, doc.DueAt.Equal(time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)))

	second := f.draft(t, consulting())
	issued := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	due := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	doc, err = f.svc.Finalize(ctx, second.ID, lifecycle.FinalizeOptions{IssuedAt: &issued, DueAt: &due})
	require.NoError(t, err)
	assert.True(t, doc.IssuedAt.Equal(issued))
	assert.True(t, doc.DueAt.Equal(due))
}

func TestFinalize_FranchiseSeller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.business.Regime = model.RegimeFranchise
	f.business.VATID = ""
	f.business.RegistrationID = "A123456"
	require.NoError(t, f.store.SaveBusiness(ctx, f.business))

	item := consulting()
	item.VATRate = nil
	doc := f.draft(t, item)
	assert.True(t, doc.Items[0].VATRate.IsZero(), "default rate follows the franchise scenario")

	doc, err := f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.ScenarioDomesticExempt, doc.Scenario)
	assert.Equal(t, codelist.MentionFranchise, doc.VATMention)
	assert.True(t, doc.TotalTax.IsZero())
	assert.Equal(t, "200.00", doc.TotalGross.StringFixed(2))
}

func TestFinalize_ZeroRatedScenarioRejectsTaxedLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.client.Address.CountryCode = "DE"
	f.client.VATID = "DE123456789"
	require.NoError(t, f.store.SaveClient(ctx, f.client))

	doc := f.draft(t, consulting())
	_, err := f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})

	var pErr *model.PreconditionError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "scenario_rate", pErr.Rule)
	assert.Zero(t, f.sequence(t, model.DocumentTypeInvoice))

	item := consulting()
	item.VATRate = nil
	doc = f.draft(t, item)
	doc, err = f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.ScenarioIntraB2BReverseCharge, doc.Scenario)
	assert.Equal(t, codelist.MentionReverseCharge, doc.VATMention)
	assert.Equal(t, "F-2026-001", doc.Number)
}

func TestFinalize_DomesticBusinessWithoutVATNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.client.VATID = ""
	require.NoError(t, f.store.SaveClient(ctx, f.client))

	item := consulting()
	item.VATRate = nil
	doc := f.draft(t, item)
	assert.True(t, doc.Items[0].VATRate.Equal(decimal.NewFromInt(17)))

	doc, err := f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.ScenarioDomesticStandard, doc.Scenario)
	assert.Equal(t, "34.00", doc.TotalTax.StringFixed(2))
}

func TestFinalize_SnapshotsAreFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.draft(t, consulting())
	_, err := f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
	require.NoError(t, err)

	f.business.LegalName = "Renamed SARL"
	require.NoError(t, f.store.SaveBusiness(ctx, f.business))
	f.client.Name = "Renamed client"
	require.NoError(t, f.store.SaveClient(ctx, f.client))

	stored, err := f.store.Document(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Atelier Lumière SARL", stored.SellerSnapshot.LegalName)
	assert.Equal(t, "Acme Luxembourg SA", stored.BuyerSnapshot.Name)
}

func TestFinalize_LockTimeoutLeavesDraft(t *testing.T) {
	f := newFixture(t, memory.WithLockTimeout(30*time.Millisecond))
	ctx := context.Background()
	doc := f.draft(t, consulting())

	holder, err := f.store.Begin(ctx)
	require.NoError(t, err)
	_, err = holder.LockSequence(ctx, model.SequenceKey{Type: model.DocumentTypeInvoice, Year: 2026})
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
	var conflict *model.ConflictError
	require.True(t, errors.As(err, &conflict))
	require.NoError(t, holder.Rollback())

	stored, err := f.store.Document(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, stored.Status)

	doc, err = f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "F-2026-001", doc.Number)
}

// failingStore fails every save of a numbered document
type failingStore struct {
	*memory.Store
}

func (s failingStore) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return failingTx{tx}, nil
}

type failingTx struct {
	store.Tx
}

func (t failingTx) SaveDocument(ctx context.Context, doc *model.Document) error {
	if doc.Number != "" {
		return errors.New("disk full")
	}
	return t.Tx.SaveDocument(ctx, doc)
}

func TestFinalize_FailureAfterNumberingConsumesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.draft(t, consulting())

	svc := lifecycle.NewService(
		failingStore{f.store},
		numbering.NewAuthority(numbering.DefaultFormat(), quietLogger()),
		vat.NewResolver(decimal.NewFromInt(17), "LU", codelist.EU27),
		quietLogger(),
		lifecycle.WithClock(lifecycle.FixedClock(clockTime)),
	)

	_, err := svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
	require.EqualError(t, err, "disk full")
	assert.Zero(t, f.sequence(t, model.DocumentTypeInvoice))

	doc, err = f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "F-2026-001", doc.Number)
}

func TestDraftEditing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.draft(t, consulting())
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "234.00", doc.TotalGross.StringFixed(2))

	doc, err := f.svc.AddItem(ctx, doc.ID, lifecycle.ItemInput{
		Title:     "Travel",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.RequireFromString("50.00"),
		VATRate:   rate(3),
	})
	require.NoError(t, err)
	require.Len(t, doc.Items, 2)
	assert.Equal(t, 1, doc.Items[1].SortOrder)
	assert.Equal(t, "285.50", doc.TotalGross.StringFixed(2))

	updated := consulting()
	updated.Quantity = decimal.NewFromInt(3)
	doc, err = f.svc.UpdateItem(ctx, doc.ID, doc.Items[0].ID, updated)
	require.NoError(t, err)
	assert.Equal(t, "351.00", doc.TotalGross.Sub(decimal.RequireFromString("51.50")).StringFixed(2))

	doc, err = f.svc.RemoveItem(ctx, doc.ID, doc.Items[1].ID)
	require.NoError(t, err)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "351.00", doc.TotalGross.StringFixed(2))

	notes := "PO 4711"
	currency := "usd"
	doc, err = f.svc.UpdateDraft(ctx, doc.ID, lifecycle.DraftPatch{Notes: &notes, Currency: &currency})
	require.NoError(t, err)
	assert.Equal(t, "PO 4711", doc.Notes)
	assert.Equal(t, "USD", doc.Currency)

	_, err = f.svc.RemoveItem(ctx, doc.ID, uuid.New())
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestDraftEditing_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.draft(t)

	tests := []struct {
		name  string
		input lifecycle.ItemInput
		field string
	}{
		{"missing title", lifecycle.ItemInput{Quantity: decimal.NewFromInt(1), VATRate: rate(17)}, "title"},
		{"zero quantity", lifecycle.ItemInput{Title: "x", VATRate: rate(17)}, "quantity"},
		{"negative quantity on invoice", lifecycle.ItemInput{Title: "x", Quantity: decimal.NewFromInt(-1), VATRate: rate(17)}, "quantity"},
		{"negative price", lifecycle.ItemInput{Title: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(-5), VATRate: rate(17)}, "unit_price"},
		{"rate above 100", lifecycle.ItemInput{Title: "x", Quantity: decimal.NewFromInt(1), VATRate: rate(170)}, "vat_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddItem(ctx, doc.ID, tt.input)
			var vErr *model.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}

	_, err := f.svc.CreateDraft(ctx, lifecycle.DraftInput{TenantID: f.tenant, ClientID: f.client.ID, Currency: "EURO"})
	var vErr *model.ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = f.svc.CreateDraft(ctx, lifecycle.DraftInput{TenantID: f.tenant, ClientID: uuid.New()})
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestDraftEditing_ImmutableAfterFinalize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.draft(t, consulting())
	doc, err := f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
	require.NoError(t, err)

	notes := "changed"
	operations := map[string]func() error{
		"add_item": func() error {
			_, err := f.svc.AddItem(ctx, doc.ID, consulting())
			return err
		},
		"update_item": func() error {
			_, err := f.svc.UpdateItem(ctx, doc.ID, doc.Items[0].ID, consulting())
			return err
		},
		"remove_item": func() error {
			_, err := f.svc.RemoveItem(ctx, doc.ID, doc.Items[0].ID)
			return err
		},
		"update": func() error {
			_, err := f.svc.UpdateDraft(ctx, doc.ID, lifecycle.DraftPatch{Notes: &notes})
			return err
		},
	}

	for name, op := range operations {
		t.Run(name, func(t *testing.T) {
			err := op()
			var iErr *model.ImmutableError
			require.True(t, errors.As(err, &iErr), "got %v", err)
			assert.Equal(t, model.StatusFinalized, iErr.Status)
		})
	}

	stored, err := f.store.Document(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, model.ChangedFields(doc, stored))
}

func TestTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.draft(t, consulting())

	_, err := f.svc.MarkSent(ctx, doc.ID, nil)
	var pErr *model.PreconditionError
	require.True(t, errors.As(err, &pErr), "draft cannot be sent")

	final, err := f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
	require.NoError(t, err)

	sentAt := clockTime.Add(time.Hour)
	sent, err := f.svc.MarkSent(ctx, doc.ID, &sentAt)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, sent.Status)
	assert.True(t, sent.SentAt.Equal(sentAt))
	assert.ElementsMatch(t,
		[]string{model.FieldStatus, model.FieldSentAt},
		model.ChangedFields(final, sent))

	_, err = f.svc.MarkSent(ctx, doc.ID, nil)
	assert.True(t, errors.As(err, &pErr), "sent twice")

	paid, err := f.svc.MarkPaid(ctx, doc.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, paid.Status)
	assert.True(t, paid.PaidAt.Equal(clockTime))

	_, err = f.svc.MarkSent(ctx, doc.ID, nil)
	assert.True(t, errors.As(err, &pErr), "paid cannot go back to sent")

	archived, err := f.svc.Archive(ctx, doc.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, archived.Status)
	require.NotNil(t, archived.ArchivedAt)

	_, err = f.svc.Archive(ctx, doc.ID, nil)
	assert.True(t, errors.As(err, &pErr), "archived twice")

	assert.Equal(t, final.Number, archived.Number)
	assert.Equal(t, final.SellerSnapshot, archived.SellerSnapshot)
	assert.True(t, final.TotalGross.Equal(archived.TotalGross))
}

func TestMarkPaid_FromFinalized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.draft(t, consulting())
	_, err := f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
	require.NoError(t, err)

	paid, err := f.svc.MarkPaid(ctx, doc.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, paid.Status)
	assert.Nil(t, paid.SentAt)
}

func TestPreviewNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.PreviewNumber(ctx, model.DocumentTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, "F-2026-001", n)

	// preview does not reserve anything
	n, err = f.svc.PreviewNumber(ctx, model.DocumentTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, "F-2026-001", n)

	doc := f.draft(t, consulting())
	_, err = f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
	require.NoError(t, err)

	n, err = f.svc.PreviewNumber(ctx, model.DocumentTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, "F-2026-002", n)

	n, err = f.svc.PreviewNumber(ctx, model.DocumentTypeCreditNote)
	require.NoError(t, err)
	assert.Equal(t, "AV-2026-001", n)
}

func TestRebuildSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := model.SequenceKey{Type: model.DocumentTypeInvoice, Year: 2026}

	for i := 0; i < 3; i++ {
		doc := f.draft(t, consulting())
		_, err := f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
		require.NoError(t, err)
	}

	// corrupt the counter, then repair it from the issued numbers
	require.NoError(t, store.WithTx(ctx, f.store, func(tx store.Tx) error {
		if _, err := tx.LockSequence(ctx, key); err != nil {
			return err
		}
		return tx.SetSequence(ctx, key, 0)
	}))

	last, err := f.svc.RebuildSequence(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 3, last)

	doc := f.draft(t, consulting())
	doc, err = f.svc.Finalize(ctx, doc.ID, lifecycle.FinalizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "F-2026-004", doc.Number)
}
