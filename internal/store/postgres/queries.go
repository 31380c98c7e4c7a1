package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rezonia/fiscal-engine/internal/model"
	"github.com/rezonia/fiscal-engine/internal/store"
)

const documentColumns = `id, tenant_id, client_id, type, status, number, sequence_year,
	issued_at, due_at, finalized_at, sent_at, paid_at, archived_at, currency,
	seller_snapshot, buyer_snapshot, total_net, total_tax, total_gross,
	credit_note_for, credited_number, vat_mention, scenario, notes, created_at, updated_at`

const itemColumns = `id, document_id, title, description, unit, quantity, unit_price, vat_rate,
	total_net, total_vat, total_gross, sort_order`

// seedQuery computes the starting counter of a partition from the numbers
// already issued, reading the suffix as an integer
const seedQuery = `SELECT COALESCE(MAX(CAST(substring(number from '(\d+)$') AS INTEGER)), 0)
	FROM documents WHERE type = $1 AND sequence_year = $2 AND number IS NOT NULL`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		doc            model.Document
		docType        string
		status         string
		scenario       string
		number         sql.NullString
		seller, buyer  []byte
	)

	err := row.Scan(
		&doc.ID, &doc.TenantID, &doc.ClientID, &docType, &status, &number, &doc.SequenceYear,
		&doc.IssuedAt, &doc.DueAt, &doc.FinalizedAt, &doc.SentAt, &doc.PaidAt, &doc.ArchivedAt, &doc.Currency,
		&seller, &buyer, &doc.TotalNet, &doc.TotalTax, &doc.TotalGross,
		&doc.CreditNoteFor, &doc.CreditedNumber, &doc.VATMention, &scenario, &doc.Notes, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Type = model.DocumentType(docType)
	doc.Status = model.Status(status)
	doc.Scenario = model.ScenarioKey(scenario)
	doc.Currency = strings.TrimSpace(doc.Currency)
	if number.Valid {
		doc.Number = number.String
	}
	if doc.SellerSnapshot, err = decodeParty(seller); err != nil {
		return nil, fmt.Errorf("error decoding seller snapshot: %w", err)
	}
	if doc.BuyerSnapshot, err = decodeParty(buyer); err != nil {
		return nil, fmt.Errorf("error decoding buyer snapshot: %w", err)
	}
	return &doc, nil
}

func decodeParty(data []byte) (*model.Party, error) {
	if data == nil {
		return nil, nil
	}
	var p model.Party
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// jsonParam encodes v for a JSONB column. lib/pq sends []byte as bytea, so
// the JSON goes out as text.
func jsonParam(p *model.Party) (interface{}, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func getDocument(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	doc, err := scanDocument(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("document", id.String())
	}
	if err != nil {
		return nil, mapError("querying document", err)
	}

	if doc.Items, err = loadItems(ctx, q, doc.ID); err != nil {
		return nil, err
	}
	return doc, nil
}

func loadItems(ctx context.Context, q querier, documentID uuid.UUID) ([]model.LineItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM document_items WHERE document_id = $1 ORDER BY sort_order, id`,
		documentID,
	)
	if err != nil {
		return nil, mapError("querying document items", err)
	}
	defer rows.Close()

	items := []model.LineItem{}
	for rows.Next() {
		var it model.LineItem
		if err := rows.Scan(
			&it.ID, &it.DocumentID, &it.Title, &it.Description, &it.Unit,
			&it.Quantity, &it.UnitPrice, &it.VATRate,
			&it.TotalNet, &it.TotalVAT, &it.TotalGross, &it.SortOrder,
		); err != nil {
			return nil, fmt.Errorf("error scanning document item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document items: %w", err)
	}
	return items, nil
}

func listDocuments(ctx context.Context, q querier, filter store.Filter) ([]*model.Document, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.TenantID != nil {
		add("tenant_id = $%d", *filter.TenantID)
	}
	if filter.Type != "" {
		add("type = $%d", string(filter.Type))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}
	if filter.FinalizedOnly {
		where = append(where, "status IN ('finalized', 'sent', 'paid')")
	}
	if filter.Year != 0 {
		add("sequence_year = $%d", filter.Year)
	}
	if filter.IssuedFrom != nil {
		add("issued_at >= $%d", *filter.IssuedFrom)
	}
	if filter.IssuedTo != nil {
		add("issued_at < $%d", *filter.IssuedTo)
	}

	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	return queryDocuments(ctx, q, query, args...)
}

func creditNotesFor(ctx context.Context, q querier, originalID uuid.UUID) ([]*model.Document, error) {
	return queryDocuments(ctx, q,
		`SELECT `+documentColumns+` FROM documents WHERE credit_note_for = $1 ORDER BY created_at, id`,
		originalID,
	)
}

func queryDocuments(ctx context.Context, q querier, query string, args ...interface{}) ([]*model.Document, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("querying documents", err)
	}

	var docs []*model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	rows.Close()

	for _, doc := range docs {
		if doc.Items, err = loadItems(ctx, q, doc.ID); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func saveDocument(ctx context.Context, q querier, doc *model.Document) error {
	seller, err := jsonParam(doc.SellerSnapshot)
	if err != nil {
		return fmt.Errorf("error encoding seller snapshot: %w", err)
	}
	buyer, err := jsonParam(doc.BuyerSnapshot)
	if err != nil {
		return fmt.Errorf("error encoding buyer snapshot: %w", err)
	}

	var number interface{}
	if doc.Number != "" {
		number = doc.Number
	}

	query := `
		INSERT INTO documents (` + documentColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26
		)
		ON CONFLICT (id) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			status = EXCLUDED.status,
			number = EXCLUDED.number,
			sequence_year = EXCLUDED.sequence_year,
			issued_at = EXCLUDED.issued_at,
			due_at = EXCLUDED.due_at,
			finalized_at = EXCLUDED.finalized_at,
			sent_at = EXCLUDED.sent_at,
			paid_at = EXCLUDED.paid_at,
			archived_at = EXCLUDED.archived_at,
			currency = EXCLUDED.currency,
			seller_snapshot = EXCLUDED.seller_snapshot,
			buyer_snapshot = EXCLUDED.buyer_snapshot,
			total_net = EXCLUDED.total_net,
			total_tax = EXCLUDED.total_tax,
			total_gross = EXCLUDED.total_gross,
			credit_note_for = EXCLUDED.credit_note_for,
			credited_number = EXCLUDED.credited_number,
			vat_mention = EXCLUDED.vat_mention,
			scenario = EXCLUDED.scenario,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`

	_, err = q.ExecContext(ctx, query,
		doc.ID, doc.TenantID, doc.ClientID, string(doc.Type), string(doc.Status), number, doc.SequenceYear,
		doc.IssuedAt, doc.DueAt, doc.FinalizedAt, doc.SentAt, doc.PaidAt, doc.ArchivedAt, doc.Currency,
		seller, buyer, doc.TotalNet, doc.TotalTax, doc.TotalGross,
		doc.CreditNoteFor, doc.CreditedNumber, doc.VATMention, string(doc.Scenario), doc.Notes, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return mapError("saving document", err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM document_items WHERE document_id = $1`, doc.ID); err != nil {
		return mapError("clearing document items", err)
	}

	for _, it := range doc.Items {
		_, err := q.ExecContext(ctx,
			`INSERT INTO document_items (`+itemColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			it.ID, doc.ID, it.Title, it.Description, it.Unit, it.Quantity, it.UnitPrice, it.VATRate,
			it.TotalNet, it.TotalVAT, it.TotalGross, it.SortOrder,
		)
		if err != nil {
			return mapError("inserting document item", err)
		}
	}
	return nil
}

func seedValue(ctx context.Context, q querier, key model.SequenceKey) (int, error) {
	var last int
	if err := q.QueryRowContext(ctx, seedQuery, string(key.Type), key.Year).Scan(&last); err != nil {
		return 0, mapError("scanning sequence "+key.String(), err)
	}
	return last, nil
}

func finalizedNumbers(ctx context.Context, q querier, key model.SequenceKey) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT number FROM documents WHERE type = $1 AND sequence_year = $2 AND number IS NOT NULL`,
		string(key.Type), key.Year,
	)
	if err != nil {
		return nil, mapError("listing numbers", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("error scanning number: %w", err)
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

func getBusiness(ctx context.Context, q querier, tenantID uuid.UUID) (*model.BusinessIdentity, error) {
	var (
		b    model.BusinessIdentity
		data []byte
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, tenant_id, identity, payment_term_days FROM businesses WHERE tenant_id = $1`,
		tenantID,
	).Scan(&b.ID, &b.TenantID, &data, &b.PaymentTermDays)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("business", tenantID.String())
	}
	if err != nil {
		return nil, mapError("querying business", err)
	}
	if err := json.Unmarshal(data, &b.Party); err != nil {
		return nil, fmt.Errorf("error decoding business identity: %w", err)
	}
	return &b, nil
}

func saveBusiness(ctx context.Context, q querier, b *model.BusinessIdentity) error {
	identity, err := jsonParam(&b.Party)
	if err != nil {
		return fmt.Errorf("error encoding business identity: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO businesses (id, tenant_id, identity, payment_term_days, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (tenant_id) DO UPDATE SET
			identity = EXCLUDED.identity,
			payment_term_days = EXCLUDED.payment_term_days,
			updated_at = now()
	`, b.ID, b.TenantID, identity, b.PaymentTermDays)
	if err != nil {
		return mapError("saving business", err)
	}
	return nil
}

func getClient(ctx context.Context, q querier, id uuid.UUID) (*model.Client, error) {
	var (
		c    model.Client
		data []byte
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, tenant_id, party FROM clients WHERE id = $1`, id,
	).Scan(&c.ID, &c.TenantID, &data)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("client", id.String())
	}
	if err != nil {
		return nil, mapError("querying client", err)
	}
	if err := json.Unmarshal(data, &c.Party); err != nil {
		return nil, fmt.Errorf("error decoding client: %w", err)
	}
	return &c, nil
}

func saveClient(ctx context.Context, q querier, c *model.Client) error {
	party, err := jsonParam(&c.Party)
	if err != nil {
		return fmt.Errorf("error encoding client: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO clients (id, tenant_id, party, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET party = EXCLUDED.party, updated_at = now()
	`, c.ID, c.TenantID, party)
	if err != nil {
		return mapError("saving client", err)
	}
	return nil
}
