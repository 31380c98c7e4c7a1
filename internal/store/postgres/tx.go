package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rezonia/fiscal-engine/internal/model"
)

// Tx wraps a *sql.Tx. Row locks taken with FOR UPDATE live until Commit or
// Rollback.
type Tx struct {
	tx     *sql.Tx
	logger *logrus.Logger
}

// Document reads a document and locks its row
func (t *Tx) Document(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	return getDocument(ctx, t.tx, id, true)
}

// SaveDocument upserts a document and replaces its items
func (t *Tx) SaveDocument(ctx context.Context, doc *model.Document) error {
	return saveDocument(ctx, t.tx, doc)
}

// LockSequence creates the partition row if needed, seeded from the numbers
// already issued, and locks it
func (t *Tx) LockSequence(ctx context.Context, key model.SequenceKey) (int, error) {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO document_sequences (doc_type, year, last_value)
		VALUES ($1, $2, (`+seedQuery+`))
		ON CONFLICT (doc_type, year) DO NOTHING
	`, string(key.Type), key.Year)
	if err != nil {
		return 0, mapError("sequence/"+key.String(), err)
	}

	var last int
	err = t.tx.QueryRowContext(ctx,
		`SELECT last_value FROM document_sequences WHERE doc_type = $1 AND year = $2 FOR UPDATE`,
		string(key.Type), key.Year,
	).Scan(&last)
	if err != nil {
		return 0, mapError("sequence/"+key.String(), err)
	}
	return last, nil
}

// SetSequence writes the counter of a locked partition
func (t *Tx) SetSequence(ctx context.Context, key model.SequenceKey, last int) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE document_sequences SET last_value = $3, updated_at = now() WHERE doc_type = $1 AND year = $2`,
		string(key.Type), key.Year, last,
	)
	if err != nil {
		return mapError("sequence/"+key.String(), err)
	}
	return nil
}

// FinalizedNumbers lists every issued number in the partition
func (t *Tx) FinalizedNumbers(ctx context.Context, key model.SequenceKey) ([]string, error) {
	return finalizedNumbers(ctx, t.tx, key)
}

// Business reads a tenant's seller identity
func (t *Tx) Business(ctx context.Context, tenantID uuid.UUID) (*model.BusinessIdentity, error) {
	return getBusiness(ctx, t.tx, tenantID)
}

// Client reads a client record
func (t *Tx) Client(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	return getClient(ctx, t.tx, id)
}

// CreditNotesFor lists credit notes referencing originalID
func (t *Tx) CreditNotesFor(ctx context.Context, originalID uuid.UUID) ([]*model.Document, error) {
	return creditNotesFor(ctx, t.tx, originalID)
}

// Commit commits the transaction
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return mapError("commit", err)
	}
	return nil
}

// Rollback aborts the transaction. Rolling back a finished tx is not an error.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		t.logger.WithError(err).Warn("Rollback failed")
		return err
	}
	return nil
}
