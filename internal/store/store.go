// Package store defines the persistence boundary of the engine. The
// implementations live in store/memory and store/postgres.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rezonia/fiscal-engine/internal/model"
)

// Filter narrows Documents. Zero values match everything.
type Filter struct {
	TenantID      *uuid.UUID
	Type          model.DocumentType
	Statuses      []model.Status
	FinalizedOnly bool
	IssuedFrom    *time.Time
	IssuedTo      *time.Time
	Year          int
}

// Match reports whether doc satisfies the filter
func (f Filter) Match(doc *model.Document) bool {
	if f.TenantID != nil && doc.TenantID != *f.TenantID {
		return false
	}
	if f.Type != "" && doc.Type != f.Type {
		return false
	}
	if f.FinalizedOnly && !doc.IsFinalized() {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if doc.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Year != 0 && doc.SequenceYear != f.Year {
		return false
	}
	if f.IssuedFrom != nil && (doc.IssuedAt == nil || doc.IssuedAt.Before(*f.IssuedFrom)) {
		return false
	}
	if f.IssuedTo != nil && (doc.IssuedAt == nil || !doc.IssuedAt.Before(*f.IssuedTo)) {
		return false
	}
	return true
}

// Reader is the read-only view shared by Store and Tx
type Reader interface {
	Business(ctx context.Context, tenantID uuid.UUID) (*model.BusinessIdentity, error)
	Client(ctx context.Context, id uuid.UUID) (*model.Client, error)
	CreditNotesFor(ctx context.Context, originalID uuid.UUID) ([]*model.Document, error)
}

// Store is a transactional document store. Documents returned are copies;
// mutating them has no effect until saved through a Tx.
type Store interface {
	Reader

	Document(ctx context.Context, id uuid.UUID) (*model.Document, error)
	Documents(ctx context.Context, filter Filter) ([]*model.Document, error)
	Sequence(ctx context.Context, key model.SequenceKey) (int, error)

	SaveBusiness(ctx context.Context, b *model.BusinessIdentity) error
	SaveClient(ctx context.Context, c *model.Client) error

	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is one unit of work. Document locks the row until the Tx ends, and
// LockSequence locks the numbering partition until the Tx ends. Callers take
// document locks before partition locks.
type Tx interface {
	Reader

	Document(ctx context.Context, id uuid.UUID) (*model.Document, error)
	SaveDocument(ctx context.Context, doc *model.Document) error

	LockSequence(ctx context.Context, key model.SequenceKey) (int, error)
	SetSequence(ctx context.Context, key model.SequenceKey, last int) error
	FinalizedNumbers(ctx context.Context, key model.SequenceKey) ([]string, error)

	Commit() error
	Rollback() error
}

// WithTx runs fn inside a transaction, rolling back on error or panic
func WithTx(ctx context.Context, s Store, fn func(Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back transaction: %w, original error: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
