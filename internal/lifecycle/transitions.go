package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rezonia/fiscal-engine/internal/model"
	"github.com/rezonia/fiscal-engine/internal/store"
)

var (
	sentFields     = allow(model.FieldStatus, model.FieldSentAt, model.FieldUpdatedAt)
	paidFields     = allow(model.FieldStatus, model.FieldPaidAt, model.FieldUpdatedAt)
	archivedFields = allow(model.FieldArchivedAt, model.FieldUpdatedAt)
)

// MarkSent moves a finalized document to sent. A nil at means now.
func (s *Service) MarkSent(ctx context.Context, id uuid.UUID, at *time.Time) (*model.Document, error) {
	return s.transition(ctx, id, "mark_sent", []model.Status{model.StatusFinalized}, sentFields,
		func(doc *model.Document, when time.Time) error {
			doc.Status = model.StatusSent
			doc.SentAt = &when
			return nil
		}, at)
}

// MarkPaid moves a finalized or sent document to paid
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID, at *time.Time) (*model.Document, error) {
	return s.transition(ctx, id, "mark_paid", []model.Status{model.StatusFinalized, model.StatusSent}, paidFields,
		func(doc *model.Document, when time.Time) error {
			doc.Status = model.StatusPaid
			doc.PaidAt = &when
			return nil
		}, at)
}

// Archive flags a finalized, sent or paid document as archived. The status
// is left unchanged.
func (s *Service) Archive(ctx context.Context, id uuid.UUID, at *time.Time) (*model.Document, error) {
	return s.transition(ctx, id, "archive",
		[]model.Status{model.StatusFinalized, model.StatusSent, model.StatusPaid}, archivedFields,
		func(doc *model.Document, when time.Time) error {
			if doc.ArchivedAt != nil {
				return model.NewPreconditionError("archive", "archived_at", "not_archived", "document is already archived")
			}
			doc.ArchivedAt = &when
			return nil
		}, at)
}

func (s *Service) transition(
	ctx context.Context,
	id uuid.UUID,
	op string,
	from []model.Status,
	fields map[string]bool,
	apply func(*model.Document, time.Time) error,
	at *time.Time,
) (*model.Document, error) {
	var result *model.Document
	err := store.WithTx(ctx, s.store, func(tx store.Tx) error {
		doc, err := tx.Document(ctx, id)
		if err != nil {
			return err
		}
		if !statusIn(doc.Status, from) {
			return model.NewPreconditionError(op, "status", "one_of:"+joinStatuses(from),
				fmt.Sprintf("document is %s", doc.Status))
		}

		before := doc.Clone()
		now := s.now()
		when := now
		if at != nil {
			when = *at
		}
		if err := apply(doc, when); err != nil {
			return err
		}
		doc.UpdatedAt = now

		if err := checkWhitelist(op, before, doc, fields); err != nil {
			return err
		}
		if err := tx.SaveDocument(ctx, doc); err != nil {
			return err
		}
		result = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.docLogger(result).WithField("operation", op).Info("Document transitioned")
	return result, nil
}

func allow(fields ...string) map[string]bool {
	m := make(map[string]bool, len(fields))
	for _, f := range fields {
		m[f] = true
	}
	return m
}

// checkWhitelist fails if the transition touched a field it does not own
func checkWhitelist(op string, before, after *model.Document, allowed map[string]bool) error {
	for _, field := range model.ChangedFields(before, after) {
		if !allowed[field] {
			return model.NewImmutableError(before.ID.String(), before.Status, op+" may not change "+field)
		}
	}
	return nil
}

func statusIn(s model.Status, set []model.Status) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func joinStatuses(set []model.Status) string {
	parts := make([]string, len(set))
	for i, s := range set {
		parts[i] = string(s)
	}
	return strings.Join(parts, "|")
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}
