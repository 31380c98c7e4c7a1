// Package lifecycle owns every write to a document: draft editing while the
// document is a draft, then the named transitions finalize, mark sent, mark
// paid and archive. There is no generic update path for finalized documents.
package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rezonia/fiscal-engine/internal/model"
	"github.com/rezonia/fiscal-engine/internal/numbering"
	"github.com/rezonia/fiscal-engine/internal/store"
	"github.com/rezonia/fiscal-engine/internal/vat"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

// Now calls f
func (f ClockFunc) Now() time.Time {
	return f()
}

// FixedClock always returns t
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Service runs draft operations and transitions
type Service struct {
	store           store.Store
	numbers         *numbering.Authority
	resolver        *vat.Resolver
	clock           Clock
	paymentTermDays int
	currency        string
	logger          *logrus.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the system clock
func WithClock(c Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithPaymentTerms sets the default payment term used when the seller
// identity does not carry one
func WithPaymentTerms(days int) Option {
	return func(s *Service) {
		s.paymentTermDays = days
	}
}

// WithCurrency sets the currency of new drafts
func WithCurrency(code string) Option {
	return func(s *Service) {
		s.currency = code
	}
}

// NewService creates a new lifecycle service
func NewService(st store.Store, numbers *numbering.Authority, resolver *vat.Resolver, logger *logrus.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Service{
		store:           st,
		numbers:         numbers,
		resolver:        resolver,
		clock:           systemClock{},
		paymentTermDays: 30,
		currency:        "EUR",
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a document
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	return s.store.Document(ctx, id)
}

// PreviewNumber returns the number the next finalization of docType would
// get this year. The result is advisory.
func (s *Service) PreviewNumber(ctx context.Context, docType model.DocumentType) (string, error) {
	key := model.SequenceKey{Type: docType, Year: s.clock.Now().Year()}
	return s.numbers.Preview(ctx, s.store, key)
}

// RebuildSequence rewrites a partition counter from the issued numbers
func (s *Service) RebuildSequence(ctx context.Context, key model.SequenceKey) (int, error) {
	var last int
	err := store.WithTx(ctx, s.store, func(tx store.Tx) error {
		var err error
		last, err = s.numbers.Rebuild(ctx, tx, key)
		return err
	})
	return last, err
}

func (s *Service) now() time.Time {
	return s.clock.Now()
}

func (s *Service) docLogger(doc *model.Document) *logrus.Entry {
	fields := logrus.Fields{
		"document_id": doc.ID.String(),
		"type":        string(doc.Type),
		"status":      string(doc.Status),
	}
	if doc.Number != "" {
		fields["number"] = doc.Number
	}
	return s.logger.WithFields(fields)
}
