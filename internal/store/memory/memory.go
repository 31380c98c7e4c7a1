// Package memory is an in-process store.Store. It keeps the locking
// behaviour of the Postgres store: row locks on documents, one exclusive
// lock per numbering partition held until commit or rollback, and a bounded
// wait that fails with a ConflictError.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rezonia/fiscal-engine/internal/model"
	"github.com/rezonia/fiscal-engine/internal/store"
)

// DefaultLockTimeout bounds the wait for a partition or document lock
const DefaultLockTimeout = 5 * time.Second

// ErrTxDone is returned when a finished transaction is used again
var ErrTxDone = errors.New("transaction already committed or rolled back")

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*Tx)(nil)
)

// Store is the in-memory store
type Store struct {
	mu         sync.RWMutex
	docs       map[uuid.UUID]*model.Document
	numbers    map[string]uuid.UUID
	businesses map[uuid.UUID]*model.BusinessIdentity
	clients    map[uuid.UUID]*model.Client
	counters   map[model.SequenceKey]int

	locksMu       sync.Mutex
	partitionLock map[model.SequenceKey]chan struct{}
	documentLock  map[uuid.UUID]chan struct{}

	lockTimeout time.Duration
}

// Option configures a Store
type Option func(*Store)

// WithLockTimeout overrides DefaultLockTimeout
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lockTimeout = d
	}
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		docs:          make(map[uuid.UUID]*model.Document),
		numbers:       make(map[string]uuid.UUID),
		businesses:    make(map[uuid.UUID]*model.BusinessIdentity),
		clients:       make(map[uuid.UUID]*model.Client),
		counters:      make(map[model.SequenceKey]int),
		partitionLock: make(map[model.SequenceKey]chan struct{}),
		documentLock:  make(map[uuid.UUID]chan struct{}),
		lockTimeout:   DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Document returns a copy of the committed document
func (s *Store) Document(_ context.Context, id uuid.UUID) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, model.NewNotFoundError("document", id.String())
	}
	return doc.Clone(), nil
}

// Documents returns copies of matching committed documents ordered by
// creation time
func (s *Store) Documents(_ context.Context, filter store.Filter) ([]*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Document
	for _, doc := range s.docs {
		if filter.Match(doc) {
			result = append(result, doc.Clone())
		}
	}
	sortDocuments(result)
	return result, nil
}

// Sequence reads a counter without locking it
func (s *Store) Sequence(_ context.Context, key model.SequenceKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[key], nil
}

// Business returns the seller identity of a tenant
func (s *Store) Business(_ context.Context, tenantID uuid.UUID) (*model.BusinessIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.business(tenantID)
}

func (s *Store) business(tenantID uuid.UUID) (*model.BusinessIdentity, error) {
	b, ok := s.businesses[tenantID]
	if !ok {
		return nil, model.NewNotFoundError("business", tenantID.String())
	}
	c := *b
	c.Party = *b.Party.Clone()
	return &c, nil
}

// Client returns a client record
func (s *Store) Client(_ context.Context, id uuid.UUID) (*model.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client(id)
}

func (s *Store) client(id uuid.UUID) (*model.Client, error) {
	c, ok := s.clients[id]
	if !ok {
		return nil, model.NewNotFoundError("client", id.String())
	}
	cp := *c
	cp.Party = *c.Party.Clone()
	return &cp, nil
}

// CreditNotesFor lists committed credit notes referencing originalID
func (s *Store) CreditNotesFor(_ context.Context, originalID uuid.UUID) ([]*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creditNotesFor(originalID, nil), nil
}

func (s *Store) creditNotesFor(originalID uuid.UUID, pending map[uuid.UUID]*model.Document) []*model.Document {
	var result []*model.Document
	seen := make(map[uuid.UUID]bool)
	for id, doc := range pending {
		seen[id] = true
		if doc.CreditNoteFor != nil && *doc.CreditNoteFor == originalID {
			result = append(result, doc.Clone())
		}
	}
	for id, doc := range s.docs {
		if seen[id] {
			continue
		}
		if doc.CreditNoteFor != nil && *doc.CreditNoteFor == originalID {
			result = append(result, doc.Clone())
		}
	}
	sortDocuments(result)
	return result
}

// SaveBusiness stores a tenant's seller identity
func (s *Store) SaveBusiness(_ context.Context, b *model.BusinessIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *b
	c.Party = *b.Party.Clone()
	s.businesses[b.TenantID] = &c
	return nil
}

// SaveClient stores a client record
func (s *Store) SaveClient(_ context.Context, c *model.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	cp.Party = *c.Party.Clone()
	s.clients[c.ID] = &cp
	return nil
}

// Begin starts a transaction
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{
		s:         s,
		docs:      make(map[uuid.UUID]*model.Document),
		counters:  make(map[model.SequenceKey]int),
		heldParts: make(map[model.SequenceKey]bool),
		heldDocs:  make(map[uuid.UUID]bool),
	}, nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

func (s *Store) lockChannel(key interface{}) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	switch k := key.(type) {
	case model.SequenceKey:
		ch, ok := s.partitionLock[k]
		if !ok {
			ch = make(chan struct{}, 1)
			s.partitionLock[k] = ch
		}
		return ch
	case uuid.UUID:
		ch, ok := s.documentLock[k]
		if !ok {
			ch = make(chan struct{}, 1)
			s.documentLock[k] = ch
		}
		return ch
	}
	panic("memory: unsupported lock key")
}

// acquire blocks until the lock is free, the context ends or the lock
// timeout elapses
func (s *Store) acquire(ctx context.Context, name string, ch chan struct{}) error {
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return model.NewConflictError(name, "lock not acquired within "+s.lockTimeout.String(), model.ErrLockTimeout)
	case <-ctx.Done():
		return model.NewConflictError(name, "lock wait cancelled", ctx.Err())
	}
}

func sortDocuments(docs []*model.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID.String() < docs[j].ID.String()
	})
}
