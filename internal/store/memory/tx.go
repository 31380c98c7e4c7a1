package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rezonia/fiscal-engine/internal/model"
)

// Tx buffers writes and applies them on Commit. Locks are released on
// Commit or Rollback, whichever comes first.
type Tx struct {
	s         *Store
	docs      map[uuid.UUID]*model.Document
	counters  map[model.SequenceKey]int
	held      []chan struct{}
	heldParts map[model.SequenceKey]bool
	heldDocs  map[uuid.UUID]bool
	done      bool
}

// Document locks the document row and returns a copy of its current state
func (t *Tx) Document(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	if t.done {
		return nil, ErrTxDone
	}
	if doc, ok := t.docs[id]; ok {
		return doc.Clone(), nil
	}

	if !t.heldDocs[id] {
		ch := t.s.lockChannel(id)
		if err := t.s.acquire(ctx, "document/"+id.String(), ch); err != nil {
			return nil, err
		}
		t.held = append(t.held, ch)
		t.heldDocs[id] = true
	}
	return t.s.Document(ctx, id)
}

// SaveDocument buffers a write
func (t *Tx) SaveDocument(_ context.Context, doc *model.Document) error {
	if t.done {
		return ErrTxDone
	}
	t.docs[doc.ID] = doc.Clone()
	return nil
}

// LockSequence takes the partition lock and returns the current counter
func (t *Tx) LockSequence(ctx context.Context, key model.SequenceKey) (int, error) {
	if t.done {
		return 0, ErrTxDone
	}
	if !t.heldParts[key] {
		ch := t.s.lockChannel(key)
		if err := t.s.acquire(ctx, "sequence/"+key.String(), ch); err != nil {
			return 0, err
		}
		t.held = append(t.held, ch)
		t.heldParts[key] = true
	}

	if last, ok := t.counters[key]; ok {
		return last, nil
	}
	return t.s.Sequence(ctx, key)
}

// SetSequence buffers a counter write. The partition must be locked.
func (t *Tx) SetSequence(_ context.Context, key model.SequenceKey, last int) error {
	if t.done {
		return ErrTxDone
	}
	if !t.heldParts[key] {
		return fmt.Errorf("sequence %s written without holding its lock", key)
	}
	t.counters[key] = last
	return nil
}

// FinalizedNumbers lists every issued number in the partition, including
// this transaction's pending writes
func (t *Tx) FinalizedNumbers(_ context.Context, key model.SequenceKey) ([]string, error) {
	if t.done {
		return nil, ErrTxDone
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	var numbers []string
	for id, doc := range t.s.docs {
		if _, pending := t.docs[id]; pending {
			continue
		}
		if doc.Number != "" && doc.SequenceKey() == key {
			numbers = append(numbers, doc.Number)
		}
	}
	for _, doc := range t.docs {
		if doc.Number != "" && doc.SequenceKey() == key {
			numbers = append(numbers, doc.Number)
		}
	}
	return numbers, nil
}

// Business reads the seller identity
func (t *Tx) Business(ctx context.Context, tenantID uuid.UUID) (*model.BusinessIdentity, error) {
	return t.s.Business(ctx, tenantID)
}

// Client reads a client record
func (t *Tx) Client(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	return t.s.Client(ctx, id)
}

// CreditNotesFor sees committed and pending credit notes
func (t *Tx) CreditNotesFor(_ context.Context, originalID uuid.UUID) ([]*model.Document, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.creditNotesFor(originalID, t.docs), nil
}

// Commit applies buffered writes atomically. A number already held by a
// different document aborts the commit.
func (t *Tx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	defer t.release()

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for id, doc := range t.docs {
		if doc.Number == "" {
			continue
		}
		if owner, ok := t.s.numbers[doc.Number]; ok && owner != id {
			return model.NewConflictError("number/"+doc.Number, "number already issued", nil)
		}
	}

	for id, doc := range t.docs {
		if prev, ok := t.s.docs[id]; ok && prev.Number != "" && prev.Number != doc.Number {
			delete(t.s.numbers, prev.Number)
		}
		t.s.docs[id] = doc
		if doc.Number != "" {
			t.s.numbers[doc.Number] = id
		}
	}
	for key, last := range t.counters {
		t.s.counters[key] = last
	}
	return nil
}

// Rollback discards buffered writes
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.release()
	return nil
}

func (t *Tx) release() {
	t.done = true
	for i := len(t.held) - 1; i >= 0; i-- {
		<-t.held[i]
	}
	t.held = nil
}
