// Package numbering hands out gapless PREFIX-YYYY-SEQ document numbers.
//
// The source of truth is one counter per (document type, year) partition.
// Partitions are global: two tenants finalizing invoices in the same year
// contend for the same counter.
package numbering

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rezonia/fiscal-engine/internal/model"
)

// Sequencer is the part of a store transaction numbering needs. LockSequence
// must hold an exclusive lock on the partition until the transaction ends.
type Sequencer interface {
	LockSequence(ctx context.Context, key model.SequenceKey) (int, error)
	SetSequence(ctx context.Context, key model.SequenceKey, last int) error
}

// Reader reads a counter without locking it
type Reader interface {
	Sequence(ctx context.Context, key model.SequenceKey) (int, error)
}

// Repairer can both lock the counter and list the numbers actually issued
type Repairer interface {
	Sequencer
	FinalizedNumbers(ctx context.Context, key model.SequenceKey) ([]string, error)
}

// Authority is the numbering service
type Authority struct {
	format Format
	logger *logrus.Logger
}

// NewAuthority creates a new numbering authority
func NewAuthority(format Format, logger *logrus.Logger) *Authority {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Authority{format: format, logger: logger}
}

// Format returns the number format in use
func (a *Authority) Format() Format {
	return a.format
}

// Next locks the partition inside tx, increments its counter and returns the
// rendered number. Nothing is reserved: if tx rolls back the increment is
// undone with it.
func (a *Authority) Next(ctx context.Context, tx Sequencer, key model.SequenceKey) (string, error) {
	last, err := tx.LockSequence(ctx, key)
	if err != nil {
		return "", err
	}

	next := last + 1
	if err := tx.SetSequence(ctx, key, next); err != nil {
		return "", fmt.Errorf("error advancing sequence %s: %w", key, err)
	}

	number := a.format.Render(key.Type, key.Year, next)
	a.logger.WithFields(logrus.Fields{
		"partition": key.String(),
		"number":    number,
	}).Debug("Allocated document number")
	return number, nil
}

// Preview returns the number Next would produce right now. The result is
// advisory and may be taken by a concurrent finalization.
func (a *Authority) Preview(ctx context.Context, r Reader, key model.SequenceKey) (string, error) {
	last, err := r.Sequence(ctx, key)
	if err != nil {
		return "", fmt.Errorf("error reading sequence %s: %w", key, err)
	}
	return a.format.Render(key.Type, key.Year, last+1), nil
}

// Rebuild rewrites the partition counter from the numbers actually issued.
// Suffixes are compared as integers. Numbers that do not parse, or belong to
// another partition, are skipped and logged.
func (a *Authority) Rebuild(ctx context.Context, tx Repairer, key model.SequenceKey) (int, error) {
	if _, err := tx.LockSequence(ctx, key); err != nil {
		return 0, err
	}

	numbers, err := tx.FinalizedNumbers(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("error scanning numbers for %s: %w", key, err)
	}

	highest := MaxSuffix(a.format, key, numbers, func(number string, err error) {
		a.logger.WithFields(logrus.Fields{
			"partition": key.String(),
			"number":    number,
		}).WithError(err).Warn("Skipping number during rebuild")
	})

	if err := tx.SetSequence(ctx, key, highest); err != nil {
		return 0, fmt.Errorf("error writing sequence %s: %w", key, err)
	}

	a.logger.WithFields(logrus.Fields{
		"partition": key.String(),
		"last":      highest,
		"scanned":   len(numbers),
	}).Info("Rebuilt sequence counter")
	return highest, nil
}

// MaxSuffix returns the highest numeric suffix among numbers belonging to key.
// skip, if non-nil, is called for every number that was ignored.
func MaxSuffix(format Format, key model.SequenceKey, numbers []string, skip func(string, error)) int {
	highest := 0
	for _, n := range numbers {
		p, err := format.Parse(n)
		if err == nil && (p.Type != key.Type || p.Year != key.Year) {
			err = fmt.Errorf("%w: %q is outside partition %s", ErrMalformed, n, key)
		}
		if err != nil {
			if skip != nil {
				skip(n, err)
			}
			continue
		}
		if p.Seq > highest {
			highest = p.Seq
		}
	}
	return highest
}
