package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/rezonia/fiscal-engine/internal/model"
)

// PostgreSQL error codes the store translates
const (
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// mapError turns lock and serialization failures into ConflictError and
// wraps everything else
func mapError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeLockNotAvailable:
			return model.NewConflictError(op, pqErr.Message, model.ErrLockTimeout)
		case codeSerializationFailure, codeDeadlockDetected:
			return model.NewConflictError(op, pqErr.Message, model.ErrSerialization)
		case codeUniqueViolation:
			return model.NewConflictError(op, pqErr.Message, pqErr)
		}
	}
	return fmt.Errorf("error %s: %w", op, err)
}
