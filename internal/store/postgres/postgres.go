// Package postgres implements store.Store on PostgreSQL through lib/pq.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/rezonia/fiscal-engine/internal/model"
	"github.com/rezonia/fiscal-engine/internal/store"
)

//go:embed schema.sql
var schema string

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*Tx)(nil)
)

// Config holds connection settings
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LockTimeout     time.Duration

	// Serializable runs every transaction at SERIALIZABLE isolation. The
	// partition row lock already serializes numbering; with this set,
	// contended finalizations fail with a ConflictError instead of waiting.
	Serializable bool
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store is the PostgreSQL store
type Store struct {
	db     *sql.DB
	cfg    Config
	logger *logrus.Logger
}

// Connect opens and pings the database
func Connect(cfg Config, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	return &Store{db: db, cfg: cfg, logger: logger}, nil
}

// Migrate creates the tables if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error applying schema: %w", err)
	}
	s.logger.Info("Database schema applied")
	return nil
}

// Close closes the pool
func (s *Store) Close() error {
	return s.db.Close()
}

// HealthCheck pings the database
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Begin opens a transaction with a bounded lock wait
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	if s.cfg.Serializable {
		opts.Isolation = sql.LevelSerializable
	}

	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, mapError("begin", err)
	}

	if s.cfg.LockTimeout > 0 {
		// SET does not take bind parameters
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.cfg.LockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("error setting lock timeout: %w", err)
		}
	}

	return &Tx{tx: tx, logger: s.logger}, nil
}

// Document reads a committed document
func (s *Store) Document(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	return getDocument(ctx, s.db, id, false)
}

// Documents lists committed documents matching filter
func (s *Store) Documents(ctx context.Context, filter store.Filter) ([]*model.Document, error) {
	return listDocuments(ctx, s.db, filter)
}

// Sequence reads a counter without locking
func (s *Store) Sequence(ctx context.Context, key model.SequenceKey) (int, error) {
	var last int
	err := s.db.QueryRowContext(ctx,
		`SELECT last_value FROM document_sequences WHERE doc_type = $1 AND year = $2`,
		string(key.Type), key.Year,
	).Scan(&last)
	if err == sql.ErrNoRows {
		return seedValue(ctx, s.db, key)
	}
	if err != nil {
		return 0, mapError("sequence "+key.String(), err)
	}
	return last, nil
}

// Business reads a tenant's seller identity
func (s *Store) Business(ctx context.Context, tenantID uuid.UUID) (*model.BusinessIdentity, error) {
	return getBusiness(ctx, s.db, tenantID)
}

// Client reads a client record
func (s *Store) Client(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	return getClient(ctx, s.db, id)
}

// CreditNotesFor lists credit notes referencing originalID
func (s *Store) CreditNotesFor(ctx context.Context, originalID uuid.UUID) ([]*model.Document, error) {
	return creditNotesFor(ctx, s.db, originalID)
}

// SaveBusiness upserts a tenant's seller identity
func (s *Store) SaveBusiness(ctx context.Context, b *model.BusinessIdentity) error {
	return saveBusiness(ctx, s.db, b)
}

// SaveClient upserts a client record
func (s *Store) SaveClient(ctx context.Context, c *model.Client) error {
	return saveClient(ctx, s.db, c)
}
