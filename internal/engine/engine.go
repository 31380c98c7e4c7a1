// Package engine wires the lifecycle service, the export encoders, the
// validator and the export cache into one entry point for the HTTP API, the
// CLI and embedding programs.
package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rezonia/fiscal-engine/internal/archive"
	"github.com/rezonia/fiscal-engine/internal/config"
	"github.com/rezonia/fiscal-engine/internal/export"
	"github.com/rezonia/fiscal-engine/internal/export/audit"
	"github.com/rezonia/fiscal-engine/internal/export/cii"
	"github.com/rezonia/fiscal-engine/internal/export/ubl"
	"github.com/rezonia/fiscal-engine/internal/lifecycle"
	"github.com/rezonia/fiscal-engine/internal/model"
	"github.com/rezonia/fiscal-engine/internal/numbering"
	"github.com/rezonia/fiscal-engine/internal/store"
	"github.com/rezonia/fiscal-engine/internal/store/memory"
	"github.com/rezonia/fiscal-engine/internal/store/postgres"
	"github.com/rezonia/fiscal-engine/internal/validator"
	"github.com/rezonia/fiscal-engine/internal/vat"
)

// Engine is the assembled fiscal engine
type Engine struct {
	store     store.Store
	documents *lifecycle.Service
	registry  *export.Registry
	audit     *audit.Encoder
	validator *validator.Validator
	cache     *archive.Cache
	logger    *logrus.Logger
}

// Option configures an Engine
type Option func(*settings)

type settings struct {
	clock lifecycle.Clock
	cache *archive.Cache
}

// WithClock replaces the system clock of the lifecycle service
func WithClock(c lifecycle.Clock) Option {
	return func(s *settings) {
		s.clock = c
	}
}

// WithCache enables the export cache
func WithCache(c *archive.Cache) Option {
	return func(s *settings) {
		s.cache = c
	}
}

// New assembles an engine over st
func New(cfg *config.Config, st store.Store, logger *logrus.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	var set settings
	for _, opt := range opts {
		opt(&set)
	}

	format := numbering.Format{
		InvoicePrefix:    cfg.Numbering.InvoicePrefix,
		CreditNotePrefix: cfg.Numbering.CreditNotePrefix,
		Width:            cfg.Numbering.Width,
	}

	serviceOpts := []lifecycle.Option{
		lifecycle.WithPaymentTerms(cfg.Terms.PaymentDays),
		lifecycle.WithCurrency(cfg.Terms.Currency),
	}
	if set.clock != nil {
		serviceOpts = append(serviceOpts, lifecycle.WithClock(set.clock))
	}
	documents := lifecycle.NewService(
		st,
		numbering.NewAuthority(format, logger),
		vat.NewResolver(cfg.Tax.StandardRate, cfg.Tax.HomeCountry, cfg.Tax.Region),
		logger,
		serviceOpts...,
	)

	checker := validator.New(
		validator.WithNumberFormat(format),
		validator.WithSchema(export.FormatAudit, cfg.Export.SchemaAudit),
		validator.WithSchema(export.FormatHybrid, cfg.Export.SchemaHybrid),
		validator.WithSchema(export.FormatNetwork, cfg.Export.SchemaNetwork),
	)

	auditEncoder := audit.New(audit.Options{
		SoftwareCompany: cfg.Export.SoftwareCompany,
		SoftwareID:      cfg.Export.SoftwareID,
		SoftwareVersion: cfg.Export.SoftwareVersion,
		Country:         cfg.Tax.HomeCountry,
	}, checker)

	registry := export.NewRegistry(
		auditEncoder,
		cii.New(cfg.Export.FacturXGuideline),
		ubl.New(ubl.Options{
			CustomizationID: cfg.Export.PeppolCustomization,
			ProfileID:       cfg.Export.PeppolProfile,
		}),
	)

	return &Engine{
		store:     st,
		documents: documents,
		registry:  registry,
		audit:     auditEncoder,
		validator: checker,
		cache:     set.cache,
		logger:    logger,
	}
}

// Open connects the store and cache described by cfg and assembles an
// engine. Without a database host the engine runs on the in-memory store.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger, opts ...Option) (*Engine, error) {
	var st store.Store
	if cfg.UsePostgres() {
		pg, err := postgres.Connect(postgres.Config{
			DSN:          cfg.GetDSN(),
			MaxOpenConns: 20,
			MaxIdleConns: 5,
			LockTimeout:  cfg.Database.LockTimeout,
			Serializable: cfg.Database.Serializable,
		}, logger)
		if err != nil {
			return nil, err
		}
		st = pg
	} else {
		logger.Warn("No database configured, documents are kept in memory")
		st = memory.New(memory.WithLockTimeout(cfg.Database.LockTimeout))
	}

	cache, err := archive.Connect(ctx, cfg.Redis, logger)
	if err != nil {
		logger.WithError(err).Warn("Export cache unavailable, continuing without it")
		cache = nil
	}

	return New(cfg, st, logger, append([]Option{WithCache(cache)}, opts...)...), nil
}

// Close releases the store and the cache
func (e *Engine) Close() error {
	if err := e.cache.Close(); err != nil {
		e.logger.WithError(err).Warn("Error closing export cache")
	}
	return e.store.Close()
}

// Store returns the underlying store
func (e *Engine) Store() store.Store {
	return e.store
}

// Documents returns the lifecycle service
func (e *Engine) Documents() *lifecycle.Service {
	return e.documents
}

// Validator returns the configured validator
func (e *Engine) Validator() *validator.Validator {
	return e.validator
}

// Formats lists the export formats
func (e *Engine) Formats() []export.Format {
	return e.registry.Formats()
}

// ExportResult is one encoded document
type ExportResult struct {
	Format   export.Format `json:"format"`
	Filename string        `json:"filename"`
	Checksum string        `json:"checksum"`
	Cached   bool          `json:"cached"`
	Data     []byte        `json:"-"`
}

// Export encodes a finalized document. Results are served from the cache
// when one is configured; cache failures only cost the cache.
func (e *Engine) Export(ctx context.Context, id uuid.UUID, f export.Format) (*ExportResult, error) {
	encoder, err := e.registry.Get(f)
	if err != nil {
		return nil, err
	}
	doc, err := e.store.Document(ctx, id)
	if err != nil {
		return nil, err
	}

	log := e.logger.WithFields(logrus.Fields{
		"document_id": id.String(),
		"format":      string(f),
	})

	if doc.IsFinalized() {
		entry, ok, err := e.cache.Get(ctx, id, f)
		if err != nil {
			log.WithError(err).Warn("Export cache read failed")
		} else if ok {
			return &ExportResult{
				Format:   f,
				Filename: export.Filename(f, doc),
				Checksum: entry.Checksum,
				Cached:   true,
				Data:     entry.Data,
			}, nil
		}
	}

	data, err := encoder.Encode(doc)
	if err != nil {
		return nil, err
	}

	checksum, err := e.cache.Put(ctx, id, f, data)
	if err != nil {
		log.WithError(err).Warn("Export cache write failed")
		checksum = archive.Checksum(data)
	}

	log.WithField("number", doc.Number).Info("Document exported")
	return &ExportResult{
		Format:   f,
		Filename: export.Filename(f, doc),
		Checksum: checksum,
		Data:     data,
	}, nil
}

// ExportHybridPDF writes pdf with the Factur-X XML of a finalized document
// attached
func (e *Engine) ExportHybridPDF(ctx context.Context, id uuid.UUID, pdf io.ReadSeeker, w io.Writer) error {
	result, err := e.Export(ctx, id, export.FormatHybrid)
	if err != nil {
		return err
	}
	return cii.EmbedPDF(pdf, result.Data, w)
}

// AuditPeriod produces the audit file of every finalized document issued
// between from and to, both days inclusive. A non-nil tenant restricts the
// file to that tenant and puts its identity in the header; the sequence
// check of the summary still covers every tenant of the period.
func (e *Engine) AuditPeriod(ctx context.Context, tenantID *uuid.UUID, from, to time.Time) ([]byte, *audit.PeriodSummary, error) {
	if to.Before(from) {
		return nil, nil, model.NewValidationError("to", to.Format("2006-01-02"), "after_from", "period end is before its start")
	}
	start := startOfDay(from)
	end := startOfDay(to).AddDate(0, 0, 1)

	docs, err := e.store.Documents(ctx, store.Filter{
		TenantID:      tenantID,
		FinalizedOnly: true,
		IssuedFrom:    &start,
		IssuedTo:      &end,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error loading period documents: %w", err)
	}

	var company *model.Party
	if tenantID != nil {
		business, err := e.store.Business(ctx, *tenantID)
		if err != nil {
			return nil, nil, err
		}
		company = business.Snapshot()
	}

	data, summary, err := e.audit.EncodePeriod(company, docs, audit.Period{Start: start, End: startOfDay(to)})
	if err != nil {
		return nil, nil, err
	}

	if tenantID != nil {
		// partitions are shared by all tenants; numbers issued to others are not gaps
		all, err := e.store.Documents(ctx, store.Filter{
			FinalizedOnly: true,
			IssuedFrom:    &start,
			IssuedTo:      &end,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("error loading period documents: %w", err)
		}
		report := e.validator.Sequence(all)
		summary.SequenceValid = report.Valid()
		summary.Gaps = report.Gaps
		summary.Duplicates = report.Duplicates
	}

	e.logger.WithFields(logrus.Fields{
		"from":      summary.Start,
		"to":        summary.End,
		"documents": summary.Documents,
		"gaps":      len(summary.Gaps),
	}).Info("Audit file produced")
	return data, summary, nil
}

// ValidatePeriod runs the sequence and balance checks over every document of
// a sequence year, across all tenants since numbering is global. A zero year
// checks everything.
func (e *Engine) ValidatePeriod(ctx context.Context, year int) (*validator.Report, error) {
	docs, err := e.store.Documents(ctx, store.Filter{Year: year})
	if err != nil {
		return nil, fmt.Errorf("error loading documents: %w", err)
	}
	return e.validator.Period(docs), nil
}

// ValidateXML runs the structural checks of a format over data
func (e *Engine) ValidateXML(data []byte, f export.Format) *validator.Report {
	return e.validator.Structural(data, f)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
