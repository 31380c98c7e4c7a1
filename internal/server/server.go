package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rezonia/fiscal-engine/internal/config"
	"github.com/rezonia/fiscal-engine/internal/engine"
	"github.com/rezonia/fiscal-engine/internal/export"
	"github.com/rezonia/fiscal-engine/internal/lifecycle"
	"github.com/rezonia/fiscal-engine/internal/model"
	"github.com/rezonia/fiscal-engine/internal/store"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 30 * time.Second
	dateLayout      = "2006-01-02"
)

// Server represents the HTTP API server
type Server struct {
	config *config.ServerConfig
	router *gin.Engine
	engine *engine.Engine
	logger *logrus.Logger
}

// NewServer creates a new API server over an assembled engine
func NewServer(cfg *config.ServerConfig, eng *engine.Engine, logger *logrus.Logger) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Debug {
		router.Use(gin.Logger())
	}

	s := &Server{
		config: cfg,
		router: router,
		engine: eng,
		logger: logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		// Master data
		v1.PUT("/tenants/:tenant/business", s.handlePutBusiness)
		v1.POST("/clients", s.handleCreateClient)

		// Documents
		v1.GET("/documents", s.handleListDocuments)
		v1.POST("/documents", s.handleCreateDocument)
		v1.GET("/documents/:id", s.handleGetDocument)
		v1.PATCH("/documents/:id", s.handlePatchDocument)
		v1.POST("/documents/:id/items", s.handleAddItem)
		v1.PUT("/documents/:id/items/:itemID", s.handleUpdateItem)
		v1.DELETE("/documents/:id/items/:itemID", s.handleRemoveItem)

		// Lifecycle
		v1.POST("/documents/:id/finalize", s.handleFinalize)
		v1.POST("/documents/:id/send", s.handleSend)
		v1.POST("/documents/:id/pay", s.handlePay)
		v1.POST("/documents/:id/archive", s.handleArchive)
		v1.POST("/documents/:id/credit-note", s.handleCreditNote)

		// Export
		v1.GET("/documents/:id/export/:format", s.handleExport)
		v1.POST("/documents/:id/export/facturx/pdf", s.handleExportPDF)

		v1.GET("/numbering/preview", s.handlePreview)

		v1.POST("/validate", s.handleValidate)
		v1.GET("/validate/period", s.handleValidatePeriod)

		v1.GET("/audit", s.handleAudit)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Server starting on %s", s.config.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("Server exited")
	return nil
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"formats": s.engine.Formats(),
	})
}

func (s *Server) handlePutBusiness(c *gin.Context) {
	tenant, ok := uuidParam(c, "tenant")
	if !ok {
		return
	}
	var req BusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	business := &model.BusinessIdentity{
		ID:              uuid.New(),
		TenantID:        tenant,
		Party:           req.Party,
		PaymentTermDays: req.PaymentTermDays,
	}
	if existing, err := s.engine.Store().Business(ctx, tenant); err == nil {
		business.ID = existing.ID
	} else if !errors.Is(err, model.ErrNotFound) {
		s.respondError(c, err)
		return
	}

	if err := s.engine.Store().SaveBusiness(ctx, business); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, business)
}

func (s *Server) handleCreateClient(c *gin.Context) {
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	if req.TenantID == uuid.Nil {
		s.respondError(c, model.NewValidationError("tenant_id", nil, "required", "tenant is required"))
		return
	}

	client := &model.Client{ID: uuid.New(), TenantID: req.TenantID, Party: req.Party}
	if err := s.engine.Store().SaveClient(c.Request.Context(), client); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (s *Server) handleListDocuments(c *gin.Context) {
	var filter store.Filter
	if raw := c.Query("tenant_id"); raw != "" {
		tenant, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "invalid tenant_id", err)
			return
		}
		filter.TenantID = &tenant
	}
	if raw := c.Query("status"); raw != "" {
		filter.Statuses = []model.Status{model.Status(raw)}
	}
	if raw := c.Query("type"); raw != "" {
		filter.Type = model.DocumentType(raw)
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid year", err)
			return
		}
		filter.Year = year
	}

	docs, err := s.engine.Store().Documents(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if docs == nil {
		docs = []*model.Document{}
	}
	c.JSON(http.StatusOK, DocumentList{Documents: docs, Count: len(docs)})
}

func (s *Server) handleCreateDocument(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	doc, err := s.engine.Documents().CreateDraft(c.Request.Context(), req.input())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (s *Server) handleGetDocument(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	doc, err := s.engine.Documents().Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handlePatchDocument(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req PatchDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	doc, err := s.engine.Documents().UpdateDraft(c.Request.Context(), id, lifecycle.DraftPatch{
		ClientID: req.ClientID,
		Currency: req.Currency,
		IssuedAt: req.IssuedAt,
		DueAt:    req.DueAt,
		Notes:    req.Notes,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleAddItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	doc, err := s.engine.Documents().AddItem(c.Request.Context(), id, req.input())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (s *Server) handleUpdateItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := uuidParam(c, "itemID")
	if !ok {
		return
	}
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	doc, err := s.engine.Documents().UpdateItem(c.Request.Context(), id, itemID, req.input())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleRemoveItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := uuidParam(c, "itemID")
	if !ok {
		return
	}

	doc, err := s.engine.Documents().RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleFinalize(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req FinalizeRequest
	if !bindOptional(c, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	doc, err := s.engine.Documents().Finalize(ctx, id, lifecycle.FinalizeOptions{
		IssuedAt: req.IssuedAt,
		DueAt:    req.DueAt,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleSend(c *gin.Context) {
	s.handleTransition(c, s.engine.Documents().MarkSent)
}

func (s *Server) handlePay(c *gin.Context) {
	s.handleTransition(c, s.engine.Documents().MarkPaid)
}

func (s *Server) handleArchive(c *gin.Context) {
	s.handleTransition(c, s.engine.Documents().Archive)
}

type transitionFunc func(ctx context.Context, id uuid.UUID, at *time.Time) (*model.Document, error)

func (s *Server) handleTransition(c *gin.Context, fn transitionFunc) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req TransitionRequest
	if !bindOptional(c, &req) {
		return
	}

	doc, err := fn(c.Request.Context(), id, req.At)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleCreditNote(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req CreditNoteRequest
	if !bindOptional(c, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	doc, err := s.engine.Documents().CreateCreditNote(ctx, id, req.Finalize)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (s *Server) handleExport(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Param("format"))
	if err != nil {
		badRequest(c, "unknown export format", err)
		return
	}

	result, err := s.engine.Export(c.Request.Context(), id, format)
	if err != nil {
		s.respondError(c, err)
		return
	}

	cache := "MISS"
	if result.Cached {
		cache = "HIT"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("X-Checksum-SHA256", result.Checksum)
	c.Header("X-Cache", cache)
	c.Data(http.StatusOK, "application/xml; charset=utf-8", result.Data)
}

func (s *Server) handleExportPDF(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, "failed to read request body", err)
		return
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		badRequest(c, "request body is not a PDF", nil)
		return
	}

	var out bytes.Buffer
	if err := s.engine.ExportHybridPDF(c.Request.Context(), id, bytes.NewReader(body), &out); err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"facturx-%s.pdf\"", id))
	c.Data(http.StatusOK, "application/pdf", out.Bytes())
}

func (s *Server) handlePreview(c *gin.Context) {
	docType := model.DocumentType(c.DefaultQuery("type", string(model.DocumentTypeInvoice)))
	if !docType.Valid() {
		badRequest(c, "invalid document type", nil)
		return
	}

	number, err := s.engine.Documents().PreviewNumber(c.Request.Context(), docType)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PreviewResponse{Type: docType, Number: number})
}

func (s *Server) handleValidate(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		badRequest(c, "unknown export format", err)
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, "failed to read request body", err)
		return
	}
	if len(body) == 0 {
		badRequest(c, "empty request body", nil)
		return
	}

	report := s.engine.ValidateXML(body, format)
	c.JSON(http.StatusOK, ValidationResponse{Valid: report.Valid(), Report: report})
}

func (s *Server) handleValidatePeriod(c *gin.Context) {
	year := 0
	if raw := c.Query("year"); raw != "" {
		var err error
		if year, err = strconv.Atoi(raw); err != nil {
			badRequest(c, "invalid year", err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	report, err := s.engine.ValidatePeriod(ctx, year)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ValidationResponse{Valid: report.Valid(), Report: report})
}

func (s *Server) handleAudit(c *gin.Context) {
	from, err := time.Parse(dateLayout, c.Query("from"))
	if err != nil {
		badRequest(c, "from must be a date (YYYY-MM-DD)", err)
		return
	}
	to, err := time.Parse(dateLayout, c.Query("to"))
	if err != nil {
		badRequest(c, "to must be a date (YYYY-MM-DD)", err)
		return
	}
	var tenant *uuid.UUID
	if raw := c.Query("tenant_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "invalid tenant_id", err)
			return
		}
		tenant = &id
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	data, summary, err := s.engine.AuditPeriod(ctx, tenant, from, to)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if c.Query("summary") == "true" {
		c.JSON(http.StatusOK, summary)
		return
	}
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"faia-%s-%s.xml\"", summary.Start, summary.End))
	c.Header("X-Sequence-Valid", strconv.FormatBool(summary.SequenceValid))
	c.Data(http.StatusOK, "application/xml; charset=utf-8", data)
}

// respondError maps engine errors to HTTP statuses
func (s *Server) respondError(c *gin.Context, err error) {
	var (
		validationErr   *model.ValidationError
		preconditionErr *model.PreconditionError
		immutableErr    *model.ImmutableError
		encodeErr       *model.EncodeError
		conflictErr     *model.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "validation", Field: validationErr.Field})
	case errors.As(err, &preconditionErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "precondition", Field: preconditionErr.Field})
	case errors.As(err, &immutableErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "immutable"})
	case errors.As(err, &encodeErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "encode", Field: encodeErr.Field})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.As(err, &conflictErr), errors.Is(err, model.ErrLockTimeout), errors.Is(err, model.ErrSerialization):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "conflict"})
	default:
		s.logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "internal"})
	}
}

func badRequest(c *gin.Context, message string, err error) {
	resp := ErrorResponse{Error: message, Code: "bad_request"}
	if err != nil {
		resp.Details = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}

// bindOptional binds a JSON body when one was sent
func bindOptional(c *gin.Context, obj interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body", err)
		return false
	}
	return true
}
