package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/models"
	dErrors "github.com/modullar/violations-tracker-backend-sub003/pkg/domain-errors"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/platform/httputil"
	pstrings "github.com/modullar/violations-tracker-backend-sub003/pkg/platform/strings"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/requestcontext"
)

const (
	DefaultMaxBatchSize = 500
	maxBodyBytes        = 16 << 20
	healthCheckTimeout  = 2 * time.Second
)

// BatchProcessor is implemented by *Service.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, records []models.ViolationRecord, actor string) BatchResult
}

// BatchRequest is the body of POST /api/v1/violations/batch.
type BatchRequest struct {
	Records []models.ViolationRecord `json:"records" validate:"required,min=1,dive"`
}

// Handler exposes batch ingestion over HTTP.
type Handler struct {
	processor    BatchProcessor
	validator    *validator.Validate
	maxBatchSize int
	logger       *slog.Logger
	checks       []healthCheck
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type healthCheck struct {
	name  string
	check HealthCheck
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHealthCheck adds a dependency to /healthz. A failing check turns the
// response into 503.
func WithHealthCheck(name string, check HealthCheck) HandlerOption {
	return func(h *Handler) {
		if check != nil {
			h.checks = append(h.checks, healthCheck{name: name, check: check})
		}
	}
}

func NewHandler(processor BatchProcessor, maxBatchSize int, logger *slog.Logger, opts ...HandlerOption) *Handler {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		processor:    processor,
		validator:    validator.New(validator.WithRequiredStructEnabled()),
		maxBatchSize: maxBatchSize,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Post("/api/v1/violations/batch", h.handleBatch)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	for _, c := range h.checks {
		if err := c.check(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed",
				"request_id", requestcontext.RequestID(ctx),
				"dependency", c.name,
				"error", err,
			)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"failed": c.name,
			})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid batch request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(req.Records) > h.maxBatchSize {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("batch holds %d records, the limit is %d", len(req.Records), h.maxBatchSize)))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.logger.WarnContext(ctx, "batch failed validation",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, validationMessage(err)))
		return
	}

	for i := range req.Records {
		req.Records[i].ID = uuid.Nil
		req.Records[i].SourceURLs = pstrings.DedupeAndTrim(req.Records[i].SourceURLs)
		req.Records[i].MediaLinks = pstrings.DedupeAndTrim(req.Records[i].MediaLinks)
	}

	result := h.processor.ProcessBatch(ctx, req.Records, requestcontext.Actor(ctx))
	httputil.WriteJSON(w, http.StatusOK, result)
}

// validationMessage reports the first failing field.
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return fmt.Sprintf("%s failed on %s", ve[0].Namespace(), ve[0].Tag())
	}
	return "invalid request"
}
