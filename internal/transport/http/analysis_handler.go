package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "iqccli/internal/errors"
	"iqccli/internal/services"
	"iqccli/pkg/contracts/domain"
)

var validate = validator.New()

// AnalysisHandler handles batch analysis requests.
type AnalysisHandler struct {
	analysis     *services.AnalysisService
	reports      *services.ReportService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analysis *services.AnalysisService, reports *services.ReportService, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysis:     analysis,
		reports:      reports,
		logger:       logger.With(slog.String("handler", "analysis")),
		errorHandler: apierrors.NewErrorHandler(logger, false),
	}
}

// RegisterRoutes registers the analysis routes.
func (h *AnalysisHandler) RegisterRoutes(r chi.Router) {
	r.Post("/analysis", h.Analyze)
}

// Analyze handles POST /api/analysis. It runs the full pipeline for the
// batch, archives the resulting report and returns it.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := validate.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, validationToAPIError(err))
		return
	}

	h.logger.InfoContext(ctx, "analysis requested",
		slog.String("part_name", req.Batch.PartName),
		slog.Int("dimensions", len(req.Dimensions)))

	report, err := h.analysis.Analyze(ctx, &req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if err := h.reports.SaveReport(ctx, report); err != nil {
		h.logger.ErrorContext(ctx, "failed to archive report",
			slog.String("report_id", report.ID),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("save report", err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, report)
}

// validationToAPIError flattens validator field errors into the API
// error envelope.
func validationToAPIError(err error) *apierrors.APIError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	details := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, apierrors.ValidationError{
			Field:   fe.Namespace(),
			Message: "failed validation rule " + fe.Tag(),
		})
	}
	return apierrors.NewValidationErrors(details)
}
