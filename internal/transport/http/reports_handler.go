package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "iqccli/internal/errors"
	"iqccli/internal/history"
	"iqccli/internal/services"
)

// ReportsHandler serves the report archive: listing, retrieval, deletion
// and export downloads.
type ReportsHandler struct {
	reports      *services.ReportService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(reports *services.ReportService, logger *slog.Logger) *ReportsHandler {
	return &ReportsHandler{
		reports:      reports,
		logger:       logger.With(slog.String("handler", "reports")),
		errorHandler: apierrors.NewErrorHandler(logger, false),
	}
}

// RegisterRoutes registers the report archive routes.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{reportID}", h.Get)
		r.Delete("/{reportID}", h.Delete)
		r.Get("/{reportID}/export", h.Export)
	})
}

// List handles GET /api/reports. The optional q parameter filters by
// part name or batch number.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summaries, err := h.reports.ListReports(ctx, r.URL.Query().Get("q"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("list reports", err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"reports": summaries,
		"count":   len(summaries),
	})
}

// Get handles GET /api/reports/{reportID}.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportID")

	report, err := h.reports.GetReport(r.Context(), reportID)
	if err != nil {
		h.handleStoreError(w, r, reportID, err)
		return
	}
	render.JSON(w, r, report)
}

// Delete handles DELETE /api/reports/{reportID}.
func (h *ReportsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "reportID")

	if err := h.reports.DeleteReport(ctx, reportID); err != nil {
		h.handleStoreError(w, r, reportID, err)
		return
	}

	h.logger.InfoContext(ctx, "report deleted", slog.String("report_id", reportID))
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /api/reports/{reportID}/export. The format
// parameter selects excel (default) or csv; the rendered file is
// streamed back as an attachment.
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "reportID")
	format := r.URL.Query().Get("format")

	path, err := h.reports.ExportReport(ctx, reportID, format)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			h.handleStoreError(w, r, reportID, err)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ExportError(format, err))
		return
	}

	h.logger.InfoContext(ctx, "report exported",
		slog.String("report_id", reportID),
		slog.String("format", format),
		slog.String("path", path))

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func (h *ReportsHandler) handleStoreError(w http.ResponseWriter, r *http.Request, reportID string, err error) {
	if errors.Is(err, history.ErrNotFound) {
		h.errorHandler.HandleError(w, r, apierrors.ReportNotFoundError(reportID))
		return
	}
	h.errorHandler.HandleError(w, r, apierrors.FileSystemError("read report", err))
}
