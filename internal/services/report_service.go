package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"iqccli/internal/exporter"
	"iqccli/internal/history"
	"iqccli/pkg/contracts/domain"
)

// ReportNotifier receives report lifecycle events for the dashboard.
type ReportNotifier interface {
	NotifyReportCompleted(summary domain.ReportSummary)
}

// Export formats accepted by ExportReport.
const (
	FormatExcel = "excel"
	FormatCSV   = "csv"
)

// ReportService owns report persistence and export.
type ReportService struct {
	store     *history.Store
	excel     *exporter.ExcelExporter
	csv       *exporter.CSVWriter
	exportDir string
	notifier  ReportNotifier
	logger    *slog.Logger
}

// NewReportService creates the service over the given archive and export
// directory.
func NewReportService(store *history.Store, exportDir string, logger *slog.Logger) *ReportService {
	return &ReportService{
		store:     store,
		excel:     exporter.NewExcelExporter(logger),
		csv:       &exporter.CSVWriter{BOMPrefix: true},
		exportDir: exportDir,
		logger:    logger.With(slog.String("component", "report_service")),
	}
}

// SetNotifier attaches the dashboard notifier. Nil disables notification.
func (s *ReportService) SetNotifier(n ReportNotifier) {
	s.notifier = n
}

// SaveReport archives the report and announces it to the dashboard.
func (s *ReportService) SaveReport(ctx context.Context, report *domain.Report) error {
	if err := s.store.Save(ctx, report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyReportCompleted(report.Summarize())
	}
	return nil
}

// GetReport loads a full report by ID.
func (s *ReportService) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	return s.store.Get(ctx, id)
}

// ListReports returns all report summaries, newest first. A non-empty
// query filters by part name or batch number.
func (s *ReportService) ListReports(ctx context.Context, query string) ([]domain.ReportSummary, error) {
	return s.store.Search(ctx, query)
}

// DeleteReport removes a report from the archive.
func (s *ReportService) DeleteReport(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// ExportReport renders the report in the requested format and returns the
// written file path.
func (s *ReportService) ExportReport(ctx context.Context, id, format string) (string, error) {
	report, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(format) {
	case FormatExcel, "xlsx", "":
		path := filepath.Join(s.exportDir, report.ID+".xlsx")
		if err := s.excel.Write(ctx, report, path); err != nil {
			return "", fmt.Errorf("export excel: %w", err)
		}
		return path, nil

	case FormatCSV:
		path := filepath.Join(s.exportDir, report.ID+"_subgroups.csv")
		if err := s.csv.WriteSubgroupsFile(path, report); err != nil {
			return "", fmt.Errorf("export csv: %w", err)
		}
		statsPath := filepath.Join(s.exportDir, report.ID+"_statistics.csv")
		if err := s.csv.WriteStatisticsFile(statsPath, report); err != nil {
			return "", fmt.Errorf("export csv: %w", err)
		}
		return path, nil

	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
}
