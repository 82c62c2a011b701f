// Package exporter renders inspection reports to Excel and CSV files.
package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"iqccli/internal/spc"
	"iqccli/pkg/contracts/domain"
)

// Sheet names of the Excel compliance report.
const (
	sheetBatchInfo  = "Batch Info"
	sheetRawData    = "Raw Data"
	sheetSubgroups  = "Subgroups"
	sheetStatistics = "Statistics"
)

// ExcelExporter writes the four-sheet Excel compliance report.
type ExcelExporter struct {
	logger *slog.Logger
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(logger *slog.Logger) *ExcelExporter {
	return &ExcelExporter{
		logger: logger.With(slog.String("component", "excel_exporter")),
	}
}

// Write renders the report to filePath, creating parent directories as
// needed.
func (e *ExcelExporter) Write(ctx context.Context, report *domain.Report, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetBatchInfo); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetRawData, sheetSubgroups, sheetStatistics} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	if err := e.writeBatchInfo(f, report); err != nil {
		return err
	}
	if err := e.writeRawData(f, report); err != nil {
		return err
	}
	if err := e.writeSubgroups(f, report); err != nil {
		return err
	}
	if err := e.writeStatistics(f, report); err != nil {
		return err
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("save excel report: %w", err)
	}

	e.logger.InfoContext(ctx, "excel report written",
		slog.String("report_id", report.ID),
		slog.String("path", filePath),
		slog.Int("dimensions", len(report.Dimensions)))
	return nil
}

func (e *ExcelExporter) writeBatchInfo(f *excelize.File, report *domain.Report) error {
	rows := [][]interface{}{
		{"Report ID", report.ID},
		{"Generated At", report.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Part Name", report.Batch.PartName},
		{"Part Number", report.Batch.PartNumber},
		{"Batch Number", report.Batch.BatchNumber},
		{"Supplier", report.Batch.Supplier},
		{"Inspector", report.Batch.Inspector},
		{"Inspection Date", report.Batch.InspectionDate},
		{},
		{"Dimensions Analyzed", report.Summary.TotalDimensions},
		{"Pass Rate (%)", report.Summary.PassRate},
		{"Recommendation", report.Summary.Recommendation},
	}

	return writeRows(f, sheetBatchInfo, rows)
}

func (e *ExcelExporter) writeRawData(f *excelize.File, report *domain.Report) error {
	rows := [][]interface{}{
		{"Dimension", "Index", "Value", "Outlier", "Correction"},
	}

	for _, dim := range report.Dimensions {
		outliers := make(map[int]bool, len(dim.Outliers.Indices))
		for _, idx := range dim.Outliers.Indices {
			outliers[idx] = true
		}
		corrections := make(map[int]string, len(dim.Corrections))
		for _, c := range dim.Corrections {
			corrections[c.Index] = c.Reason
		}

		for i, v := range dim.Measurements {
			flag := ""
			if outliers[i] {
				flag = "YES"
			}
			rows = append(rows, []interface{}{dim.Name, i + 1, v, flag, corrections[i]})
		}
	}

	return writeRows(f, sheetRawData, rows)
}

func (e *ExcelExporter) writeSubgroups(f *excelize.File, report *domain.Report) error {
	rows := [][]interface{}{
		{"Dimension", "Subgroup", "X-bar", "R", "X-bar UCL", "X-bar CL", "X-bar LCL", "R UCL", "R CL", "R LCL"},
	}

	for _, dim := range report.Dimensions {
		if dim.Statistics == nil {
			continue
		}
		cl := dim.Statistics.ControlLimits
		for i := range dim.Statistics.Subgroups.XBar {
			rows = append(rows, []interface{}{
				dim.Name, i + 1,
				dim.Statistics.Subgroups.XBar[i],
				dim.Statistics.Subgroups.R[i],
				cl.XBar.UCL, cl.XBar.CL, cl.XBar.LCL,
				cl.R.UCL, cl.R.CL, cl.R.LCL,
			})
		}
	}

	return writeRows(f, sheetSubgroups, rows)
}

func (e *ExcelExporter) writeStatistics(f *excelize.File, report *domain.Report) error {
	rows := [][]interface{}{
		{"Dimension", "USL", "LSL", "N", "Mean", "Std (overall)", "Std (within)",
			"Cp", "Cpk", "Pp", "Ppk", "Status", "Assessment", "Risk", "PPM Total"},
	}

	for _, dim := range report.Dimensions {
		if dim.Statistics == nil {
			continue
		}
		stats := dim.Statistics
		rows = append(rows, []interface{}{
			dim.Name, dim.Limits.USL, dim.Limits.LSL, stats.Count,
			stats.Mean, stats.StdOverall, stats.StdWithin,
			indexCell(stats.Cp), indexCell(stats.Cpk),
			indexCell(stats.Pp), indexCell(stats.Ppk),
			stats.CpkStatus,
			string(dim.Assessment.Status), string(dim.Assessment.RiskLevel),
			dim.Assessment.PPMTotal,
		})
	}

	return writeRows(f, sheetStatistics, rows)
}

// indexCell renders an infinite capability index as a readable marker
// instead of a numeric overflow.
func indexCell(v spc.Index) interface{} {
	if v.IsInfinite() {
		return "INF"
	}
	return float64(v)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("cell coordinates: %w", err)
			}
			if fv, ok := value.(float64); ok && (math.IsInf(fv, 0) || math.IsNaN(fv)) {
				value = "INF"
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("set cell %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
