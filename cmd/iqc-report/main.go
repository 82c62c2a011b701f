// Command iqc-report runs a one-shot batch analysis from a measurements
// CSV and writes the report as Excel or CSV, without the HTTP server.
//
// The input CSV has one row per dimension:
//
//	dimension,specification,m1,m2,m3,...
//	outer diameter,27.80+0.10-0.00,27.85,27.83,27.86,...
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"iqccli/internal/config"
	"iqccli/internal/history"
	"iqccli/internal/infrastructure"
	"iqccli/internal/services"
	"iqccli/internal/spc"
	"iqccli/pkg/contracts/domain"
)

func main() {
	input := flag.String("input", "", "measurements CSV (required)")
	part := flag.String("part", "", "part name (required)")
	batch := flag.String("batch", "", "batch number")
	format := flag.String("format", services.FormatExcel, "export format: excel or csv")
	outDir := flag.String("out", "", "output directory (defaults to configured export dir)")
	flag.Parse()

	if *input == "" || *part == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if *outDir == "" {
		*outDir = cfg.Paths.ExportDir
	}

	dimensions, err := loadDimensions(*input)
	if err != nil {
		logger.Error("Failed to load measurements", "path", *input, "error", err)
		os.Exit(1)
	}
	logger.Info("Loaded measurements", "path", *input, "dimensions", len(dimensions))

	ctx := context.Background()
	analysisSvc := services.NewAnalysisService(cfg.SPC, logger)

	report, err := analysisSvc.Analyze(ctx, &domain.AnalysisRequest{
		Batch: domain.BatchInfo{
			PartName:    *part,
			BatchNumber: *batch,
		},
		Dimensions: dimensions,
	})
	if err != nil {
		logger.Error("Analysis failed", "error", err)
		os.Exit(1)
	}

	store, err := history.NewStore(cfg.Paths.ReportsDir, logger)
	if err != nil {
		logger.Error("Failed to open report archive", "error", err)
		os.Exit(1)
	}

	reportSvc := services.NewReportService(store, *outDir, logger)
	if err := reportSvc.SaveReport(ctx, report); err != nil {
		logger.Error("Failed to archive report", "error", err)
		os.Exit(1)
	}

	path, err := reportSvc.ExportReport(ctx, report.ID, *format)
	if err != nil {
		logger.Error("Export failed", "format", *format, "error", err)
		os.Exit(1)
	}

	logger.Info("Report generated",
		"report_id", report.ID,
		"output", path,
		"pass_rate", report.Summary.PassRate)

	printSummary(report)
}

// loadDimensions parses the per-dimension CSV rows. Measurement tokens
// stay raw strings so the correction pass can inspect them.
func loadDimensions(path string) ([]domain.DimensionInput, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}

	var dimensions []domain.DimensionInput
	for i, record := range records {
		if i == 0 && strings.EqualFold(record[0], "dimension") {
			continue // header
		}
		if len(record) < 3 {
			return nil, fmt.Errorf("row %d: need dimension, specification and measurements", i+1)
		}

		measurements := make([]string, 0, len(record)-2)
		for _, token := range record[2:] {
			token = strings.TrimSpace(token)
			if token != "" {
				measurements = append(measurements, token)
			}
		}

		dimensions = append(dimensions, domain.DimensionInput{
			Name:          strings.TrimSpace(record[0]),
			Specification: strings.TrimSpace(record[1]),
			Measurements:  measurements,
		})
	}

	if len(dimensions) == 0 {
		return nil, fmt.Errorf("no dimension rows found")
	}
	return dimensions, nil
}

func printSummary(report *domain.Report) {
	fmt.Printf("\n=== %s ===\n", report.Batch.PartName)
	fmt.Println("Dimension | N | Cpk | Status | Risk")
	fmt.Println("----------|---|-----|--------|-----")
	for _, dim := range report.Dimensions {
		fmt.Printf("%s | %d | %s | %s | %s\n",
			dim.Name,
			dim.Statistics.Count,
			formatIndex(dim.Statistics.Cpk),
			dim.Statistics.CpkStatus,
			dim.Assessment.RiskLevel)
	}
	fmt.Printf("\nPass rate: %.1f%% of %d dimensions\n",
		report.Summary.PassRate,
		report.Summary.TotalDimensions)
	fmt.Printf("Recommendation: %s\n", report.Summary.Recommendation)
}

func formatIndex(v spc.Index) string {
	if v.IsInfinite() {
		return "INF"
	}
	return fmt.Sprintf("%.2f", float64(v))
}
