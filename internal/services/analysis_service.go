// Package services orchestrates the domain packages behind the HTTP
// transport: the analysis pipeline (quality gate, capability engine,
// process assessment) and report persistence/export.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"iqccli/internal/analysis"
	"iqccli/internal/config"
	"iqccli/internal/infrastructure"
	"iqccli/internal/quality"
	"iqccli/internal/spc"
	"iqccli/internal/specparse"
	"iqccli/pkg/contracts/domain"
)

// maxConcurrentDimensions bounds the per-request fan-out. Dimensions are
// independent, so they are analyzed in parallel.
const maxConcurrentDimensions = 4

// AnalysisService runs the full analysis pipeline for a batch: per
// dimension, the data quality gate, the capability engine and the
// process assessment.
type AnalysisService struct {
	engine           *spc.Engine
	outlierThreshold float64
	logger           *slog.Logger
	tracer           trace.Tracer
}

// NewAnalysisService creates the service with the configured SPC defaults.
func NewAnalysisService(cfg config.SPCConfig, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		engine:           spc.NewEngine(cfg.SubgroupSize, cfg.CpkThreshold),
		outlierThreshold: cfg.OutlierThreshold,
		logger:           logger.With(slog.String("component", "analysis_service")),
		tracer:           otel.Tracer(infrastructure.TracerName),
	}
}

// Analyze runs the pipeline for every dimension of the request and
// assembles the report. Dimensions are analyzed concurrently; the first
// failing dimension aborts the batch with its domain error.
func (s *AnalysisService) Analyze(ctx context.Context, req *domain.AnalysisRequest) (*domain.Report, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.batch")
	defer span.End()

	start := time.Now()
	s.logger.InfoContext(ctx, "analysis started",
		slog.String("part_name", req.Batch.PartName),
		slog.Int("dimensions", len(req.Dimensions)))

	dimensions := make([]domain.DimensionReport, len(req.Dimensions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDimensions)
	for i, input := range req.Dimensions {
		g.Go(func() error {
			report, err := s.analyzeDimension(gctx, input)
			if err != nil {
				return fmt.Errorf("dimension %q: %w", input.Name, err)
			}
			dimensions[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "analysis failed",
			slog.String("part_name", req.Batch.PartName),
			slog.String("error", err.Error()))
		return nil, err
	}

	assessments := make([]analysis.Assessment, len(dimensions))
	for i, dim := range dimensions {
		assessments[i] = dim.Assessment
	}

	report := &domain.Report{
		ID:          newReportID(),
		GeneratedAt: time.Now().UTC(),
		Batch:       req.Batch,
		Dimensions:  dimensions,
		Summary:     analysis.Summarize(assessments),
	}

	s.logger.InfoContext(ctx, "analysis completed",
		slog.String("report_id", report.ID),
		slog.Float64("pass_rate", report.Summary.PassRate),
		slog.String("duration", time.Since(start).String()))

	return report, nil
}

// analyzeDimension runs the gate and the engine for one dimension.
func (s *AnalysisService) analyzeDimension(ctx context.Context, input domain.DimensionInput) (domain.DimensionReport, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.dimension")
	defer span.End()

	limits, err := resolveLimits(input)
	if err != nil {
		return domain.DimensionReport{}, err
	}

	series, corrections, err := quality.CorrectMeasurements(input.Measurements, limits)
	if err != nil {
		return domain.DimensionReport{}, err
	}
	if len(corrections) > 0 {
		s.logger.WarnContext(ctx, "measurements corrected",
			slog.String("dimension", input.Name),
			slog.Int("corrections", len(corrections)))
	}

	outliers, err := quality.DetectOutliers(series, s.outlierThreshold)
	if err != nil {
		return domain.DimensionReport{}, err
	}
	if outliers.Count() > 0 {
		s.logger.WarnContext(ctx, "outliers detected",
			slog.String("dimension", input.Name),
			slog.Int("outliers", outliers.Count()))
	}

	// The gate is advisory: a series too short for the normality tests
	// still goes through the engine.
	normality, _ := quality.NormalityTest(series)

	var result *spc.Result
	if input.SubgroupSize > 0 {
		result, err = s.engine.CalculateWithSize(series, limits, input.SubgroupSize)
	} else {
		result, err = s.engine.Calculate(series, limits)
	}
	if err != nil {
		return domain.DimensionReport{}, err
	}

	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"dimension.name":   input.Name,
		"dimension.count":  result.Count,
		"dimension.status": result.CpkStatus,
	})

	return domain.DimensionReport{
		Name:         input.Name,
		Limits:       limits,
		Measurements: series,
		Corrections:  corrections,
		Outliers:     outliers,
		Normality:    normality,
		Statistics:   result,
		Assessment:   analysis.Assess(result, series, limits),
	}, nil
}

// resolveLimits derives the specification limits from the drawing
// specification string or the explicit USL/LSL pair.
func resolveLimits(input domain.DimensionInput) (spc.Limits, error) {
	if input.Specification != "" {
		return specparse.Parse(input.Specification)
	}
	if input.USL == nil || input.LSL == nil {
		return spc.Limits{}, fmt.Errorf("no specification or limits given: %w", spc.ErrInvalidSpecification)
	}
	limits := spc.Limits{USL: *input.USL, LSL: *input.LSL}
	if !limits.IsValid() {
		return spc.Limits{}, &spc.SpecificationError{USL: limits.USL, LSL: limits.LSL}
	}
	return limits, nil
}

// newReportID builds a sortable report ID: UTC timestamp plus a short
// random suffix to disambiguate reports generated in the same second.
func newReportID() string {
	stamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("rpt_%s_%s", stamp, uuid.New().String()[:8])
}
