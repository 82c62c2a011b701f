package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iqccli/internal/config"
	"iqccli/internal/spc"
	"iqccli/pkg/contracts/domain"
)

func newTestAnalysisService() *AnalysisService {
	return NewAnalysisService(config.SPCConfig{
		SubgroupSize:     5,
		CpkThreshold:     1.33,
		OutlierThreshold: 3.0,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func floatPtr(v float64) *float64 { return &v }

func TestAnalyzeSingleDimension(t *testing.T) {
	svc := newTestAnalysisService()

	req := &domain.AnalysisRequest{
		Batch: domain.BatchInfo{PartName: "Housing Cover", BatchNumber: "B-042"},
		Dimensions: []domain.DimensionInput{
			{
				Name:          "outer diameter",
				Specification: "27.80+0.10-0.00",
				Measurements: []string{
					"27.85", "27.83", "27.86", "27.84", "27.85",
					"27.82", "27.84", "27.83", "27.85", "27.84",
				},
			},
		},
	}

	report, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "Housing Cover", report.Batch.PartName)
	require.Len(t, report.Dimensions, 1)

	dim := report.Dimensions[0]
	assert.Equal(t, "outer diameter", dim.Name)
	assert.InDelta(t, 27.90, dim.Limits.USL, 1e-9)
	assert.InDelta(t, 27.80, dim.Limits.LSL, 1e-9)
	require.NotNil(t, dim.Statistics)
	assert.Equal(t, 10, dim.Statistics.Count)
	assert.Equal(t, 1, report.Summary.TotalDimensions)
}

func TestAnalyzeExplicitLimitsAndCorrections(t *testing.T) {
	svc := newTestAnalysisService()

	req := &domain.AnalysisRequest{
		Batch: domain.BatchInfo{PartName: "Shaft"},
		Dimensions: []domain.DimensionInput{
			{
				Name: "length",
				USL:  floatPtr(10.5),
				LSL:  floatPtr(9.5),
				Measurements: []string{
					"10.2", "10.1", "102", "10.3", "10.2",
					"10.1", "10.2", "10.3", "10.1", "10.2",
				},
			},
		},
	}

	report, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)

	dim := report.Dimensions[0]
	require.Len(t, dim.Corrections, 1)
	assert.Equal(t, 2, dim.Corrections[0].Index)
	assert.InDelta(t, 10.2, dim.Corrections[0].Corrected, 1e-9)
	assert.InDelta(t, 10.2, dim.Measurements[2], 1e-9)
}

func TestAnalyzeMultipleDimensionsOrderPreserved(t *testing.T) {
	svc := newTestAnalysisService()

	measurements := []string{
		"10.0", "10.02", "9.98", "10.01", "9.99",
		"10.0", "10.03", "9.97", "10.02", "9.98",
	}
	req := &domain.AnalysisRequest{
		Batch: domain.BatchInfo{PartName: "Bracket"},
		Dimensions: []domain.DimensionInput{
			{Name: "width", USL: floatPtr(10.6), LSL: floatPtr(9.4), Measurements: measurements},
			{Name: "height", USL: floatPtr(10.6), LSL: floatPtr(9.4), Measurements: measurements},
			{Name: "depth", USL: floatPtr(10.6), LSL: floatPtr(9.4), Measurements: measurements},
		},
	}

	report, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, report.Dimensions, 3)
	assert.Equal(t, "width", report.Dimensions[0].Name)
	assert.Equal(t, "height", report.Dimensions[1].Name)
	assert.Equal(t, "depth", report.Dimensions[2].Name)
	assert.Equal(t, 3, report.Summary.TotalDimensions)
}

func TestAnalyzeFailsOnMissingLimits(t *testing.T) {
	svc := newTestAnalysisService()

	req := &domain.AnalysisRequest{
		Batch: domain.BatchInfo{PartName: "Part"},
		Dimensions: []domain.DimensionInput{
			{Name: "gap", Measurements: []string{"1.0", "1.1"}},
		},
	}

	_, err := svc.Analyze(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, spc.ErrInvalidSpecification)
	assert.Contains(t, err.Error(), "gap")
}

func TestAnalyzeFailsOnBadToken(t *testing.T) {
	svc := newTestAnalysisService()

	req := &domain.AnalysisRequest{
		Batch: domain.BatchInfo{PartName: "Part"},
		Dimensions: []domain.DimensionInput{
			{
				Name: "bore",
				USL:  floatPtr(10.5),
				LSL:  floatPtr(9.5),
				Measurements: []string{
					"10.1", "abc", "10.2", "10.1", "10.0",
				},
			},
		},
	}

	_, err := svc.Analyze(context.Background(), req)
	require.Error(t, err)

	var measErr *spc.MeasurementError
	require.ErrorAs(t, err, &measErr)
	assert.Equal(t, 1, measErr.Index)
	assert.Equal(t, "abc", measErr.Token)
}

func TestAnalyzeFailsOnShortSeries(t *testing.T) {
	svc := newTestAnalysisService()

	req := &domain.AnalysisRequest{
		Batch: domain.BatchInfo{PartName: "Part"},
		Dimensions: []domain.DimensionInput{
			{Name: "tab", USL: floatPtr(10.5), LSL: floatPtr(9.5), Measurements: []string{"10.0", "10.1"}},
		},
	}

	_, err := svc.Analyze(context.Background(), req)
	assert.ErrorIs(t, err, spc.ErrInsufficientData)
}

func TestAnalyzePerDimensionSubgroupSize(t *testing.T) {
	svc := newTestAnalysisService()

	req := &domain.AnalysisRequest{
		Batch: domain.BatchInfo{PartName: "Part"},
		Dimensions: []domain.DimensionInput{
			{
				Name: "slot",
				USL:  floatPtr(10.5), LSL: floatPtr(9.5),
				SubgroupSize: 4,
				Measurements: []string{
					"10.0", "10.1", "9.9", "10.0",
					"10.1", "10.0", "9.9", "10.1",
				},
			},
		},
	}

	report, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Dimensions[0].Statistics.Subgroups.Size)
	assert.Len(t, report.Dimensions[0].Statistics.Subgroups.XBar, 2)
}
