// Package domain defines the wire contracts shared by the HTTP API, the
// report history store and the exporters.
package domain

import (
	"time"

	"iqccli/internal/analysis"
	"iqccli/internal/quality"
	"iqccli/internal/spc"
)

// BatchInfo identifies the inspected batch on the report header.
type BatchInfo struct {
	PartName       string `json:"part_name" validate:"required,min=1,max=200"`
	PartNumber     string `json:"part_number,omitempty" validate:"max=100"`
	BatchNumber    string `json:"batch_number,omitempty" validate:"max=100"`
	Supplier       string `json:"supplier,omitempty" validate:"max=200"`
	Inspector      string `json:"inspector,omitempty" validate:"max=100"`
	InspectionDate string `json:"inspection_date,omitempty" validate:"max=40"`
}

// DimensionInput is one measured dimension in an analysis request.
// Limits come either from the drawing specification string or from
// explicit USL/LSL values; one of the two forms is required.
type DimensionInput struct {
	Name          string   `json:"name" validate:"required,min=1,max=100"`
	Specification string   `json:"specification,omitempty" validate:"max=60"`
	USL           *float64 `json:"usl,omitempty"`
	LSL           *float64 `json:"lsl,omitempty"`
	SubgroupSize  int      `json:"subgroup_size,omitempty" validate:"omitempty,min=2,max=10"`
	Measurements  []string `json:"measurements" validate:"required,min=2,dive,required"`
}

// AnalysisRequest is the POST /api/analysis payload.
type AnalysisRequest struct {
	Batch      BatchInfo        `json:"batch" validate:"required"`
	Dimensions []DimensionInput `json:"dimensions" validate:"required,min=1,max=64,dive"`
}

// DimensionReport is the complete per-dimension output record.
type DimensionReport struct {
	Name         string                  `json:"name"`
	Limits       spc.Limits              `json:"limits"`
	Measurements []float64               `json:"measurements"`
	Corrections  []quality.Correction    `json:"corrections,omitempty"`
	Outliers     quality.OutlierReport   `json:"outliers"`
	Normality    quality.NormalityReport `json:"normality"`
	Statistics   *spc.Result             `json:"statistics"`
	Assessment   analysis.Assessment     `json:"assessment"`
}

// Report is one persisted inspection report.
type Report struct {
	ID          string                    `json:"id"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Batch       BatchInfo                 `json:"batch"`
	Dimensions  []DimensionReport         `json:"dimensions"`
	Summary     analysis.ExecutiveSummary `json:"summary"`
}

// ReportSummary is the lightweight history-listing view of a report.
type ReportSummary struct {
	ID              string    `json:"id"`
	GeneratedAt     time.Time `json:"generated_at"`
	PartName        string    `json:"part_name"`
	BatchNumber     string    `json:"batch_number,omitempty"`
	TotalDimensions int       `json:"total_dimensions"`
	PassRate        float64   `json:"pass_rate"`
}

// Summarize builds the listing view for a report.
func (r *Report) Summarize() ReportSummary {
	return ReportSummary{
		ID:              r.ID,
		GeneratedAt:     r.GeneratedAt,
		PartName:        r.Batch.PartName,
		BatchNumber:     r.Batch.BatchNumber,
		TotalDimensions: r.Summary.TotalDimensions,
		PassRate:        r.Summary.PassRate,
	}
}
