// Package analysis turns raw capability records into process assessments:
// status classification, defect-rate estimation, stability commentary and
// actionable improvement suggestions for injection-molding inspection
// reports.
package analysis

import (
	"fmt"
	"math"

	"iqccli/internal/spc"
)

// Capability classification thresholds. Cpk bands follow the common
// sigma-level conventions; PPM bands follow the plant's acceptance policy.
const (
	CpkExcellent  = 1.67 // 6-sigma level
	CpkCapable    = 1.33 // 4-sigma level
	CpkAcceptable = 1.00 // 3-sigma level

	PPMExcellent  = 100
	PPMGood       = 1000
	PPMAcceptable = 10000
	PPMCritical   = 50000
)

// Status classifies one dimension's process health.
type Status string

const (
	StatusExcellent        Status = "EXCELLENT"
	StatusGood             Status = "GOOD"
	StatusAcceptable       Status = "ACCEPTABLE"
	StatusNeedsImprovement Status = "NEEDS_IMPROVEMENT"
	StatusCritical         Status = "CRITICAL"
)

// RiskLevel grades the urgency of intervention.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Assessment is the full analysis for one measured dimension.
type Assessment struct {
	Status            Status    `json:"status"`
	RiskLevel         RiskLevel `json:"risk_level"`
	PPMAbove          float64   `json:"ppm_above"`
	PPMBelow          float64   `json:"ppm_below"`
	PPMTotal          float64   `json:"ppm_total"`
	Summary           string    `json:"summary"`
	CapabilityNotes   []string  `json:"capability_notes"`
	StabilityNotes    []string  `json:"stability_notes"`
	ImprovementsNotes []string  `json:"improvement_actions"`
}

// Assess builds the assessment for one dimension from its capability
// record, the original series and the limits it was judged against.
func Assess(result *spc.Result, series spc.MeasurementSeries, limits spc.Limits) Assessment {
	ppmAbove, ppmBelow := observedPPM(series, limits)
	ppmTotal := ppmAbove + ppmBelow

	cpk := float64(result.Cpk)
	status, risk := classify(cpk, ppmTotal, result.CapabilityInfinite)

	a := Assessment{
		Status:    status,
		RiskLevel: risk,
		PPMAbove:  ppmAbove,
		PPMBelow:  ppmBelow,
		PPMTotal:  ppmTotal,
	}
	a.Summary = summarize(status, cpk, ppmTotal, result.CapabilityInfinite)
	a.CapabilityNotes = capabilityNotes(result, limits)
	a.StabilityNotes = stabilityNotes(result, series)
	a.ImprovementsNotes = improvementActions(result, limits)

	return a
}

// classify maps Cpk and observed defect rate onto a status/risk pair.
func classify(cpk, ppm float64, infinite bool) (Status, RiskLevel) {
	if infinite {
		return StatusExcellent, RiskLow
	}
	switch {
	case cpk >= CpkExcellent && ppm <= PPMExcellent:
		return StatusExcellent, RiskLow
	case cpk >= CpkCapable && ppm <= PPMGood:
		return StatusGood, RiskLow
	case cpk >= CpkAcceptable && ppm <= PPMAcceptable:
		return StatusAcceptable, RiskMedium
	case cpk < CpkAcceptable || ppm > PPMCritical:
		return StatusCritical, RiskCritical
	default:
		return StatusNeedsImprovement, RiskHigh
	}
}

// observedPPM counts measurements outside the limits, scaled to parts per
// million.
func observedPPM(series spc.MeasurementSeries, limits spc.Limits) (above, below float64) {
	if len(series) == 0 {
		return 0, 0
	}
	var nAbove, nBelow int
	for _, v := range series {
		if v > limits.USL {
			nAbove++
		}
		if v < limits.LSL {
			nBelow++
		}
	}
	n := float64(len(series))
	return float64(nAbove) / n * 1e6, float64(nBelow) / n * 1e6
}

func summarize(status Status, cpk, ppm float64, infinite bool) string {
	if infinite {
		return "All measurements are identical: capability is unbounded at this sample size. Verify gauge resolution before accepting the result."
	}
	switch status {
	case StatusExcellent:
		return fmt.Sprintf("Excellent process performance (Cpk=%.2f, PPM=%.0f). Keep current parameters and continue monitoring.", cpk, ppm)
	case StatusGood:
		return fmt.Sprintf("Good process performance (Cpk=%.2f, PPM=%.0f). Capability is adequate; monitor key parameters periodically.", cpk, ppm)
	case StatusAcceptable:
		return fmt.Sprintf("Acceptable process performance (Cpk=%.2f, PPM=%.0f) with room for improvement.", cpk, ppm)
	case StatusCritical:
		return fmt.Sprintf("Process capability severely inadequate (Cpk=%.2f, PPM=%.0f). Immediate corrective action required.", cpk, ppm)
	default:
		return fmt.Sprintf("Process needs improvement (Cpk=%.2f, PPM=%.0f). Analyze variation sources and adjust process parameters.", cpk, ppm)
	}
}

// capabilityNotes compares the potential and overall index pairs.
func capabilityNotes(result *spc.Result, limits spc.Limits) []string {
	var notes []string
	if result.CapabilityInfinite {
		return notes
	}

	cp, cpk := float64(result.Cp), float64(result.Cpk)
	pp := float64(result.Pp)

	if cp > cpk+0.3 {
		shift := (cp - cpk) / cp * 100
		notes = append(notes, fmt.Sprintf(
			"Process is off-center: Cp(%.2f) > Cpk(%.2f), mean deviates roughly %.1f%% from target %.3f.",
			cp, cpk, shift, limits.Midpoint()))
	} else if math.Abs(cpk-cp) < 0.1 {
		notes = append(notes, fmt.Sprintf("Process is well centered: Cp(%.2f) ≈ Cpk(%.2f).", cp, cpk))
	}

	if pp < cp-0.2 {
		notes = append(notes, fmt.Sprintf(
			"Special-cause variation suspected: Pp(%.2f) < Cp(%.2f). Check batch-to-batch consistency.", pp, cp))
	}

	deviation := math.Abs(result.Mean-limits.Midpoint()) / limits.Width() * 100
	if deviation > 15 {
		notes = append(notes, fmt.Sprintf(
			"Severe mean shift: mean %.4f deviates %.1f%% of the tolerance band from target.", result.Mean, deviation))
	} else if deviation > 8 {
		notes = append(notes, fmt.Sprintf(
			"Moderate mean shift: mean %.4f deviates %.1f%% of the tolerance band from target.", result.Mean, deviation))
	}

	return notes
}

// stabilityNotes flags between-subgroup drift and variance inflation.
func stabilityNotes(result *spc.Result, series spc.MeasurementSeries) []string {
	var notes []string

	if result.StdWithin > 0 && result.StdOverall > result.StdWithin*1.5 {
		notes = append(notes, fmt.Sprintf(
			"Overall variation (%.4f) substantially exceeds within-subgroup variation (%.4f): batch-to-batch drift is present.",
			result.StdOverall, result.StdWithin))
	}

	if drift, direction, ok := halfSplitDrift(series, result.StdOverall); ok {
		notes = append(notes, fmt.Sprintf(
			"Trend detected: measurements drift %s over the run (shift=%.4f).", direction, drift))
	}

	return notes
}

// halfSplitDrift compares first-half and second-half means; a shift above
// half the overall standard deviation counts as a trend.
func halfSplitDrift(series spc.MeasurementSeries, stdOverall float64) (drift float64, direction string, ok bool) {
	n := len(series)
	if n < 4 || stdOverall == 0 {
		return 0, "", false
	}

	half := n / 2
	firstMean := mean(series[:half])
	secondMean := mean(series[half:])
	drift = math.Abs(secondMean - firstMean)

	if drift <= stdOverall*0.5 {
		return 0, "", false
	}
	direction = "upward"
	if secondMean < firstMean {
		direction = "downward"
	}
	return drift, direction, true
}

// improvementActions suggests concrete countermeasures for weak indices.
func improvementActions(result *spc.Result, limits spc.Limits) []string {
	var actions []string
	if result.CapabilityInfinite {
		return actions
	}

	cpk, ppk := float64(result.Cpk), float64(result.Ppk)

	if cpk < CpkCapable {
		if result.StdOverall > limits.Width()/6 {
			actions = append(actions,
				"Reduce variation: tighten temperature control, verify heater bands and thermocouples, stabilize injection pressure and cooling time.")
		}
		if math.Abs(result.Mean-limits.Midpoint()) > limits.Width()*0.1 {
			actions = append(actions,
				"Re-center the process: adjust setpoints toward the nominal and verify gate dimensions are uniform.")
		}
	}

	if ppk < cpk-0.3 {
		actions = append(actions,
			"Reduce batch-to-batch variation: standardize operating procedure, schedule preventive maintenance, keep raw material lots consistent.")
	}

	if cpk >= CpkCapable && cpk < CpkExcellent {
		actions = append(actions,
			"Push toward 6-sigma: keep SPC charts live on the line and run designed experiments on the dominant variation source.")
	}

	return actions
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// ExecutiveSummary aggregates assessments across all dimensions of one
// inspection report.
type ExecutiveSummary struct {
	TotalDimensions    int            `json:"total_dimensions"`
	PassRate           float64        `json:"pass_rate"`
	StatusCounts       map[Status]int `json:"status_counts"`
	CriticalDimensions []int          `json:"critical_dimensions"`
	HighRiskDimensions []int          `json:"high_risk_dimensions"`
	Recommendation     string         `json:"recommendation"`
}

// Summarize builds the executive summary. Dimension numbers in the
// summary are 1-based, matching the inspection sheet.
func Summarize(assessments []Assessment) ExecutiveSummary {
	summary := ExecutiveSummary{
		TotalDimensions: len(assessments),
		StatusCounts:    make(map[Status]int),
	}

	passing := 0
	for i, a := range assessments {
		summary.StatusCounts[a.Status]++
		switch a.Status {
		case StatusExcellent, StatusGood:
			passing++
		}
		switch a.RiskLevel {
		case RiskCritical:
			summary.CriticalDimensions = append(summary.CriticalDimensions, i+1)
		case RiskHigh:
			summary.HighRiskDimensions = append(summary.HighRiskDimensions, i+1)
		}
	}

	if summary.TotalDimensions > 0 {
		summary.PassRate = float64(passing) / float64(summary.TotalDimensions) * 100
	}
	summary.Recommendation = overallRecommendation(summary)

	return summary
}

func overallRecommendation(s ExecutiveSummary) string {
	needsWork := s.StatusCounts[StatusNeedsImprovement] + s.StatusCounts[StatusCritical]
	switch {
	case s.TotalDimensions == 0:
		return "No dimensions analyzed."
	case s.PassRate >= 90:
		return "Overall process state is excellent. Maintain current parameters and keep preventive maintenance on schedule."
	case s.PassRate >= 70:
		return fmt.Sprintf("Overall process state is good. Focus improvement on the %d underperforming dimensions.", needsWork)
	case s.PassRate >= 50:
		return "Roughly half the dimensions are out of control. Review the full process window and re-qualify settings."
	default:
		return "Most dimensions are out of control. Stop the line and inspect tooling, temperature controllers and process settings."
	}
}
