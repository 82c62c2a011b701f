package quality

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"iqccli/internal/spc"
)

// Correction reasons recorded in the audit trail.
const (
	ReasonMissingDecimal = "missing decimal point"
	ReasonUnitNoise      = "unit noise"
	ReasonLookalike      = "lookalike character"
	ReasonPrecision      = "precision correction"
)

// MeasurementPrecision is the caliper resolution: corrected values are
// rounded to this many decimal places regardless of upstream precision.
const MeasurementPrecision = 2

// Correction records one repaired value. Index refers to the position in
// the input; Original is the raw token as received.
type Correction struct {
	Index     int     `json:"index"`
	Original  string  `json:"original"`
	Corrected float64 `json:"corrected"`
	Reason    string  `json:"reason"`
}

// numberPattern extracts the first decimal number from a token carrying
// unit noise such as "27.85mm" or "Φ6.02".
var numberPattern = regexp.MustCompile(`[-+]?\d*\.?\d+`)

var lookalikeReplacer = strings.NewReplacer("O", "0", "o", "0", "l", "1", "I", "1")

// CorrectMeasurements repairs common OCR artifacts in a list of raw value
// tokens that is expected to cluster near the specification nominal.
//
// Per token, in order: unit-noise stripping and lookalike-character repair
// until the token parses as a number, then decimal-point inference for
// values implausibly large relative to USL, then rounding to the fixed
// measurement precision. The input is never mutated, values are never
// dropped or reordered, and every changed value appears once in the audit
// trail with the first rule that changed it.
//
// A token that cannot be coerced to a finite number returns a
// MeasurementError naming the failing index.
func CorrectMeasurements(tokens []string, limits spc.Limits) (spc.MeasurementSeries, []Correction, error) {
	if len(tokens) == 0 {
		return nil, nil, &spc.InsufficientDataError{Count: 0, Required: 1}
	}
	if !limits.IsValid() {
		return nil, nil, &spc.SpecificationError{USL: limits.USL, LSL: limits.LSL}
	}

	series := make(spc.MeasurementSeries, len(tokens))
	var trail []Correction

	for i, token := range tokens {
		value, reason, err := parseToken(token, limits)
		if err != nil {
			return nil, nil, &spc.MeasurementError{Index: i, Token: token}
		}

		value, numericReason := correctNumeric(value, limits)
		if reason == "" {
			reason = numericReason
		}

		if reason != "" {
			trail = append(trail, Correction{
				Index:     i,
				Original:  token,
				Corrected: value,
				Reason:    reason,
			})
		}
		series[i] = value
	}

	return series, trail, nil
}

// CorrectValues applies the numeric correction rules (decimal-point
// inference and precision rounding) to an already-parsed series. The
// input series is never mutated.
func CorrectValues(values spc.MeasurementSeries, limits spc.Limits) (spc.MeasurementSeries, []Correction, error) {
	if len(values) == 0 {
		return nil, nil, &spc.InsufficientDataError{Count: 0, Required: 1}
	}
	if !limits.IsValid() {
		return nil, nil, &spc.SpecificationError{USL: limits.USL, LSL: limits.LSL}
	}

	series := make(spc.MeasurementSeries, len(values))
	var trail []Correction

	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, &spc.MeasurementError{Index: i, Token: strconv.FormatFloat(v, 'g', -1, 64)}
		}

		corrected, reason := correctNumeric(v, limits)
		if reason != "" {
			trail = append(trail, Correction{
				Index:     i,
				Original:  strconv.FormatFloat(v, 'g', -1, 64),
				Corrected: corrected,
				Reason:    reason,
			})
		}
		series[i] = corrected
	}

	return series, trail, nil
}

// parseToken coerces a raw OCR token to a float, trying progressively
// more aggressive repairs. The returned reason is empty when the token
// parsed cleanly. A repaired value is only accepted when it is plausible
// against the limits: stripping "1O.2" down to its digits yields 1, which
// must lose to the lookalike repair yielding 10.2.
func parseToken(token string, limits spc.Limits) (float64, string, error) {
	trimmed := strings.TrimSpace(token)
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v, "", nil
	}

	// Strip unit noise: "27.85mm", "Φ6.02" and similar.
	if match := numberPattern.FindString(trimmed); match != "" && match != trimmed {
		if v, err := strconv.ParseFloat(match, 64); err == nil && repairPlausible(v, limits) {
			return v, ReasonUnitNoise, nil
		}
	}

	// Lookalike characters the OCR confuses with digits: O/o for 0, l/I for 1.
	repaired := lookalikeReplacer.Replace(trimmed)
	if v, err := strconv.ParseFloat(repaired, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) && repairPlausible(v, limits) {
		return v, ReasonLookalike, nil
	}

	return 0, "", strconv.ErrSyntax
}

// repairPlausible reports whether a repaired reading is credible: either
// already inside the plausible band, or a decimal-point inference away
// from it.
func repairPlausible(v float64, limits spc.Limits) bool {
	b := plausibleBand(limits)
	if v >= b.low && v <= b.high {
		return true
	}
	if v > b.high {
		return (v/10 >= b.low && v/10 <= b.high) || (v/100 >= b.low && v/100 <= b.high)
	}
	return false
}

// correctNumeric applies decimal-point inference and precision rounding.
// A value is treated as a dropped decimal point when it sits implausibly
// far above USL and dividing by 10 or 100 lands it inside the generous
// band [LSL, 2*USL] around the specification. First match wins.
func correctNumeric(value float64, limits spc.Limits) (float64, string) {
	reason := ""
	if plausible := plausibleBand(limits); value > plausible.high {
		switch {
		case value/10 >= plausible.low && value/10 <= plausible.high:
			value /= 10
			reason = ReasonMissingDecimal
		case value/100 >= plausible.low && value/100 <= plausible.high:
			value /= 100
			reason = ReasonMissingDecimal
		}
	}

	rounded := roundToPrecision(value)
	if rounded != value && reason == "" {
		reason = ReasonPrecision
	}

	return rounded, reason
}

type band struct {
	low  float64
	high float64
}

// plausibleBand is the tolerated range for a corrected reading. The upper
// bound of 2*USL mirrors the tuned heuristic from production OCR data;
// values within it are left alone even when out of specification.
func plausibleBand(limits spc.Limits) band {
	return band{low: limits.LSL, high: 2 * limits.USL}
}

func roundToPrecision(v float64) float64 {
	shift := math.Pow(10, MeasurementPrecision)
	return math.Round(v*shift) / shift
}
