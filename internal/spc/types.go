package spc

import (
	"encoding/json"
	"math"
)

// MeasurementSeries is an ordered sequence of measured values. Insertion
// order is measurement order; duplicates are allowed. The engine never
// mutates a series it is handed.
type MeasurementSeries []float64

// Copy returns an independent copy of the series.
func (s MeasurementSeries) Copy() MeasurementSeries {
	out := make(MeasurementSeries, len(s))
	copy(out, s)
	return out
}

// Limits holds the specification limits for a measured dimension.
// Target is the nominal value when the drawing provides one; zero means
// no explicit nominal was supplied.
type Limits struct {
	USL    float64 `json:"usl"`
	LSL    float64 `json:"lsl"`
	Target float64 `json:"target,omitempty"`
}

// IsValid reports whether the limits are finite and correctly ordered.
func (l Limits) IsValid() bool {
	if math.IsNaN(l.USL) || math.IsInf(l.USL, 0) ||
		math.IsNaN(l.LSL) || math.IsInf(l.LSL, 0) {
		return false
	}
	return l.USL > l.LSL
}

// Midpoint returns the center of the specification band.
func (l Limits) Midpoint() float64 {
	return (l.USL + l.LSL) / 2
}

// Width returns the specification band width (USL - LSL).
func (l Limits) Width() float64 {
	return l.USL - l.LSL
}

// Index is a capability index value. Zero process variance makes an index
// mathematically infinite; such values carry math.Inf(1) internally and
// marshal as JSON null, with Result.CapabilityInfinite set on the record.
type Index float64

// IsInfinite reports whether the index carries the infinite-capability sentinel.
func (v Index) IsInfinite() bool {
	return math.IsInf(float64(v), 1)
}

// MarshalJSON renders infinite capability as null so the record stays
// valid JSON for downstream renderers.
func (v Index) MarshalJSON() ([]byte, error) {
	if v.IsInfinite() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(v))
}

// Status values for the Cpk compliance check.
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// SubgroupSeries carries the per-subgroup statistics used by the X-bar/R charts.
type SubgroupSeries struct {
	XBar []float64 `json:"x_bar"`
	R    []float64 `json:"r"`
	Size int       `json:"size"`
}

// ChartLimits is a UCL/CL/LCL triple for a single control chart.
type ChartLimits struct {
	UCL float64 `json:"ucl"`
	CL  float64 `json:"cl"`
	LCL float64 `json:"lcl"`
}

// ControlLimits holds the derived X-bar and R chart limits together with
// the constants used to derive them.
type ControlLimits struct {
	XBar      ChartLimits `json:"x_bar"`
	R         ChartLimits `json:"r"`
	Constants Constants   `json:"constants"`
}

// Result is the capability record produced by one Calculate call.
// It is immutable once returned.
type Result struct {
	Mean       float64 `json:"mean"`
	StdOverall float64 `json:"std_overall"`
	StdWithin  float64 `json:"std_within"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Count      int     `json:"count"`

	Cp  Index `json:"cp"`
	Cpk Index `json:"cpk"`
	Pp  Index `json:"pp"`
	Ppk Index `json:"ppk"`

	// CapabilityInfinite is set when any index carries the zero-variance
	// sentinel. Identical measurements are plausible data, not an error.
	CapabilityInfinite bool   `json:"capability_infinite"`
	CpkStatus          string `json:"cpk_status"`

	Subgroups     SubgroupSeries `json:"subgroups"`
	ControlLimits ControlLimits  `json:"control_limits"`
}
