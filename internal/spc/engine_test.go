package spc

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSingleSubgroup(t *testing.T) {
	engine := NewEngine(0, 0)
	series := MeasurementSeries{27.85, 27.84, 27.81, 27.82, 27.85}
	limits := Limits{USL: 27.90, LSL: 27.70}

	result, err := engine.Calculate(series, limits)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Count)
	assert.InDelta(t, 27.834, result.Mean, 1e-9)
	assert.InDelta(t, 27.81, result.Min, 1e-9)
	assert.InDelta(t, 27.85, result.Max, 1e-9)

	require.Len(t, result.Subgroups.XBar, 1)
	require.Len(t, result.Subgroups.R, 1)
	assert.Equal(t, 5, result.Subgroups.Size)
	assert.InDelta(t, 27.834, result.Subgroups.XBar[0], 1e-9)
	assert.InDelta(t, 0.04, result.Subgroups.R[0], 1e-9)

	// std_within from the single subgroup's range: R-bar/d2 = 0.04/2.326.
	stdWithin := 0.04 / 2.326
	assert.InDelta(t, stdWithin, result.StdWithin, 1e-9)
	assert.InDelta(t, 0.20/(6*stdWithin), float64(result.Cp), 1e-9)
	assert.InDelta(t, (27.90-27.834)/(3*stdWithin), float64(result.Cpk), 1e-9)
	assert.False(t, result.CapabilityInfinite)
}

func TestCalculateIdenticalValues(t *testing.T) {
	engine := NewEngine(0, 0)
	series := make(MeasurementSeries, 10)
	for i := range series {
		series[i] = 10.0
	}

	result, err := engine.Calculate(series, Limits{USL: 10.5, LSL: 9.5})
	require.NoError(t, err)

	// Zero variance is valid data: all indices report the infinite
	// capability sentinel, never a division error and never zero.
	assert.True(t, result.CapabilityInfinite)
	assert.True(t, result.Cp.IsInfinite())
	assert.True(t, result.Cpk.IsInfinite())
	assert.True(t, result.Pp.IsInfinite())
	assert.True(t, result.Ppk.IsInfinite())
	assert.Equal(t, StatusPass, result.CpkStatus)
	assert.Zero(t, result.StdOverall)
	assert.Zero(t, result.StdWithin)
}

func TestCalculateTrailingValuesDiscardedFromSubgroups(t *testing.T) {
	engine := NewEngine(0, 0)
	series := MeasurementSeries{10.1, 10.2, 10.0, 10.3, 10.1, 10.2, 10.4}

	result, err := engine.Calculate(series, Limits{USL: 11, LSL: 9})
	require.NoError(t, err)

	// Exactly one subgroup of 5; the trailing 2 values contribute to the
	// overall statistics but not to the charts.
	assert.Len(t, result.Subgroups.XBar, 1)
	assert.Equal(t, 7, result.Count)

	wantMean := (10.1 + 10.2 + 10.0 + 10.3 + 10.1 + 10.2 + 10.4) / 7
	assert.InDelta(t, wantMean, result.Mean, 1e-9)
}

func TestCalculateInvalidSpecification(t *testing.T) {
	engine := NewEngine(0, 0)
	series := MeasurementSeries{10, 10, 10, 10, 10}

	tests := []struct {
		name   string
		limits Limits
	}{
		{"inverted limits", Limits{USL: 10, LSL: 12}},
		{"equal limits", Limits{USL: 10, LSL: 10}},
		{"nan usl", Limits{USL: math.NaN(), LSL: 9}},
		{"infinite lsl", Limits{USL: 10, LSL: math.Inf(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Calculate(series, tt.limits)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSpecification))
		})
	}
}

func TestCalculateInsufficientData(t *testing.T) {
	engine := NewEngine(0, 0)
	_, err := engine.Calculate(MeasurementSeries{10.1, 10.2}, Limits{USL: 11, LSL: 9})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestCalculateUnsupportedSubgroupSize(t *testing.T) {
	engine := NewEngine(0, 0)
	series := MeasurementSeries{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	_, err := engine.CalculateWithSize(series, Limits{USL: 20, LSL: 0}, 12)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedSubgroupSize))
}

func TestCenteringInvariant(t *testing.T) {
	// A perfectly centered process has Cpk == Cp and Ppk == Pp.
	engine := NewEngine(0, 0)
	limits := Limits{USL: 12, LSL: 8}
	series := MeasurementSeries{9.9, 10.1, 9.8, 10.2, 10.0, 9.7, 10.3, 9.9, 10.1, 10.0}

	// The series above is symmetric around 10 == (USL+LSL)/2.
	result, err := engine.Calculate(series, limits)
	require.NoError(t, err)
	require.InDelta(t, limits.Midpoint(), result.Mean, 1e-9)

	assert.InDelta(t, float64(result.Cp), float64(result.Cpk), 1e-9)
	assert.InDelta(t, float64(result.Pp), float64(result.Ppk), 1e-9)
}

func TestCapabilityMonotonicity(t *testing.T) {
	// Holding mean and limits fixed, more variation means less capability.
	limits := Limits{USL: 12, LSL: 8}

	tight := MeasurementSeries{9.95, 10.05, 9.95, 10.05, 10.0, 9.95, 10.05, 9.95, 10.05, 10.0}
	wide := MeasurementSeries{9.5, 10.5, 9.5, 10.5, 10.0, 9.5, 10.5, 9.5, 10.5, 10.0}

	engine := NewEngine(0, 0)
	tightResult, err := engine.Calculate(tight, limits)
	require.NoError(t, err)
	wideResult, err := engine.Calculate(wide, limits)
	require.NoError(t, err)

	require.InDelta(t, tightResult.Mean, wideResult.Mean, 1e-9)
	assert.Greater(t, float64(tightResult.Cp), float64(wideResult.Cp))
	assert.Greater(t, float64(tightResult.Cpk), float64(wideResult.Cpk))
	assert.Greater(t, float64(tightResult.Pp), float64(wideResult.Pp))
	assert.Greater(t, float64(tightResult.Ppk), float64(wideResult.Ppk))
}

func TestControlLimitSymmetry(t *testing.T) {
	engine := NewEngine(0, 0)
	series := MeasurementSeries{
		10.1, 10.2, 10.0, 10.3, 10.1,
		10.2, 10.4, 10.0, 10.1, 10.3,
		10.0, 10.2, 10.1, 10.3, 10.2,
	}

	result, err := engine.Calculate(series, Limits{USL: 11, LSL: 9})
	require.NoError(t, err)

	cl := result.ControlLimits.XBar
	assert.InDelta(t, cl.UCL-cl.CL, cl.CL-cl.LCL, 1e-9)

	rBar := result.ControlLimits.R.CL
	assert.InDelta(t, result.ControlLimits.Constants.A2*rBar, cl.UCL-cl.CL, 1e-9)

	// R chart LCL is clamped at zero for sizes where D3 == 0.
	assert.GreaterOrEqual(t, result.ControlLimits.R.LCL, 0.0)
	assert.InDelta(t, result.ControlLimits.Constants.D4*rBar, result.ControlLimits.R.UCL, 1e-9)
}

func TestCpkThreshold(t *testing.T) {
	series := MeasurementSeries{27.85, 27.84, 27.81, 27.82, 27.85}
	limits := Limits{USL: 27.90, LSL: 27.70}

	// Cpk here is about 1.28: fails the default 1.33 threshold but passes
	// a relaxed 1.0 threshold.
	strict := NewEngine(0, 0)
	result, err := strict.Calculate(series, limits)
	require.NoError(t, err)
	assert.Equal(t, StatusFail, result.CpkStatus)

	relaxed := NewEngine(0, 1.0)
	result, err = relaxed.Calculate(series, limits)
	require.NoError(t, err)
	assert.Equal(t, StatusPass, result.CpkStatus)
}

func TestCalculateDoesNotMutateInput(t *testing.T) {
	engine := NewEngine(0, 0)
	series := MeasurementSeries{10.4, 10.1, 10.3, 10.0, 10.2}
	original := series.Copy()

	_, err := engine.Calculate(series, Limits{USL: 11, LSL: 9})
	require.NoError(t, err)
	assert.Equal(t, original, series)
}

func TestIndexMarshalJSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		Finite   Index `json:"finite"`
		Infinite Index `json:"infinite"`
	}{
		Finite:   Index(1.25),
		Infinite: Index(math.Inf(1)),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"finite":1.25,"infinite":null}`, string(payload))
}
