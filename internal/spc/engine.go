package spc

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Default engine parameters. The Cpk threshold reflects the common 4-sigma
// industry acceptance level; both are configuration, not physical constants.
const (
	DefaultSubgroupSize = 5
	DefaultCpkThreshold = 1.33
)

// Engine computes capability indices and control limits for one dimension.
// An Engine is stateless apart from its configuration and is safe for
// concurrent use.
type Engine struct {
	subgroupSize int
	cpkThreshold float64
}

// NewEngine creates an engine with the given subgroup size and Cpk pass
// threshold. Zero values select the defaults.
func NewEngine(subgroupSize int, cpkThreshold float64) *Engine {
	if subgroupSize == 0 {
		subgroupSize = DefaultSubgroupSize
	}
	if cpkThreshold == 0 {
		cpkThreshold = DefaultCpkThreshold
	}
	return &Engine{
		subgroupSize: subgroupSize,
		cpkThreshold: cpkThreshold,
	}
}

// SubgroupSize returns the configured subgroup size.
func (e *Engine) SubgroupSize() int { return e.subgroupSize }

// CpkThreshold returns the configured Cpk pass threshold.
func (e *Engine) CpkThreshold() float64 { return e.cpkThreshold }

// Calculate computes the capability record and control limits for the
// series against the given specification limits.
//
// Preconditions: limits must satisfy finite USL > LSL and the series must
// contain at least one complete subgroup. The series is never mutated.
func (e *Engine) Calculate(series MeasurementSeries, limits Limits) (*Result, error) {
	return e.CalculateWithSize(series, limits, e.subgroupSize)
}

// CalculateWithSize is Calculate with an explicit subgroup size for this
// call only.
func (e *Engine) CalculateWithSize(series MeasurementSeries, limits Limits, size int) (*Result, error) {
	if !limits.IsValid() {
		return nil, &SpecificationError{USL: limits.USL, LSL: limits.LSL}
	}
	constants, err := ConstantsFor(size)
	if err != nil {
		return nil, err
	}
	if len(series) < size {
		return nil, &InsufficientDataError{Count: len(series), Required: size}
	}

	// Overall statistics use every value, not just complete subgroups.
	mean := stat.Mean(series, nil)
	stdOverall := stat.StdDev(series, nil)

	lo, hi := series[0], series[0]
	for _, v := range series {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	groups, err := Partition(series, size)
	if err != nil {
		return nil, err
	}

	xBar := make([]float64, len(groups))
	r := make([]float64, len(groups))
	for i, g := range groups {
		xBar[i] = g.Mean
		r[i] = g.Range
	}
	xDoubleBar := stat.Mean(xBar, nil)
	rBar := stat.Mean(r, nil)

	stdWithin := rBar / constants.D2

	cp, cpk := capability(limits, mean, stdWithin)
	pp, ppk := capability(limits, mean, stdOverall)

	status := StatusFail
	if float64(cpk) >= e.cpkThreshold {
		status = StatusPass
	}

	rLCL := constants.D3 * rBar
	if rLCL < 0 {
		rLCL = 0
	}

	return &Result{
		Mean:               mean,
		StdOverall:         stdOverall,
		StdWithin:          stdWithin,
		Min:                lo,
		Max:                hi,
		Count:              len(series),
		Cp:                 cp,
		Cpk:                cpk,
		Pp:                 pp,
		Ppk:                ppk,
		CapabilityInfinite: cp.IsInfinite() || pp.IsInfinite(),
		CpkStatus:          status,
		Subgroups: SubgroupSeries{
			XBar: xBar,
			R:    r,
			Size: size,
		},
		ControlLimits: ControlLimits{
			XBar: ChartLimits{
				UCL: xDoubleBar + constants.A2*rBar,
				CL:  xDoubleBar,
				LCL: xDoubleBar - constants.A2*rBar,
			},
			R: ChartLimits{
				UCL: constants.D4 * rBar,
				CL:  rBar,
				LCL: rLCL,
			},
			Constants: constants,
		},
	}, nil
}

// capability computes the centered and worst-case-adjusted capability pair
// for one sigma estimate. Zero sigma means all measurements are identical:
// capability is mathematically infinite and reported via the sentinel, not
// a division error.
func capability(limits Limits, mean, sigma float64) (Index, Index) {
	if sigma == 0 {
		return Index(math.Inf(1)), Index(math.Inf(1))
	}
	cp := limits.Width() / (6 * sigma)
	cpk := math.Min(
		(limits.USL-mean)/(3*sigma),
		(mean-limits.LSL)/(3*sigma),
	)
	return Index(cp), Index(cpk)
}
