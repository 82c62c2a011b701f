// Package spc implements the statistical process control engine for
// dimensional inspection data.
//
// The package turns an ordered series of measurements plus a pair of
// specification limits into process capability indices (Cp, Cpk, Pp, Ppk)
// and X-bar/R control-chart limits:
//
//   - constants.go: tabulated Shewhart control-chart constants (A2, D3, D4, d2)
//   - subgroup.go: partitioning of a measurement series into fixed-size subgroups
//   - engine.go: capability and control-limit computation
//
// Cp/Cpk are potential capability indices derived from within-subgroup
// variation (R-bar/d2); Pp/Ppk are overall performance indices derived from
// the sample standard deviation across all measurements. A zero-variance
// series yields the infinite-capability sentinel rather than an error.
//
// Every operation is a pure function of its inputs: no logging, no I/O, no
// shared state. Concurrent calls are safe without synchronization.
//
// Usage:
//
//	engine := spc.NewEngine(spc.DefaultSubgroupSize, spc.DefaultCpkThreshold)
//	result, err := engine.Calculate(series, spc.Limits{USL: 27.90, LSL: 27.70})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Cpk, result.CpkStatus)
package spc
