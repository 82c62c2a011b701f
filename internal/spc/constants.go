package spc

import "sort"

// Constants holds the Shewhart control-chart constants for one subgroup size.
// A2 converts R-bar into X-bar chart limits, D3/D4 bound the R chart and d2
// converts R-bar into an estimate of within-subgroup standard deviation.
type Constants struct {
	A2 float64 `json:"A2"`
	D3 float64 `json:"D3"`
	D4 float64 `json:"D4"`
	D2 float64 `json:"d2"`
}

// constantsTable holds the standard Shewhart constants for subgroup sizes
// 2 through 10. Values outside the table must fail rather than extrapolate.
var constantsTable = map[int]Constants{
	2:  {A2: 1.880, D3: 0, D4: 3.267, D2: 1.128},
	3:  {A2: 1.023, D3: 0, D4: 2.574, D2: 1.693},
	4:  {A2: 0.729, D3: 0, D4: 2.282, D2: 2.059},
	5:  {A2: 0.577, D3: 0, D4: 2.114, D2: 2.326},
	6:  {A2: 0.483, D3: 0, D4: 2.004, D2: 2.534},
	7:  {A2: 0.419, D3: 0.076, D4: 1.924, D2: 2.704},
	8:  {A2: 0.373, D3: 0.136, D4: 1.864, D2: 2.847},
	9:  {A2: 0.337, D3: 0.184, D4: 1.816, D2: 2.970},
	10: {A2: 0.308, D3: 0.223, D4: 1.777, D2: 3.078},
}

// ConstantsFor returns the control-chart constants for subgroup size n.
// Sizes without a tabulated entry return a SubgroupSizeError.
func ConstantsFor(n int) (Constants, error) {
	c, ok := constantsTable[n]
	if !ok {
		return Constants{}, &SubgroupSizeError{Size: n, Supported: SupportedSubgroupSizes()}
	}
	return c, nil
}

// SupportedSubgroupSizes returns the subgroup sizes with tabulated
// constants, in ascending order.
func SupportedSubgroupSizes() []int {
	sizes := make([]int, 0, len(constantsTable))
	for n := range constantsTable {
		sizes = append(sizes, n)
	}
	sort.Ints(sizes)
	return sizes
}
