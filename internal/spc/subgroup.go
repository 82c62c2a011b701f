package spc

// Subgroup is a contiguous block of measurements of fixed size together
// with its mean and range. Subgroups are transient: they are rebuilt on
// every Calculate call and never persisted.
type Subgroup struct {
	Values []float64 `json:"values"`
	Mean   float64   `json:"mean"`
	Range  float64   `json:"range"`
}

// Partition splits a measurement series into consecutive non-overlapping
// subgroups of the given size, in original order.
//
// A trailing partial subgroup is discarded, not zero-padded and not kept
// short: the mean and range of a short group bias the R-bar estimate. If
// the discard leaves zero subgroups, Partition returns an
// InsufficientDataError.
func Partition(series MeasurementSeries, size int) ([]Subgroup, error) {
	if _, err := ConstantsFor(size); err != nil {
		return nil, err
	}
	if len(series) < size {
		return nil, &InsufficientDataError{Count: len(series), Required: size}
	}

	n := len(series) / size
	groups := make([]Subgroup, 0, n)
	for i := 0; i < n; i++ {
		block := series[i*size : (i+1)*size]

		values := make([]float64, size)
		copy(values, block)

		sum := 0.0
		lo, hi := values[0], values[0]
		for _, v := range values {
			sum += v
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}

		groups = append(groups, Subgroup{
			Values: values,
			Mean:   sum / float64(size),
			Range:  hi - lo,
		})
	}

	return groups, nil
}
