package quality

import (
	"gonum.org/v1/gonum/stat"

	"iqccli/internal/spc"
)

// DefaultOutlierThreshold is the conventional 3-sigma band. It is a
// configuration default, not a fixed constant.
const DefaultOutlierThreshold = 3.0

// OutlierReport describes the values whose z-score exceeds the threshold.
type OutlierReport struct {
	Indices    []int     `json:"indices"`
	Values     []float64 `json:"values"`
	Mean       float64   `json:"mean"`
	Std        float64   `json:"std"`
	UpperLimit float64   `json:"upper_limit"`
	LowerLimit float64   `json:"lower_limit"`
	Threshold  float64   `json:"threshold"`
}

// Count returns the number of flagged values.
func (r OutlierReport) Count() int { return len(r.Indices) }

// DetectOutliers flags values whose absolute z-score strictly exceeds the
// threshold. The z-score uses the series mean and sample standard
// deviation (divisor N-1); a value exactly at threshold*sigma is not
// flagged. A zero threshold selects DefaultOutlierThreshold.
//
// The series is read-only; detection is advisory and never modifies data.
func DetectOutliers(series spc.MeasurementSeries, threshold float64) (OutlierReport, error) {
	if len(series) == 0 {
		return OutlierReport{}, &spc.InsufficientDataError{Count: 0, Required: 1}
	}
	if threshold == 0 {
		threshold = DefaultOutlierThreshold
	}

	mean := stat.Mean(series, nil)
	std := stat.StdDev(series, nil)

	report := OutlierReport{
		Mean:       mean,
		Std:        std,
		UpperLimit: mean + threshold*std,
		LowerLimit: mean - threshold*std,
		Threshold:  threshold,
		Indices:    []int{},
		Values:     []float64{},
	}

	if std == 0 {
		return report, nil
	}

	for i, v := range series {
		z := (v - mean) / std
		if z > threshold || z < -threshold {
			report.Indices = append(report.Indices, i)
			report.Values = append(report.Values, v)
		}
	}

	return report, nil
}
