package quality

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"iqccli/internal/spc"
)

// Sample-size validity ranges for the two normality tests.
const (
	shapiroMinN = 3
	shapiroMaxN = 5000
	andersonMinN = 8

	// NormalityAlpha is the significance level for both tests.
	NormalityAlpha = 0.05
)

// ShapiroResult holds the Shapiro-Wilk test outcome. Applicable is false
// outside 3 <= N <= 5000, in which case the other fields are zero.
type ShapiroResult struct {
	Statistic  float64 `json:"statistic"`
	PValue     float64 `json:"p_value"`
	IsNormal   bool    `json:"is_normal"`
	Applicable bool    `json:"applicable"`
}

// AndersonResult holds the Anderson-Darling test outcome against the 5%
// critical value. Applicable is false for N < 8.
type AndersonResult struct {
	Statistic     float64 `json:"statistic"`
	CriticalValue float64 `json:"critical_value"`
	IsNormal      bool    `json:"is_normal"`
	Applicable    bool    `json:"applicable"`
}

// NormalityReport combines both tests. The capability indices assume
// normally distributed data; a failing report is advisory, not blocking.
type NormalityReport struct {
	Shapiro  ShapiroResult  `json:"shapiro"`
	Anderson AndersonResult `json:"anderson"`
}

// NormalityTest runs Shapiro-Wilk and Anderson-Darling against the series.
// Each test reports not-applicable outside its validity range instead of
// guessing.
func NormalityTest(series spc.MeasurementSeries) (NormalityReport, error) {
	if len(series) == 0 {
		return NormalityReport{}, &spc.InsufficientDataError{Count: 0, Required: shapiroMinN}
	}

	var report NormalityReport

	if n := len(series); n >= shapiroMinN && n <= shapiroMaxN {
		w, p := shapiroWilk(series)
		report.Shapiro = ShapiroResult{
			Statistic:  w,
			PValue:     p,
			IsNormal:   p >= NormalityAlpha,
			Applicable: true,
		}
	}

	if len(series) >= andersonMinN {
		a2, critical := andersonDarling(series)
		report.Anderson = AndersonResult{
			Statistic:     a2,
			CriticalValue: critical,
			IsNormal:      a2 < critical,
			Applicable:    true,
		}
	}

	return report, nil
}

// shapiroWilk computes the Shapiro-Wilk W statistic and its p-value using
// the Royston AS R94 approximation (valid for 3 <= n <= 5000).
func shapiroWilk(series spc.MeasurementSeries) (w, p float64) {
	n := len(series)
	x := append([]float64(nil), series...)
	sort.Float64s(x)

	norm := distuv.Normal{Mu: 0, Sigma: 1}

	// Expected normal order statistics (Blom scores).
	m := make([]float64, n)
	ssq := 0.0
	for i := range m {
		m[i] = norm.Quantile((float64(i+1) - 0.375) / (float64(n) + 0.25))
		ssq += m[i] * m[i]
	}

	a := make([]float64, n)
	if n == 3 {
		a[0] = -math.Sqrt(0.5)
		a[2] = math.Sqrt(0.5)
	} else {
		u := 1 / math.Sqrt(float64(n))
		c := func(i int) float64 { return m[i] / math.Sqrt(ssq) }

		an := c(n-1) + u*(0.221157+u*(-0.147981+u*(-2.071190+u*(4.434685+u*-2.706056))))

		var phi float64
		if n > 5 {
			an1 := c(n-2) + u*(0.042981+u*(-0.293762+u*(-1.752461+u*(5.682633+u*-3.582633))))
			phi = (ssq - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) /
				(1 - 2*an*an - 2*an1*an1)
			a[n-1], a[0] = an, -an
			a[n-2], a[1] = an1, -an1
			for i := 2; i < n-2; i++ {
				a[i] = m[i] / math.Sqrt(phi)
			}
		} else {
			phi = (ssq - 2*m[n-1]*m[n-1]) / (1 - 2*an*an)
			a[n-1], a[0] = an, -an
			for i := 1; i < n-1; i++ {
				a[i] = m[i] / math.Sqrt(phi)
			}
		}
	}

	mean := stat.Mean(x, nil)
	num, den := 0.0, 0.0
	for i, v := range x {
		num += a[i] * v
		den += (v - mean) * (v - mean)
	}
	if den == 0 {
		// Degenerate constant series: perfectly "normal" by convention.
		return 1, 1
	}
	w = num * num / den
	if w > 1 {
		w = 1
	}

	// Royston 1995 p-value approximation.
	oneMinusW := 1 - w
	if oneMinusW < 1e-12 {
		oneMinusW = 1e-12
	}

	switch {
	case n == 3:
		p = (6 / math.Pi) * (math.Asin(math.Sqrt(w)) - math.Asin(math.Sqrt(0.75)))
		if p < 0 {
			p = 0
		}
	case n <= 11:
		fn := float64(n)
		gamma := -2.273 + 0.459*fn
		mu := 0.5440 - 0.39978*fn + 0.025054*fn*fn - 0.0006714*fn*fn*fn
		sigma := math.Exp(1.3822 - 0.77857*fn + 0.062767*fn*fn - 0.0020322*fn*fn*fn)
		z := (-math.Log(gamma-math.Log(oneMinusW)) - mu) / sigma
		p = norm.Survival(z)
	default:
		ln := math.Log(float64(n))
		mu := -1.5861 - 0.31082*ln - 0.083751*ln*ln + 0.0038915*ln*ln*ln
		sigma := math.Exp(-0.4803 - 0.082676*ln + 0.0030302*ln*ln)
		z := (math.Log(oneMinusW) - mu) / sigma
		p = norm.Survival(z)
	}

	return w, p
}

// andersonDarling computes the A-squared statistic for normality with
// estimated mean and variance, plus the 5% critical value adjusted for
// sample size.
func andersonDarling(series spc.MeasurementSeries) (a2, critical float64) {
	n := len(series)
	x := append([]float64(nil), series...)
	sort.Float64s(x)

	mean := stat.Mean(x, nil)
	std := stat.StdDev(x, nil)
	if std == 0 {
		// Constant series: no evidence against normality.
		return 0, criticalValue(n)
	}

	norm := distuv.Normal{Mu: mean, Sigma: std}

	sum := 0.0
	fn := float64(n)
	for i := 0; i < n; i++ {
		cdfLow := clampProbability(norm.CDF(x[i]))
		cdfHigh := clampProbability(norm.CDF(x[n-1-i]))
		sum += (2*float64(i) + 1) * (math.Log(cdfLow) + math.Log(1-cdfHigh))
	}
	a2 = -fn - sum/fn

	return a2, criticalValue(n)
}

// criticalValue returns the 5% Anderson-Darling critical value for the
// estimated-parameters normal case, scaled for sample size.
func criticalValue(n int) float64 {
	fn := float64(n)
	return 0.787 / (1 + 4/fn - 25/(fn*fn))
}

func clampProbability(p float64) float64 {
	const eps = 1e-15
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}
