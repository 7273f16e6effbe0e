package sim

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Statistics summarizes a sorted sample of fire sizes and answers the
// sequential-sampling confidence questions the stopping rule asks.
type Statistics struct {
	values         []float64
	n              int
	mean           float64
	sampleVariance float64
}

// NewStatistics computes statistics over an already-sorted sample.
func NewStatistics(sorted []float64) Statistics {
	s := Statistics{values: sorted, n: len(sorted)}
	if s.n == 0 {
		return s
	}
	s.mean = stat.Mean(sorted, nil)
	if s.n >= 2 {
		s.sampleVariance = stat.Variance(sorted, nil)
	} else {
		// a single observation carries no variance information
		s.sampleVariance = math.Inf(1)
	}
	return s
}

// N reports the sample size.
func (s Statistics) N() int { return s.n }

// Mean reports the sample mean.
func (s Statistics) Mean() float64 { return s.mean }

// SampleVariance reports the unbiased sample variance.
func (s Statistics) SampleVariance() float64 { return s.sampleVariance }

// StdDev reports the sample standard deviation.
func (s Statistics) StdDev() float64 { return math.Sqrt(s.sampleVariance) }

// Min reports the smallest value.
func (s Statistics) Min() float64 { return s.Percentile(0) }

// Max reports the largest value.
func (s Statistics) Max() float64 { return s.Percentile(100) }

// Median reports the 50th percentile.
func (s Statistics) Median() float64 { return s.Percentile(50) }

// Percentile returns the i-th percentile of the sample, i in [0, 100].
func (s Statistics) Percentile(i int) float64 {
	if s.n == 0 {
		return 0
	}
	pos := (i * s.n) / 100
	if pos > s.n-1 {
		pos = s.n - 1
	}
	return s.values[pos]
}

// tCritical is the one-sided 90% Student's t critical value for a sample of
// the given size.
func tCritical(n int) float64 {
	if n < 1 {
		n = 1
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n)}
	return t.Quantile(0.9)
}

// relativeHalfWidth is the t-scaled relative half width of the confidence
// interval the sample would have at size n.
func (s Statistics) relativeHalfWidth(n int) float64 {
	if s.mean == 0 {
		return math.Inf(1)
	}
	return tCritical(n) * math.Sqrt(s.sampleVariance/float64(n)) / math.Abs(s.mean)
}

// StudentsT reports the relative half width at the current sample size.
func (s Statistics) StudentsT() float64 {
	return s.relativeHalfWidth(s.n)
}

// IsConfident reports whether the sample's relative error is inside the
// requested bound.
func (s Statistics) IsConfident(relativeError float64) bool {
	return s.StudentsT() <= relativeError/(1+relativeError)
}

// RunsRequired estimates how many more observations are needed before
// IsConfident would hold, searching up to ten times the current sample.
// The search is iterative bisection; relativeHalfWidth is monotone
// decreasing in n.
func (s Statistics) RunsRequired(relativeError float64) int {
	if s.n == 0 {
		return 1
	}
	target := relativeError / (1 + relativeError)
	if s.relativeHalfWidth(s.n) <= target {
		return 0
	}
	lo, hi := s.n, 10*s.n
	if s.relativeHalfWidth(hi) > target {
		return hi - s.n
	}
	for lo+1 < hi {
		mid := lo + (hi-lo)/2
		if s.relativeHalfWidth(mid) <= target {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi - s.n
}
