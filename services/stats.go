package services

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// round2 rounds half away from zero to 2 decimal places. Going through
// decimal avoids float artefacts such as 2.675 rounding down.
func round2(f float64) float64 {
	return roundPlaces(f, 2)
}

func round1(f float64) float64 {
	return roundPlaces(f, 1)
}

func roundPlaces(f float64, places int32) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	v, _ := decimal.NewFromFloat(f).Round(places).Float64()
	return v
}

// validSamples copies samples without NaN/Inf values.
func validSamples(samples []float64) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// median does not modify values.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func floatPtr(v float64) *float64 {
	return &v
}
