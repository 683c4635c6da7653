package quantile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantileMeanAndSum(t *testing.T) {
	q := &Quantile{Xs: []float64{1, 2, 3, 4, 5}}
	assert.Equal(t, 15.0, q.Sum())
	assert.Equal(t, 3.0, q.Mean())
}

func TestQuantilePercentileCopiesBeforeSorting(t *testing.T) {
	q := &Quantile{Xs: []float64{5, 1, 4, 2, 3}}
	require.False(t, q.Sorted)

	p50 := q.Percentile(0.5)
	assert.Equal(t, 3.0, p50)
	assert.False(t, q.Sorted, "Percentile takes a value receiver and must not mutate the caller's Quantile")
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, q.Xs)
}

func TestQuantilePercentileMonotonic(t *testing.T) {
	q := &Quantile{Xs: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}}
	q.Sort()

	p50 := q.Percentile(0.5)
	p95 := q.Percentile(0.95)
	p99 := q.Percentile(0.99)
	assert.LessOrEqual(t, p50, p95)
	assert.LessOrEqual(t, p95, p99)
}

func TestQuantileEmptyPercentileIsZero(t *testing.T) {
	q := &Quantile{}
	assert.Equal(t, 0.0, q.Percentile(0.5))
	assert.True(t, math.IsNaN(q.Mean()), "Mean of an empty Quantile is NaN")
}
