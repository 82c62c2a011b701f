package spc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		name       string
		series     MeasurementSeries
		size       int
		wantGroups int
	}{
		{"exact multiple", MeasurementSeries{1, 2, 3, 4, 5, 6}, 3, 2},
		{"single group", MeasurementSeries{27.85, 27.84, 27.81, 27.82, 27.85}, 5, 1},
		{"trailing partial discarded", MeasurementSeries{1, 2, 3, 4, 5, 6, 7}, 5, 1},
		{"two groups with remainder", MeasurementSeries{1, 2, 3, 4, 5, 6, 7, 8, 9}, 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, err := Partition(tt.series, tt.size)
			require.NoError(t, err)
			require.Len(t, groups, tt.wantGroups)

			// Groups are consecutive blocks in original order.
			for i, g := range groups {
				require.Len(t, g.Values, tt.size)
				for j, v := range g.Values {
					assert.Equal(t, tt.series[i*tt.size+j], v)
				}
			}
		})
	}
}

func TestPartitionStatistics(t *testing.T) {
	groups, err := Partition(MeasurementSeries{10.0, 10.4, 10.2, 9.8, 10.1}, 5)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	assert.InDelta(t, 10.1, groups[0].Mean, 1e-9)
	assert.InDelta(t, 0.6, groups[0].Range, 1e-9)
}

func TestPartitionDeterminism(t *testing.T) {
	series := MeasurementSeries{5.1, 5.2, 5.0, 5.3, 5.1, 5.2, 5.4, 5.0, 5.1, 5.2, 5.3}
	size := 3

	first, err := Partition(series, size)
	require.NoError(t, err)
	second, err := Partition(series, size)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, len(series)/size)
}

func TestPartitionDoesNotMutateInput(t *testing.T) {
	series := MeasurementSeries{1, 2, 3, 4, 5, 6}
	original := series.Copy()

	groups, err := Partition(series, 2)
	require.NoError(t, err)

	// Mutating subgroup values must not leak back into the series.
	groups[0].Values[0] = 999
	assert.Equal(t, original, series)
}

func TestPartitionInsufficientData(t *testing.T) {
	_, err := Partition(MeasurementSeries{1, 2, 3}, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	var insufficientErr *InsufficientDataError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, 3, insufficientErr.Count)
	assert.Equal(t, 5, insufficientErr.Required)
}

func TestPartitionUnsupportedSize(t *testing.T) {
	_, err := Partition(MeasurementSeries{1, 2, 3, 4}, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedSubgroupSize))
}
