package spc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantsFor(t *testing.T) {
	tests := []struct {
		name string
		size int
		want Constants
	}{
		{"pairs", 2, Constants{A2: 1.880, D3: 0, D4: 3.267, D2: 1.128}},
		{"triples", 3, Constants{A2: 1.023, D3: 0, D4: 2.574, D2: 1.693}},
		{"quads", 4, Constants{A2: 0.729, D3: 0, D4: 2.282, D2: 2.059}},
		{"default size", 5, Constants{A2: 0.577, D3: 0, D4: 2.114, D2: 2.326}},
		{"first size with nonzero D3", 7, Constants{A2: 0.419, D3: 0.076, D4: 1.924, D2: 2.704}},
		{"largest tabulated", 10, Constants{A2: 0.308, D3: 0.223, D4: 1.777, D2: 3.078}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConstantsFor(tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConstantsForUnsupportedSize(t *testing.T) {
	for _, size := range []int{-1, 0, 1, 11, 25} {
		_, err := ConstantsFor(size)
		require.Error(t, err, "size %d", size)
		assert.True(t, errors.Is(err, ErrUnsupportedSubgroupSize))

		var sizeErr *SubgroupSizeError
		require.ErrorAs(t, err, &sizeErr)
		assert.Equal(t, size, sizeErr.Size)
		assert.NotEmpty(t, sizeErr.Supported)
	}
}

func TestSupportedSubgroupSizes(t *testing.T) {
	sizes := SupportedSubgroupSizes()
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8, 9, 10}, sizes)
}
