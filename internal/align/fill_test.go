package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldForward(t *testing.T) {
	values := []float64{0, 3, 0, 0, 5, 0}
	valid := []bool{false, true, false, false, true, false}

	n := holdForward(values, valid)
	assert.Equal(t, 3, n)
	assert.Equal(t, []float64{0, 3, 3, 3, 5, 5}, values)
	assert.Equal(t, []bool{false, true, true, true, true, true}, valid)
}

func TestHoldForwardAllUndefined(t *testing.T) {
	values := []float64{0, 0}
	valid := []bool{false, false}
	assert.Equal(t, 0, holdForward(values, valid))
	assert.Equal(t, []bool{false, false}, valid)
}

func TestInterpolateLinear(t *testing.T) {
	xs := []float64{0, 5, 10, 15, 20, 30}
	values := []float64{0, 1, 0, 0, 3, 0}
	valid := []bool{false, true, false, false, true, false}

	n, err := interpolateLinear(values, valid, xs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.InDeltaSlice(t, []float64{0, 1, 1 + 2.0/3, 1 + 4.0/3, 3, 0}, values, 1e-12)
	assert.Equal(t, []bool{false, true, true, true, true, false}, valid)
}

func TestInterpolateLinearTooFewPoints(t *testing.T) {
	xs := []float64{0, 1, 2}
	values := []float64{0, 4, 0}
	valid := []bool{false, true, false}

	n, err := interpolateLinear(values, valid, xs)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, []bool{false, true, false}, valid)
}
