package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverlane/coverlane/common/errors"
)

func TestAddChecked(t *testing.T) {
	sum, err := AddChecked(1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sum)

	sum, err = AddChecked(math.MaxUint64, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), sum)

	_, err = AddChecked(math.MaxUint64, 1)
	assert.True(t, errors.Is(err, errors.CodeArithmeticOverflow))
}

func TestSubChecked(t *testing.T) {
	diff, err := SubChecked(5, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), diff)

	_, err = SubChecked(5, 6)
	assert.True(t, errors.Is(err, errors.CodeArithmeticOverflow))
}

func TestMulChecked(t *testing.T) {
	product, err := MulChecked(1_000_000, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000_000), product)

	product, err = MulChecked(0, math.MaxUint64)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), product)

	_, err = MulChecked(math.MaxUint64, 2)
	assert.True(t, errors.Is(err, errors.CodeArithmeticOverflow))
}
