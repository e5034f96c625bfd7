package ledger

import (
	"math"

	"github.com/coverlane/coverlane/common/errors"
)

// AddChecked returns a+b, failing instead of wrapping.
func AddChecked(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, errors.ArithmeticOverflow("add overflows: %d + %d", a, b)
	}
	return a + b, nil
}

// SubChecked returns a-b, failing instead of wrapping.
func SubChecked(a, b uint64) (uint64, error) {
	if b > a {
		return 0, errors.ArithmeticOverflow("subtract underflows: %d - %d", a, b)
	}
	return a - b, nil
}

// MulChecked returns a*b, failing instead of wrapping.
func MulChecked(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	product := a * b
	if product/b != a {
		return 0, errors.ArithmeticOverflow("multiply overflows: %d * %d", a, b)
	}
	return product, nil
}
