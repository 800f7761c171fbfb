package warehouse

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AsDecimal converts a numeric driver value, treating NULL as zero.
func AsDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return x, nil
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero, nil
		}
		return *x, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(x))
	case []byte:
		return decimal.NewFromString(strings.TrimSpace(string(x)))
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	}
	i, err := AsInt64(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unsupported numeric type %T", v)
	}
	return decimal.NewFromInt(i), nil
}

// AsCount converts a numeric driver value to int64, treating NULL as zero.
func AsCount(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case decimal.Decimal:
		return x.IntPart(), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return 0, err
		}
		return d.IntPart(), nil
	}
	return AsInt64(v)
}
