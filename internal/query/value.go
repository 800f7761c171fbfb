package query

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags the representation held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindDecimal
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// Value is a cell of a result row: null, string, integer, float, exact decimal or date.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	d    decimal.Decimal
	t    time.Time
}

func NullValue() Value { return Value{} }
func StringValue(s string) Value { return Value{kind: KindString, s: s} }
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }
func DecimalValue(d decimal.Decimal) Value { return Value{kind: KindDecimal, d: d} }
func DateValue(t time.Time) Value { return Value{kind: KindDate, t: t} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload; ok is false for other kinds.
func (v Value) Str() (string, bool) {
	return v.s, v.kind == KindString
}

// Decimal returns the exact payload of a decimal value.
func (v Value) Decimal() (decimal.Decimal, bool) {
	return v.d, v.kind == KindDecimal
}

// Float returns any numeric payload as float64.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindDecimal:
		f, _ := v.d.Float64()
		return f, true
	default:
		return 0, false
	}
}

// Coerced turns exact decimals into floats and leaves every other kind untouched.
func (v Value) Coerced() Value {
	if v.kind != KindDecimal {
		return v
	}
	f, _ := v.d.Float64()
	return FloatValue(f)
}

// Equal is positional and type-sensitive: IntValue(1) differs from StringValue("1").
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.keyPart() == o.keyPart()
}

func (v Value) keyPart() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDecimal:
		return v.d.String()
	case KindDate:
		return v.t.Format(time.DateOnly)
	default:
		return ""
	}
}

func (v Value) String() string {
	if v.kind == KindNull {
		return "null"
	}
	return v.keyPart()
}

// MarshalJSON writes decimals as exact number literals and dates as YYYY-MM-DD.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return []byte("null"), nil
		}
		return []byte(strconv.FormatFloat(v.f, 'f', -1, 64)), nil
	case KindDecimal:
		return []byte(v.d.String()), nil
	case KindDate:
		return json.Marshal(v.t.Format(time.DateOnly))
	default:
		return []byte("null"), nil
	}
}

// dimensionValue converts a driver value of a grouping column.
func dimensionValue(x any) Value {
	x = deref(x)
	switch t := x.(type) {
	case nil:
		return NullValue()
	case string:
		return StringValue(t)
	case []byte:
		return StringValue(string(t))
	case time.Time:
		return DateValue(t)
	case decimal.Decimal:
		return DecimalValue(t)
	case bool:
		return StringValue(strconv.FormatBool(t))
	}
	if v, ok := numericValue(x); ok {
		return v
	}
	return StringValue(fmt.Sprint(x))
}

// metricValue converts a driver value of an aggregate column. Textual numerics
// (Postgres NUMERIC, MySQL DECIMAL) become exact decimals.
func metricValue(x any) (Value, error) {
	x = deref(x)
	switch t := x.(type) {
	case nil:
		return NullValue(), nil
	case decimal.Decimal:
		return DecimalValue(t), nil
	case string:
		return parseDecimal(t)
	case []byte:
		return parseDecimal(string(t))
	}
	if v, ok := numericValue(x); ok {
		return v, nil
	}
	return Value{}, fmt.Errorf("unsupported aggregate type %T", x)
}

func parseDecimal(s string) (Value, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Value{}, fmt.Errorf("invalid numeric %q: %w", s, err)
	}
	return DecimalValue(d), nil
}

func numericValue(x any) (Value, bool) {
	switch t := x.(type) {
	case int:
		return IntValue(int64(t)), true
	case int8:
		return IntValue(int64(t)), true
	case int16:
		return IntValue(int64(t)), true
	case int32:
		return IntValue(int64(t)), true
	case int64:
		return IntValue(t), true
	case uint8:
		return IntValue(int64(t)), true
	case uint16:
		return IntValue(int64(t)), true
	case uint32:
		return IntValue(int64(t)), true
	case uint64:
		if t > math.MaxInt64 {
			return FloatValue(float64(t)), true
		}
		return IntValue(int64(t)), true
	case float32:
		return FloatValue(float64(t)), true
	case float64:
		return FloatValue(t), true
	}
	return Value{}, false
}

// deref unwraps pointers produced by drivers that scan nullable columns into *T.
func deref(x any) any {
	if x == nil {
		return nil
	}
	rv := reflect.ValueOf(x)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}
