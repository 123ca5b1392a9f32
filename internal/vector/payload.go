package vector

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PayloadKind tags the dynamic type of a payload value.
type PayloadKind uint8

const (
	KindNull PayloadKind = iota
	KindInteger
	KindDouble
	KindString
	KindBool
	KindOther
)

// PayloadValue is a payload field decoded from the store. Stores do not
// guarantee a single representation for a field (a page number may come back as
// an integer, a double or a string), so readers switch on Kind.
type PayloadValue struct {
	Kind   PayloadKind
	Int    int64
	Double float64
	Str    string
	Bool   bool
}

// IntegerValue returns an integer payload value.
func IntegerValue(v int64) PayloadValue { return PayloadValue{Kind: KindInteger, Int: v} }

// DoubleValue returns a floating-point payload value.
func DoubleValue(v float64) PayloadValue { return PayloadValue{Kind: KindDouble, Double: v} }

// StringValue returns a string payload value.
func StringValue(v string) PayloadValue { return PayloadValue{Kind: KindString, Str: v} }

// BoolValue returns a boolean payload value.
func BoolValue(v bool) PayloadValue { return PayloadValue{Kind: KindBool, Bool: v} }

// PayloadFromAny converts a Go value to a PayloadValue.
func PayloadFromAny(v any) PayloadValue {
	switch n := v.(type) {
	case nil:
		return PayloadValue{Kind: KindNull}
	case int:
		return IntegerValue(int64(n))
	case int32:
		return IntegerValue(int64(n))
	case int64:
		return IntegerValue(n)
	case uint32:
		return IntegerValue(int64(n))
	case uint64:
		if n > math.MaxInt64 {
			return DoubleValue(float64(n))
		}
		return IntegerValue(int64(n))
	case float32:
		return DoubleValue(float64(n))
	case float64:
		return DoubleValue(n)
	case string:
		return StringValue(n)
	case bool:
		return BoolValue(n)
	default:
		return PayloadValue{Kind: KindOther, Str: fmt.Sprint(v)}
	}
}

// AsInt64 interprets the value as an integer. Doubles must be finite and whole;
// strings must parse as an integer or a whole number.
func (p PayloadValue) AsInt64() (int64, bool) {
	switch p.Kind {
	case KindInteger:
		return p.Int, true
	case KindDouble:
		return wholeNumber(p.Double)
	case KindString:
		s := strings.TrimSpace(p.Str)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return wholeNumber(f)
		}
	}
	return 0, false
}

// AsString returns the value as text. Only string values are text.
func (p PayloadValue) AsString() (string, bool) {
	if p.Kind != KindString {
		return "", false
	}
	return p.Str, true
}

func wholeNumber(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
