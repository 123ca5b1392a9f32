package vector

import (
	"math"
	"testing"
)

func TestPayloadValue_AsInt64(t *testing.T) {
	tests := []struct {
		name   string
		value  PayloadValue
		want   int64
		wantOK bool
	}{
		{"integer", IntegerValue(4), 4, true},
		{"whole double", DoubleValue(7.0), 7, true},
		{"fractional double", DoubleValue(7.5), 0, false},
		{"nan", DoubleValue(math.NaN()), 0, false},
		{"numeric string", StringValue("12"), 12, true},
		{"padded string", StringValue(" 12 "), 12, true},
		{"float string", StringValue("3.0"), 3, true},
		{"word string", StringValue("twelve"), 0, false},
		{"bool", BoolValue(true), 0, false},
		{"null", PayloadValue{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.AsInt64()
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("AsInt64() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPayloadFromAny(t *testing.T) {
	tests := []struct {
		in   any
		kind PayloadKind
	}{
		{nil, KindNull},
		{3, KindInteger},
		{int64(3), KindInteger},
		{uint32(3), KindInteger},
		{float32(1.5), KindDouble},
		{2.5, KindDouble},
		{"x", KindString},
		{false, KindBool},
		{[]int{1}, KindOther},
	}
	for _, tt := range tests {
		if got := PayloadFromAny(tt.in); got.Kind != tt.kind {
			t.Errorf("PayloadFromAny(%#v).Kind = %d, want %d", tt.in, got.Kind, tt.kind)
		}
	}
}
