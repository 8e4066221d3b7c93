package decimalx

import (
	"math/big"
	"testing"
)

func TestToWireInt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"exact", "1.5", "1500000000000000000"},
		{"truncates_not_rounds", "1.0000000000000000009", "1000000000000000000"},
		{"zero", "0", "0"},
		{"negative", "-2.25", "-2250000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewFromString(tt.in)
			if err != nil {
				t.Fatalf("NewFromString(%q) error: %v", tt.in, err)
			}
			got := ToWireInt(d)
			want, ok := new(big.Int).SetString(tt.want, 10)
			if !ok {
				t.Fatalf("bad test fixture %q", tt.want)
			}
			if got.Cmp(want) != 0 {
				t.Errorf("ToWireInt(%s) = %s, want %s", tt.in, got.String(), want.String())
			}
		})
	}
}

func TestRatioIsExact(t *testing.T) {
	// 89/80 must be exact, matching the XIA imbalance-curve coefficient.
	got := Ratio(89, 80)
	want, _ := NewFromString("1.1125")
	if !got.Equal(want) {
		t.Errorf("Ratio(89, 80) = %s, want %s", got.String(), want.String())
	}
}

func TestRoundHalfEven(t *testing.T) {
	tests := []struct {
		in     string
		places int32
		want   string
	}{
		{"0.125", 2, "0.12"},
		{"0.135", 2, "0.14"},
		{"2.5", 0, "2"},
		{"3.5", 0, "4"},
	}
	for _, tt := range tests {
		d, err := NewFromString(tt.in)
		if err != nil {
			t.Fatalf("NewFromString(%q) error: %v", tt.in, err)
		}
		got := RoundHalfEven(d, tt.places)
		want, _ := NewFromString(tt.want)
		if !got.Equal(want) {
			t.Errorf("RoundHalfEven(%s, %d) = %s, want %s", tt.in, tt.places, got.String(), want.String())
		}
	}
}

func TestFromWireIntRoundTrip(t *testing.T) {
	d, _ := NewFromString("123.456")
	wire := ToWireInt(d)
	back := FromWireInt(wire)
	if !back.Equal(d) {
		t.Errorf("round trip mismatch: got %s, want %s", back.String(), d.String())
	}
}
