package rules

import "testing"

func TestAmountToleranceBoundaries(t *testing.T) {
	const expected = 109000

	cases := []struct {
		name     string
		received int
		want     bool
	}{
		{"exact", 109000, true},
		{"lower bound", 98100, true},
		{"below lower bound", 98099, false},
		{"upper bound", 119900, true},
		{"above upper bound", 119901, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AmountWithinTolerance(tc.received, expected); got != tc.want {
				t.Fatalf("AmountWithinTolerance(%d, %d) = %v, want %v", tc.received, expected, got, tc.want)
			}
		})
	}
}

func TestAmountToleranceRejectsNonPositiveExpected(t *testing.T) {
	if AmountWithinTolerance(100, 0) {
		t.Fatalf("zero expected price must reject any amount")
	}
}
