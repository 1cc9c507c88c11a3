package logger

import "testing"

func TestSamplerAllowsNumeratorPerWindow(t *testing.T) {
	s := newSampler(2, 5)
	allowed := 0
	for i := 0; i < 10; i++ {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 4 {
		t.Fatalf("allowed = %d, want 4", allowed)
	}
}

func TestSamplerZeroRatioAllowsAll(t *testing.T) {
	s := newSampler(0, 0)
	for i := 0; i < 3; i++ {
		if !s.Allow() {
			t.Fatal("zero ratio must not drop events")
		}
	}
}

func TestParseRatio(t *testing.T) {
	cases := []struct {
		in       string
		num, den int
	}{
		{"1/10", 1, 10},
		{" 3 / 4 ", 3, 4},
		{"20", 1, 20},
		{"0", 0, 0},
		{"-1/2", 0, 0},
		{"bogus", 0, 0},
	}
	for _, tc := range cases {
		num, den := parseRatio(tc.in)
		if num != tc.num || den != tc.den {
			t.Errorf("parseRatio(%q) = %d/%d, want %d/%d", tc.in, num, den, tc.num, tc.den)
		}
	}
}
