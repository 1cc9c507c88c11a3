package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler lets num out of every den events through. A zero ratio lets
// everything through.
type sampler struct {
	ratio atomic.Uint64 // num<<32 | den
	n     atomic.Uint64
}

func newSampler(num, den int) *sampler {
	s := &sampler{}
	s.Set(num, den)
	return s
}

// Set replaces the ratio and restarts the window.
func (s *sampler) Set(num, den int) {
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	}
	num = min(num, den)
	s.ratio.Store(uint64(num)<<32 | uint64(uint32(den)))
	s.n.Store(0)
}

// Allow counts one event and reports whether it falls inside the window.
func (s *sampler) Allow() bool {
	r := s.ratio.Load()
	num, den := r>>32, r&0xffffffff
	if den == 0 {
		return true
	}
	pos := (s.n.Add(1) - 1) % den
	return pos < num
}

// parseRatio accepts "num/den" or "den" (meaning 1/den). Anything invalid or
// non-positive yields 0/0.
func parseRatio(ratio string) (int, int) {
	ratio = strings.TrimSpace(ratio)
	if a, b, ok := strings.Cut(ratio, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(a))
		den, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 == nil && err2 == nil && num > 0 && den > 0 {
			return num, den
		}
		return 0, 0
	}
	if den, err := strconv.Atoi(ratio); err == nil && den > 0 {
		return 1, den
	}
	return 0, 0
}
