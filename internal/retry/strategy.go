package retry

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// Backoff returns the delay before attempt n+1, or false once no further
// attempt is allowed.
type Backoff interface {
	Next(n uint) (time.Duration, bool)
}

type never struct{}

func Never() Backoff {
	return never{}
}

func (never) Next(uint) (time.Duration, bool) {
	return 0, false
}

// Jitter picks a delay in [0, n).
type Jitter func(n int64) int64

type exponential struct {
	base     time.Duration
	max      time.Duration
	attempts uint
	jitter   Jitter
}

// Exponential doubles base on every attempt up to max, allowing at most
// attempts retries. A nil jitter applies full jitter via math/rand.
func Exponential(base time.Duration, max time.Duration, attempts uint, jitter Jitter) Backoff {
	if jitter == nil {
		jitter = func(n int64) int64 {
			if n <= 0 {
				return 0
			}
			return rand.Int63n(n)
		}
	}
	return &exponential{
		base:     base,
		max:      max,
		attempts: attempts,
		jitter:   jitter,
	}
}

func (e *exponential) Next(n uint) (time.Duration, bool) {
	if n >= e.attempts {
		return 0, false
	}

	ceiling := int64(e.max)
	if n < 63 {
		if delay, err := checkedMul(int64(1)<<n, int64(e.base)); err == nil {
			ceiling = min(delay, ceiling)
		}
	}
	return time.Duration(e.jitter(ceiling)), true
}

var errOverflow = errors.New("overflow")

func checkedMul(l int64, r int64) (int64, error) {
	if l == 0 || r == 0 {
		return 0, nil
	}
	if l > math.MaxInt64/r {
		return 0, errOverflow
	}
	return l * r, nil
}
