package gtest

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// TimeFactor is a multiplier that can be controlled by the
// GIBCTEST_TIME_FACTOR environment variable
// to increase test-related timeouts and polling budgets.
//
// Fake chains relay transfers after a short delay,
// and drivers poll for the relayed balance.
// On a contended CI machine the default budget may not suffice,
// so the operator can set e.g. GIBCTEST_TIME_FACTOR=3
// to triple every scaled duration.
var TimeFactor ScaledDuration = 1

func init() {
	f := os.Getenv("GIBCTEST_TIME_FACTOR")
	if f == "" {
		return
	}

	n, err := strconv.Atoi(f)
	if err != nil {
		panic(fmt.Errorf(
			"failed to parse GIBCTEST_TIME_FACTOR (%q) into an integer: %w",
			f, err,
		))
	}

	if n <= 0 {
		panic(fmt.Errorf("GIBCTEST_TIME_FACTOR must be positive; got %d", n))
	}

	TimeFactor = ScaledDuration(n)
}

type ScaledDuration time.Duration

// ScaleMs returns ms in milliseconds, multiplied by [TimeFactor].
func ScaleMs(ms int64) ScaledDuration {
	return TimeFactor * ScaledDuration(ms) * ScaledDuration(time.Millisecond)
}

// Duration converts d for APIs that accept a [time.Duration].
func (d ScaledDuration) Duration() time.Duration {
	return time.Duration(d)
}
