package gtest_test

import (
	"testing"
	"time"

	"github.com/gordian-engine/gibctest/internal/gtest"
	"github.com/stretchr/testify/require"
)

func TestScaleMs(t *testing.T) {
	t.Parallel()

	d := gtest.ScaleMs(25)
	require.Equal(t, time.Duration(gtest.TimeFactor)*25*time.Millisecond, d.Duration())
	require.GreaterOrEqual(t, d.Duration(), 25*time.Millisecond)
}
