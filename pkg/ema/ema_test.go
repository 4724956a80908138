package ema

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstSampleInitializes(t *testing.T) {
	e := New(10)
	require.False(t, e.Initialized())

	e.Add(5)
	require.True(t, e.Initialized())
	require.Equal(t, 5.0, e.Value)
	require.Zero(t, e.Variance)
	require.Zero(t, e.StandardDeviation)
}

func TestConstantInputHasNoVariance(t *testing.T) {
	e := New(4)
	for i := 0; i < 20; i++ {
		e.Add(0.1)
	}
	require.InDelta(t, 0.1, e.Value, 1e-12)
	require.InDelta(t, 0, e.StandardDeviation, 1e-12)
}

func TestAddFollowsRecurrence(t *testing.T) {
	// n = 3 时 alpha = 0.5
	e := New(3)
	e.Add(0)
	e.Add(4)

	require.InDelta(t, 2.0, e.Value, 1e-12)
	// (1-0.5) * (0 + 0.5*16) = 4
	require.InDelta(t, 4.0, e.Variance, 1e-12)
	require.InDelta(t, 2.0, e.StandardDeviation, 1e-12)

	e.Add(2)
	require.InDelta(t, 2.0, e.Value, 1e-12)
	require.InDelta(t, 2.0, e.Variance, 1e-12)
	require.InDelta(t, math.Sqrt(2), e.StandardDeviation, 1e-12)
}

func TestResetKeepsWindow(t *testing.T) {
	e := New(3)
	e.Add(1)
	e.Add(3)
	e.Reset()
	require.False(t, e.Initialized())
	require.Zero(t, e.Value)

	e.Add(0)
	e.Add(4)
	require.InDelta(t, 2.0, e.Value, 1e-12)
}

func TestNonPositiveWindow(t *testing.T) {
	e := New(0)
	e.Add(1)
	e.Add(3)
	// n 被限制为 1，alpha = 1，均值即最新样本
	require.InDelta(t, 3.0, e.Value, 1e-12)
}
