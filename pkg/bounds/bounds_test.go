package bounds

import (
	"testing"

	"github.com/stretchr/testify/require"

	"snapsync/pkg/mathx"
)

func TestFromCenter(t *testing.T) {
	b := FromCenter(mathx.NewVec3(1, 1, 1), mathx.NewVec3(2, 4, 6))
	require.Equal(t, mathx.NewVec3(0, -1, -2), b.Min)
	require.Equal(t, mathx.NewVec3(2, 3, 4), b.Max)
	require.Equal(t, mathx.NewVec3(1, 1, 1), b.Center())
	require.Equal(t, mathx.NewVec3(2, 4, 6), b.Size())
}

func TestEncapsulateAndContains(t *testing.T) {
	a := Bounds{Min: mathx.NewVec3(0, 0, 0), Max: mathx.NewVec3(1, 1, 1)}
	b := Bounds{Min: mathx.NewVec3(2, -1, 0), Max: mathx.NewVec3(3, 0, 1)}

	u := a.Encapsulate(b)
	require.Equal(t, mathx.NewVec3(0, -1, 0), u.Min)
	require.Equal(t, mathx.NewVec3(3, 1, 1), u.Max)
	require.True(t, u.Contains(mathx.NewVec3(2.5, -0.5, 0.5)))
	require.False(t, a.Contains(mathx.NewVec3(2.5, -0.5, 0.5)))
	require.True(t, a.Contains(mathx.NewVec3(1, 1, 1)))
}

func TestInsertReturnsGivenBounds(t *testing.T) {
	h := NewHistory(8)
	first := FromCenter(mathx.NewVec3(0, 0, 0), mathx.NewVec3(1, 1, 1))
	second := FromCenter(mathx.NewVec3(5, 0, 0), mathx.NewVec3(1, 1, 1))

	require.Equal(t, first, h.Insert(first))
	require.Equal(t, second, h.Insert(second))
	require.Equal(t, 8, h.Limit)
}

func TestClamp(t *testing.T) {
	b := Bounds{Min: mathx.NewVec3(-1, 0, -1), Max: mathx.NewVec3(1, 2, 1)}
	require.Equal(t, mathx.NewVec3(1, 0, -0.5), b.Clamp(mathx.NewVec3(3, -4, -0.5)))
	require.Equal(t, mathx.NewVec3(0.5, 1, 0), b.Clamp(mathx.NewVec3(0.5, 1, 0)))
}
