package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"snapsync/pkg/input"
	"snapsync/pkg/mathx"
	"snapsync/pkg/protocol"
)

func moveInput(id uint32, dir mathx.Vec3) input.ClientInput {
	return input.ClientInput{ID: id, Name: protocol.InputMove, Parameters: protocol.EncodeMoveParams(dir)}
}

func TestApplyInput(t *testing.T) {
	cases := []struct {
		name    string
		in      input.ClientInput
		wantVel mathx.Vec3
		wantErr bool
	}{
		{"move normalizes direction", moveInput(1, mathx.NewVec3(3, 0, 4)), mathx.NewVec3(0.6*MoveSpeed, 0, 0.8*MoveSpeed), false},
		{"zero move stops", moveInput(2, mathx.Vec3{}), mathx.Vec3{}, false},
		{"stop", input.ClientInput{ID: 3, Name: protocol.InputStop}, mathx.Vec3{}, false},
		{"bad params", input.ClientInput{ID: 4, Name: protocol.InputMove, Parameters: []byte{1}}, mathx.NewVec3(1, 0, 0), true},
		{"unknown", input.ClientInput{ID: 5, Name: "jump"}, mathx.NewVec3(1, 0, 0), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := NewBody(1, mathx.Vec3{})
			body.Velocity = mathx.NewVec3(1, 0, 0)

			err := ApplyInput(body, tc.in)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.InDelta(t, tc.wantVel.X, body.Velocity.X, 1e-9)
			require.InDelta(t, tc.wantVel.Z, body.Velocity.Z, 1e-9)
		})
	}
}

func TestBodyUpdateIntegratesAndClamps(t *testing.T) {
	w := NewWorld()
	body := w.Spawn()
	require.NoError(t, ApplyInput(body, moveInput(1, mathx.NewVec3(1, 0, 0))))

	body.Update(0.5, w.Area)
	require.InDelta(t, 0.5*MoveSpeed, body.Position.X, 1e-9)
	require.InDelta(t, 0.5*TurnSpeed, mathx.Angle(mathx.Identity, body.Rotation), 1e-6)

	body.Update(1000, w.Area)
	require.Equal(t, WorldHalfExtent, body.Position.X)
	require.True(t, w.Area.Contains(body.Position))
}

func TestBodyUpdateIgnoresNonPositiveDelta(t *testing.T) {
	body := NewBody(1, mathx.Vec3{})
	body.Velocity = mathx.NewVec3(1, 1, 1)
	body.Update(0, NewWorld().Area)
	body.Update(-1, NewWorld().Area)
	require.Equal(t, mathx.Vec3{}, body.Position)
}

func TestWorldSpawnAndSnapshot(t *testing.T) {
	w := NewWorld()
	a := w.Spawn()
	b := w.Spawn()
	c := w.Spawn()
	require.Equal(t, []uint32{1, 2, 3}, []uint32{a.ID, b.ID, c.ID})
	require.Equal(t, SpawnSpacing, b.Position.X)

	w.Remove(b.ID)
	_, ok := w.Body(b.ID)
	require.False(t, ok)
	require.Equal(t, 2, w.Len())

	s := w.Snapshot(1.5)
	require.Equal(t, 1.5, s.RemoteTime)
	require.Len(t, s.Entities, 2)
	require.Equal(t, uint32(1), s.Entities[0].ID)
	require.Equal(t, uint32(3), s.Entities[1].ID)
	require.Equal(t, mathx.Identity, s.Entities[1].Rotation)
}

func TestBodyCorrection(t *testing.T) {
	body := NewBody(7, mathx.NewVec3(1, 2, 3))
	body.Velocity = mathx.NewVec3(0, 0, -1)

	c := body.Correction(4.25)
	require.Equal(t, uint32(7), c.EntityID)
	require.Equal(t, 4.25, c.Timestamp)
	require.Equal(t, body.Position, c.Position)
	require.Equal(t, body.Velocity, c.Velocity)
	require.False(t, math.IsNaN(c.Rotation.W))
}
