package prediction

import "snapsync/pkg/mathx"

// RigidbodyState 刚体的一条预测记录
type RigidbodyState struct {
	Time float64

	Position      mathx.Vec3
	PositionDelta mathx.Vec3

	Rotation      mathx.Quat
	RotationDelta mathx.Quat

	Velocity      mathx.Vec3
	VelocityDelta mathx.Vec3

	AngularVelocity      mathx.Vec3
	AngularVelocityDelta mathx.Vec3
}

// NewRigidbodyState 以 previous 为基准计算 delta；previous 为 nil 时 delta 为零
func NewRigidbodyState(timestamp float64, position mathx.Vec3, rotation mathx.Quat, velocity, angularVelocity mathx.Vec3, previous *RigidbodyState) RigidbodyState {
	s := RigidbodyState{
		Time:            timestamp,
		Position:        position,
		Rotation:        rotation,
		Velocity:        velocity,
		AngularVelocity: angularVelocity,
		RotationDelta:   mathx.Identity,
	}
	if previous != nil {
		s.PositionDelta = position.Sub(previous.Position)
		s.VelocityDelta = velocity.Sub(previous.Velocity)
		s.AngularVelocityDelta = angularVelocity.Sub(previous.AngularVelocity)
		s.RotationDelta = rotation.Mul(previous.Rotation.Inverse()).Normalized()
	}
	return s
}

func (s RigidbodyState) Timestamp() float64 { return s.Time }

// AdjustDeltas 按比例缩放 delta；旋转 delta 从单位旋转球面插值
func (s RigidbodyState) AdjustDeltas(multiplier float64) RigidbodyState {
	s.PositionDelta = s.PositionDelta.Scale(multiplier)
	s.VelocityDelta = s.VelocityDelta.Scale(multiplier)
	s.AngularVelocityDelta = s.AngularVelocityDelta.Scale(multiplier)
	s.RotationDelta = mathx.Slerp(mathx.Identity, s.RotationDelta, multiplier)
	return s
}

func (s RigidbodyState) Advance(prev RigidbodyState) RigidbodyState {
	s.Position = prev.Position.Add(s.PositionDelta)
	s.Velocity = prev.Velocity.Add(s.VelocityDelta)
	s.AngularVelocity = prev.AngularVelocity.Add(s.AngularVelocityDelta)
	s.Rotation = s.RotationDelta.Mul(prev.Rotation).Normalized()
	return s
}

// InterpolateRigidbody 两条记录之间的插值，用于比较预测与修正的误差
func InterpolateRigidbody(a, b RigidbodyState, t float64) RigidbodyState {
	return RigidbodyState{
		Time:            mathx.Lerp(a.Time, b.Time, t),
		Position:        mathx.LerpVec3(a.Position, b.Position, t),
		Rotation:        mathx.Slerp(a.Rotation, b.Rotation, t),
		Velocity:        mathx.LerpVec3(a.Velocity, b.Velocity, t),
		AngularVelocity: mathx.LerpVec3(a.AngularVelocity, b.AngularVelocity, t),
		RotationDelta:   mathx.Identity,
	}
}
