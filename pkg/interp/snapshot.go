package interp

import "snapsync/pkg/mathx"

// Snapshot 带时间戳的远端状态
//
// RemoteTime 是发送方时钟上的时间，LocalTime 是本地收到时的时间。
type Snapshot interface {
	RemoteTime() float64
	LocalTime() float64
}

// TransformSnapshot 一个实体的位置/旋转/缩放快照
type TransformSnapshot struct {
	Remote   float64
	Local    float64
	Position mathx.Vec3
	Rotation mathx.Quat
	Scale    mathx.Vec3
}

func (s TransformSnapshot) RemoteTime() float64 { return s.Remote }
func (s TransformSnapshot) LocalTime() float64  { return s.Local }

// InterpolateTransform 在两个快照之间插值，t 取自 Sample
func InterpolateTransform(from, to TransformSnapshot, t float64) TransformSnapshot {
	return TransformSnapshot{
		Remote:   from.Remote + (to.Remote-from.Remote)*t,
		Local:    from.Local + (to.Local-from.Local)*t,
		Position: mathx.LerpVec3(from.Position, to.Position, t),
		Rotation: mathx.Slerp(from.Rotation, to.Rotation, t),
		Scale:    mathx.LerpVec3(from.Scale, to.Scale, t),
	}
}
