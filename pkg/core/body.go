package core

import (
	"snapsync/pkg/bounds"
	"snapsync/pkg/mathx"
)

// Body 一个可移动实体（纯逻辑，客户端预测与服务器共用）
type Body struct {
	ID              uint32
	Position        mathx.Vec3
	Rotation        mathx.Quat
	Scale           mathx.Vec3
	Velocity        mathx.Vec3
	AngularVelocity mathx.Vec3
}

// NewBody 创建静止实体
func NewBody(id uint32, position mathx.Vec3) *Body {
	return &Body{
		ID:       id,
		Position: position,
		Rotation: mathx.Identity,
		Scale:    mathx.NewVec3(1, 1, 1),
	}
}

// Update 按速度积分 dt 秒，位置限制在 area 内
func (b *Body) Update(dt float64, area bounds.Bounds) {
	if dt <= 0 {
		return
	}
	b.Position = area.Clamp(b.Position.Add(b.Velocity.Scale(dt)))

	if speed := b.AngularVelocity.Length(); speed > 0 {
		step := mathx.AxisAngle(b.AngularVelocity.Scale(1/speed), speed*dt)
		b.Rotation = step.Mul(b.Rotation).Normalized()
	}
}
