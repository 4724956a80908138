package core

import (
	"fmt"

	"snapsync/pkg/input"
	"snapsync/pkg/mathx"
	"snapsync/pkg/protocol"
)

// ApplyInput 将一条输入应用到实体
//
// move 的参数为方向向量，零向量等同于 stop。未知输入返回错误且不修改实体。
func ApplyInput(body *Body, in input.ClientInput) error {
	switch in.Name {
	case protocol.InputMove:
		dir, err := protocol.DecodeMoveParams(in.Parameters)
		if err != nil {
			return fmt.Errorf("输入 %d: %w", in.ID, err)
		}
		dir = dir.Normalized()
		if dir == (mathx.Vec3{}) {
			stop(body)
			return nil
		}
		body.Velocity = dir.Scale(MoveSpeed)
		body.AngularVelocity = mathx.NewVec3(0, TurnSpeed, 0)

	case protocol.InputStop:
		stop(body)

	default:
		return fmt.Errorf("输入 %d: 未知输入 %q", in.ID, in.Name)
	}
	return nil
}

func stop(body *Body) {
	body.Velocity = mathx.Vec3{}
	body.AngularVelocity = mathx.Vec3{}
}
