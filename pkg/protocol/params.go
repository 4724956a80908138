package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"snapsync/pkg/mathx"
)

// 演示服务器识别的输入名
const (
	InputMove = "move"
	InputStop = "stop"
)

const vec3ParamsSize = 24

// EncodeMoveParams 将移动方向编码为输入参数（三个小端 float64）
func EncodeMoveParams(dir mathx.Vec3) []byte {
	b := make([]byte, 0, vec3ParamsSize)
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(dir.X))
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(dir.Y))
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(dir.Z))
	return b
}

// DecodeMoveParams 解析移动方向
func DecodeMoveParams(b []byte) (mathx.Vec3, error) {
	if len(b) != vec3ParamsSize {
		return mathx.Vec3{}, fmt.Errorf("%w: move params length %d", ErrMalformedPacket, len(b))
	}
	return mathx.Vec3{
		X: math.Float64frombits(binary.LittleEndian.Uint64(b[0:])),
		Y: math.Float64frombits(binary.LittleEndian.Uint64(b[8:])),
		Z: math.Float64frombits(binary.LittleEndian.Uint64(b[16:])),
	}, nil
}
