package protocol

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"snapsync/pkg/mathx"
)

// ========== 编码 ==========

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVec3(b []byte, num protowire.Number, v mathx.Vec3) []byte {
	var sub []byte
	sub = appendDouble(sub, 1, v.X)
	sub = appendDouble(sub, 2, v.Y)
	sub = appendDouble(sub, 3, v.Z)
	return appendBytes(b, num, sub)
}

func appendQuat(b []byte, num protowire.Number, q mathx.Quat) []byte {
	var sub []byte
	sub = appendDouble(sub, 1, q.X)
	sub = appendDouble(sub, 2, q.Y)
	sub = appendDouble(sub, 3, q.Z)
	sub = appendDouble(sub, 4, q.W)
	return appendBytes(b, num, sub)
}

// ========== 解码 ==========

// fieldFunc 解析一个字段值并返回消耗的字节数；返回 0 表示未知字段跳过，负数表示格式错误
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) int

func decodeFields(data []byte, fn fieldFunc) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: tag: %v", ErrMalformedPacket, protowire.ParseError(n))
		}
		data = data[n:]

		m := fn(num, typ, data)
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, data)
		}
		if m < 0 {
			return fmt.Errorf("%w: field %d", ErrMalformedPacket, num)
		}
		data = data[m:]
	}
	return nil
}

func consumeDouble(typ protowire.Type, b []byte, out *float64) int {
	if typ != protowire.Fixed64Type {
		return -1
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return n
	}
	*out = math.Float64frombits(v)
	return n
}

func consumeUint32(typ protowire.Type, b []byte, out *uint32) int {
	if typ != protowire.VarintType {
		return -1
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return n
	}
	if v > math.MaxUint32 {
		return -1
	}
	*out = uint32(v)
	return n
}

func consumeBytes(typ protowire.Type, b []byte, out *[]byte) int {
	if typ != protowire.BytesType {
		return -1
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}
	*out = v
	return n
}

func consumeVec3(typ protowire.Type, b []byte, out *mathx.Vec3) int {
	var sub []byte
	n := consumeBytes(typ, b, &sub)
	if n < 0 {
		return n
	}
	err := decodeFields(sub, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeDouble(typ, b, &out.X)
		case 2:
			return consumeDouble(typ, b, &out.Y)
		case 3:
			return consumeDouble(typ, b, &out.Z)
		}
		return 0
	})
	if err != nil {
		return -1
	}
	return n
}

func consumeQuat(typ protowire.Type, b []byte, out *mathx.Quat) int {
	var sub []byte
	n := consumeBytes(typ, b, &sub)
	if n < 0 {
		return n
	}
	err := decodeFields(sub, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeDouble(typ, b, &out.X)
		case 2:
			return consumeDouble(typ, b, &out.Y)
		case 3:
			return consumeDouble(typ, b, &out.Z)
		case 4:
			return consumeDouble(typ, b, &out.W)
		}
		return 0
	})
	if err != nil {
		return -1
	}
	return n
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
