package input

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedInput 输入消息无法解析
var ErrMalformedInput = errors.New("malformed input")

// Marshal 编码一条输入
//
// 布局：fixed32 id | varint 长度 name | varint 长度 parameters |
// fixed64 IEEE-754 时间戳，定长字段为小端
func Marshal(in ClientInput) []byte {
	size := 4 + protowire.SizeBytes(len(in.Name)) + protowire.SizeBytes(len(in.Parameters)) + 8
	b := make([]byte, 0, size)
	b = protowire.AppendFixed32(b, in.ID)
	b = protowire.AppendString(b, in.Name)
	b = protowire.AppendBytes(b, in.Parameters)
	b = protowire.AppendFixed64(b, math.Float64bits(in.Timestamp))
	return b
}

// Unmarshal 解码一条输入，参数为空时 Parameters 为 nil
func Unmarshal(data []byte) (ClientInput, error) {
	var in ClientInput

	id, n := protowire.ConsumeFixed32(data)
	if n < 0 {
		return in, fmt.Errorf("%w: id: %v", ErrMalformedInput, protowire.ParseError(n))
	}
	data = data[n:]

	name, n := protowire.ConsumeString(data)
	if n < 0 {
		return in, fmt.Errorf("%w: name: %v", ErrMalformedInput, protowire.ParseError(n))
	}
	data = data[n:]

	params, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return in, fmt.Errorf("%w: parameters: %v", ErrMalformedInput, protowire.ParseError(n))
	}
	data = data[n:]

	ts, n := protowire.ConsumeFixed64(data)
	if n < 0 {
		return in, fmt.Errorf("%w: timestamp: %v", ErrMalformedInput, protowire.ParseError(n))
	}
	data = data[n:]

	if len(data) != 0 {
		return in, fmt.Errorf("%w: %d trailing bytes", ErrMalformedInput, len(data))
	}

	in.ID = id
	in.Name = name
	if len(params) > 0 {
		in.Parameters = append([]byte(nil), params...)
	}
	in.Timestamp = math.Float64frombits(ts)
	return in, nil
}
