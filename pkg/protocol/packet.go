// Package protocol 服务器与客户端之间的消息包定义
// 消息与 protobuf 线格式兼容，使用 protowire 编解码
package protocol

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"snapsync/pkg/input"
)

// MessageType 消息类型
type MessageType uint32

const (
	MessageTypeUnspecified MessageType = iota
	MessageTypeWelcome
	MessageTypeSnapshot
	MessageTypeCorrection
	MessageTypeInput
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeWelcome:
		return "welcome"
	case MessageTypeSnapshot:
		return "snapshot"
	case MessageTypeCorrection:
		return "correction"
	case MessageTypeInput:
		return "input"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

var (
	// ErrMalformedPacket 包无法解析
	ErrMalformedPacket = errors.New("malformed packet")
	// ErrUnexpectedType 包类型与解析函数不符
	ErrUnexpectedType = errors.New("unexpected message type")
)

// Packet 消息外壳
type Packet struct {
	Type    MessageType
	Payload []byte
}

// MarshalPacket 序列化消息外壳
func MarshalPacket(p Packet) []byte {
	b := make([]byte, 0, 2+protowire.SizeBytes(len(p.Payload))+2)
	b = appendVarint(b, 1, uint64(p.Type))
	b = appendBytes(b, 2, p.Payload)
	return b
}

// UnmarshalPacket 解析消息外壳
func UnmarshalPacket(data []byte) (Packet, error) {
	var p Packet
	err := decodeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			var v uint32
			n := consumeUint32(typ, b, &v)
			p.Type = MessageType(v)
			return n
		case 2:
			return consumeBytes(typ, b, &p.Payload)
		}
		return 0
	})
	if err != nil {
		return Packet{}, err
	}
	if p.Type == MessageTypeUnspecified {
		return Packet{}, fmt.Errorf("%w: missing type", ErrMalformedPacket)
	}
	return p, nil
}

func expect(p Packet, t MessageType) error {
	if p.Type != t {
		return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedType, p.Type, t)
	}
	return nil
}

// ========== 输入 ==========

// NewInputPacket 构造输入消息包
func NewInputPacket(in input.ClientInput) []byte {
	return MarshalPacket(Packet{Type: MessageTypeInput, Payload: input.Marshal(in)})
}

// ParseInput 从 Packet 中解析 ClientInput
func ParseInput(p Packet) (input.ClientInput, error) {
	if err := expect(p, MessageTypeInput); err != nil {
		return input.ClientInput{}, err
	}
	return input.Unmarshal(p.Payload)
}
