package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"snapsync/pkg/mathx"
)

// Welcome 服务器在连接建立后下发，告知客户端本地实体与发送频率
type Welcome struct {
	EntityID   uint32
	SendRate   float64
	ServerTime float64
	Spawn      mathx.Vec3 // 本地实体的出生点
}

// EntityState 快照中单个实体的变换
type EntityState struct {
	ID       uint32
	Position mathx.Vec3
	Rotation mathx.Quat
	Scale    mathx.Vec3
}

// Snapshot 服务器按 send_rate 广播的世界快照
type Snapshot struct {
	RemoteTime float64
	Entities   []EntityState
}

// Correction 服务器对本地实体的权威状态
type Correction struct {
	EntityID        uint32
	Timestamp       float64
	Position        mathx.Vec3
	Rotation        mathx.Quat
	Velocity        mathx.Vec3
	AngularVelocity mathx.Vec3
}

// ========== 欢迎消息 ==========

// NewWelcomePacket 构造欢迎消息包
func NewWelcomePacket(w Welcome) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(w.EntityID))
	b = appendDouble(b, 2, w.SendRate)
	b = appendDouble(b, 3, w.ServerTime)
	b = appendVec3(b, 4, w.Spawn)
	return MarshalPacket(Packet{Type: MessageTypeWelcome, Payload: b})
}

// ParseWelcome 从 Packet 中解析 Welcome
func ParseWelcome(p Packet) (Welcome, error) {
	if err := expect(p, MessageTypeWelcome); err != nil {
		return Welcome{}, err
	}
	var w Welcome
	err := decodeFields(p.Payload, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeUint32(typ, b, &w.EntityID)
		case 2:
			return consumeDouble(typ, b, &w.SendRate)
		case 3:
			return consumeDouble(typ, b, &w.ServerTime)
		case 4:
			return consumeVec3(typ, b, &w.Spawn)
		}
		return 0
	})
	if err != nil {
		return Welcome{}, err
	}
	return w, nil
}

// ========== 快照 ==========

func appendEntity(b []byte, num protowire.Number, e EntityState) []byte {
	var sub []byte
	sub = appendVarint(sub, 1, uint64(e.ID))
	sub = appendVec3(sub, 2, e.Position)
	sub = appendQuat(sub, 3, e.Rotation)
	sub = appendVec3(sub, 4, e.Scale)
	return appendBytes(b, num, sub)
}

func consumeEntity(typ protowire.Type, b []byte, out *EntityState) int {
	var sub []byte
	n := consumeBytes(typ, b, &sub)
	if n < 0 {
		return n
	}
	// 缺省旋转为单位四元数，缺省缩放为 1
	out.Rotation = mathx.Identity
	out.Scale = mathx.NewVec3(1, 1, 1)
	err := decodeFields(sub, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeUint32(typ, b, &out.ID)
		case 2:
			return consumeVec3(typ, b, &out.Position)
		case 3:
			out.Rotation = mathx.Quat{}
			return consumeQuat(typ, b, &out.Rotation)
		case 4:
			out.Scale = mathx.Vec3{}
			return consumeVec3(typ, b, &out.Scale)
		}
		return 0
	})
	if err != nil {
		return -1
	}
	return n
}

// NewSnapshotPacket 构造快照消息包
func NewSnapshotPacket(s Snapshot) []byte {
	var b []byte
	b = appendDouble(b, 1, s.RemoteTime)
	for _, e := range s.Entities {
		b = appendEntity(b, 2, e)
	}
	return MarshalPacket(Packet{Type: MessageTypeSnapshot, Payload: b})
}

// ParseSnapshot 从 Packet 中解析 Snapshot
func ParseSnapshot(p Packet) (Snapshot, error) {
	if err := expect(p, MessageTypeSnapshot); err != nil {
		return Snapshot{}, err
	}
	var s Snapshot
	err := decodeFields(p.Payload, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeDouble(typ, b, &s.RemoteTime)
		case 2:
			var e EntityState
			n := consumeEntity(typ, b, &e)
			if n > 0 {
				s.Entities = append(s.Entities, e)
			}
			return n
		}
		return 0
	})
	if err != nil {
		return Snapshot{}, err
	}
	if !isFinite(s.RemoteTime) {
		return Snapshot{}, fmt.Errorf("%w: remote time %v", ErrMalformedPacket, s.RemoteTime)
	}
	return s, nil
}

// ========== 纠正 ==========

// NewCorrectionPacket 构造纠正消息包
func NewCorrectionPacket(c Correction) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(c.EntityID))
	b = appendDouble(b, 2, c.Timestamp)
	b = appendVec3(b, 3, c.Position)
	b = appendQuat(b, 4, c.Rotation)
	b = appendVec3(b, 5, c.Velocity)
	b = appendVec3(b, 6, c.AngularVelocity)
	return MarshalPacket(Packet{Type: MessageTypeCorrection, Payload: b})
}

// ParseCorrection 从 Packet 中解析 Correction
func ParseCorrection(p Packet) (Correction, error) {
	if err := expect(p, MessageTypeCorrection); err != nil {
		return Correction{}, err
	}
	c := Correction{Rotation: mathx.Identity}
	err := decodeFields(p.Payload, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeUint32(typ, b, &c.EntityID)
		case 2:
			return consumeDouble(typ, b, &c.Timestamp)
		case 3:
			return consumeVec3(typ, b, &c.Position)
		case 4:
			c.Rotation = mathx.Quat{}
			return consumeQuat(typ, b, &c.Rotation)
		case 5:
			return consumeVec3(typ, b, &c.Velocity)
		case 6:
			return consumeVec3(typ, b, &c.AngularVelocity)
		}
		return 0
	})
	if err != nil {
		return Correction{}, err
	}
	if !isFinite(c.Timestamp) {
		return Correction{}, fmt.Errorf("%w: timestamp %v", ErrMalformedPacket, c.Timestamp)
	}
	return c, nil
}
