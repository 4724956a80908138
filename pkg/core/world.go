package core

import (
	"cmp"
	"slices"

	"snapsync/pkg/bounds"
	"snapsync/pkg/mathx"
	"snapsync/pkg/protocol"
)

// World 权威世界状态（纯逻辑，不包含网络）
type World struct {
	Area   bounds.Bounds
	bodies map[uint32]*Body
	nextID uint32
}

// NewWorld 创建空世界
func NewWorld() *World {
	extent := mathx.NewVec3(WorldHalfExtent, WorldHalfExtent, WorldHalfExtent).Scale(2)
	return &World{
		Area:   bounds.FromCenter(mathx.Vec3{}, extent),
		bodies: make(map[uint32]*Body),
	}
}

// Spawn 创建新实体，ID 从 1 开始递增
func (w *World) Spawn() *Body {
	w.nextID++
	offset := float64(len(w.bodies)) * SpawnSpacing
	body := NewBody(w.nextID, w.Area.Clamp(mathx.NewVec3(offset, 0, 0)))
	w.bodies[body.ID] = body
	return body
}

// Remove 移除实体
func (w *World) Remove(id uint32) {
	delete(w.bodies, id)
}

// Body 查找实体
func (w *World) Body(id uint32) (*Body, bool) {
	b, ok := w.bodies[id]
	return b, ok
}

// Len 实体数量
func (w *World) Len() int {
	return len(w.bodies)
}

// Update 推进所有实体
func (w *World) Update(dt float64) {
	for _, b := range w.bodies {
		b.Update(dt, w.Area)
	}
}

// Snapshot 生成按 ID 排序的世界快照
func (w *World) Snapshot(remoteTime float64) protocol.Snapshot {
	s := protocol.Snapshot{
		RemoteTime: remoteTime,
		Entities:   make([]protocol.EntityState, 0, len(w.bodies)),
	}
	for _, b := range w.bodies {
		s.Entities = append(s.Entities, protocol.EntityState{
			ID:       b.ID,
			Position: b.Position,
			Rotation: b.Rotation,
			Scale:    b.Scale,
		})
	}
	slices.SortFunc(s.Entities, func(a, b protocol.EntityState) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return s
}

// Correction 生成实体的权威状态，时间戳由调用方给出
func (b *Body) Correction(timestamp float64) protocol.Correction {
	return protocol.Correction{
		EntityID:        b.ID,
		Timestamp:       timestamp,
		Position:        b.Position,
		Rotation:        b.Rotation,
		Velocity:        b.Velocity,
		AngularVelocity: b.AngularVelocity,
	}
}
