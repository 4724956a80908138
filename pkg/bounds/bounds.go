// Package bounds 实体近期历史的轴对齐包围盒
//
// Insert 目前只是占位：原样返回传入的包围盒，不保存历史也不淘汰。
// 最近 limit 条记录的滚动包围盒尚未实现。
package bounds

import "snapsync/pkg/mathx"

// Bounds 轴对齐包围盒
type Bounds struct {
	Min mathx.Vec3
	Max mathx.Vec3
}

// FromCenter 由中心与尺寸构造
func FromCenter(center, size mathx.Vec3) Bounds {
	half := size.Scale(0.5)
	return Bounds{Min: center.Sub(half), Max: center.Add(half)}
}

func (b Bounds) Center() mathx.Vec3 {
	return mathx.LerpVec3(b.Min, b.Max, 0.5)
}

func (b Bounds) Size() mathx.Vec3 {
	return b.Max.Sub(b.Min)
}

// Encapsulate 扩展到同时包含 o
func (b Bounds) Encapsulate(o Bounds) Bounds {
	return Bounds{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Contains 点是否在包围盒内（含边界）
func (b Bounds) Contains(p mathx.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Clamp 将点限制在包围盒内
func (b Bounds) Clamp(p mathx.Vec3) mathx.Vec3 {
	return p.Max(b.Min).Min(b.Max)
}

// History 包围盒历史
type History struct {
	Limit int
}

// NewHistory 创建上限为 limit 的历史
func NewHistory(limit int) *History {
	return &History{Limit: limit}
}

// Insert 返回覆盖历史的包围盒，目前即 b 本身
func (h *History) Insert(b Bounds) Bounds {
	return b
}
