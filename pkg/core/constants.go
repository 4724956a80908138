package core

// 世界配置
const (
	WorldHalfExtent = 50.0 // 世界边界（米），以原点为中心
	SpawnSpacing    = 2.0  // 新实体沿 X 轴的间隔
)

// 实体配置
const (
	MoveSpeed = 4.0 // 米/秒
	TurnSpeed = 1.5 // 移动时绕 Y 轴的角速度（弧度/秒）
)
