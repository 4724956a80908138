package interp

// Settings 快照插值参数
type Settings struct {
	// BufferTimeMultiplier 发送间隔乘以它得到缓冲时间
	BufferTimeMultiplier float64
	// BufferLimit 每条流最多缓冲的快照数
	BufferLimit int

	// 漂移阈值，单位为 sendInterval 的倍数
	CatchupNegativeThreshold float64
	CatchupPositiveThreshold float64

	CatchupSpeed  float64
	SlowdownSpeed float64

	// DriftEmaDuration 漂移 EMA 覆盖的秒数
	DriftEmaDuration int

	// DynamicAdjustment 根据到达抖动重新计算 BufferTimeMultiplier
	DynamicAdjustment          bool
	DynamicAdjustmentTolerance float64
	DeliveryTimeEmaDuration    int
}

// DefaultSettings 默认参数
func DefaultSettings() Settings {
	return Settings{
		BufferTimeMultiplier:       2,
		BufferLimit:                32,
		CatchupNegativeThreshold:   -1,
		CatchupPositiveThreshold:   1,
		CatchupSpeed:               0.02,
		SlowdownSpeed:              0.04,
		DriftEmaDuration:           1,
		DynamicAdjustment:          true,
		DynamicAdjustmentTolerance: 1,
		DeliveryTimeEmaDuration:    2,
	}
}

// BufferTime 缓冲延迟（秒）
func (s Settings) BufferTime(sendInterval float64) float64 {
	return sendInterval * s.BufferTimeMultiplier
}
