// Package ema 带方差的指数移动平均，用于平滑时间线漂移和快照到达抖动
package ema

import "math"

// EMA 指数移动平均（附带方差与标准差）
type EMA struct {
	alpha             float64
	initialized       bool
	Value             float64
	Variance          float64
	StandardDeviation float64
}

// New 创建覆盖最近 n 个样本的 EMA
func New(n int) EMA {
	if n < 1 {
		n = 1
	}
	return EMA{alpha: 2.0 / (float64(n) + 1)}
}

// Add 加入一个新样本
func (e *EMA) Add(v float64) {
	if !e.initialized {
		e.Value = v
		e.initialized = true
		return
	}

	delta := v - e.Value
	e.Value += e.alpha * delta
	e.Variance = (1 - e.alpha) * (e.Variance + e.alpha*delta*delta)
	e.StandardDeviation = math.Sqrt(e.Variance)
}

// Initialized 是否已加入过样本
func (e *EMA) Initialized() bool {
	return e.initialized
}

// Reset 清空状态，保留窗口大小
func (e *EMA) Reset() {
	*e = EMA{alpha: e.alpha}
}
