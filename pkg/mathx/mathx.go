// Package mathx 快照与预测状态共用的小型数学值类型
package mathx

// Clamp 将 v 限制在 [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp 线性插值
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// InverseLerp 返回 v 在 [a, b] 上的比例，钳制到 [0, 1]；a == b 时返回 0
func InverseLerp(a, b, v float64) float64 {
	if a == b {
		return 0
	}
	return Clamp((v-a)/(b-a), 0, 1)
}
