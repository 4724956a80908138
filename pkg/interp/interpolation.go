// Package interp 让本地虚拟时钟以受控的距离落后远端时钟，并沿它采样缓冲的快照
//
// 这里的函数只修改调用方持有的状态，每帧路径上不分配内存。
// 一个缓冲区和它的 Timeline 只属于一条流。
package interp

import (
	"math"

	"snapsync/pkg/ema"
	"snapsync/pkg/history"
	"snapsync/pkg/mathx"
)

// Timeline 本地虚拟时钟状态
type Timeline struct {
	LocalTimeline   float64
	LocalTimescale  float64
	DriftEma        ema.EMA
	DeliveryTimeEma ema.EMA
}

// NewTimeline 按发送频率和配置的时长设置两个 EMA 的窗口
func NewTimeline(s Settings, sendRate float64) Timeline {
	return Timeline{
		LocalTimescale:  1,
		DriftEma:        ema.New(int(sendRate * float64(s.DriftEmaDuration))),
		DeliveryTimeEma: ema.New(int(sendRate * float64(s.DeliveryTimeEmaDuration))),
	}
}

// Timescale 三段死区：只会返回 1+catchupSpeed、1-slowdownSpeed 或 1
func Timescale(drift, catchupSpeed, slowdownSpeed, absoluteCatchupNegativeThreshold, absoluteCatchupPositiveThreshold float64) float64 {
	if drift > absoluteCatchupPositiveThreshold {
		return 1 + catchupSpeed
	}
	if drift < absoluteCatchupNegativeThreshold {
		return 1 - slowdownSpeed
	}
	return 1
}

// DynamicAdjustment 根据投递抖动推荐 bufferTimeMultiplier
func DynamicAdjustment(sendInterval, jitterStandardDeviation, dynamicAdjustmentTolerance float64) float64 {
	intervalWithJitter := sendInterval + jitterStandardDeviation
	multiples := intervalWithJitter / sendInterval
	return multiples + dynamicAdjustmentTolerance
}

// TimelineClamp 将本地时间线限制在目标时间 ± bufferTime 内
func TimelineClamp(localTimeline, bufferTime, latestRemoteTime float64) float64 {
	targetTime := latestRemoteTime - bufferTime
	lowerBound := targetTime - bufferTime
	upperBound := targetTime + bufferTime
	return mathx.Clamp(localTimeline, lowerBound, upperBound)
}

// InsertIfNotExists 按 remoteTime 插入；重复、时间非有限值或缓冲区已满时返回 false
func InsertIfNotExists[S Snapshot](buffer *history.Buffer[S], bufferLimit int, snapshot S) bool {
	if !finite(snapshot.RemoteTime()) || buffer.Len() >= bufferLimit {
		return false
	}
	return buffer.Add(snapshot.RemoteTime(), snapshot)
}

// InsertAndAdjust 插入快照；若为新快照则更新到达间隔与漂移 EMA，钳制时间线并重算 timescale
func InsertAndAdjust[S Snapshot](
	buffer *history.Buffer[S],
	snapshot S,
	tl *Timeline,
	sendInterval float64,
	bufferTime float64,
	s Settings,
) bool {
	if !finite(snapshot.RemoteTime()) {
		return false
	}

	// 第一个快照：保证初始渲染延迟
	if buffer.Len() == 0 {
		tl.LocalTimeline = snapshot.RemoteTime() - bufferTime
	}

	if !InsertIfNotExists(buffer, s.BufferLimit, snapshot) {
		return false
	}

	if n := buffer.Len(); n >= 2 {
		previousLocalTime := buffer.At(n - 2).LocalTime()
		latestLocalTime := buffer.At(n - 1).LocalTime()
		tl.DeliveryTimeEma.Add(latestLocalTime - previousLocalTime)
	}

	latestRemoteTime := buffer.KeyAt(buffer.Len() - 1)
	tl.LocalTimeline = TimelineClamp(tl.LocalTimeline, bufferTime, latestRemoteTime)

	tl.DriftEma.Add(latestRemoteTime - tl.LocalTimeline)
	drift := tl.DriftEma.Value - bufferTime

	absoluteNegativeThreshold := sendInterval * s.CatchupNegativeThreshold
	absolutePositiveThreshold := sendInterval * s.CatchupPositiveThreshold
	tl.LocalTimescale = Timescale(drift, s.CatchupSpeed, s.SlowdownSpeed, absoluteNegativeThreshold, absolutePositiveThreshold)
	return true
}

// Sample 在缓冲区中寻找 localTimeline 两侧的快照
//
// 精确命中返回 (i, i, 0)；早于最旧快照返回 (0, 0, 0)；晚于最新快照返回
// (last, last, 0)，不做外推。缓冲区必须非空。
func Sample[S Snapshot](buffer *history.Buffer[S], localTimeline float64) (from, to int, t float64) {
	n := buffer.Len()
	for i := 0; i < n; i++ {
		key := buffer.KeyAt(i)
		if key == localTimeline {
			return i, i, 0
		}
		if i+1 < n {
			next := buffer.KeyAt(i + 1)
			if localTimeline > key && localTimeline < next {
				return i, i + 1, mathx.InverseLerp(key, next, localTimeline)
			}
		}
	}

	if localTimeline < buffer.KeyAt(0) {
		return 0, 0, 0
	}
	return n - 1, n - 1, 0
}

// StepTime 推进本地时间线
func StepTime(deltaTime float64, tl *Timeline) {
	tl.LocalTimeline += deltaTime * tl.LocalTimescale
}

// StepInterpolation 采样缓冲区并删除 from 之前的所有条目（时间线只前进，不会再用到）
func StepInterpolation[S Snapshot](buffer *history.Buffer[S], localTimeline float64) (fromSnapshot, toSnapshot S, t float64) {
	from, to, t := Sample(buffer, localTimeline)
	fromSnapshot = buffer.At(from)
	toSnapshot = buffer.At(to)
	buffer.RemoveRange(from)
	return fromSnapshot, toSnapshot, t
}

// Step 推进时间并采样；缓冲区必须非空
func Step[S Snapshot](buffer *history.Buffer[S], deltaTime float64, tl *Timeline) (fromSnapshot, toSnapshot S, t float64) {
	StepTime(deltaTime, tl)
	return StepInterpolation(buffer, tl.LocalTimeline)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
