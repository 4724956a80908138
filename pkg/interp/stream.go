package interp

import "snapsync/pkg/history"

// Stream 一个同步流：快照缓冲 + 时间线 + 参数
//
// 非并发安全，每个网络实体一条 Stream
type Stream[S Snapshot] struct {
	Buffer   *history.Buffer[S]
	Timeline Timeline
	Settings Settings
	SendRate float64
}

// NewStream 创建同步流，sendRate 为远端每秒发送的快照数
func NewStream[S Snapshot](settings Settings, sendRate float64) *Stream[S] {
	return &Stream[S]{
		Buffer:   history.New[S](settings.BufferLimit),
		Timeline: NewTimeline(settings, sendRate),
		Settings: settings,
		SendRate: sendRate,
	}
}

// SendInterval 发送间隔（秒）
func (s *Stream[S]) SendInterval() float64 {
	return 1 / s.SendRate
}

// BufferTime 当前缓冲延迟（秒）
func (s *Stream[S]) BufferTime() float64 {
	return s.Settings.BufferTime(s.SendInterval())
}

// Drift 平滑后的漂移相对期望缓冲延迟的偏差
func (s *Stream[S]) Drift() float64 {
	return s.Timeline.DriftEma.Value - s.BufferTime()
}

// Insert 插入快照并调整时间线
func (s *Stream[S]) Insert(snapshot S) bool {
	if s.Settings.DynamicAdjustment {
		s.Settings.BufferTimeMultiplier = DynamicAdjustment(
			s.SendInterval(),
			s.Timeline.DeliveryTimeEma.StandardDeviation,
			s.Settings.DynamicAdjustmentTolerance,
		)
	}
	return InsertAndAdjust(s.Buffer, snapshot, &s.Timeline, s.SendInterval(), s.BufferTime(), s.Settings)
}

// Tick 推进 dt 秒并采样；缓冲区为空时 ok 为 false，调用方应保持上一帧状态
func (s *Stream[S]) Tick(dt float64) (from, to S, t float64, ok bool) {
	if s.Buffer.Len() == 0 {
		return from, to, 0, false
	}
	from, to, t = Step(s.Buffer, dt, &s.Timeline)
	return from, to, t, true
}

// Reset 清空缓冲与时间线
func (s *Stream[S]) Reset() {
	s.Buffer.Clear()
	s.Timeline = NewTimeline(s.Settings, s.SendRate)
}
