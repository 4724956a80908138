package client

import (
	"snapsync/internal/metrics"
	"snapsync/pkg/bounds"
	"snapsync/pkg/core"
	"snapsync/pkg/history"
	"snapsync/pkg/input"
	"snapsync/pkg/mathx"
	"snapsync/pkg/prediction"
	"snapsync/pkg/protocol"
)

// Predictor 本地实体的预测与回滚纠正
//
// 实体按与服务器相同的 core 规则模拟，每次 Advance 都记录结果以便重放迟到的纠正。
// 非并发安全。
type Predictor struct {
	body      *core.Body
	area      bounds.Bounds
	history   *history.Buffer[prediction.RigidbodyState]
	limit     int
	threshold float64
	lastTime  float64
	started   bool
}

// NewPredictor 创建预测器，limit 为历史上限，threshold 为位置误差阈值（米）
func NewPredictor(limit int, threshold float64) *Predictor {
	if limit < 2 {
		limit = 2
	}
	return &Predictor{
		body:      core.NewBody(0, mathx.Vec3{}),
		area:      core.NewWorld().Area,
		history:   history.New[prediction.RigidbodyState](limit),
		limit:     limit,
		threshold: threshold,
	}
}

// Body 当前预测的实体
func (p *Predictor) Body() *core.Body {
	return p.body
}

// History 预测历史（只读使用）
func (p *Predictor) History() *history.Buffer[prediction.RigidbodyState] {
	return p.history
}

// Reset 丢弃历史，实体 id 从 spawn 重新开始
func (p *Predictor) Reset(id uint32, spawn mathx.Vec3) {
	p.body = core.NewBody(id, spawn)
	p.history.Clear()
	p.started = false
	p.lastTime = 0
}

// Advance 把实体模拟到 now 并记录
func (p *Predictor) Advance(now float64) prediction.RigidbodyState {
	if p.started && now > p.lastTime {
		p.body.Update(now-p.lastTime, p.area)
	}
	if !p.started || now > p.lastTime {
		p.lastTime = now
	}
	p.started = true
	return p.record(p.lastTime)
}

// ApplyInput 在输入时间戳处应用输入并覆盖该时刻的记录
func (p *Predictor) ApplyInput(in input.ClientInput) error {
	p.Advance(in.Timestamp)
	if err := core.ApplyInput(p.body, in); err != nil {
		return err
	}
	p.record(p.lastTime)
	return nil
}

func (p *Predictor) record(ts float64) prediction.RigidbodyState {
	var previous *prediction.RigidbodyState
	i := p.history.UpperBound(ts) - 1
	if i >= 0 && p.history.KeyAt(i) == ts {
		i--
	}
	if i >= 0 {
		prev := p.history.At(i)
		previous = &prev
	}

	b := p.body
	state := prediction.NewRigidbodyState(ts, b.Position, b.Rotation, b.Velocity, b.AngularVelocity, previous)
	prediction.Record(p.history, p.limit, state)
	return state
}

// OnCorrection 处理服务器对本地实体的纠正，返回结果标签与重放的记录数
//
// 比所有记录都新的纠正直接采用并从它重建历史；无法包住的丢弃；
// 位置误差在阈值内的跳过；其余执行回滚重放，实体跳到重放后的状态。
func (p *Predictor) OnCorrection(c protocol.Correction) (string, int) {
	last, ok := p.history.Last()
	if !ok || c.Timestamp > last.Timestamp() {
		p.adopt(c)
		return metrics.CorrectionApplied, 0
	}

	before, after, afterIndex, t, ok := prediction.Sample(p.history, c.Timestamp)
	if !ok {
		return metrics.CorrectionFailed, 0
	}

	predicted := prediction.InterpolateRigidbody(before, after, t)
	if mathx.Distance(predicted.Position, c.Position) < p.threshold {
		return metrics.CorrectionSkipped, 0
	}

	// afterIndex-1 是严格早于纠正时刻的最后一条记录
	var previous *prediction.RigidbodyState
	if afterIndex > 0 {
		prev := p.history.At(afterIndex - 1)
		previous = &prev
	}
	corrected := prediction.NewRigidbodyState(c.Timestamp, c.Position, c.Rotation, c.Velocity, c.AngularVelocity, previous)

	prediction.InsertCorrection(p.history, p.limit, corrected, before, after)
	latest, count := prediction.CorrectHistory(p.history, corrected)

	p.body.Position = latest.Position
	p.body.Rotation = latest.Rotation
	p.body.Velocity = latest.Velocity
	p.body.AngularVelocity = latest.AngularVelocity
	return metrics.CorrectionApplied, count
}

func (p *Predictor) adopt(c protocol.Correction) {
	p.body.Position = c.Position
	p.body.Rotation = c.Rotation
	p.body.Velocity = c.Velocity
	p.body.AngularVelocity = c.AngularVelocity
	p.history.Clear()
	p.lastTime = c.Timestamp
	p.started = true
	p.record(c.Timestamp)
}
